// Package gsthost runs a GStreamer pipeline and masks every buffer that
// passes the element named "mask".
//
// The pipeline description is parsed as with gst-launch-1.0. Caps events on
// the mask element's src pad renegotiate the masker geometry; buffers are
// mapped read-write and masked in place from a pad probe. A buffer that
// cannot be masked is dropped. If the pipeline contains an appsink named
// "preview", its samples are handed to a SampleWriter.
package gsthost

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/zachmartin/gaming-capture/host/mask-gateway/internal/mask"
)

const (
	// MaskElement is the name of the element whose output is masked.
	MaskElement = "mask"
	// PreviewElement is the name of the optional preview appsink.
	PreviewElement = "preview"
)

var (
	ErrNoMaskElement = errors.New("pipeline has no element named " + MaskElement)
	errMapFailed     = errors.New("gst buffer map failed")
)

var initOnce sync.Once

// SampleWriter receives encoded preview samples.
type SampleWriter interface {
	WriteSample(data []byte, duration time.Duration) error
}

// Options configures a Host.
type Options struct {
	// Pipeline is a gst-launch style description.
	Pipeline string
	// Preview receives samples from the "preview" appsink. Nil disables it.
	Preview SampleWriter
	// PreviewFPS sets the nominal sample duration.
	PreviewFPS int
}

// Stats counts buffers seen by the mask probe.
type Stats struct {
	Masked         uint64 `json:"masked"`
	Dropped        uint64 `json:"dropped"`
	PreviewSamples uint64 `json:"preview_samples"`
}

// Host owns one pipeline.
type Host struct {
	pipeline *gst.Pipeline
	masker   *mask.Masker
	log      zerolog.Logger

	preview        SampleWriter
	sampleDuration time.Duration

	masked         atomic.Uint64
	dropped        atomic.Uint64
	previewSamples atomic.Uint64

	stopOnce sync.Once
}

// New parses the pipeline and installs the mask probes.
func New(opts Options, m *mask.Masker, log zerolog.Logger) (*Host, error) {
	initOnce.Do(func() { gst.Init(nil) })

	pipeline, err := gst.NewPipelineFromString(opts.Pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pipeline: %w", err)
	}

	h := &Host{
		pipeline: pipeline,
		masker:   m,
		log:      log.With().Str("component", "gsthost").Logger(),
		preview:  opts.Preview,
	}
	if opts.PreviewFPS > 0 {
		h.sampleDuration = time.Second / time.Duration(opts.PreviewFPS)
	}

	element, err := pipeline.GetElementByName(MaskElement)
	if err != nil || element == nil {
		return nil, ErrNoMaskElement
	}
	if err := h.installProbes(element); err != nil {
		return nil, err
	}

	if h.preview != nil {
		if err := h.attachPreview(); err != nil {
			return nil, err
		}
	}

	return h, nil
}

func (h *Host) installProbes(element *gst.Element) error {
	srcPad := element.GetStaticPad("src")
	if srcPad == nil {
		return fmt.Errorf("failed to get src pad from %s", MaskElement)
	}

	srcPad.AddProbe(gst.PadProbeTypeEventDownstream, func(pad *gst.Pad, info *gst.PadProbeInfo) gst.PadProbeReturn {
		event := info.GetEvent()
		if event == nil || event.Type() != gst.EventTypeCaps {
			return gst.PadProbeOK
		}
		h.handleCaps(event.ParseCaps())
		return gst.PadProbeOK
	})

	srcPad.AddProbe(gst.PadProbeTypeBuffer, func(pad *gst.Pad, info *gst.PadProbeInfo) gst.PadProbeReturn {
		buffer := info.GetBuffer()
		if buffer == nil {
			return gst.PadProbeOK
		}
		if err := h.masker.ProcessBuffer(gstBuffer{buffer}); err != nil {
			h.dropped.Add(1)
			h.log.Debug().Err(err).Msg("dropping buffer")
			return gst.PadProbeDrop
		}
		h.masked.Add(1)
		return gst.PadProbeOK
	})

	h.log.Debug().Str("element", element.GetName()).Msg("mask probes installed")
	return nil
}

func (h *Host) handleCaps(caps *gst.Caps) {
	if caps == nil || caps.GetSize() == 0 {
		return
	}
	structure := caps.GetStructureAt(0)
	width, height, err := geometryFromCaps(structure.GetValue)
	if err == nil {
		err = h.masker.SetGeometry(width, height)
	}
	if err != nil {
		h.masker.ClearGeometry()
		h.log.Error().Err(err).Str("caps", caps.String()).Msg("caps rejected, buffers will be dropped")
		return
	}
	h.log.Info().Int("width", width).Int("height", height).Msg("stream geometry negotiated")
}

func (h *Host) attachPreview() error {
	element, err := h.pipeline.GetElementByName(PreviewElement)
	if err != nil || element == nil {
		h.log.Warn().Msg("preview requested but pipeline has no preview appsink")
		return nil
	}

	sink := app.SinkFromElement(element)
	if sink == nil {
		return fmt.Errorf("element %s is not an appsink", PreviewElement)
	}
	sink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: h.onPreviewSample,
	})
	return nil
}

func (h *Host) onPreviewSample(sink *app.Sink) gst.FlowReturn {
	sample := sink.PullSample()
	if sample == nil {
		return gst.FlowOK
	}
	buffer := sample.GetBuffer()
	if buffer == nil {
		return gst.FlowOK
	}

	if err := h.preview.WriteSample(buffer.Bytes(), h.sampleDuration); err != nil {
		h.log.Debug().Err(err).Msg("preview sample not written")
		return gst.FlowOK
	}
	h.previewSamples.Add(1)
	return gst.FlowOK
}

// Run plays the pipeline until ctx is cancelled, the stream ends, or the
// pipeline reports an error. The pipeline is stopped on return.
func (h *Host) Run(ctx context.Context) error {
	defer h.Stop()

	if err := h.pipeline.SetState(gst.StatePlaying); err != nil {
		return fmt.Errorf("failed to start pipeline: %w", err)
	}
	h.log.Info().Msg("pipeline playing")

	bus := h.pipeline.GetPipelineBus()
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		// Poll with a short timeout for responsive shutdown
		msg := bus.TimedPop(50 * time.Millisecond)
		if msg == nil {
			continue
		}

		switch msg.Type() {
		case gst.MessageEOS:
			h.log.Info().Uint64("masked", h.masked.Load()).Msg("end of stream")
			return nil

		case gst.MessageError:
			gerr := msg.ParseError()
			h.log.Error().Str("debug", gerr.DebugString()).Msg(gerr.Error())
			return fmt.Errorf("pipeline error: %s", gerr.Error())

		case gst.MessageWarning:
			gerr := msg.ParseWarning()
			h.log.Warn().Str("debug", gerr.DebugString()).Msg(gerr.Error())
		}
	}
}

// Stop moves the pipeline to NULL. It is safe to call more than once.
func (h *Host) Stop() error {
	var err error
	h.stopOnce.Do(func() {
		err = h.pipeline.SetState(gst.StateNull)
		h.log.Info().
			Uint64("masked", h.masked.Load()).
			Uint64("dropped", h.dropped.Load()).
			Msg("pipeline stopped")
	})
	return err
}

// Stats returns the current counters.
func (h *Host) Stats() Stats {
	return Stats{
		Masked:         h.masked.Load(),
		Dropped:        h.dropped.Load(),
		PreviewSamples: h.previewSamples.Load(),
	}
}

// gstBuffer adapts a GStreamer buffer to mask.Buffer.
type gstBuffer struct {
	buf *gst.Buffer
}

func (b gstBuffer) Map() ([]byte, error) {
	info := b.buf.Map(gst.MapRead | gst.MapWrite)
	if info == nil {
		return nil, errMapFailed
	}
	data := info.AsUint8Slice()
	if len(data) == 0 {
		b.buf.Unmap()
		return nil, errMapFailed
	}
	return data, nil
}

func (b gstBuffer) Unmap() {
	b.buf.Unmap()
}
