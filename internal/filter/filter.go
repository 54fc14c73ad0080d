// Package filter connects a frame source to the mask engine and a downstream
// sink. It owns the stream-level policy: a frame that cannot be masked is
// dropped, never forwarded unmasked.
package filter

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/zachmartin/gaming-capture/host/mask-gateway/internal/mask"
	"github.com/zachmartin/gaming-capture/host/mask-gateway/internal/media"
)

// ErrFrameDropped is returned by HandleFrame when masking failed and the
// frame was not forwarded.
var ErrFrameDropped = errors.New("frame dropped")

// Sink receives the masked stream.
type Sink interface {
	WriteCaps(width, height int) error
	WriteFrame(frame *media.RawFrame) error
	WriteEOS() error
}

// Discard is a Sink that accepts and forgets everything.
type Discard struct{}

func (Discard) WriteCaps(int, int) error         { return nil }
func (Discard) WriteFrame(*media.RawFrame) error { return nil }
func (Discard) WriteEOS() error                  { return nil }

// Stats counts what the filter did with the frames it saw.
type Stats struct {
	Forwarded  uint64 `json:"forwarded"`
	Dropped    uint64 `json:"dropped"`
	SinkErrors uint64 `json:"sink_errors"`
}

// Filter implements media.Handler.
type Filter struct {
	masker *mask.Masker
	sink   Sink
	log    zerolog.Logger

	forwarded  atomic.Uint64
	dropped    atomic.Uint64
	sinkErrors atomic.Uint64
}

var _ media.Handler = (*Filter)(nil)

// New returns a filter masking with m and writing to sink. A nil sink
// discards output.
func New(m *mask.Masker, sink Sink, log zerolog.Logger) *Filter {
	if sink == nil {
		sink = Discard{}
	}
	return &Filter{
		masker: m,
		sink:   sink,
		log:    log.With().Str("component", "filter").Logger(),
	}
}

// HandleCaps renegotiates the masker geometry and forwards the caps. Invalid
// geometry is not forwarded.
func (f *Filter) HandleCaps(width, height int) error {
	if err := f.masker.SetGeometry(width, height); err != nil {
		return fmt.Errorf("caps %dx%d: %w", width, height, err)
	}
	f.log.Info().Int("width", width).Int("height", height).Msg("stream geometry negotiated")

	if err := f.sink.WriteCaps(width, height); err != nil {
		f.sinkErrors.Add(1)
		return fmt.Errorf("forward caps: %w", err)
	}
	return nil
}

// HandleFrame masks frame in place and forwards it.
func (f *Filter) HandleFrame(frame *media.RawFrame) error {
	if err := f.masker.Process(frame.Data); err != nil {
		f.dropped.Add(1)
		f.log.Debug().Err(err).Int64("pts", frame.PTS).Msg("dropping frame")
		return fmt.Errorf("%w: %w", ErrFrameDropped, err)
	}

	if err := f.sink.WriteFrame(frame); err != nil {
		f.sinkErrors.Add(1)
		return fmt.Errorf("forward frame: %w", err)
	}
	f.forwarded.Add(1)
	return nil
}

// HandleEOS forwards end of stream.
func (f *Filter) HandleEOS() error {
	f.log.Info().Msg("end of stream")
	if err := f.sink.WriteEOS(); err != nil {
		f.sinkErrors.Add(1)
		return fmt.Errorf("forward EOS: %w", err)
	}
	return nil
}

// Stats returns the current counters.
func (f *Filter) Stats() Stats {
	return Stats{
		Forwarded:  f.forwarded.Load(),
		Dropped:    f.dropped.Load(),
		SinkErrors: f.sinkErrors.Load(),
	}
}
