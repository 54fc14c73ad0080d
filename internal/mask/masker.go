package mask

import (
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"
)

var (
	lumaErase   = []byte{0}
	chromaErase = []byte{128, 128}
)

// Apply masks one NV12 frame in place. Every polygon is filled with 0 on
// the luma plane, then with (128, 128) on the chroma plane after halving
// its coordinates. An empty set leaves the buffer untouched. A fill error
// stops the frame part way and is returned wrapping ErrFillFailed.
func Apply(g Geometry, set MaskSet, buf []byte) error {
	if err := g.Validate(); err != nil {
		return err
	}
	if len(buf) < g.FrameSize() {
		return fmt.Errorf("%w: %d bytes, %s needs %d", ErrBufferTooSmall, len(buf), g, g.FrameSize())
	}
	if len(set) == 0 {
		return nil
	}

	luma, chroma := framePlanes(g, buf)
	for i, poly := range set {
		if err := fillPolygon(luma, poly, lumaErase); err != nil {
			return fmt.Errorf("luma polygon %d: %w", i, err)
		}
	}
	for i, poly := range set.chromaScaled() {
		if err := fillPolygon(chroma, poly, chromaErase); err != nil {
			return fmt.Errorf("chroma polygon %d: %w", i, err)
		}
	}
	return nil
}

// Stats is a snapshot of Masker counters.
type Stats struct {
	FramesMasked uint64
	FramesFailed uint64
	Polygons     int
	Points       int
	Geometry     Geometry
	HasGeometry  bool
}

// Masker owns the current geometry and mask set of one stream and applies
// them to each frame. Both are stored as immutable snapshots and replaced
// whole, so reconfiguration is safe while frames are in flight.
type Masker struct {
	set  atomic.Pointer[MaskSet]
	geom atomic.Pointer[Geometry]

	framesMasked atomic.Uint64
	framesFailed atomic.Uint64

	log zerolog.Logger
}

// New creates a Masker with an empty mask set and no geometry.
func New(log zerolog.Logger) *Masker {
	m := &Masker{
		log: log.With().Str("component", "masker").Logger(),
	}
	empty := MaskSet{}
	m.set.Store(&empty)
	return m
}

// SetConfiguration decodes text and replaces the mask set with the result.
func (m *Masker) SetConfiguration(text string) {
	m.SetMaskSet(Decode(text))
}

// Configuration returns the current mask set as configuration text.
func (m *Masker) Configuration() string {
	return Encode(*m.set.Load())
}

// SetMaskSet replaces the mask set. The set is copied, so the caller may
// keep modifying its own value.
func (m *Masker) SetMaskSet(set MaskSet) {
	snapshot := set.Clone()
	m.set.Store(&snapshot)
	m.log.Info().
		Int("polygons", len(snapshot)).
		Int("points", snapshot.PointCount()).
		Msg("mask set replaced")
}

// MaskSet returns a copy of the current mask set.
func (m *Masker) MaskSet() MaskSet {
	return m.set.Load().Clone()
}

// SetGeometry records a (re)negotiated frame size. Invalid sizes are
// rejected and clear the previous geometry, so no frame is masked with
// stale dimensions until a valid size arrives.
func (m *Masker) SetGeometry(width, height int) error {
	g, err := NewGeometry(width, height)
	if err != nil {
		m.geom.Store(nil)
		m.log.Error().Err(err).Int("width", width).Int("height", height).Msg("geometry rejected")
		return err
	}

	prev := m.geom.Swap(&g)
	if prev == nil || *prev != g {
		m.log.Info().Str("geometry", g.String()).Int("frame_size", g.FrameSize()).Msg("geometry negotiated")
	}
	return nil
}

// ClearGeometry forgets the negotiated geometry. Frames fail with
// ErrGeometryNotSet until SetGeometry succeeds again.
func (m *Masker) ClearGeometry() {
	if m.geom.Swap(nil) != nil {
		m.log.Info().Msg("geometry cleared")
	}
}

// Geometry returns the current geometry, if one has been negotiated.
func (m *Masker) Geometry() (Geometry, bool) {
	g := m.geom.Load()
	if g == nil {
		return Geometry{}, false
	}
	return *g, true
}

// Process masks buf in place with the current snapshots. buf is only
// borrowed for the duration of the call.
func (m *Masker) Process(buf []byte) error {
	g := m.geom.Load()
	if g == nil {
		m.framesFailed.Add(1)
		return ErrGeometryNotSet
	}

	if err := Apply(*g, *m.set.Load(), buf); err != nil {
		m.framesFailed.Add(1)
		return err
	}
	m.framesMasked.Add(1)
	return nil
}

// ProcessBuffer maps b, masks it, and unmaps it again. A mapping failure
// is reported as ErrBufferInaccessible.
func (m *Masker) ProcessBuffer(b Buffer) error {
	data, err := b.Map()
	if err != nil {
		m.framesFailed.Add(1)
		return fmt.Errorf("%w: %v", ErrBufferInaccessible, err)
	}
	defer b.Unmap()

	return m.Process(data)
}

// Stats returns the current counters.
func (m *Masker) Stats() Stats {
	set := *m.set.Load()
	s := Stats{
		FramesMasked: m.framesMasked.Load(),
		FramesFailed: m.framesFailed.Load(),
		Polygons:     len(set),
		Points:       set.PointCount(),
	}
	s.Geometry, s.HasGeometry = m.Geometry()
	return s
}
