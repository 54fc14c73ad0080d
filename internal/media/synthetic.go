package media

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Pattern selects the synthetic test image
type Pattern int

const (
	PatternColorBars Pattern = iota
	PatternGradient
	PatternGrid
)

func (p Pattern) String() string {
	switch p {
	case PatternColorBars:
		return "ColorBars"
	case PatternGradient:
		return "Gradient"
	case PatternGrid:
		return "Grid"
	default:
		return "Unknown"
	}
}

// SyntheticSource generates NV12 test-pattern frames at a fixed rate.
type SyntheticSource struct {
	width   int
	height  int
	fps     int
	pattern Pattern
	log     zerolog.Logger
}

// NewSyntheticSource creates a source of width×height frames at fps.
func NewSyntheticSource(width, height, fps int, pattern Pattern, log zerolog.Logger) *SyntheticSource {
	return &SyntheticSource{
		width:   width,
		height:  height,
		fps:     fps,
		pattern: pattern,
		log:     log.With().Str("component", "synthetic").Logger(),
	}
}

// Run announces caps to h and then delivers one frame per tick until ctx
// is cancelled, finishing with EOS. Each frame is a fresh buffer.
func (s *SyntheticSource) Run(ctx context.Context, h Handler) error {
	if s.fps <= 0 {
		return fmt.Errorf("synthetic: invalid fps %d", s.fps)
	}
	if err := h.HandleCaps(s.width, s.height); err != nil {
		return fmt.Errorf("synthetic: caps rejected: %w", err)
	}

	template := RenderPattern(s.pattern, s.width, s.height)
	interval := time.Second / time.Duration(s.fps)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Info().
		Str("pattern", s.pattern.String()).
		Int("width", s.width).
		Int("height", s.height).
		Int("fps", s.fps).
		Msg("synthetic source started")

	var seq int64
	for {
		select {
		case <-ctx.Done():
			if err := h.HandleEOS(); err != nil {
				s.log.Debug().Err(err).Msg("EOS not forwarded")
			}
			s.log.Info().Int64("frames", seq).Msg("synthetic source stopped")
			return nil
		case <-ticker.C:
		}

		frame := RawFrame{
			PTS:  seq * interval.Microseconds(),
			Data: append([]byte(nil), template...),
		}
		if seq == 0 {
			frame.Flags |= FlagDiscont
		}
		if err := h.HandleFrame(&frame); err != nil {
			s.log.Debug().Err(err).Int64("seq", seq).Msg("frame not forwarded")
		}
		seq++
	}
}

// RenderPattern draws pattern into a new NV12 buffer of width×height.
// Odd dimensions are rounded down for the chroma plane.
func RenderPattern(pattern Pattern, width, height int) []byte {
	lumaSize := width * height
	cw, ch := width/2, height/2
	buf := make([]byte, lumaSize+cw*ch*2)
	luma := buf[:lumaSize]
	chroma := buf[lumaSize:]

	switch pattern {
	case PatternGradient:
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				luma[y*width+x] = byte(16 + x*219/max1(width-1))
			}
		}
		fillNeutral(chroma)

	case PatternGrid:
		const spacing = 32
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				v := byte(16)
				if x%spacing == 0 || y%spacing == 0 {
					v = 235
				}
				luma[y*width+x] = v
			}
		}
		fillNeutral(chroma)

	default:
		// SMPTE color bars: 7 vertical stripes
		barColors := [7][3]int{
			{192, 192, 192}, // Gray
			{192, 192, 0},   // Yellow
			{0, 192, 192},   // Cyan
			{0, 192, 0},     // Green
			{192, 0, 192},   // Magenta
			{192, 0, 0},     // Red
			{0, 0, 192},     // Blue
		}
		barWidth := max1(width / 7)
		barAt := func(x int) [3]int {
			i := x / barWidth
			if i >= 7 {
				i = 6
			}
			return barColors[i]
		}
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				c := barAt(x)
				luma[y*width+x], _, _ = rgbToYUV(c[0], c[1], c[2])
			}
		}
		for y := 0; y < ch; y++ {
			for x := 0; x < cw; x++ {
				c := barAt(x * 2)
				_, u, v := rgbToYUV(c[0], c[1], c[2])
				chroma[(y*cw+x)*2] = u
				chroma[(y*cw+x)*2+1] = v
			}
		}
	}
	return buf
}

// rgbToYUV converts with BT.601 limited-range coefficients.
func rgbToYUV(r, g, b int) (y, u, v byte) {
	yy := (66*r+129*g+25*b+128)>>8 + 16
	uu := (-38*r-74*g+112*b+128)>>8 + 128
	vv := (112*r-94*g-18*b+128)>>8 + 128
	return clampByte(yy), clampByte(uu), clampByte(vv)
}

func clampByte(v int) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}

func fillNeutral(chroma []byte) {
	for i := range chroma {
		chroma[i] = 128
	}
}

func max1(v int) int {
	if v < 1 {
		return 1
	}
	return v
}
