package mask

import "fmt"

// MaxDimension bounds width and height so that frame sizes always fit in
// an int. It covers 16K video.
const MaxDimension = 16384

// Geometry is the negotiated frame size. The luma plane is Width×Height
// bytes; the chroma plane that follows it is (Width/2)×(Height/2) U/V pairs.
type Geometry struct {
	Width  int
	Height int
}

// NewGeometry validates width and height and returns the frame geometry.
func NewGeometry(width, height int) (Geometry, error) {
	g := Geometry{Width: width, Height: height}
	if err := g.Validate(); err != nil {
		return Geometry{}, err
	}
	return g, nil
}

// Validate checks that both dimensions are positive, even and at most
// MaxDimension.
func (g Geometry) Validate() error {
	if g.Width <= 0 || g.Height <= 0 || g.Width > MaxDimension || g.Height > MaxDimension {
		return fmt.Errorf("%w: got %s", ErrInvalidGeometry, g)
	}
	if g.Width%2 != 0 || g.Height%2 != 0 {
		return fmt.Errorf("%w: got %s", ErrOddGeometry, g)
	}
	return nil
}

// LumaSize returns the size of the luma plane in bytes.
func (g Geometry) LumaSize() int {
	return g.Width * g.Height
}

// ChromaWidth returns the chroma plane width in samples.
func (g Geometry) ChromaWidth() int {
	return g.Width / 2
}

// ChromaHeight returns the chroma plane height in samples.
func (g Geometry) ChromaHeight() int {
	return g.Height / 2
}

// ChromaSize returns the size of the interleaved chroma plane in bytes.
func (g Geometry) ChromaSize() int {
	return g.ChromaWidth() * g.ChromaHeight() * 2
}

// FrameSize returns the minimum buffer size for one frame.
func (g Geometry) FrameSize() int {
	return g.LumaSize() + g.ChromaSize()
}

func (g Geometry) String() string {
	return fmt.Sprintf("%dx%d", g.Width, g.Height)
}
