//go:build gocv

package mask

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"
)

// fillPolygon delegates to OpenCV's FillPoly on a Mat over the plane.
// OpenCV points are 32-bit, so vertices outside that range are an error.
func fillPolygon(p plane, poly Polygon, value []byte) error {
	if len(poly) == 0 || p.width <= 0 || p.height <= 0 {
		return nil
	}

	pts := make([]image.Point, len(poly))
	for i, v := range poly {
		if !fitsInt32(v.X) || !fitsInt32(v.Y) {
			return fmt.Errorf("%w: vertex %d,%d outside OpenCV point range", ErrFillFailed, v.X, v.Y)
		}
		pts[i] = image.Point{X: v.X, Y: v.Y}
	}

	matType := gocv.MatTypeCV8UC1
	if p.channels == 2 {
		matType = gocv.MatTypeCV8UC2
	}
	mat, err := gocv.NewMatFromBytes(p.height, p.width, matType, p.data)
	if err != nil {
		return fmt.Errorf("%w: wrap plane: %v", ErrFillFailed, err)
	}
	defer mat.Close()

	outline := gocv.NewPointsVectorFromPoints([][]image.Point{pts})
	defer outline.Close()

	// gocv maps RGBA onto a BGRA scalar, so B and G are channels 0 and 1.
	c := color.RGBA{B: value[0]}
	if len(value) > 1 {
		c.G = value[1]
	}
	gocv.FillPoly(&mat, outline, c)

	// NewMatFromBytes may hold its own copy of the pixels.
	filled, err := mat.DataPtrUint8()
	if err != nil {
		return fmt.Errorf("%w: read back plane: %v", ErrFillFailed, err)
	}
	if len(filled) != len(p.data) {
		return fmt.Errorf("%w: read back %d bytes, want %d", ErrFillFailed, len(filled), len(p.data))
	}
	copy(p.data, filled)
	return nil
}

func fitsInt32(v int) bool {
	return v >= math.MinInt32 && v <= math.MaxInt32
}
