//go:build !gocv

package mask

// fillPolygon fills poly with the scanline rasterizer. It cannot fail.
func fillPolygon(p plane, poly Polygon, value []byte) error {
	scanFill(p, poly, value)
	return nil
}
