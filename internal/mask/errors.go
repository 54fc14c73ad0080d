package mask

import "errors"

var (
	// ErrGeometryNotSet is returned when a frame arrives before the stream
	// geometry has been negotiated.
	ErrGeometryNotSet = errors.New("mask: frame geometry not negotiated")

	// ErrInvalidGeometry is returned for non-positive frame dimensions and
	// for dimensions above MaxDimension.
	ErrInvalidGeometry = errors.New("mask: width and height must be between 1 and 16384")

	// ErrOddGeometry is returned for odd frame dimensions, which 4:2:0
	// chroma subsampling cannot represent.
	ErrOddGeometry = errors.New("mask: width and height must be even")

	// ErrBufferTooSmall is returned when a buffer cannot hold a full frame.
	ErrBufferTooSmall = errors.New("mask: buffer smaller than frame")

	// ErrFillFailed is returned when the fill backend cannot rasterize a
	// polygon onto a plane.
	ErrFillFailed = errors.New("mask: polygon fill failed")

	// ErrBufferInaccessible is returned when the host cannot map a buffer
	// for reading and writing.
	ErrBufferInaccessible = errors.New("mask: buffer not accessible")
)
