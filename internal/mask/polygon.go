package mask

import "strconv"

// Point is a vertex in luma pixel coordinates. Negative and out-of-frame
// coordinates are valid; the fill clips them to the plane.
type Point struct {
	X int
	Y int
}

// String returns the point in configuration form, "x:y".
func (p Point) String() string {
	return strconv.Itoa(p.X) + ":" + strconv.Itoa(p.Y)
}

// Polygon is a closed outline. The last vertex connects back to the first.
type Polygon []Point

// MaskSet is the complete list of polygons masked out of every frame.
type MaskSet []Polygon

// String returns the configuration text for the set.
func (m MaskSet) String() string {
	return Encode(m)
}

// Equal reports whether both sets hold the same polygons with the same
// vertices in the same order. A nil set equals an empty one.
func (m MaskSet) Equal(other MaskSet) bool {
	if len(m) != len(other) {
		return false
	}
	for i := range m {
		if len(m[i]) != len(other[i]) {
			return false
		}
		for j := range m[i] {
			if m[i][j] != other[i][j] {
				return false
			}
		}
	}
	return true
}

// Clone returns a deep copy of the set with empty polygons removed.
func (m MaskSet) Clone() MaskSet {
	out := make(MaskSet, 0, len(m))
	for _, poly := range m {
		if len(poly) == 0 {
			continue
		}
		out = append(out, append(Polygon(nil), poly...))
	}
	return out
}

// PointCount returns the total number of vertices across all polygons.
func (m MaskSet) PointCount() int {
	n := 0
	for _, poly := range m {
		n += len(poly)
	}
	return n
}

// chromaScaled projects the set onto the half-resolution chroma plane.
// Coordinates are halved with truncating division, never rounded.
func (m MaskSet) chromaScaled() MaskSet {
	out := make(MaskSet, len(m))
	for i, poly := range m {
		scaled := make(Polygon, len(poly))
		for j, p := range poly {
			scaled[j] = Point{X: p.X / 2, Y: p.Y / 2}
		}
		out[i] = scaled
	}
	return out
}
