package mask

import (
	"math"
	"sort"
)

// scanFill sets every pixel inside poly, boundary included, to value.
//
// Interior spans come from an even-odd scan at each integer row, counting
// an edge on the half-open interval [top, bottom). The outline itself is
// then rasterized row by row so edges, vertices and degenerate polygons
// (one or two points) are always covered. Only rows and columns inside the
// plane are visited, so far-off coordinates cost nothing extra.
func scanFill(p plane, poly Polygon, value []byte) {
	n := len(poly)
	if n == 0 || p.width <= 0 || p.height <= 0 {
		return
	}

	minY, maxY := poly[0].Y, poly[0].Y
	for _, v := range poly[1:] {
		if v.Y < minY {
			minY = v.Y
		}
		if v.Y > maxY {
			maxY = v.Y
		}
	}
	if maxY < 0 || minY >= p.height {
		return
	}
	if minY < 0 {
		minY = 0
	}
	if maxY >= p.height {
		maxY = p.height - 1
	}

	xs := make([]float64, 0, n)
	for y := minY; y <= maxY; y++ {
		fy := float64(y)

		xs = xs[:0]
		for i := 0; i < n; i++ {
			a, b := poly[i], poly[(i+1)%n]
			if a.Y == b.Y {
				continue
			}
			if a.Y > b.Y {
				a, b = b, a
			}
			if y < a.Y || y >= b.Y {
				continue
			}
			xs = append(xs, intercept(a, b, fy))
		}
		sort.Float64s(xs)
		for i := 0; i+1 < len(xs); i += 2 {
			p.fillSpan(y, column(math.Ceil(xs[i]), p.width), column(math.Floor(xs[i+1]), p.width), value)
		}

		for i := 0; i < n; i++ {
			fillEdgeRow(p, y, poly[i], poly[(i+1)%n], value)
		}
	}
}

// fillEdgeRow covers the pixels of segment a→b that fall on row y.
func fillEdgeRow(p plane, y int, a, b Point, value []byte) {
	if a.Y > b.Y {
		a, b = b, a
	}
	if y < a.Y || y > b.Y {
		return
	}

	if a.Y == b.Y {
		x0, x1 := a.X, b.X
		if x0 > x1 {
			x0, x1 = x1, x0
		}
		p.fillSpan(y, x0, x1, value)
		return
	}

	fy := float64(y)
	dx := float64(b.X) - float64(a.X)
	dy := float64(b.Y) - float64(a.Y)

	// Steep segments touch one pixel per row.
	if math.Abs(dx) <= dy {
		x := column(math.Floor(intercept(a, b, fy)+0.5), p.width)
		p.fillSpan(y, x, x, value)
		return
	}

	// Shallow segments cover the columns they cross between y-0.5 and y+0.5.
	lo := math.Max(fy-0.5, float64(a.Y))
	hi := math.Min(fy+0.5, float64(b.Y))
	xa := intercept(a, b, lo)
	xb := intercept(a, b, hi)
	if xa > xb {
		xa, xb = xb, xa
	}
	p.fillSpan(y, column(math.Ceil(xa), p.width), column(math.Floor(xb), p.width), value)
}

// intercept returns the x coordinate of segment a→b at height y.
func intercept(a, b Point, y float64) float64 {
	ax, ay := float64(a.X), float64(a.Y)
	bx, by := float64(b.X), float64(b.Y)
	return ax + (y-ay)*(bx-ax)/(by-ay)
}

// column converts x to an int, pinned just outside [0, width) so huge
// coordinates cannot overflow.
func column(x float64, width int) int {
	if x < -1 {
		return -1
	}
	if x > float64(width) {
		return width
	}
	return int(x)
}
