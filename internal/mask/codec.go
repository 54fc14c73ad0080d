package mask

import (
	"strconv"
	"strings"
)

const (
	polygonSeparator = ";"
	pointSeparator   = ","
	coordSeparator   = ':'

	// asciiSpace matches the characters C's isspace accepts.
	asciiSpace = " \t\n\v\f\r"
)

// Decode parses configuration text into a MaskSet.
//
// The text is split on ";" into polygons and each polygon on "," into
// points. A point that is not "<int>:<int>" is dropped without error, and a
// polygon with no valid points is omitted. Whitespace before either integer
// and before the ':' is skipped, integers may carry a sign, and anything
// after the second integer is ignored. Empty text decodes to an empty set.
func Decode(text string) MaskSet {
	set := MaskSet{}
	if text == "" {
		return set
	}

	for _, segment := range strings.Split(text, polygonSeparator) {
		var poly Polygon
		for _, field := range strings.Split(segment, pointSeparator) {
			if p, ok := parsePoint(field); ok {
				poly = append(poly, p)
			}
		}
		if len(poly) > 0 {
			set = append(set, poly)
		}
	}
	return set
}

// Encode renders a MaskSet as configuration text. Empty polygons are
// skipped and an empty set encodes to "".
func Encode(set MaskSet) string {
	var b strings.Builder
	first := true
	for _, poly := range set {
		if len(poly) == 0 {
			continue
		}
		if !first {
			b.WriteString(polygonSeparator)
		}
		first = false

		for i, p := range poly {
			if i > 0 {
				b.WriteString(pointSeparator)
			}
			b.WriteString(strconv.Itoa(p.X))
			b.WriteByte(coordSeparator)
			b.WriteString(strconv.Itoa(p.Y))
		}
	}
	return b.String()
}

func parsePoint(field string) (Point, bool) {
	x, rest, ok := scanInt(field)
	if !ok {
		return Point{}, false
	}

	rest = strings.TrimLeft(rest, asciiSpace)
	if rest == "" || rest[0] != coordSeparator {
		return Point{}, false
	}

	y, _, ok := scanInt(rest[1:])
	if !ok {
		return Point{}, false
	}
	return Point{X: x, Y: y}, true
}

// scanInt reads an optionally signed 32-bit decimal integer after any
// leading whitespace and returns the unread remainder.
func scanInt(s string) (int, string, bool) {
	s = strings.TrimLeft(s, asciiSpace)

	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := i
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == digits {
		return 0, s, false
	}

	n, err := strconv.ParseInt(s[:i], 10, 32)
	if err != nil {
		// out of range
		return 0, s, false
	}
	return int(n), s[i:], true
}
