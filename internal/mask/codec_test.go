package mask

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected MaskSet
	}{
		{
			name:     "empty text",
			input:    "",
			expected: MaskSet{},
		},
		{
			name:  "single quad",
			input: "0:0,100:0,100:100,0:100",
			expected: MaskSet{
				{{0, 0}, {100, 0}, {100, 100}, {0, 100}},
			},
		},
		{
			name:  "two quads",
			input: "0:0,100:0,100:100,0:100;50:50,200:50,200:200,50:200",
			expected: MaskSet{
				{{0, 0}, {100, 0}, {100, 100}, {0, 100}},
				{{50, 50}, {200, 50}, {200, 200}, {50, 200}},
			},
		},
		{
			name:  "signed coordinates",
			input: "-5:+3,+7:-9",
			expected: MaskSet{
				{{-5, 3}, {7, -9}},
			},
		},
		{
			name:  "whitespace before integers and separator",
			input: " 1 : 2,\t3:\n4",
			expected: MaskSet{
				{{1, 2}, {3, 4}},
			},
		},
		{
			name:  "trailing content after second integer is ignored",
			input: "5:5abc,1:2:3,7:8 ",
			expected: MaskSet{
				{{5, 5}, {1, 2}, {7, 8}},
			},
		},
		{
			name:  "malformed points dropped",
			input: "1:,:1,a:1,1.5:2,1;2,- 1:2,1-2,9:9",
			expected: MaskSet{
				{{9, 9}},
			},
		},
		{
			name:     "only separators",
			input:    ";;,;,",
			expected: MaskSet{},
		},
		{
			name:  "overflowing integer drops the point",
			input: "99999999999999999999:1,2:3",
			expected: MaskSet{
				{{2, 3}},
			},
		},
		{
			name:  "coordinate beyond 32 bits drops the point",
			input: "3000000000:1,2:3",
			expected: MaskSet{
				{{2, 3}},
			},
		},
		{
			name:  "negative coordinate beyond 32 bits drops the point",
			input: "1:-2147483649,2:3",
			expected: MaskSet{
				{{2, 3}},
			},
		},
		{
			name:  "32-bit limits are accepted",
			input: "2147483647:-2147483648",
			expected: MaskSet{
				{{math.MaxInt32, math.MinInt32}},
			},
		},
		{
			name:  "trailing separators",
			input: "1:1,2:2;",
			expected: MaskSet{
				{{1, 1}, {2, 2}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decode(tt.input)
			require.NotNil(t, got)
			assert.True(t, tt.expected.Equal(got), "expected %v, got %v", tt.expected, got)
		})
	}
}

func TestDecode_TolerantParse(t *testing.T) {
	set := Decode("0:0,bad,5:5;;1:1")

	// "bad" is dropped and the empty segment between ";;" produces no polygon.
	// The trailing "1:1" is a well-formed polygon of its own.
	require.Len(t, set, 2)
	assert.Equal(t, Polygon{{0, 0}, {5, 5}}, set[0])
	assert.Equal(t, Polygon{{1, 1}}, set[1])

	containing := 0
	for _, poly := range set {
		if len(poly) == 2 && poly[0] == (Point{0, 0}) && poly[1] == (Point{5, 5}) {
			containing++
		}
	}
	assert.Equal(t, 1, containing)
}

func TestEncode(t *testing.T) {
	tests := []struct {
		name     string
		set      MaskSet
		expected string
	}{
		{"nil set", nil, ""},
		{"empty set", MaskSet{}, ""},
		{"single point", MaskSet{{{3, 4}}}, "3:4"},
		{"negative", MaskSet{{{-1, -2}, {3, -4}}}, "-1:-2,3:-4"},
		{
			name:     "two polygons",
			set:      MaskSet{{{0, 0}, {1, 0}, {1, 1}}, {{5, 5}, {6, 6}}},
			expected: "0:0,1:0,1:1;5:5,6:6",
		},
		{
			name:     "empty polygons skipped",
			set:      MaskSet{{}, {{1, 1}}, {}, {{2, 2}}, {}},
			expected: "1:1;2:2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Encode(tt.set))
			assert.Equal(t, tt.expected, tt.set.String())
		})
	}
}

func TestCodec_RoundTrip(t *testing.T) {
	sets := []MaskSet{
		{},
		{{{0, 0}}},
		{{{0, 0}, {100, 0}, {100, 100}, {0, 100}}},
		{{{-10, -20}, {30, 40}}, {{math.MaxInt32, math.MinInt32}}, {{7, 7}, {8, 8}, {9, 9}}},
	}

	for _, set := range sets {
		text := Encode(set)
		back := Decode(text)
		assert.True(t, set.Equal(back), "round trip of %q gave %v", text, back)
		assert.Equal(t, text, Encode(back))
	}
}

func TestMaskSet_CloneDropsEmptyPolygons(t *testing.T) {
	set := MaskSet{{{1, 1}}, {}, {{2, 2}, {3, 3}}}

	clone := set.Clone()
	require.Len(t, clone, 2)
	assert.Equal(t, 3, clone.PointCount())

	clone[0][0] = Point{9, 9}
	assert.Equal(t, Point{1, 1}, set[0][0], "clone must not share vertex storage")
}

func TestMaskSet_ChromaScaledTruncates(t *testing.T) {
	set := MaskSet{{{1, 1}, {5, 1}, {5, 5}, {1, 5}}, {{-3, 7}, {0, 1}}}

	scaled := set.chromaScaled()

	assert.Equal(t, Polygon{{0, 0}, {2, 0}, {2, 2}, {0, 2}}, scaled[0])
	assert.Equal(t, Polygon{{-1, 3}, {0, 0}}, scaled[1])
	assert.Equal(t, Point{1, 1}, set[0][0], "scaling must not modify the source set")
}
