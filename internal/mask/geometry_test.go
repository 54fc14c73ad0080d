package mask

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGeometry(t *testing.T) {
	tests := []struct {
		name    string
		width   int
		height  int
		wantErr error
	}{
		{"1080p", 1920, 1080, nil},
		{"smallest", 2, 2, nil},
		{"zero width", 0, 480, ErrInvalidGeometry},
		{"negative height", 640, -2, ErrInvalidGeometry},
		{"odd width", 641, 480, ErrOddGeometry},
		{"odd height", 640, 481, ErrOddGeometry},
		{"largest", MaxDimension, MaxDimension, nil},
		{"too wide", MaxDimension + 2, 2, ErrInvalidGeometry},
		{"too tall", 2, MaxDimension + 2, ErrInvalidGeometry},
		{"frame size overflows int", 2479700526, 2479700526, ErrInvalidGeometry},
		{"luma size wraps to zero", 1 << 32, 1 << 32, ErrInvalidGeometry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewGeometry(tt.width, tt.height)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.width, g.Width)
			assert.Equal(t, tt.height, g.Height)
		})
	}
}

func TestGeometry_Sizes(t *testing.T) {
	g := Geometry{Width: 1280, Height: 720}

	assert.Equal(t, 921600, g.LumaSize())
	assert.Equal(t, 640, g.ChromaWidth())
	assert.Equal(t, 360, g.ChromaHeight())
	assert.Equal(t, 460800, g.ChromaSize())
	assert.Equal(t, 1382400, g.FrameSize())
	assert.Equal(t, "1280x720", g.String())
}

func TestFramePlanes(t *testing.T) {
	g := Geometry{Width: 8, Height: 4}
	buf := make([]byte, g.FrameSize()+10)

	luma, chroma := framePlanes(g, buf)

	assert.Len(t, luma.data, 32)
	assert.Equal(t, 1, luma.channels)
	assert.Len(t, chroma.data, 16)
	assert.Equal(t, 4, chroma.width)
	assert.Equal(t, 2, chroma.height)
	assert.Equal(t, 2, chroma.channels)

	chroma.data[0] = 0xAB
	assert.Equal(t, byte(0xAB), buf[32], "chroma view must start right after luma")
}
