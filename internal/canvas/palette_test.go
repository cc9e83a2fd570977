package canvas

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseColor(t *testing.T) {
	cases := map[string]color.RGBA{
		"#FF4500": {R: 0xFF, G: 0x45, B: 0x00, A: 0xFF},
		"#fff":    {R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF},
		"hotpink": {R: 0xFF, G: 0x69, B: 0xB4, A: 0xFF},
	}
	for in, want := range cases {
		got, err := ParseColor(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"#12", "#GGGGGG", "notacolor"} {
		_, err := ParseColor(bad)
		assert.Error(t, err, bad)
	}
}

func TestPackRoundTrip(t *testing.T) {
	c := color.RGBA{R: 1, G: 2, B: 3, A: 4}
	assert.Equal(t, uint32(0x04030201), PackRGBA(c))
	assert.Equal(t, c, UnpackRGBA(PackRGBA(c)))
}

func TestPalette_IndexRules(t *testing.T) {
	p := MustPalette([]string{"#000000", "#111111", "#222222"})

	assert.Equal(t, p.Color(1), p.Color(4), "index wraps modulo palette length")
	assert.Equal(t, p.Color(0), p.Color(-3), "negative clamps to 0")
	assert.Equal(t, p.Color(15), p.Color(99), "large clamps to max index")

	empty := MustPalette(nil)
	assert.Equal(t, color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}, empty.Color(3))
	assert.Equal(t, PackRGBA(empty.Color(0)), empty.Packed(0))
}

func TestNewPalette_TooManyColors(t *testing.T) {
	specs := append(append([]string{}, DefaultPalette...), "#000000")
	_, err := NewPalette(specs)
	assert.Error(t, err)
}
