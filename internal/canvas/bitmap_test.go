package canvas

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPackNibbles(t *testing.T) {
	assert.Equal(t, []byte{0x12, 0x3f}, PackNibbles([]byte{1, 2, 3, 15}))
	assert.Equal(t, []byte{0x50}, PackNibbles([]byte{5}), "odd length pads low nibble")
}

func TestUnpackNibbles(t *testing.T) {
	assert.Equal(t, []byte{1, 2, 3, 15}, UnpackNibbles([]byte{0x12, 0x3f}, 4))
	assert.Equal(t, []byte{1, 2, 0, 0, 0}, UnpackNibbles([]byte{0x12}, 5), "short bitmap reads as background")

	colors := []byte{0, 15, 7, 8, 3}
	assert.Equal(t, colors, UnpackNibbles(PackNibbles(colors), len(colors)))
}
