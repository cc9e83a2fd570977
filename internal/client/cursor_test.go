package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCursor_ClickVersusDrag(t *testing.T) {
	var c Cursor

	c.Down(10, 10)
	c.Up(11, 10)
	assert.False(t, c.DidDrag())

	c.Down(10, 10)
	dx, dy, dragging := c.Move(13, 14)
	assert.True(t, dragging)
	assert.Equal(t, 3.0, dx)
	assert.Equal(t, 4.0, dy)
	c.Up(13, 14)
	assert.True(t, c.DidDrag())
	assert.False(t, c.IsDown())

	_, _, dragging = c.Move(20, 20)
	assert.False(t, dragging)
}

func TestCursor_DownIgnoredWhileDown(t *testing.T) {
	var c Cursor
	c.Down(0, 0)
	c.Down(50, 50)
	c.Up(1, 0)
	assert.False(t, c.DidDrag(), "drag distance measured from the first press")
}
