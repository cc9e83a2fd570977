package clock

import (
	"testing"
	"time"

	bclock "github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap_PostsCallbacks(t *testing.T) {
	// Arrange
	mock := bclock.NewMock()
	posted := make(chan func(), 1)
	clk := Wrap(mock, func(f func()) { posted <- f })
	fired := false
	clk.AfterFunc(time.Second, func() { fired = true })

	// Act
	mock.Add(time.Second)

	// Assert
	select {
	case f := <-posted:
		assert.False(t, fired, "callback only runs where it is posted")
		f()
		assert.True(t, fired)
	case <-time.After(time.Second):
		t.Fatal("timer callback was not posted")
	}
}

func TestWrap_StopPreventsPost(t *testing.T) {
	mock := bclock.NewMock()
	posted := make(chan func(), 1)
	clk := Wrap(mock, func(f func()) { posted <- f })

	timer := clk.AfterFunc(time.Second, func() {})
	require.True(t, timer.Stop())
	assert.False(t, timer.Stop())
	mock.Add(2 * time.Second)

	select {
	case <-posted:
		t.Fatal("stopped timer fired")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestWrap_Now(t *testing.T) {
	mock := bclock.NewMock()
	mock.Set(time.Unix(42, 0))

	assert.Equal(t, time.Unix(42, 0), Wrap(mock, nil).Now())
}

func TestNew_RealTimerPosts(t *testing.T) {
	posted := make(chan func(), 1)
	clk := New(func(f func()) { posted <- f })

	clk.AfterFunc(time.Millisecond, func() {})

	select {
	case <-posted:
	case <-time.After(time.Second):
		t.Fatal("timer callback was not posted")
	}
}
