package clocktest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClock_FiresInOrder(t *testing.T) {
	start := time.Unix(1000, 0)
	c := New(start)
	var fired []string
	var firedAt []time.Time

	c.AfterFunc(3*time.Second, func() { fired = append(fired, "c"); firedAt = append(firedAt, c.Now()) })
	c.AfterFunc(1*time.Second, func() { fired = append(fired, "a"); firedAt = append(firedAt, c.Now()) })

	c.Advance(2 * time.Second)
	assert.Equal(t, []string{"a"}, fired)
	assert.Equal(t, start.Add(time.Second), firedAt[0])
	assert.Equal(t, start.Add(2*time.Second), c.Now())
	assert.Equal(t, 1, c.Pending())

	c.Advance(time.Second)
	assert.Equal(t, []string{"a", "c"}, fired)
	assert.Equal(t, start.Add(3*time.Second), firedAt[1])
	assert.Zero(t, c.Pending())
}

func TestClock_StopAndRearm(t *testing.T) {
	c := New(time.Unix(0, 0))
	count := 0
	var tick func()
	tick = func() {
		count++
		c.AfterFunc(time.Second, tick)
	}
	timer := c.AfterFunc(time.Second, tick)

	c.Advance(3500 * time.Millisecond)
	assert.Equal(t, 3, count, "timers armed inside callbacks fire within the window")
	assert.False(t, timer.Stop(), "already fired")

	other := c.AfterFunc(time.Second, func() { count += 100 })
	assert.True(t, other.Stop())
	c.Advance(10 * time.Second)
	assert.Less(t, count, 100)
}
