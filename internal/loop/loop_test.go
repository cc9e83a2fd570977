package loop

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoop_RunsPostedWorkInOrder(t *testing.T) {
	l := New(8)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	var got []int
	finished := make(chan struct{})
	for i := 0; i < 5; i++ {
		i := i
		require.NoError(t, l.Post(func() { got = append(got, i) }))
	}
	require.NoError(t, l.Post(func() { close(finished) }))

	<-finished
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.ErrorIs(t, l.Post(func() {}), ErrStopped)
}

func TestLoop_GoPostsContinuation(t *testing.T) {
	l := New(8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	result := make(chan string, 1)
	l.Go(func() func() {
		v := "computed off-loop"
		return func() { result <- v }
	})

	select {
	case v := <-result:
		assert.Equal(t, "computed off-loop", v)
	case <-time.After(2 * time.Second):
		t.Fatal("continuation was not delivered")
	}
}

func TestLoop_SurvivesPanickingTask(t *testing.T) {
	l := New(4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	ok := make(chan struct{})
	require.NoError(t, l.Post(func() { panic("boom") }))
	require.NoError(t, l.Post(func() { close(ok) }))

	select {
	case <-ok:
	case <-time.After(2 * time.Second):
		t.Fatal("loop stopped after panic")
	}
}

func TestInline(t *testing.T) {
	var steps []string
	Inline{}.Go(func() func() {
		steps = append(steps, "work")
		return func() { steps = append(steps, "apply") }
	})
	assert.Equal(t, []string{"work", "apply"}, steps)
}
