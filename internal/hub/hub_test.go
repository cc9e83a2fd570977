package hub

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chanSource struct {
	ch  chan []byte
	err error
}

func (s *chanSource) SubscribeUpdates(ctx context.Context) (<-chan []byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.ch, nil
}

func newTestClient(h *Hub, userID uint) *Client {
	return &Client{hub: h, userID: userID, send: make(chan []byte, 4)}
}

func startHub(t *testing.T, src *chanSource) (*Hub, context.CancelFunc, <-chan error) {
	t.Helper()
	h := NewHub(src)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()
	return h, cancel, done
}

func receive(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case msg := <-c.send:
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestHub_BroadcastsSubscribedUpdates(t *testing.T) {
	// Arrange
	src := &chanSource{ch: make(chan []byte, 1)}
	h, cancel, done := startHub(t, src)
	defer cancel()
	a, b := newTestClient(h, 1), newTestClient(h, 2)
	require.True(t, h.QueueMessage(HubMessage{Type: MessageRegister, Client: a}))
	require.True(t, h.QueueMessage(HubMessage{Type: MessageRegister, Client: b}))
	require.Eventually(t, func() bool { return h.ActiveCount() == 2 }, time.Second, 5*time.Millisecond)

	// Act
	src.ch <- []byte(`{"type":"activity","payload":{"count":2}}`)

	// Assert
	assert.Equal(t, `{"type":"activity","payload":{"count":2}}`, string(receive(t, a)))
	assert.Equal(t, `{"type":"activity","payload":{"count":2}}`, string(receive(t, b)))

	cancel()
	assert.NoError(t, <-done)
}

func TestHub_UnregisterClosesSend(t *testing.T) {
	src := &chanSource{ch: make(chan []byte)}
	h, cancel, _ := startHub(t, src)
	defer cancel()
	c := newTestClient(h, 1)

	h.QueueMessage(HubMessage{Type: MessageRegister, Client: c})
	require.Eventually(t, func() bool { return h.ActiveCount() == 1 }, time.Second, 5*time.Millisecond)
	h.QueueMessage(HubMessage{Type: MessageUnregister, Client: c})
	require.Eventually(t, func() bool { return h.ActiveCount() == 0 }, time.Second, 5*time.Millisecond)

	_, ok := <-c.send
	assert.False(t, ok, "send channel should be closed after unregister")

	// 重复注销不会 panic
	h.QueueMessage(HubMessage{Type: MessageUnregister, Client: c})
}

func TestHub_SlowClientDoesNotBlockOthers(t *testing.T) {
	src := &chanSource{ch: make(chan []byte)}
	h, cancel, _ := startHub(t, src)
	defer cancel()
	slow := &Client{hub: h, userID: 1, send: make(chan []byte)}
	fast := newTestClient(h, 2)
	h.QueueMessage(HubMessage{Type: MessageRegister, Client: slow})
	h.QueueMessage(HubMessage{Type: MessageRegister, Client: fast})
	require.Eventually(t, func() bool { return h.ActiveCount() == 2 }, time.Second, 5*time.Millisecond)

	h.QueueMessage(HubMessage{Type: MessageBroadcast, Data: []byte("x")})

	assert.Equal(t, "x", string(receive(t, fast)))
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	src := &chanSource{ch: make(chan []byte)}
	h, cancel, done := startHub(t, src)
	c := newTestClient(h, 1)
	h.QueueMessage(HubMessage{Type: MessageRegister, Client: c})
	require.Eventually(t, func() bool { return h.ActiveCount() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	_, ok := <-c.send
	assert.False(t, ok)
	assert.Equal(t, 0, h.ActiveCount())
}

func TestHub_ClosedSubscriptionStopsHub(t *testing.T) {
	src := &chanSource{ch: make(chan []byte)}
	_, cancel, done := startHub(t, src)
	defer cancel()

	close(src.ch)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("hub did not stop after subscription closed")
	}
}

func TestHub_SubscribeFailure(t *testing.T) {
	boom := errors.New("redis down")
	h := NewHub(&chanSource{err: boom})

	err := h.Run(context.Background())

	assert.ErrorIs(t, err, boom)
}
