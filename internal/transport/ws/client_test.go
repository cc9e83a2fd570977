package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/domain"
)

type collector struct {
	mu   sync.Mutex
	msgs []domain.Message
	ch   chan domain.Message
}

func newCollector() *collector {
	return &collector{ch: make(chan domain.Message, 64)}
}

func (c *collector) sink(m domain.Message) {
	c.mu.Lock()
	c.msgs = append(c.msgs, m)
	c.mu.Unlock()
	c.ch <- m
}

func (c *collector) next(t *testing.T) domain.Message {
	t.Helper()
	select {
	case m := <-c.ch:
		return m
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestClient_ReceivesAndDecodes(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"place","payload":{"x":1,"y":2,"color":3}}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`garbage`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"activity","payload":{"count":9}}`))
		// 保持连接直到客户端关闭
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	col := newCollector()
	c := New(Config{URL: "ws" + strings.TrimPrefix(srv.URL, "http")}, col.sink)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	assert.Equal(t, domain.ConnectionEvent{State: domain.ConnConnecting}, col.next(t))
	assert.Equal(t, domain.ConnectionEvent{State: domain.ConnConnected}, col.next(t))
	assert.Equal(t, domain.TileMessage{TileEdit: domain.TileEdit{X: 1, Y: 2, Color: 3}}, col.next(t))
	assert.Equal(t, domain.ActivityMessage{Count: 9}, col.next(t))
	assert.Equal(t, uint64(1), c.Anomalies())

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(3 * time.Second):
		t.Fatal("client did not stop")
	}
}

func TestClient_ReconnectsWithBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	col := newCollector()
	c := New(Config{
		URL:            "ws" + strings.TrimPrefix(srv.URL, "http"),
		InitialBackoff: 10 * time.Millisecond,
		MaxBackoff:     20 * time.Millisecond,
	}, col.sink)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.Run(ctx) }()

	var delays []time.Duration
	for len(delays) < 3 {
		if ev, ok := col.next(t).(domain.ConnectionEvent); ok && ev.State == domain.ConnReconnecting {
			require.Error(t, ev.Err)
			delays = append(delays, ev.RetryIn)
		}
	}
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 20 * time.Millisecond}, delays)
}

func TestClient_CleanCloseIsNotAFailure(t *testing.T) {
	// Arrange
	hook := logtest.NewGlobal()
	t.Cleanup(func() { logrus.StandardLogger().ReplaceHooks(make(logrus.LevelHooks)) })

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	col := newCollector()
	c := New(Config{URL: url, InitialBackoff: 10 * time.Millisecond}, col.sink)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Act
	go func() { _ = c.Run(ctx) }()

	// Assert
	var reconnect domain.ConnectionEvent
	for {
		ev, ok := col.next(t).(domain.ConnectionEvent)
		if ok && ev.State == domain.ConnReconnecting {
			reconnect = ev
			break
		}
	}
	assert.NoError(t, reconnect.Err)

	var closedInfo, unavailableWarn int
	for _, entry := range hook.AllEntries() {
		if entry.Data["url"] != url {
			continue
		}
		switch {
		case entry.Message == "Update stream closed by server, reconnecting" && entry.Level == logrus.InfoLevel:
			closedInfo++
		case entry.Message == "Update stream unavailable, reconnecting":
			unavailableWarn++
		}
	}
	assert.GreaterOrEqual(t, closedInfo, 1)
	assert.Zero(t, unavailableWarn)
}
