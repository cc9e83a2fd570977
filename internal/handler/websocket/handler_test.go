package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/hub"
)

type chanSource struct {
	ch chan []byte
}

func (s *chanSource) SubscribeUpdates(ctx context.Context) (<-chan []byte, error) {
	return s.ch, nil
}

func TestHandleConnection_ForwardsUpdates(t *testing.T) {
	// Arrange
	gin.SetMode(gin.TestMode)
	src := &chanSource{ch: make(chan []byte, 1)}
	h := hub.NewHub(src)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = h.Run(ctx) }()

	router := gin.New()
	router.GET("/ws/place", NewWebSocketHandler(h, "").HandleConnection)
	server := httptest.NewServer(router)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/place"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return h.ActiveCount() == 1 }, time.Second, 5*time.Millisecond)

	// Act
	src.ch <- []byte(`{"type":"place","payload":{"x":1,"y":2,"color":3}}`)

	// Assert
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"place","payload":{"x":1,"y":2,"color":3}}`, string(msg))

	// 断开后 Hub 注销客户端
	conn.Close()
	assert.Eventually(t, func() bool { return h.ActiveCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHandleConnection_RejectsForeignOrigin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := hub.NewHub(&chanSource{ch: make(chan []byte)})

	router := gin.New()
	router.GET("/ws/place", NewWebSocketHandler(h, "https://place.example").HandleConnection)
	server := httptest.NewServer(router)
	defer server.Close()

	header := http.Header{"Origin": []string{"https://evil.example"}}
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/place"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, header)

	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
