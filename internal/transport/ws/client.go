// Package ws 是推送通道的 WebSocket 客户端: 负责连接、保活、断线重连,
// 并把收到的消息解码为 domain.Message。
package ws

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/domain"
	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/dto"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20
)

// Sink 接收解码后的消息与连接事件。它在读取 goroutine 上被调用,
// 实现应当把消息投递到事件循环而不是直接操作引擎。
type Sink func(domain.Message)

// Config 是客户端配置。
type Config struct {
	URL            string
	Header         http.Header
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Client 维护到推送服务的长连接。
type Client struct {
	cfg       Config
	dialer    *websocket.Dialer
	sink      Sink
	anomalies atomic.Uint64
}

// New 创建 Client。
func New(cfg Config, sink Sink) *Client {
	if sink == nil {
		panic("Sink cannot be nil for ws Client")
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = time.Second
	}
	if cfg.MaxBackoff < cfg.InitialBackoff {
		cfg.MaxBackoff = 30 * time.Second
	}
	return &Client{
		cfg:    cfg,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		sink:   sink,
	}
}

// Anomalies 返回无法解码而被丢弃的消息数量。
func (c *Client) Anomalies() uint64 { return c.anomalies.Load() }

// Run 连接并持续读取, 断线后按指数退避重连, 直到 ctx 结束。
func (c *Client) Run(ctx context.Context) error {
	log := logrus.WithFields(logrus.Fields{"component": "ws_client", "url": c.cfg.URL})
	backoff := c.cfg.InitialBackoff
	for {
		c.sink(domain.ConnectionEvent{State: domain.ConnConnecting})
		conn, _, err := c.dialer.DialContext(ctx, c.cfg.URL, c.cfg.Header)
		if err == nil {
			log.Info("Connected to update stream")
			backoff = c.cfg.InitialBackoff
			c.sink(domain.ConnectionEvent{State: domain.ConnConnected})
			err = c.readPump(ctx, conn)
			c.sink(domain.ConnectionEvent{State: domain.ConnDisconnected, Err: err})
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil {
			log.WithField("retry_in", backoff.String()).Info("Update stream closed by server, reconnecting")
		} else {
			log.WithError(err).WithField("retry_in", backoff.String()).Warn("Update stream unavailable, reconnecting")
		}
		c.sink(domain.ConnectionEvent{State: domain.ConnReconnecting, RetryIn: backoff, Err: err})

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > c.cfg.MaxBackoff {
			backoff = c.cfg.MaxBackoff
		}
	}
}

// readPump 读取直到连接出错或 ctx 结束。保活 ping 在单独的 goroutine 中发送。
func (c *Client) readPump(ctx context.Context, conn *websocket.Conn) error {
	var wg sync.WaitGroup
	done := make(chan struct{})
	defer func() {
		close(done)
		conn.Close()
		wg.Wait()
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
				conn.Close()
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					conn.Close()
					return
				}
			}
		}
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("ws: read: %w", err)
		}
		if messageType != websocket.TextMessage {
			continue
		}
		msg, err := dto.DecodeMessage(raw)
		if err != nil {
			n := c.anomalies.Add(1)
			entry := logrus.WithFields(logrus.Fields{"component": "ws_client", "anomalies": n})
			if errors.Is(err, domain.ErrProtocolAnomaly) {
				entry.WithError(err).Warn("Dropped undecodable message")
			} else {
				entry.WithError(err).Error("Unexpected decode failure")
			}
			continue
		}
		c.sink(msg)
	}
}
