package hub

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// 包级别的 WebSocket 常量，供 hub 和 client 包内使用
const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// 画布推送是单向的, 客户端只会发送控制帧
	maxMessageSize = 512

	// 每个客户端发送队列的长度
	sendBufferSize = 256
)

// HubMessage 的类型
const (
	MessageRegister   = "register"
	MessageUnregister = "unregister"
	MessageBroadcast  = "broadcast"
)

// HubMessage 定义了在 Hub 内部通道传递的消息类型
type HubMessage struct {
	Type   string  // register / unregister / broadcast
	Client *Client // 仅用于 register/unregister
	Data   []byte  // 仅用于 broadcast, 已编码的推送消息
}

// UpdateSource 提供跨实例的推送消息, 由 BoardRepository 实现。
type UpdateSource interface {
	SubscribeUpdates(ctx context.Context) (<-chan []byte, error)
}

// Hub 维护所有连接到画布的客户端, 并把推送消息转发给它们。
// 所有实例共享同一块画布, 因此只有一个命名空间。
type Hub struct {
	messageChan chan HubMessage

	clients   map[*Client]bool
	clientsMu sync.RWMutex

	updates UpdateSource
	log     *logrus.Entry
}

// NewHub 创建并返回一个新的 Hub 实例
func NewHub(updates UpdateSource) *Hub {
	if updates == nil {
		panic("UpdateSource cannot be nil for Hub")
	}
	return &Hub{
		messageChan: make(chan HubMessage, 512),
		clients:     make(map[*Client]bool),
		updates:     updates,
		log:         logrus.WithField("component", "hub"),
	}
}

// Run 订阅推送并启动 Hub 的主事件循环, 直到 ctx 结束。
// 它应该在一个单独的 goroutine 中运行。
func (h *Hub) Run(ctx context.Context) error {
	updates, err := h.updates.SubscribeUpdates(ctx)
	if err != nil {
		h.log.WithError(err).Error("Failed to subscribe to canvas updates")
		return err
	}
	h.log.Info("Hub is running...")

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			h.log.Info("Hub is shutting down...")
			return nil
		case data, ok := <-updates:
			if !ok {
				// 订阅在 ctx 结束前被关闭, 通常是 Redis 连接断开
				h.closeAll()
				h.log.Warn("Update subscription closed, hub stopped")
				return nil
			}
			h.broadcast(data)
		case msg := <-h.messageChan:
			switch msg.Type {
			case MessageRegister:
				h.registerClient(msg.Client)
			case MessageUnregister:
				h.unregisterClient(msg.Client)
			case MessageBroadcast:
				h.broadcast(msg.Data)
			default:
				h.log.Warnf("Hub: Received unknown message type: %s", msg.Type)
			}
		}
	}
}

// registerClient 处理客户端注册逻辑
func (h *Hub) registerClient(client *Client) {
	if client == nil {
		h.log.Error("Hub: Attempted to register a nil client")
		return
	}
	h.clientsMu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.clientsMu.Unlock()

	h.log.WithFields(logrus.Fields{"user_id": client.UserID(), "active": count}).Info("Client registered to Hub")
}

// unregisterClient 处理客户端注销逻辑
func (h *Hub) unregisterClient(client *Client) {
	if client == nil {
		h.log.Error("Hub: Attempted to unregister a nil client")
		return
	}
	logCtx := h.log.WithField("user_id", client.UserID())

	h.clientsMu.Lock()
	_, exists := h.clients[client]
	if exists {
		delete(h.clients, client)
		// 关闭 send 通道使 WritePump 退出, 只有 Hub 会关闭它
		close(client.send)
	}
	h.clientsMu.Unlock()

	if !exists {
		logCtx.Debug("Client not found during unregister")
		return
	}
	logCtx.Info("Client unregistered from Hub")
}

func (h *Hub) closeAll() {
	h.clientsMu.Lock()
	for client := range h.clients {
		delete(h.clients, client)
		close(client.send)
	}
	h.clientsMu.Unlock()
}

// broadcast 将消息发送给所有客户端
func (h *Hub) broadcast(message []byte) {
	h.clientsMu.RLock()
	recipients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		recipients = append(recipients, client)
	}
	h.clientsMu.RUnlock()

	if len(recipients) == 0 {
		return
	}

	for _, client := range recipients {
		// 非阻塞发送，避免单个慢客户端阻塞广播
		select {
		case client.send <- message:
		default:
			h.log.WithField("receiver_user_id", client.UserID()).Warn("Client send channel full during broadcast, skipping this client")
		}
	}
}

// --- 公共方法 ---

// QueueMessage 将消息放入 Hub 的处理队列 (非阻塞)。
// 返回 false 表示队列已满。
func (h *Hub) QueueMessage(msg HubMessage) bool {
	select {
	case h.messageChan <- msg:
		return true
	default:
		h.log.WithField("message_type", msg.Type).Warn("Hub message channel full, dropping message")
		return false
	}
}

// ActiveCount 返回当前连接到本实例的客户端数量
func (h *Hub) ActiveCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}
