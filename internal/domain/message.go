package domain

import (
	"fmt"
	"time"
)

// Message 是传输层交给引擎的消息。它是一个封闭的变体集合:
// 只有本包中定义的类型实现了它。
type Message interface {
	isMessage()
}

// TileMessage 表示一次远端单格写入。
type TileMessage struct {
	TileEdit
}

// BatchTileMessage 表示一批按顺序应用的远端写入。
type BatchTileMessage struct {
	Edits []TileEdit
}

// ActivityMessage 携带当前在线的客户端数量。
type ActivityMessage struct {
	Count int
}

// ConnState 是传输连接的状态。
type ConnState int

const (
	ConnConnecting ConnState = iota
	ConnConnected
	ConnDisconnected
	ConnReconnecting
)

func (s ConnState) String() string {
	switch s {
	case ConnConnecting:
		return "connecting"
	case ConnConnected:
		return "connected"
	case ConnDisconnected:
		return "disconnected"
	case ConnReconnecting:
		return "reconnecting"
	default:
		return fmt.Sprintf("ConnState(%d)", int(s))
	}
}

// ConnectionEvent 报告传输连接状态的变化。RetryIn 仅在 ConnReconnecting 时有意义。
type ConnectionEvent struct {
	State   ConnState
	RetryIn time.Duration
	Err     error
}

func (TileMessage) isMessage()      {}
func (BatchTileMessage) isMessage() {}
func (ActivityMessage) isMessage()  {}
func (ConnectionEvent) isMessage()  {}
