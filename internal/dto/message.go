// Package dto 定义了 WebSocket 推送与 HTTP 接口的线上数据格式,
// 以及它们与 domain 类型之间的转换。
package dto

import (
	"encoding/json"
	"fmt"

	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/domain"
)

// 推送消息类型。"tile" 与 "batch-tile" 是 "place" 与 "batch-place" 的别名。
const (
	TypePlace      = "place"
	TypeBatchPlace = "batch-place"
	TypeActivity   = "activity"

	typeTileAlias      = "tile"
	typeBatchTileAlias = "batch-tile"
)

// Envelope 是所有推送消息的外层结构。
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// TilePayload 是单格写入的负载。Author 仅用于展示, 引擎不使用。
type TilePayload struct {
	X      *int   `json:"x"`
	Y      *int   `json:"y"`
	Color  *int   `json:"color"`
	Author string `json:"author,omitempty"`
}

// ActivityPayload 是在线人数的负载。
type ActivityPayload struct {
	Count *int `json:"count"`
}

// DecodeMessage 把一条原始推送解码为 domain.Message。
// 结构错误、字段缺失或类型未知都返回包装了 domain.ErrProtocolAnomaly 的错误。
// 坐标与颜色的范围由引擎负责检查。
func DecodeMessage(raw []byte) (domain.Message, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: malformed envelope: %v", domain.ErrProtocolAnomaly, err)
	}
	switch env.Type {
	case TypePlace, typeTileAlias:
		edit, err := decodeTile(env.Payload)
		if err != nil {
			return nil, err
		}
		return domain.TileMessage{TileEdit: edit}, nil
	case TypeBatchPlace, typeBatchTileAlias:
		var items []json.RawMessage
		if err := json.Unmarshal(env.Payload, &items); err != nil {
			return nil, fmt.Errorf("%w: malformed batch payload: %v", domain.ErrProtocolAnomaly, err)
		}
		edits := make([]domain.TileEdit, 0, len(items))
		for i, item := range items {
			edit, err := decodeTile(item)
			if err != nil {
				return nil, fmt.Errorf("batch entry %d: %w", i, err)
			}
			edits = append(edits, edit)
		}
		return domain.BatchTileMessage{Edits: edits}, nil
	case TypeActivity:
		var p ActivityPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil || p.Count == nil {
			return nil, fmt.Errorf("%w: malformed activity payload", domain.ErrProtocolAnomaly)
		}
		return domain.ActivityMessage{Count: *p.Count}, nil
	default:
		return nil, fmt.Errorf("%w: unknown message type %q", domain.ErrProtocolAnomaly, env.Type)
	}
}

func decodeTile(raw json.RawMessage) (domain.TileEdit, error) {
	var p TilePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.TileEdit{}, fmt.Errorf("%w: malformed tile payload: %v", domain.ErrProtocolAnomaly, err)
	}
	if p.X == nil || p.Y == nil || p.Color == nil {
		return domain.TileEdit{}, fmt.Errorf("%w: tile payload missing fields", domain.ErrProtocolAnomaly)
	}
	return domain.TileEdit{X: *p.X, Y: *p.Y, Color: *p.Color}, nil
}

// EncodeTile 编码一条单格写入推送。
func EncodeTile(edit domain.TileEdit, author string) ([]byte, error) {
	return encode(TypePlace, tilePayload(edit, author))
}

// EncodeBatch 编码一条批量写入推送。
func EncodeBatch(edits []domain.TileEdit, author string) ([]byte, error) {
	payload := make([]TilePayload, 0, len(edits))
	for _, e := range edits {
		payload = append(payload, tilePayload(e, author))
	}
	return encode(TypeBatchPlace, payload)
}

// EncodeActivity 编码一条在线人数推送。
func EncodeActivity(count int) ([]byte, error) {
	return encode(TypeActivity, ActivityPayload{Count: &count})
}

func tilePayload(e domain.TileEdit, author string) TilePayload {
	x, y, c := e.X, e.Y, e.Color
	return TilePayload{X: &x, Y: &y, Color: &c, Author: author}
}

func encode(msgType string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", msgType, err)
	}
	return json.Marshal(Envelope{Type: msgType, Payload: body})
}
