// Package websocket 提供仓库变更的实时推送
// 浏览器端通过 WebSocket 订阅仓库事件，保持多个页签之间的状态同步
package websocket

import (
	"time"
)

// MessageType 消息类型常量
const (
	// 客户端 → 服务端
	TypeHeartbeat = "heartbeat" // 心跳

	// 服务端 → 客户端
	TypeStoreEvent = "store:event" // 仓库变更事件
	TypePong       = "pong"        // 心跳响应
)

// Message WebSocket 消息结构
// 所有消息都使用这个统一的结构
type Message struct {
	Type      string      `json:"type"`      // 消息类型
	Payload   interface{} `json:"payload"`   // 消息内容
	Timestamp int64       `json:"timestamp"` // 时间戳（毫秒）
}

// NewMessage 创建新消息
func NewMessage(msgType string, payload interface{}) *Message {
	return &Message{
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	}
}
