// Package model 定义了聊天数据的核心结构
package model

import (
	"time"
)

// MessageRole 消息角色常量
const (
	MessageRoleUser      = "user"      // 用户消息
	MessageRoleAssistant = "assistant" // AI 助手响应
	MessageRoleSystem    = "system"    // 系统消息
)

// ChatMessage 聊天消息
// 序列化后的字段名与前端持久化格式保持一致
type ChatMessage struct {
	// ID 消息唯一标识，创建时分配，永不复用
	ID string `json:"id"`

	// Role 消息角色，创建后不可变
	// user: 用户发送的消息
	// assistant: AI 助手的响应
	// system: 系统消息
	Role string `json:"role"`

	// Content 当前展示的文本
	// 对于有多个响应版本的助手消息，Content 始终等于 Versions[CurrentVersion]
	Content string `json:"content"`

	// Timestamp 消息创建时间，不可变
	Timestamp time.Time `json:"timestamp"`

	// Attachments 附件元数据列表（可选，仅用户消息使用）
	Attachments []FileAttachment `json:"attachments,omitempty"`

	// Versions 响应版本列表
	// 仅在助手消息至少被重新生成过一次后存在
	// 下标 0 是最初的回答
	Versions []string `json:"versions,omitempty"`

	// CurrentVersion 当前展示的版本下标
	// Versions 存在时必定在有效范围内
	// 注意: 下标 0 在 JSON 中会被省略，反序列化后零值恰好还原为 0
	CurrentVersion int `json:"currentVersion,omitempty"`

	// ParentMessageID 产生此响应的用户消息 ID
	// 重新生成时优先通过它定位助手消息
	ParentMessageID string `json:"parentMessageId,omitempty"`
}

// VersionCount 返回消息的版本数量
// Versions 不存在时视为只有一个隐式版本
func (m *ChatMessage) VersionCount() int {
	if len(m.Versions) == 0 {
		return 1
	}
	return len(m.Versions)
}
