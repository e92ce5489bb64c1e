// Package model 定义了聊天数据的核心结构
package model

import (
	"time"
)

// DefaultChatTitle 新建会话的默认标题
// 首条用户消息到达后会被自动替换
const DefaultChatTitle = "New Chat"

// Chat 一次完整的对话
type Chat struct {
	// ID 会话唯一标识，创建时分配
	ID string `json:"id"`

	// Title 会话标题
	// 未显式重命名时，由首条用户消息的前 50 个字符自动推导
	Title string `json:"title"`

	// Messages 消息序列，按插入顺序全序排列
	// user/assistant 交替只是约定，仓库不强制校验角色顺序
	Messages []ChatMessage `json:"messages"`

	// CreatedAt 创建时间
	CreatedAt time.Time `json:"createdAt"`

	// UpdatedAt 最后一次消息变更、改名等操作的时间
	UpdatedAt time.Time `json:"updatedAt"`
}

// FindMessage 按 ID 查找消息
// 返回消息下标，未找到时返回 -1
func (c *Chat) FindMessage(messageID string) int {
	for i := range c.Messages {
		if c.Messages[i].ID == messageID {
			return i
		}
	}
	return -1
}
