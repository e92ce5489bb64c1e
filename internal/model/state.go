// Package model 定义了聊天数据的核心结构
package model

// ChatState 持久化的仓库状态
// 整个状态序列化为一条记录存放在固定的存储键下
// 每次仓库变更都会全量重写这条记录
type ChatState struct {
	// Chats 全部会话，新会话插入在最前（最近优先）
	Chats []Chat `json:"chats"`

	// CurrentChatID 当前选中的会话 ID
	// 仅当没有任何会话时为 null
	CurrentChatID *string `json:"currentChatId"`
}

// EmptyState 返回空的仓库状态
// 存储键不存在时等价于空状态
func EmptyState() *ChatState {
	return &ChatState{
		Chats:         []Chat{},
		CurrentChatID: nil,
	}
}
