package store

import (
	"context"
	"log"
	"sync"
	"time"

	"gemini-chat-server/internal/model"
	"gemini-chat-server/pkg/util"
)

// GenerateFunc 上游生成调用
// 接受单条 prompt，返回完整文本；不做重试
type GenerateFunc func(ctx context.Context, prompt string) (string, error)

// Transport 模拟流式传输器接口
// 把一段完整文本重新投递为封帧后的事件记录序列
// 流在结束标记之前关闭视为传输层失败
type Transport interface {
	Stream(text string) <-chan string
}

// ChatStore 会话仓库
// 持有全部会话和当前选中状态，是所有会话数据的唯一归属方
// 每次变更后全量重写持久化记录，并向订阅者广播事件
//
// 原始实现运行在单线程事件循环中；这里是多写者环境，
// 所以用互斥锁串行化每个变更操作。两次并发的重新生成仍然
// 是后写覆盖，仓库不做排队或冲突检测
type ChatStore struct {
	mu    sync.Mutex
	state *model.ChatState

	persister Persister     // 持久化后端，可为 nil（仅测试）
	generate  GenerateFunc  // 上游生成调用
	transport Transport     // 模拟流式传输器

	subMu       sync.Mutex
	subscribers map[int]func(Event)
	nextSubID   int
}

// NewChatStore 创建会话仓库并从持久化后端恢复状态
// 参数:
//   - ctx: 上下文
//   - persister: 持久化后端，nil 时状态只存在于内存
//   - generate: 上游生成调用
//   - transport: 模拟流式传输器
//
// 返回:
//   - *ChatStore: 仓库实例
//   - error: 状态恢复失败
func NewChatStore(ctx context.Context, persister Persister, generate GenerateFunc, transport Transport) (*ChatStore, error) {
	state := model.EmptyState()
	if persister != nil {
		loaded, err := persister.Load(ctx)
		if err != nil {
			return nil, err
		}
		state = loaded
	}

	return &ChatStore{
		state:       state,
		persister:   persister,
		generate:    generate,
		transport:   transport,
		subscribers: make(map[int]func(Event)),
	}, nil
}

// ==================== 会话操作 ====================

// CreateChat 新建空会话
// 新会话插入在集合最前并成为当前会话；此操作不会失败
// 返回:
//   - string: 新会话 ID
func (s *ChatStore) CreateChat() string {
	now := time.Now()
	chat := model.Chat{
		ID:        util.GenerateUUID(),
		Title:     model.DefaultChatTitle,
		Messages:  []model.ChatMessage{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.state.Chats = append([]model.Chat{chat}, s.state.Chats...)
	s.state.CurrentChatID = util.StringPtr(chat.ID)
	s.persistLocked()
	s.mu.Unlock()

	s.notify(Event{Type: EventChatCreated, ChatID: chat.ID})
	return chat.ID
}

// SelectChat 切换当前会话
// chatID 不存在时静默忽略
func (s *ChatStore) SelectChat(chatID string) {
	s.mu.Lock()
	if s.findChatLocked(chatID) == nil {
		s.mu.Unlock()
		return
	}
	s.state.CurrentChatID = util.StringPtr(chatID)
	s.persistLocked()
	s.mu.Unlock()

	s.notify(Event{Type: EventChatSelected, ChatID: chatID})
}

// DeleteChat 删除会话
// 删除的是当前会话时，当前会话回退到剩余集合中的第一个，
// 集合为空则回退为 null；chatID 不存在时静默忽略
func (s *ChatStore) DeleteChat(chatID string) {
	s.mu.Lock()
	if s.findChatLocked(chatID) == nil {
		s.mu.Unlock()
		return
	}

	remaining := make([]model.Chat, 0, len(s.state.Chats)-1)
	for _, c := range s.state.Chats {
		if c.ID != chatID {
			remaining = append(remaining, c)
		}
	}
	s.state.Chats = remaining

	// 修复当前会话指针
	if s.state.CurrentChatID != nil && *s.state.CurrentChatID == chatID {
		if len(remaining) > 0 {
			s.state.CurrentChatID = util.StringPtr(remaining[0].ID)
		} else {
			s.state.CurrentChatID = nil
		}
	}
	s.persistLocked()
	s.mu.Unlock()

	s.notify(Event{Type: EventChatDeleted, ChatID: chatID})
}

// RenameChat 设置会话标题并刷新 UpdatedAt
// chatID 不存在时静默忽略
func (s *ChatStore) RenameChat(chatID, title string) {
	s.mu.Lock()
	chat := s.findChatLocked(chatID)
	if chat == nil {
		s.mu.Unlock()
		return
	}
	chat.Title = title
	chat.UpdatedAt = time.Now()
	s.persistLocked()
	s.mu.Unlock()

	s.notify(Event{Type: EventChatRenamed, ChatID: chatID})
}

// ClearAll 清空全部会话并重置当前选中
func (s *ChatStore) ClearAll() {
	s.mu.Lock()
	s.state = model.EmptyState()
	s.persistLocked()
	s.mu.Unlock()

	s.notify(Event{Type: EventStoreCleared})
}

// ==================== 消息操作 ====================

// AppendMessage 向会话末尾追加消息
// 如果这是会话的第一条消息且角色为 user，会话标题由消息内容
// 的前 50 个字符自动推导；chatID 不存在时静默忽略
// 消息 ID 和时间戳为空时自动填充
func (s *ChatStore) AppendMessage(chatID string, msg model.ChatMessage) {
	if msg.ID == "" {
		msg.ID = util.GenerateUUID()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	s.mu.Lock()
	chat := s.findChatLocked(chatID)
	if chat == nil {
		s.mu.Unlock()
		return
	}

	if len(chat.Messages) == 0 && msg.Role == model.MessageRoleUser {
		chat.Title = util.DeriveChatTitle(msg.Content)
	}
	chat.Messages = append(chat.Messages, msg)
	chat.UpdatedAt = time.Now()
	s.persistLocked()
	s.mu.Unlock()

	s.notify(Event{Type: EventMessageAdded, ChatID: chatID, MessageID: msg.ID})
}

// UpdateMessageContent 替换消息内容
// 不触碰版本列表；会话或消息不存在时静默忽略
func (s *ChatStore) UpdateMessageContent(chatID, messageID, content string) {
	s.mu.Lock()
	chat := s.findChatLocked(chatID)
	if chat == nil {
		s.mu.Unlock()
		return
	}
	idx := chat.FindMessage(messageID)
	if idx == -1 {
		s.mu.Unlock()
		return
	}
	chat.Messages[idx].Content = content
	chat.UpdatedAt = time.Now()
	s.persistLocked()
	s.mu.Unlock()

	s.notify(Event{Type: EventMessageUpdated, ChatID: chatID, MessageID: messageID})
}

// DeleteMessage 从会话中删除消息
// 会话或消息不存在时静默忽略
func (s *ChatStore) DeleteMessage(chatID, messageID string) {
	s.mu.Lock()
	chat := s.findChatLocked(chatID)
	if chat == nil {
		s.mu.Unlock()
		return
	}
	idx := chat.FindMessage(messageID)
	if idx == -1 {
		s.mu.Unlock()
		return
	}
	chat.Messages = append(chat.Messages[:idx], chat.Messages[idx+1:]...)
	chat.UpdatedAt = time.Now()
	s.persistLocked()
	s.mu.Unlock()

	s.notify(Event{Type: EventMessageDeleted, ChatID: chatID, MessageID: messageID})
}

// ==================== 响应版本操作 ====================

// AddResponseVersion 为助手消息追加一个响应版本
// 版本列表不存在时先用现有内容初始化（下标 0 是最初的回答），
// 然后追加新内容，当前版本指向新的末位，Content 同步为新内容
// 目标不是助手消息或不存在时静默忽略
//
// Content == Versions[CurrentVersion] 这一不变量只由本方法和
// SwitchResponseVersion 维护，其他代码不写 Versions
func (s *ChatStore) AddResponseVersion(chatID, messageID, newContent string) {
	s.mu.Lock()
	chat := s.findChatLocked(chatID)
	if chat == nil {
		s.mu.Unlock()
		return
	}
	idx := chat.FindMessage(messageID)
	if idx == -1 || chat.Messages[idx].Role != model.MessageRoleAssistant {
		s.mu.Unlock()
		return
	}

	msg := &chat.Messages[idx]
	if len(msg.Versions) == 0 {
		msg.Versions = []string{msg.Content}
	}
	msg.Versions = append(msg.Versions, newContent)
	msg.CurrentVersion = len(msg.Versions) - 1
	msg.Content = newContent
	chat.UpdatedAt = time.Now()
	s.persistLocked()
	s.mu.Unlock()

	s.notify(Event{Type: EventVersionAdded, ChatID: chatID, MessageID: messageID})
}

// SwitchResponseVersion 切换助手消息展示的响应版本
// index 越界时静默忽略，绝不报错
func (s *ChatStore) SwitchResponseVersion(chatID, messageID string, index int) {
	s.mu.Lock()
	chat := s.findChatLocked(chatID)
	if chat == nil {
		s.mu.Unlock()
		return
	}
	i := chat.FindMessage(messageID)
	if i == -1 {
		s.mu.Unlock()
		return
	}

	msg := &chat.Messages[i]
	if index < 0 || index >= len(msg.Versions) {
		s.mu.Unlock()
		return
	}
	msg.Content = msg.Versions[index]
	msg.CurrentVersion = index
	chat.UpdatedAt = time.Now()
	s.persistLocked()
	s.mu.Unlock()

	s.notify(Event{Type: EventVersionSwitched, ChatID: chatID, MessageID: messageID})
}

// ==================== 读取操作 ====================

// Chats 返回全部会话的快照
func (s *ChatStore) Chats() []model.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()

	chats := make([]model.Chat, 0, len(s.state.Chats))
	for i := range s.state.Chats {
		chats = append(chats, cloneChat(&s.state.Chats[i]))
	}
	return chats
}

// CurrentChatID 返回当前会话 ID
// 没有任何会话时返回 nil
func (s *ChatStore) CurrentChatID() *string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.CurrentChatID == nil {
		return nil
	}
	return util.StringPtr(*s.state.CurrentChatID)
}

// CurrentChat 返回当前会话的快照
// 派生值：始终从会话集合中按 CurrentChatID 重新计算，不会与集合脱节
func (s *ChatStore) CurrentChat() *model.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.CurrentChatID == nil {
		return nil
	}
	chat := s.findChatLocked(*s.state.CurrentChatID)
	if chat == nil {
		return nil
	}
	clone := cloneChat(chat)
	return &clone
}

// GetChat 按 ID 返回会话快照
// 返回:
//   - *model.Chat: 会话快照，未找到返回 nil
func (s *ChatStore) GetChat(chatID string) *model.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat := s.findChatLocked(chatID)
	if chat == nil {
		return nil
	}
	clone := cloneChat(chat)
	return &clone
}

// GetMessage 按 ID 返回消息快照
// 返回:
//   - *model.ChatMessage: 消息快照，未找到返回 nil
func (s *ChatStore) GetMessage(chatID, messageID string) *model.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat := s.findChatLocked(chatID)
	if chat == nil {
		return nil
	}
	idx := chat.FindMessage(messageID)
	if idx == -1 {
		return nil
	}
	clone := cloneMessage(&chat.Messages[idx])
	return &clone
}

// ==================== 内部辅助 ====================

// findChatLocked 按 ID 查找会话，返回内部指针
// 调用方必须持有 s.mu
func (s *ChatStore) findChatLocked(chatID string) *model.Chat {
	for i := range s.state.Chats {
		if s.state.Chats[i].ID == chatID {
			return &s.state.Chats[i]
		}
	}
	return nil
}

// persistLocked 全量重写持久化记录
// 持久化失败只记录日志，不回滚内存状态
// 调用方必须持有 s.mu
func (s *ChatStore) persistLocked() {
	if s.persister == nil {
		return
	}
	if err := s.persister.Save(context.Background(), s.state); err != nil {
		log.Printf("Failed to persist chat state: %v", err)
	}
}

// cloneChat 深拷贝会话，避免快照与内部状态共享切片
func cloneChat(chat *model.Chat) model.Chat {
	clone := *chat
	clone.Messages = make([]model.ChatMessage, len(chat.Messages))
	for i := range chat.Messages {
		clone.Messages[i] = cloneMessage(&chat.Messages[i])
	}
	return clone
}

// cloneMessage 深拷贝消息
func cloneMessage(msg *model.ChatMessage) model.ChatMessage {
	clone := *msg
	if msg.Versions != nil {
		clone.Versions = append([]string(nil), msg.Versions...)
	}
	if msg.Attachments != nil {
		clone.Attachments = append([]model.FileAttachment(nil), msg.Attachments...)
	}
	return clone
}
