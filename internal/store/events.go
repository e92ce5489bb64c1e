package store

// EventType 仓库变更事件类型
const (
	EventChatCreated  = "chat:created"  // 新建会话
	EventChatSelected = "chat:selected" // 切换当前会话
	EventChatDeleted  = "chat:deleted"  // 删除会话
	EventChatRenamed  = "chat:renamed"  // 会话改名

	EventMessageAdded   = "message:added"   // 追加消息
	EventMessageUpdated = "message:updated" // 消息内容更新
	EventMessageDeleted = "message:deleted" // 删除消息

	EventVersionAdded    = "version:added"    // 新增响应版本
	EventVersionSwitched = "version:switched" // 切换响应版本

	EventStoreCleared = "store:cleared" // 清空仓库
)

// Event 仓库变更事件
// 每次成功的变更操作都会向所有订阅者广播一条事件
type Event struct {
	Type      string `json:"type"`                 // 事件类型
	ChatID    string `json:"chat_id,omitempty"`    // 相关会话 ID
	MessageID string `json:"message_id,omitempty"` // 相关消息 ID
}

// Subscribe 注册变更事件订阅者
// 仓库不关心订阅者是谁，UI 层（如 WebSocket Hub）自行决定如何消费
// 返回:
//   - func(): 取消订阅的函数
func (s *ChatStore) Subscribe(fn func(Event)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subscribers, id)
	}
}

// notify 向所有订阅者广播事件
// 在仓库锁之外调用，订阅者回调中可以安全地读取仓库
func (s *ChatStore) notify(evt Event) {
	s.subMu.Lock()
	fns := make([]func(Event), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(evt)
	}
}
