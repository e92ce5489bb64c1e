package websocket

import (
	"log"
	"sync"

	"gemini-chat-server/internal/store"
)

// Hub 是 WebSocket 连接的中心管理器
// 负责：
// 1. 管理所有订阅者连接
// 2. 订阅仓库的变更事件并广播给全部订阅者
type Hub struct {
	// clients 所有已注册的订阅者
	clients map[*Client]struct{}

	// 注册通道
	register chan *Client

	// 注销通道
	unregister chan *Client

	// 互斥锁，保护并发访问
	mu sync.RWMutex

	// chatStore 被订阅的仓库
	chatStore *store.ChatStore

	// unsubscribe 取消仓库订阅的函数
	unsubscribe func()
}

// NewHub 创建 Hub 实例
func NewHub(chatStore *store.ChatStore) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		chatStore:  chatStore,
	}
}

// Run 启动 Hub 的主循环
// 应该在单独的 goroutine 中运行
// 启动时向仓库注册事件订阅，仓库的每次变更都会广播给全部订阅者
func (h *Hub) Run() {
	h.unsubscribe = h.chatStore.Subscribe(func(evt store.Event) {
		h.Broadcast(NewMessage(TypeStoreEvent, evt))
	})

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			h.mu.Unlock()
			log.Printf("WebSocket client registered, total=%d", h.ClientCount())

		case client := <-h.unregister:
			h.mu.Lock()
			if _, exists := h.clients[client]; exists {
				delete(h.clients, client)
				client.Close()
			}
			h.mu.Unlock()
			log.Printf("WebSocket client unregistered, total=%d", h.ClientCount())
		}
	}
}

// Broadcast 向全部订阅者广播消息
func (h *Hub) Broadcast(msg *Message) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		client.SendMessage(msg)
	}
}

// Register 注册客户端（供外部调用）
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister 注销客户端（供外部调用）
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// ClientCount 返回当前订阅者数量
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
