package handler

import (
	"github.com/gin-gonic/gin"

	"gemini-chat-server/internal/model"
	"gemini-chat-server/internal/service"
	"gemini-chat-server/internal/store"
	"gemini-chat-server/pkg/response"
)

// StoreHandler 会话管理请求处理器
// 把仓库的全部操作暴露为 REST 接口
// 变更类接口遵循仓库的静默忽略约定：目标不存在时同样返回成功，
// 只有读取类接口会返回 404
type StoreHandler struct {
	store       *store.ChatStore
	chatService *service.ChatService
}

// NewStoreHandler 创建 StoreHandler 实例
func NewStoreHandler(chatStore *store.ChatStore, chatService *service.ChatService) *StoreHandler {
	return &StoreHandler{
		store:       chatStore,
		chatService: chatService,
	}
}

// StateResponse 仓库状态响应
type StateResponse struct {
	Chats         []model.Chat `json:"chats"`
	CurrentChatID *string      `json:"currentChatId"`
}

// ListChats 获取全部会话和当前选中
// 路由: GET /api/chats
func (h *StoreHandler) ListChats(c *gin.Context) {
	response.Success(c, StateResponse{
		Chats:         h.store.Chats(),
		CurrentChatID: h.store.CurrentChatID(),
	})
}

// CreateChat 新建会话
// 路由: POST /api/chats
func (h *StoreHandler) CreateChat(c *gin.Context) {
	chatID := h.store.CreateChat()
	response.Created(c, h.store.GetChat(chatID))
}

// GetChat 获取单个会话
// 路由: GET /api/chats/:id
func (h *StoreHandler) GetChat(c *gin.Context) {
	chat := h.store.GetChat(c.Param("id"))
	if chat == nil {
		response.ChatNotFound(c)
		return
	}
	response.Success(c, chat)
}

// SelectChat 切换当前会话
// 路由: POST /api/chats/:id/select
func (h *StoreHandler) SelectChat(c *gin.Context) {
	h.store.SelectChat(c.Param("id"))
	response.Success(c, gin.H{"currentChatId": h.store.CurrentChatID()})
}

// RenameChatRequest 会话改名请求体
type RenameChatRequest struct {
	Title string `json:"title" binding:"required"`
}

// RenameChat 会话改名
// 路由: PUT /api/chats/:id
func (h *StoreHandler) RenameChat(c *gin.Context) {
	var req RenameChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "title is required")
		return
	}
	h.store.RenameChat(c.Param("id"), req.Title)
	response.Success(c, nil)
}

// DeleteChat 删除会话
// 路由: DELETE /api/chats/:id
func (h *StoreHandler) DeleteChat(c *gin.Context) {
	h.store.DeleteChat(c.Param("id"))
	response.NoContent(c)
}

// ClearChats 清空全部会话
// 路由: DELETE /api/chats
func (h *StoreHandler) ClearChats(c *gin.Context) {
	h.store.ClearAll()
	response.NoContent(c)
}

// SendMessageRequest 发送消息请求体
type SendMessageRequest struct {
	Content     string                 `json:"content" binding:"required"`
	Attachments []model.FileAttachment `json:"attachments"`
}

// SendMessage 发送消息并等待助手响应
// 路由: POST /api/chats/:id/messages
// 会话不存在时按需新建一个并在其中发送，响应里的 chat_id
// 告知调用方实际使用的会话；生成失败时道歉消息已写入会话，
// 接口仍返回最终的消息对
func (h *StoreHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "content is required")
		return
	}

	chatID := c.Param("id")
	if h.store.GetChat(chatID) == nil {
		chatID = h.store.CreateChat()
	}

	// 失败已被吸收为对话内的道歉消息，调用方拿到的就是它
	result, _ := h.chatService.SendMessage(c.Request.Context(), chatID, req.Content, req.Attachments)
	response.Success(c, result)
}

// UpdateMessageRequest 更新消息内容请求体
type UpdateMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// UpdateMessage 更新消息内容
// 路由: PUT /api/chats/:id/messages/:messageId
func (h *StoreHandler) UpdateMessage(c *gin.Context) {
	var req UpdateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "content is required")
		return
	}
	h.store.UpdateMessageContent(c.Param("id"), c.Param("messageId"), req.Content)
	response.Success(c, nil)
}

// DeleteMessage 删除消息
// 路由: DELETE /api/chats/:id/messages/:messageId
func (h *StoreHandler) DeleteMessage(c *gin.Context) {
	h.store.DeleteMessage(c.Param("id"), c.Param("messageId"))
	response.NoContent(c)
}

// RegenerateRequest 重新生成请求体
type RegenerateRequest struct {
	Content string `json:"content"` // 可选：编辑后的用户消息内容
}

// RegenerateMessage 重新生成助手响应
// 路由: POST /api/chats/:id/messages/:messageId/regenerate
// :messageId 是源用户消息的 ID
func (h *StoreHandler) RegenerateMessage(c *gin.Context) {
	var req RegenerateRequest
	// 请求体可以为空
	_ = c.ShouldBindJSON(&req)

	err := h.store.RegenerateResponse(c.Request.Context(), c.Param("id"), c.Param("messageId"), req.Content)
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}
	response.Success(c, h.store.GetChat(c.Param("id")))
}

// SwitchVersionRequest 切换响应版本请求体
type SwitchVersionRequest struct {
	Index *int `json:"index" binding:"required"`
}

// SwitchVersion 切换助手消息展示的响应版本
// 路由: PUT /api/chats/:id/messages/:messageId/version
// 下标越界遵循仓库的静默忽略约定
func (h *StoreHandler) SwitchVersion(c *gin.Context) {
	var req SwitchVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "index is required")
		return
	}
	h.store.SwitchResponseVersion(c.Param("id"), c.Param("messageId"), *req.Index)
	response.Success(c, h.store.GetMessage(c.Param("id"), c.Param("messageId")))
}
