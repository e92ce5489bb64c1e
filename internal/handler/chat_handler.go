// Package handler 提供 HTTP 请求处理器
package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"gemini-chat-server/internal/model"
	"gemini-chat-server/internal/store"
)

// ChatHandler 处理对话生成请求
// 对外格式固定：请求/响应的 JSON 形状和 SSE 帧都不可改动，
// 前端按字节级约定解析
type ChatHandler struct {
	generate  store.GenerateFunc
	transport store.Transport
}

// NewChatHandler 创建 ChatHandler 实例
func NewChatHandler(generate store.GenerateFunc, transport store.Transport) *ChatHandler {
	return &ChatHandler{
		generate:  generate,
		transport: transport,
	}
}

// ChatRequest 对话生成请求体
type ChatRequest struct {
	Messages []model.ChatMessage `json:"messages"`
}

// HandleChat 处理对话生成请求
// 路由: POST /api/chat
//
// 校验: messages 的最后一个元素必须是 user 角色，
// 否则返回 400 {"error": "No user message found"}
//
// 成功时以 text/event-stream 返回，每个分片一条
// data: {"choices":[{"delta":{"content":...}}]} 记录，
// 以 data: [DONE] 结束；上游失败返回 500
func (h *ChatHandler) HandleChat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No user message found"})
		return
	}

	// 取最后一条消息，必须是用户消息
	if len(req.Messages) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No user message found"})
		return
	}
	last := req.Messages[len(req.Messages)-1]
	if last.Role != model.MessageRoleUser {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No user message found"})
		return
	}

	// 上游调用是一次性的阻塞请求；失败时还没有发出任何分片，
	// 可以安全地返回 JSON 错误
	text, err := h.generate(c.Request.Context(), last.Content)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to process chat request",
			"details": err.Error(),
		})
		return
	}

	// SSE 响应头
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	// 逐条写出封帧后的记录
	// 一旦开始投递就运行到结束，不支持客户端取消
	for record := range h.transport.Stream(text) {
		fmt.Fprint(c.Writer, record)
		c.Writer.Flush()
	}
}
