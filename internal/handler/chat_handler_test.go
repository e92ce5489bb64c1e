package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gemini-chat-server/internal/stream"
)

func newChatRouter(generate func(ctx context.Context, prompt string) (string, error)) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewChatHandler(generate, stream.NewStreamer(1))
	router := gin.New()
	router.POST("/api/chat", h.HandleChat)
	return router
}

func postJSON(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandleChatStreamsResponse(t *testing.T) {
	generate := func(ctx context.Context, prompt string) (string, error) {
		assert.Equal(t, "hello", prompt)
		return "alpha beta gamma", nil
	}
	router := newChatRouter(generate)

	w := postJSON(router, "/api/chat", `{"messages":[{"role":"user","content":"hello"}]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))

	body := w.Body.String()
	// 每个词一条记录，以结束标记收尾
	assert.Contains(t, body, `data: {"choices":[{"delta":{"content":"alpha "}}]}`+"\n\n")
	assert.Contains(t, body, `data: {"choices":[{"delta":{"content":"beta "}}]}`+"\n\n")
	assert.Contains(t, body, `data: {"choices":[{"delta":{"content":"gamma"}}]}`+"\n\n")
	assert.True(t, strings.HasSuffix(body, stream.DoneEvent))
}

func TestHandleChatNoUserMessage(t *testing.T) {
	router := newChatRouter(nil)

	// 空消息列表
	w := postJSON(router, "/api/chat", `{"messages":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"No user message found"}`, w.Body.String())

	// 最后一条不是用户消息
	w = postJSON(router, "/api/chat", `{"messages":[{"role":"assistant","content":"hi"}]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"No user message found"}`, w.Body.String())

	// 请求体无法解析
	w = postJSON(router, "/api/chat", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"No user message found"}`, w.Body.String())
}

func TestHandleChatUpstreamError(t *testing.T) {
	generate := func(ctx context.Context, prompt string) (string, error) {
		return "", errors.New("quota exceeded")
	}
	router := newChatRouter(generate)

	w := postJSON(router, "/api/chat", `{"messages":[{"role":"user","content":"hello"}]}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Failed to process chat request","details":"quota exceeded"}`, w.Body.String())
}
