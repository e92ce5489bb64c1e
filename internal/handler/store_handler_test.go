package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gemini-chat-server/internal/model"
	"gemini-chat-server/internal/service"
	"gemini-chat-server/internal/store"
	"gemini-chat-server/internal/stream"
	"gemini-chat-server/pkg/response"
)

// newStoreRouter 按生产环境的路由布局组装会话管理 API
func newStoreRouter(t *testing.T, generate store.GenerateFunc) (*gin.Engine, *store.ChatStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	transport := stream.NewStreamer(1)
	chatStore, err := store.NewChatStore(context.Background(), nil, generate, transport)
	require.NoError(t, err)
	h := NewStoreHandler(chatStore, service.NewChatService(chatStore, generate, transport))

	router := gin.New()
	chats := router.Group("/api/chats")
	{
		chats.GET("", h.ListChats)
		chats.POST("", h.CreateChat)
		chats.DELETE("", h.ClearChats)
		chats.GET("/:id", h.GetChat)
		chats.PUT("/:id", h.RenameChat)
		chats.DELETE("/:id", h.DeleteChat)
		chats.POST("/:id/select", h.SelectChat)
		chats.POST("/:id/messages", h.SendMessage)
		chats.PUT("/:id/messages/:messageId", h.UpdateMessage)
		chats.DELETE("/:id/messages/:messageId", h.DeleteMessage)
		chats.POST("/:id/messages/:messageId/regenerate", h.RegenerateMessage)
		chats.PUT("/:id/messages/:messageId/version", h.SwitchVersion)
	}
	return router, chatStore
}

func doRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// decodeEnvelope 解析统一响应结构
func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var resp response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestListChats(t *testing.T) {
	router, chatStore := newStoreRouter(t, nil)
	chatID := chatStore.CreateChat()

	w := doRequest(router, http.MethodGet, "/api/chats", "")
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeEnvelope(t, w)
	assert.Equal(t, response.CodeSuccess, resp.Code)

	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var state StateResponse
	require.NoError(t, json.Unmarshal(data, &state))
	require.Len(t, state.Chats, 1)
	assert.Equal(t, chatID, state.Chats[0].ID)
	require.NotNil(t, state.CurrentChatID)
	assert.Equal(t, chatID, *state.CurrentChatID)
}

func TestCreateChatEndpoint(t *testing.T) {
	router, chatStore := newStoreRouter(t, nil)

	w := doRequest(router, http.MethodPost, "/api/chats", "")
	require.Equal(t, http.StatusCreated, w.Code)

	resp := decodeEnvelope(t, w)
	assert.Equal(t, response.CodeSuccess, resp.Code)
	assert.Len(t, chatStore.Chats(), 1)
}

func TestGetChatNotFound(t *testing.T) {
	router, _ := newStoreRouter(t, nil)

	w := doRequest(router, http.MethodGet, "/api/chats/nonexistent", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	resp := decodeEnvelope(t, w)
	assert.Equal(t, response.CodeChatNotFound, resp.Code)
}

func TestRenameChatEndpoint(t *testing.T) {
	router, chatStore := newStoreRouter(t, nil)
	chatID := chatStore.CreateChat()

	w := doRequest(router, http.MethodPut, "/api/chats/"+chatID, `{"title":"Renamed"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Renamed", chatStore.GetChat(chatID).Title)

	// 缺少 title 字段
	w = doRequest(router, http.MethodPut, "/api/chats/"+chatID, `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeEnvelope(t, w)
	assert.Equal(t, response.CodeBadRequest, resp.Code)
}

func TestDeleteChatEndpoint(t *testing.T) {
	router, chatStore := newStoreRouter(t, nil)
	chatID := chatStore.CreateChat()

	w := doRequest(router, http.MethodDelete, "/api/chats/"+chatID, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, chatStore.Chats())

	// 变更类接口：目标不存在时同样返回成功
	w = doRequest(router, http.MethodDelete, "/api/chats/nonexistent", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestSendMessageEndpoint(t *testing.T) {
	generate := func(ctx context.Context, prompt string) (string, error) {
		return "assistant reply", nil
	}
	router, chatStore := newStoreRouter(t, generate)
	chatID := chatStore.CreateChat()

	w := doRequest(router, http.MethodPost, "/api/chats/"+chatID+"/messages", `{"content":"hello"}`)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeEnvelope(t, w)
	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var result service.SendResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Equal(t, chatID, result.ChatID)
	assert.Equal(t, "hello", result.UserMessage.Content)
	assert.Equal(t, "assistant reply", result.AssistantMessage.Content)

	// 缺少 content 字段
	w = doRequest(router, http.MethodPost, "/api/chats/"+chatID+"/messages", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// 会话不存在时按需新建一个并在其中发送
func TestSendMessageCreatesChatOnDemand(t *testing.T) {
	generate := func(ctx context.Context, prompt string) (string, error) {
		return "assistant reply", nil
	}
	router, chatStore := newStoreRouter(t, generate)
	require.Empty(t, chatStore.Chats())

	w := doRequest(router, http.MethodPost, "/api/chats/nonexistent/messages", `{"content":"hello"}`)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeEnvelope(t, w)
	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var result service.SendResult
	require.NoError(t, json.Unmarshal(data, &result))

	// 新会话持有这一对消息，chat_id 告知实际使用的会话
	chats := chatStore.Chats()
	require.Len(t, chats, 1)
	assert.Equal(t, chats[0].ID, result.ChatID)
	assert.NotEqual(t, "nonexistent", result.ChatID)
	require.Len(t, chats[0].Messages, 2)
	assert.Equal(t, "hello", chats[0].Messages[0].Content)
	assert.Equal(t, "assistant reply", chats[0].Messages[1].Content)
}

// 生成失败被吸收为对话内的道歉消息，接口仍返回 200 和消息对
func TestSendMessageAbsorbsGenerateError(t *testing.T) {
	generate := func(ctx context.Context, prompt string) (string, error) {
		return "", errors.New("quota exceeded")
	}
	router, chatStore := newStoreRouter(t, generate)
	chatID := chatStore.CreateChat()

	w := doRequest(router, http.MethodPost, "/api/chats/"+chatID+"/messages", `{"content":"hello"}`)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeEnvelope(t, w)
	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var result service.SendResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Equal(t, service.ErrorReplyContent, result.AssistantMessage.Content)
}

func TestRegenerateMessageEndpoint(t *testing.T) {
	generate := func(ctx context.Context, prompt string) (string, error) {
		return "regenerated reply", nil
	}
	router, chatStore := newStoreRouter(t, generate)
	chatID := chatStore.CreateChat()
	chatStore.AppendMessage(chatID, model.ChatMessage{ID: "u1", Role: model.MessageRoleUser, Content: "question"})
	chatStore.AppendMessage(chatID, model.ChatMessage{ID: "a1", Role: model.MessageRoleAssistant, Content: "first reply", ParentMessageID: "u1"})

	// 空请求体也允许
	w := doRequest(router, http.MethodPost, "/api/chats/"+chatID+"/messages/u1/regenerate", "")
	require.Equal(t, http.StatusOK, w.Code)

	msg := chatStore.GetMessage(chatID, "a1")
	assert.Equal(t, "regenerated reply", msg.Content)
	assert.Equal(t, []string{"first reply", "regenerated reply"}, msg.Versions)
}

func TestSwitchVersionEndpoint(t *testing.T) {
	router, chatStore := newStoreRouter(t, nil)
	chatID := chatStore.CreateChat()
	chatStore.AppendMessage(chatID, model.ChatMessage{ID: "a1", Role: model.MessageRoleAssistant, Content: "v0"})
	chatStore.AddResponseVersion(chatID, "a1", "v1")

	// 下标 0 也是有效值，binding 用指针区分缺省与零值
	w := doRequest(router, http.MethodPut, "/api/chats/"+chatID+"/messages/a1/version", `{"index":0}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "v0", chatStore.GetMessage(chatID, "a1").Content)

	// 缺少 index 字段
	w = doRequest(router, http.MethodPut, "/api/chats/"+chatID+"/messages/a1/version", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
