package service

import (
	"context"
	"log"
	"mime/multipart"
	"time"

	"gemini-chat-server/internal/model"
	"gemini-chat-server/internal/store"
	"gemini-chat-server/internal/stream"
	"gemini-chat-server/pkg/util"
)

// ErrorReplyContent 生成失败时写入会话的固定道歉消息
// 初次发送的失败被吸收进对话本身，而不是抛给调用方一个临时提示
const ErrorReplyContent = "Sorry, I encountered an error while processing your request. Please try again."

// ChatService 聊天业务逻辑
// 负责初次发送路径的编排：追加用户消息、占位助手消息、
// 驱动模拟流式传输、失败时落道歉消息
type ChatService struct {
	store     *store.ChatStore
	generate  store.GenerateFunc
	transport store.Transport
}

// NewChatService 创建 ChatService 实例
// 参数:
//   - chatStore: 会话仓库
//   - generate: 上游生成调用
//   - transport: 模拟流式传输器
func NewChatService(chatStore *store.ChatStore, generate store.GenerateFunc, transport store.Transport) *ChatService {
	return &ChatService{
		store:     chatStore,
		generate:  generate,
		transport: transport,
	}
}

// SendResult 发送结果
type SendResult struct {
	ChatID           string            `json:"chat_id"`           // 消息所在的会话（按需新建时是新会话 ID）
	UserMessage      model.ChatMessage `json:"user_message"`      // 已追加的用户消息
	AssistantMessage model.ChatMessage `json:"assistant_message"` // 最终的助手消息
}

// SendMessage 初次发送路径
//
// 流程:
//  1. 追加用户消息（会话的第一条用户消息会触发标题推导）
//  2. 追加空内容的助手占位消息，ParentMessageID 指向用户消息
//  3. 发起上游生成调用并驱动模拟流式传输，
//     每个分片到达时更新占位消息的内容
//  4. 任一环节失败时，把占位消息替换为固定的道歉消息；
//     不会留下空占位，也不会静默吞掉错误
//
// 参数:
//   - ctx: 上下文
//   - chatID: 目标会话，必须已存在
//   - content: 用户消息内容
//   - attachments: 附件元数据列表，可为空
//
// 返回:
//   - *SendResult: 最终的消息对
//   - error: 生成或传输错误（道歉消息已写入会话）
func (s *ChatService) SendMessage(ctx context.Context, chatID, content string, attachments []model.FileAttachment) (*SendResult, error) {
	userMsg := model.ChatMessage{
		ID:          util.GenerateUUID(),
		Role:        model.MessageRoleUser,
		Content:     content,
		Timestamp:   time.Now(),
		Attachments: attachments,
	}
	s.store.AppendMessage(chatID, userMsg)

	assistantMsg := model.ChatMessage{
		ID:              util.GenerateUUID(),
		Role:            model.MessageRoleAssistant,
		Content:         "",
		Timestamp:       time.Now(),
		ParentMessageID: userMsg.ID,
	}
	s.store.AppendMessage(chatID, assistantMsg)

	text, err := s.generate(ctx, content)
	if err != nil {
		log.Printf("Chat generation failed: %v", err)
		s.store.UpdateMessageContent(chatID, assistantMsg.ID, ErrorReplyContent)
		return s.result(chatID, userMsg.ID, assistantMsg.ID), err
	}

	_, settled := stream.Consume(s.transport.Stream(text), func(total string) {
		s.store.UpdateMessageContent(chatID, assistantMsg.ID, total)
	})
	if !settled {
		log.Printf("Chat stream interrupted: chatID=%s", chatID)
		s.store.UpdateMessageContent(chatID, assistantMsg.ID, ErrorReplyContent)
		return s.result(chatID, userMsg.ID, assistantMsg.ID), store.ErrStreamInterrupted
	}

	return s.result(chatID, userMsg.ID, assistantMsg.ID), nil
}

// result 从仓库取回消息对的最终快照
func (s *ChatService) result(chatID, userID, assistantID string) *SendResult {
	res := &SendResult{ChatID: chatID}
	if m := s.store.GetMessage(chatID, userID); m != nil {
		res.UserMessage = *m
	}
	if m := s.store.GetMessage(chatID, assistantID); m != nil {
		res.AssistantMessage = *m
	}
	return res
}

// ProcessUploads 处理上传的文件列表
// 不做真实存储，只为每个文件生成元数据记录，URL 是合成的
// 参数:
//   - files: multipart 表单中的文件头列表
//
// 返回:
//   - []model.FileAttachment: 每个文件的元数据
func ProcessUploads(files []*multipart.FileHeader) []model.FileAttachment {
	attachments := make([]model.FileAttachment, 0, len(files))
	for _, file := range files {
		attachments = append(attachments, model.FileAttachment{
			ID:   util.GenerateUUID(),
			Name: file.Filename,
			Type: file.Header.Get("Content-Type"),
			Size: file.Size,
			URL:  "/uploads/" + file.Filename,
		})
	}
	return attachments
}
