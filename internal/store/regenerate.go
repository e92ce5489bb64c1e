package store

import (
	"context"
	"errors"
	"fmt"
	"log"

	"gemini-chat-server/internal/model"
	"gemini-chat-server/internal/stream"
)

// ErrStreamInterrupted 流在结束标记之前被关闭
// 此时助手消息保留已累积的部分内容，不追加新版本
var ErrStreamInterrupted = errors.New("stream ended before completion marker")

// RegenerateResponse 重新生成某条用户消息对应的助手响应
//
// 流程:
//  1. newContent 非空时先更新源用户消息的内容
//  2. 定位对应的助手消息：优先按 ParentMessageID 反查，
//     找不到时回退到"用户消息的下一条"这一位置约定
//  3. 只携带（可能已编辑的）这一条用户消息内容发起上游生成调用，
//     不附带任何对话历史
//  4. 分片到达时直接覆盖助手消息的 Content，提供实时反馈
//  5. 全文到齐后通过 AddResponseVersion 提交为新版本
//
// 失败语义:
//   - 会话或用户消息不存在：静默忽略，返回 nil
//   - 生成调用或流中断：助手消息保留已累积的部分内容（不回滚），
//     不追加版本，错误只记日志并返回给调用方；仓库不会代为
//     生成面向用户的错误消息
func (s *ChatStore) RegenerateResponse(ctx context.Context, chatID, userMessageID, newContent string) error {
	s.mu.Lock()
	chat := s.findChatLocked(chatID)
	if chat == nil {
		s.mu.Unlock()
		return nil
	}
	userIdx := chat.FindMessage(userMessageID)
	if userIdx == -1 {
		s.mu.Unlock()
		return nil
	}

	prompt := newContent
	if prompt == "" {
		prompt = chat.Messages[userIdx].Content
	}
	assistantID := locateAssistant(chat, userMessageID, userIdx)
	s.mu.Unlock()

	if newContent != "" {
		s.UpdateMessageContent(chatID, userMessageID, newContent)
	}

	text, err := s.generate(ctx, prompt)
	if err != nil {
		log.Printf("Failed to regenerate response: %v", err)
		return fmt.Errorf("failed to regenerate response: %w", err)
	}

	accumulated, settled := stream.Consume(s.transport.Stream(text), func(total string) {
		if assistantID != "" {
			s.UpdateMessageContent(chatID, assistantID, total)
		}
	})
	if !settled {
		log.Printf("Regeneration stream interrupted: chatID=%s, messageID=%s", chatID, assistantID)
		return ErrStreamInterrupted
	}

	if assistantID != "" && accumulated != "" {
		s.AddResponseVersion(chatID, assistantID, accumulated)
	}
	return nil
}

// locateAssistant 定位用户消息对应的助手消息
// 优先按 ParentMessageID 链接反查；链接缺失时回退到位置约定：
// 助手响应紧跟在用户消息之后
// 返回助手消息 ID，找不到时返回空串
func locateAssistant(chat *model.Chat, userMessageID string, userIdx int) string {
	for i := range chat.Messages {
		m := &chat.Messages[i]
		if m.Role == model.MessageRoleAssistant && m.ParentMessageID == userMessageID {
			return m.ID
		}
	}

	next := userIdx + 1
	if next < len(chat.Messages) {
		return chat.Messages[next].ID
	}
	return ""
}
