// Package service 提供业务逻辑层
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"gemini-chat-server/internal/config"
)

// GenerateContentPath Gemini REST 接口路径模板
const GenerateContentPath = "/v1beta/models/%s:generateContent"

// AIService 提供 AI 生成功能
// 对上游只发起一次阻塞调用，拿到完整文本；没有真实的流式返回
type AIService struct {
	config *config.Config
	client *http.Client
}

// NewAIService 创建 AIService 实例
func NewAIService(cfg *config.Config) *AIService {
	return &AIService{
		config: cfg,
		client: &http.Client{
			Timeout: 30 * time.Second, // 设置超时
		},
	}
}

// GeminiRequest Gemini API 请求结构
type GeminiRequest struct {
	Contents []GeminiContent `json:"contents"`
}

// GeminiContent 请求中的一段内容
type GeminiContent struct {
	Parts []GeminiPart `json:"parts"`
}

// GeminiPart 内容分段
type GeminiPart struct {
	Text string `json:"text"`
}

// GeminiResponse Gemini API 响应结构
type GeminiResponse struct {
	Candidates []struct {
		Content GeminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// GenerateText 调用 Gemini 生成回复
// 只发送单条 prompt，不携带对话历史
// 参数:
//   - ctx: 上下文
//   - prompt: 用户消息内容
//
// 返回:
//   - string: 生成的完整文本
//   - error: 调用或解析错误
func (s *AIService) GenerateText(ctx context.Context, prompt string) (string, error) {
	if s.config.AI.GeminiAPIKey == "" {
		return "", errors.New("AI service not configured (missing API Key)")
	}

	// 1. 构造请求 Body
	geminiReq := GeminiRequest{
		Contents: []GeminiContent{
			{Parts: []GeminiPart{{Text: prompt}}},
		},
	}

	jsonData, err := json.Marshal(geminiReq)
	if err != nil {
		return "", err
	}

	// 2. 发送 HTTP 请求
	url := s.config.AI.Endpoint + fmt.Sprintf(GenerateContentPath, s.config.AI.Model)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", s.config.AI.GeminiAPIKey)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to call AI service: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("AI service returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	// 3. 解析响应
	var geminiResp GeminiResponse
	if err := json.Unmarshal(bodyBytes, &geminiResp); err != nil {
		return "", fmt.Errorf("failed to parse AI response: %w", err)
	}

	if geminiResp.Error != nil {
		return "", fmt.Errorf("AI service error: %s - %s", geminiResp.Error.Status, geminiResp.Error.Message)
	}

	if len(geminiResp.Candidates) == 0 {
		return "", errors.New("AI returned no content")
	}

	// 4. 拼接所有分段
	var sb strings.Builder
	for _, part := range geminiResp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", errors.New("AI returned no content")
	}
	return text, nil
}
