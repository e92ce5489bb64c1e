// Package util 提供通用工具函数
package util

import (
	"strings"

	"github.com/google/uuid"
)

// ChatTitleMaxLen 自动推导标题时保留的最大字符数
const ChatTitleMaxLen = 50

// GenerateUUID 生成 UUID
// 使用 Google 的 uuid 库生成 UUID v4
// 返回:
//   - string: UUID 字符串（不含连字符）
func GenerateUUID() string {
	// uuid.New() 生成 UUID v4（随机生成）
	// String() 返回格式：xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx
	// 我们去掉连字符使其更紧凑
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// DeriveChatTitle 根据首条用户消息推导会话标题
// 取前 50 个字符，超出时在末尾追加 "..."
// 注意: 不超长时原样返回，不追加省略号
// 参数:
//   - content: 消息内容
//
// 返回:
//   - string: 推导出的标题
func DeriveChatTitle(content string) string {
	// 按字符而不是字节截断，避免把多字节字符切坏
	runes := []rune(content)
	if len(runes) <= ChatTitleMaxLen {
		return content
	}
	return string(runes[:ChatTitleMaxLen]) + "..."
}

// StringPtr 返回字符串的指针
// 用于可选字段的赋值
// 参数:
//   - s: 字符串
//
// 返回:
//   - *string: 字符串指针
func StringPtr(s string) *string {
	return &s
}

// IntPtr 返回 int 的指针
func IntPtr(i int) *int {
	return &i
}
