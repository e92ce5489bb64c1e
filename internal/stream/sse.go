// Package stream 实现模拟流式传输
// 上游生成调用一次性返回完整文本，这里把它重新切分为带延迟的
// 事件序列，两端共用同一套行式封帧格式
package stream

import (
	"encoding/json"
	"strings"
)

// 封帧常量
const (
	// DataPrefix 每条事件记录的行前缀
	DataPrefix = "data: "

	// DoneMarker 流结束标记的载荷
	DoneMarker = "[DONE]"

	// DoneEvent 完整的流结束记录
	DoneEvent = DataPrefix + DoneMarker + "\n\n"
)

// Chunk 单条分片的 JSON 载荷
// 结构模仿 OpenAI 的 chat.completion.chunk，前端按此格式解析
type Chunk struct {
	Choices []Choice `json:"choices"`
}

// Choice 分片中的候选项
type Choice struct {
	Delta Delta `json:"delta"`
}

// Delta 增量内容
type Delta struct {
	Content string `json:"content"`
}

// EncodeChunk 将一个文本分片封装为完整的事件记录
// 输出形如: data: {"choices":[{"delta":{"content":"..."}}]}\n\n
func EncodeChunk(content string) string {
	payload, err := json.Marshal(Chunk{
		Choices: []Choice{{Delta: Delta{Content: content}}},
	})
	if err != nil {
		// Chunk 只含字符串字段，序列化不可能失败
		return ""
	}
	return DataPrefix + string(payload) + "\n\n"
}

// DecodeEvent 解析一条事件记录
// 无法解析的记录按约定静默跳过，不中断后续的流
// 返回:
//   - content: 分片文本
//   - done: 是否为流结束标记
//   - ok: 记录是否可解析（false 时调用方应跳过该记录）
func DecodeEvent(record string) (content string, done bool, ok bool) {
	line := strings.TrimSuffix(record, "\n\n")
	if !strings.HasPrefix(line, DataPrefix) {
		return "", false, false
	}

	data := line[len(DataPrefix):]
	if data == DoneMarker {
		return "", true, true
	}

	var chunk Chunk
	if err := json.Unmarshal([]byte(data), &chunk); err != nil {
		return "", false, false
	}
	if len(chunk.Choices) == 0 {
		return "", false, false
	}
	return chunk.Choices[0].Delta.Content, false, true
}

// Consume 消费一条事件流并累积文本
// 每收到一个有效分片就用当前累积结果回调一次 onProgress
// 返回:
//   - string: 累积出的完整文本
//   - bool: 是否收到了流结束标记
//     流在结束标记之前被关闭视为传输层失败，调用方应保留已累积
//     的部分内容且不提交新版本
func Consume(records <-chan string, onProgress func(total string)) (string, bool) {
	var sb strings.Builder
	settled := false

	for record := range records {
		content, done, ok := DecodeEvent(record)
		if !ok {
			// 无法解析的记录跳过，其余分片照常处理
			continue
		}
		if done {
			settled = true
			break
		}
		if content == "" {
			continue
		}
		sb.WriteString(content)
		if onProgress != nil {
			onProgress(sb.String())
		}
	}

	return sb.String(), settled
}
