package stream

import (
	"strings"
	"time"
)

// DefaultChunkDelay 相邻分片之间的默认投递间隔
// 30ms 在逐字效果和总时长之间比较平衡
const DefaultChunkDelay = 30 * time.Millisecond

// Streamer 模拟流式传输器
// 输入是一段已经完整生成的文本，输出是带延迟的事件记录序列
// 一旦开始投递就会运行到结束，不支持消费侧取消
type Streamer struct {
	// Delay 相邻分片之间的投递间隔
	Delay time.Duration
}

// NewStreamer 创建 Streamer 实例
// delay <= 0 时使用默认间隔
func NewStreamer(delay time.Duration) *Streamer {
	if delay <= 0 {
		delay = DefaultChunkDelay
	}
	return &Streamer{Delay: delay}
}

// Stream 将完整文本重新投递为事件记录序列
// 切分规则:
//   - 按单个空格切分为词
//   - 除最后一个词外，每个词重新拼回一个尾随空格
//     这样逐片拼接即可还原出原始文本
//
// 通道中依次出现各分片记录和结束记录，随后关闭
// 返回:
//   - <-chan string: 事件记录通道
func (s *Streamer) Stream(text string) <-chan string {
	records := make(chan string)

	go func() {
		defer close(records)

		words := strings.Split(text, " ")
		for i, word := range words {
			if i < len(words)-1 {
				word += " "
			}
			records <- EncodeChunk(word)

			// 最后一个分片之后直接发结束标记，不再等待
			if i < len(words)-1 {
				time.Sleep(s.Delay)
			}
		}

		records <- DoneEvent
	}()

	return records
}
