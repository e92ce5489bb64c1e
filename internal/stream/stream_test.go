package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collect 读空一条事件流
func collect(records <-chan string) []string {
	var out []string
	for r := range records {
		out = append(out, r)
	}
	return out
}

// 三词输入应产生 3 个分片记录和 1 个结束记录
func TestStreamerThreeWords(t *testing.T) {
	s := NewStreamer(1) // 测试中不需要真实延迟

	records := collect(s.Stream("alpha beta gamma"))
	require.Len(t, records, 4)

	// 前两个词带尾随空格，最后一个不带
	var contents []string
	for _, r := range records[:3] {
		content, done, ok := DecodeEvent(r)
		require.True(t, ok)
		require.False(t, done)
		contents = append(contents, content)
	}
	assert.Equal(t, []string{"alpha ", "beta ", "gamma"}, contents)

	// 最后一条是结束记录
	assert.Equal(t, DoneEvent, records[3])
}

// 逐片拼接应还原出原始文本
func TestStreamerRoundTrip(t *testing.T) {
	s := NewStreamer(1)
	text := "The quick brown fox jumps over the lazy dog"

	accumulated, settled := Consume(s.Stream(text), nil)
	require.True(t, settled)
	assert.Equal(t, text, accumulated)
}

// 单词输入只产生一个分片，且不带尾随空格
func TestStreamerSingleWord(t *testing.T) {
	s := NewStreamer(1)

	records := collect(s.Stream("hello"))
	require.Len(t, records, 2)

	content, done, ok := DecodeEvent(records[0])
	require.True(t, ok)
	require.False(t, done)
	assert.Equal(t, "hello", content)
	assert.Equal(t, DoneEvent, records[1])
}

// EncodeChunk 的输出必须是前端解析的精确帧格式
func TestEncodeChunkFrame(t *testing.T) {
	record := EncodeChunk("hello ")
	assert.Equal(t, `data: {"choices":[{"delta":{"content":"hello "}}]}`+"\n\n", record)
}

func TestDecodeEvent(t *testing.T) {
	// 正常分片
	content, done, ok := DecodeEvent(EncodeChunk("word "))
	require.True(t, ok)
	assert.False(t, done)
	assert.Equal(t, "word ", content)

	// 结束标记
	_, done, ok = DecodeEvent(DoneEvent)
	require.True(t, ok)
	assert.True(t, done)

	// 无法解析的记录
	_, _, ok = DecodeEvent("not an event record")
	assert.False(t, ok)
	_, _, ok = DecodeEvent("data: {broken json}\n\n")
	assert.False(t, ok)
	_, _, ok = DecodeEvent("data: {\"choices\":[]}\n\n")
	assert.False(t, ok)
}

// 无法解析的记录被跳过，其余分片照常累积
func TestConsumeSkipsMalformed(t *testing.T) {
	records := make(chan string, 4)
	records <- EncodeChunk("alpha ")
	records <- "garbage line\n\n"
	records <- EncodeChunk("beta")
	records <- DoneEvent
	close(records)

	accumulated, settled := Consume(records, nil)
	require.True(t, settled)
	assert.Equal(t, "alpha beta", accumulated)
}

// 流在结束标记之前被关闭视为传输层失败
func TestConsumeInterrupted(t *testing.T) {
	records := make(chan string, 2)
	records <- EncodeChunk("alpha ")
	records <- EncodeChunk("beta ")
	close(records)

	accumulated, settled := Consume(records, nil)
	assert.False(t, settled)
	assert.Equal(t, "alpha beta ", accumulated)
}

// 每个有效分片到达时应带着当前累积结果回调一次
func TestConsumeProgress(t *testing.T) {
	records := make(chan string, 3)
	records <- EncodeChunk("alpha ")
	records <- EncodeChunk("beta")
	records <- DoneEvent
	close(records)

	var progress []string
	accumulated, settled := Consume(records, func(total string) {
		progress = append(progress, total)
	})
	require.True(t, settled)
	assert.Equal(t, "alpha beta", accumulated)
	assert.Equal(t, []string{"alpha ", "alpha beta"}, progress)
}

// 空文本切分出一个空词：不产生有效分片，但流正常结束
func TestStreamerEmptyText(t *testing.T) {
	s := NewStreamer(1)

	accumulated, settled := Consume(s.Stream(""), nil)
	require.True(t, settled)
	assert.Equal(t, "", accumulated)
}

// NewStreamer 对非法延迟回退到默认值
func TestNewStreamerDefaultDelay(t *testing.T) {
	assert.Equal(t, DefaultChunkDelay, NewStreamer(0).Delay)
	assert.Equal(t, DefaultChunkDelay, NewStreamer(-1).Delay)
	assert.Equal(t, DefaultChunkDelay, NewStreamer(DefaultChunkDelay).Delay)
}
