// Package store 实现会话仓库
// 仓库是内存中的会话集合，持久化后端只负责一条序列化记录的读写
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gemini-chat-server/internal/model"
)

// Persister 持久化后端接口
// 整个仓库状态作为一条记录整体读写，没有增量更新
type Persister interface {
	// Load 读取仓库状态
	// 记录不存在时返回空状态，不返回错误
	Load(ctx context.Context) (*model.ChatState, error)

	// Save 全量重写仓库状态
	Save(ctx context.Context, state *model.ChatState) error
}

// EncodeState 将仓库状态序列化为持久化记录
// 所有持久化后端共用同一套编解码，保证记录格式互通
func EncodeState(state *model.ChatState) ([]byte, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize chat state: %w", err)
	}
	return data, nil
}

// DecodeState 从持久化记录还原仓库状态
func DecodeState(data []byte) (*model.ChatState, error) {
	var state model.ChatState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse chat state: %w", err)
	}
	if state.Chats == nil {
		state.Chats = []model.Chat{}
	}
	return &state, nil
}

// FileStore 基于 JSON 文件的持久化后端
// 对应浏览器端的 localStorage：单一键、整体序列化
type FileStore struct {
	path string // 存储文件路径
}

// NewFileStore 创建 FileStore 实例
// 参数:
//   - path: 存储文件路径，目录不存在时自动创建
//
// 返回:
//   - *FileStore: 文件存储实例
//   - error: 目录创建失败
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("store path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &FileStore{path: path}, nil
}

// Load 读取仓库状态
// 文件不存在等价于空状态
func (f *FileStore) Load(ctx context.Context) (*model.ChatState, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.EmptyState(), nil
		}
		return nil, fmt.Errorf("failed to read store file: %w", err)
	}
	return DecodeState(data)
}

// Save 全量重写仓库状态
// 先写临时文件再替换，避免写入中断留下半截文件
func (f *FileStore) Save(ctx context.Context, state *model.ChatState) error {
	data, err := EncodeState(state)
	if err != nil {
		return err
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write store file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("failed to replace store file: %w", err)
	}
	return nil
}
