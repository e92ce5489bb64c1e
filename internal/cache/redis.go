// Package cache 提供 Redis 持久化后端
// 仓库状态整体序列化后存放在固定的 Key 下，是 localStorage
// 在服务端的等价物：单一键、全量重写
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"gemini-chat-server/internal/config"
	"gemini-chat-server/internal/model"
	"gemini-chat-server/internal/store"
)

// RedisStore 封装 Redis 客户端，实现仓库的持久化后端接口
type RedisStore struct {
	client *redis.Client // Redis 客户端实例
	key    string        // 存储键
}

// NewRedisStore 创建 RedisStore 实例
// 参数:
//   - cfg: 应用配置（包含 Redis 连接信息和存储键）
//
// 返回:
//   - *RedisStore: 存储实例
//   - error: 连接错误
func NewRedisStore(cfg *config.Config) (*RedisStore, error) {
	if cfg.Store.Key == "" {
		return nil, errors.New("store key is empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Username: cfg.Redis.Username, // 云厂商 Redis 需要用户名
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{client: client, key: cfg.Store.Key}, nil
}

// Load 读取仓库状态
// Key 不存在等价于空状态
func (r *RedisStore) Load(ctx context.Context) (*model.ChatState, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.EmptyState(), nil
		}
		return nil, fmt.Errorf("failed to load chat state: %w", err)
	}
	// 与文件后端共用同一套编解码，记录格式保持互通
	return store.DecodeState(data)
}

// Save 全量重写仓库状态
// 没有过期时间：会话数据需要永久保留
func (r *RedisStore) Save(ctx context.Context, state *model.ChatState) error {
	data, err := store.EncodeState(state)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save chat state: %w", err)
	}
	return nil
}

// Close 关闭 Redis 连接
func (r *RedisStore) Close() error {
	return r.client.Close()
}
