// Package config 负责加载和管理应用程序的配置
// 使用 viper 库支持 YAML 配置文件和环境变量覆盖
package config

import (
	"strings"

	"github.com/spf13/viper"
)

// 持久化后端常量
const (
	StoreBackendFile  = "file"  // JSON 文件（localStorage 的服务端等价物）
	StoreBackendRedis = "redis" // Redis 单键
)

// Config 是应用程序的根配置结构
// 包含所有子配置模块
type Config struct {
	Server ServerConfig `mapstructure:"server"` // 服务器配置
	Store  StoreConfig  `mapstructure:"store"`  // 持久化配置
	Redis  RedisConfig  `mapstructure:"redis"`  // Redis 配置
	AI     AIConfig     `mapstructure:"ai"`     // AI 服务配置
	Stream StreamConfig `mapstructure:"stream"` // 模拟流式输出配置
	Log    LogConfig    `mapstructure:"log"`    // 日志配置
}

// ServerConfig 服务器相关配置
type ServerConfig struct {
	Port int      `mapstructure:"port"` // 监听端口，默认 8080
	Mode string   `mapstructure:"mode"` // 运行模式: debug / release
	CORS []string `mapstructure:"cors"` // CORS 允许的域名
}

// StoreConfig 会话仓库持久化配置
// 整个仓库状态序列化为一条记录，存放在固定的 Key 下
type StoreConfig struct {
	Backend string `mapstructure:"backend"` // 持久化后端: file / redis
	Path    string `mapstructure:"path"`    // file 后端的存储文件路径
	Key     string `mapstructure:"key"`     // 存储键，沿用前端的 localStorage 键名
}

// RedisConfig Redis 连接配置
type RedisConfig struct {
	Host     string `mapstructure:"host"`      // Redis 主机地址
	Port     int    `mapstructure:"port"`      // Redis 端口
	Username string `mapstructure:"username"`  // Redis 用户名（云厂商需要）
	Password string `mapstructure:"password"`  // Redis 密码
	DB       int    `mapstructure:"db"`        // 数据库索引 (0-15)
	PoolSize int    `mapstructure:"pool_size"` // 连接池大小
}

// AIConfig AI 服务配置
type AIConfig struct {
	GeminiAPIKey string `mapstructure:"gemini_api_key"` // Gemini API Key
	Model        string `mapstructure:"model"`          // 模型名称
	Endpoint     string `mapstructure:"endpoint"`       // API 根地址，便于测试时替换
}

// StreamConfig 模拟流式输出配置
type StreamConfig struct {
	// ChunkDelayMs 相邻分片之间的投递间隔（毫秒）
	// 上游是一次性返回完整文本，分片延迟制造出逐字输出的效果
	ChunkDelayMs int `mapstructure:"chunk_delay_ms"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`  // 日志级别: debug/info/warn/error
	Format string `mapstructure:"format"` // 日志格式: json/text
}

// Load 从指定路径加载配置文件
// 支持环境变量覆盖配置项
// 参数:
//   - configPath: 配置文件目录路径 (如 "./configs")
//
// 返回:
//   - *Config: 配置对象
//   - error: 如果加载失败则返回错误
func Load(configPath string) (*Config, error) {
	// 创建新的 viper 实例
	v := viper.New()

	// 设置配置文件
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)

	// 启用环境变量
	v.AutomaticEnv()
	// 将环境变量中的 _ 映射到配置的 .
	// 例如: REDIS_HOST -> redis.host
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 绑定环境变量
	bindEnvVariables(v)

	// 设置默认值（当配置文件中未指定时使用）
	setDefaults(v)

	// 读取配置文件（如果不存在则使用默认值和环境变量）
	if err := v.ReadInConfig(); err != nil {
		// 如果配置文件不存在，继续使用默认值和环境变量
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	// 将配置解析到结构体
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// bindEnvVariables 绑定环境变量到配置项
func bindEnvVariables(v *viper.Viper) {
	// 服务器配置
	v.BindEnv("server.port", "SERVER_PORT")
	v.BindEnv("server.mode", "SERVER_MODE")

	// 持久化配置
	v.BindEnv("store.backend", "STORE_BACKEND")
	v.BindEnv("store.path", "STORE_PATH")

	// Redis 配置
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.username", "REDIS_USERNAME")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// AI 配置
	v.BindEnv("ai.gemini_api_key", "GEMINI_API_KEY")
	v.BindEnv("ai.model", "GEMINI_MODEL")
}

// setDefaults 设置配置项的默认值
// 当配置文件中没有指定某个值时，将使用这里设置的默认值
func setDefaults(v *viper.Viper) {
	// 服务器默认配置
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors", []string{"http://localhost:3000", "http://localhost:5173"})

	// 持久化默认配置
	v.SetDefault("store.backend", StoreBackendFile)
	v.SetDefault("store.path", "./data/chats.json")
	// 沿用前端的 localStorage 键名，保证历史数据可以直接迁移
	v.SetDefault("store.key", "chatgpt-clone-storage")

	// Redis 默认配置
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 100)

	// AI 默认配置
	v.SetDefault("ai.model", "gemini-2.0-flash-exp")
	v.SetDefault("ai.endpoint", "https://generativelanguage.googleapis.com")

	// 流式输出默认配置
	// 30ms 在逐字效果和总时长之间比较平衡
	v.SetDefault("stream.chunk_delay_ms", 30)

	// 日志默认配置
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}
