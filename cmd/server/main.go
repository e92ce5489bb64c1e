// Package main 是服务端的入口点
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"gemini-chat-server/internal/cache"
	"gemini-chat-server/internal/config"
	"gemini-chat-server/internal/handler"
	"gemini-chat-server/internal/middleware"
	"gemini-chat-server/internal/service"
	"gemini-chat-server/internal/store"
	"gemini-chat-server/internal/stream"
	"gemini-chat-server/internal/websocket"
)

func main() {
	// 加载配置
	cfg, err := config.Load("./configs")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化持久化后端
	persister, closeStore, err := initPersister(cfg)
	if err != nil {
		log.Fatalf("Failed to init persister: %v", err)
	}

	// 初始化 AI 服务和模拟流式传输器
	aiService := service.NewAIService(cfg)
	streamer := stream.NewStreamer(time.Duration(cfg.Stream.ChunkDelayMs) * time.Millisecond)

	// 初始化会话仓库（从持久化记录恢复状态）
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	chatStore, err := store.NewChatStore(ctx, persister, aiService.GenerateText, streamer)
	cancel()
	if err != nil {
		log.Fatalf("Failed to init chat store: %v", err)
	}
	log.Printf("Chat store loaded: %d chats", len(chatStore.Chats()))

	// 初始化 Service 层
	chatService := service.NewChatService(chatStore, aiService.GenerateText, streamer)

	// 初始化 WebSocket Hub
	wsHub := websocket.NewHub(chatStore)
	go wsHub.Run() // 在单独的 goroutine 中运行

	// 初始化 Handler 层
	chatHandler := handler.NewChatHandler(aiService.GenerateText, streamer)
	uploadHandler := handler.NewUploadHandler()
	storeHandler := handler.NewStoreHandler(chatStore, chatService)
	wsHandler := websocket.NewHandler(wsHub)

	// 设置 Gin 模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建 Gin 引擎
	router := gin.New()

	// 全局中间件
	router.Use(gin.Recovery())                                                  // 恢复 panic
	router.Use(middleware.LoggerMiddleware())                                   // 请求日志
	router.Use(middleware.CORSMiddleware(middleware.DefaultCORSConfig(cfg.Server.CORS))) // CORS

	// 注册路由
	registerRoutes(router, chatHandler, uploadHandler, storeHandler, wsHandler)

	// 创建 HTTP 服务器
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: router,
		// 注意: 不设置 WriteTimeout，SSE 响应的持续时间取决于
		// 生成文本的长度和分片间隔
		ReadTimeout: 10 * time.Second,
	}

	// 在 goroutine 中启动服务器
	go func() {
		log.Printf("Server starting on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// 创建关闭上下文，设置超时
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// 关闭 HTTP 服务器
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	// 关闭持久化后端
	if closeStore != nil {
		if err := closeStore(); err != nil {
			log.Printf("Failed to close store: %v", err)
		}
	}

	log.Println("Server exited")
}

// initPersister 根据配置选择持久化后端
// 返回:
//   - store.Persister: 持久化后端
//   - func() error: 关闭函数，无需关闭时为 nil
//   - error: 初始化错误
func initPersister(cfg *config.Config) (store.Persister, func() error, error) {
	switch cfg.Store.Backend {
	case config.StoreBackendRedis:
		redisStore, err := cache.NewRedisStore(cfg)
		if err != nil {
			return nil, nil, err
		}
		log.Println("Using redis store backend")
		return redisStore, redisStore.Close, nil

	case config.StoreBackendFile:
		fileStore, err := store.NewFileStore(cfg.Store.Path)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("Using file store backend: %s", cfg.Store.Path)
		return fileStore, nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend: %s", cfg.Store.Backend)
	}
}

// registerRoutes 注册所有路由
func registerRoutes(
	router *gin.Engine,
	chatHandler *handler.ChatHandler,
	uploadHandler *handler.UploadHandler,
	storeHandler *handler.StoreHandler,
	wsHandler *websocket.Handler,
) {
	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 对外格式固定的两个接口
	api := router.Group("/api")
	{
		api.POST("/chat", chatHandler.HandleChat)
		api.POST("/upload", uploadHandler.HandleUpload)
	}

	// 会话管理 API
	chats := api.Group("/chats")
	{
		chats.GET("", storeHandler.ListChats)
		chats.POST("", storeHandler.CreateChat)
		chats.DELETE("", storeHandler.ClearChats)
		chats.GET("/:id", storeHandler.GetChat)
		chats.PUT("/:id", storeHandler.RenameChat)
		chats.DELETE("/:id", storeHandler.DeleteChat)
		chats.POST("/:id/select", storeHandler.SelectChat)
		chats.POST("/:id/messages", storeHandler.SendMessage)
		chats.PUT("/:id/messages/:messageId", storeHandler.UpdateMessage)
		chats.DELETE("/:id/messages/:messageId", storeHandler.DeleteMessage)
		chats.POST("/:id/messages/:messageId/regenerate", storeHandler.RegenerateMessage)
		chats.PUT("/:id/messages/:messageId/version", storeHandler.SwitchVersion)
	}

	// WebSocket 路由
	wsHandler.RegisterRoutes(router)
}
