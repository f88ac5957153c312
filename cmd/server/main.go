// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rehber-go/internal/config"
	"rehber-go/internal/handler"
	"rehber-go/internal/middleware"
	"rehber-go/internal/model"
	"rehber-go/internal/ratelimit"
	"rehber-go/internal/repository"
	"rehber-go/internal/service"
	"rehber-go/internal/tenant"
	"rehber-go/internal/tools"
	"rehber-go/pkg/database"
	"rehber-go/pkg/embedding"
	"rehber-go/pkg/es"
	"rehber-go/pkg/kafka"
	"rehber-go/pkg/llm"
	"rehber-go/pkg/log"
	"rehber-go/pkg/storage"
	"rehber-go/pkg/token"

	"github.com/gin-gonic/gin"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据库、Redis、对象存储、向量索引与消息队列
	database.InitMySQL(cfg.Database.MySQL.DSN)
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	storage.InitMinIO(cfg.MinIO)
	if err := es.InitES(cfg.Elasticsearch, cfg.Embedding.Dimensions); err != nil {
		log.Errorf("es 初始化失败 %s", err)
		return
	}
	kafka.InitProducer(cfg.Kafka)

	// 4. 迁移表结构
	err := database.DB.AutoMigrate(
		&model.ChatSession{},
		&model.ChatMessage{},
		&model.TurnRecord{},
		&model.ChatFeedback{},
	)
	if err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}

	// 5. 加载租户注册表
	registry, err := tenant.Load(cfg.Tenancy.RegistryPath)
	if err != nil {
		log.Fatalf("租户注册表加载失败: %v", err)
	}
	log.Infof("租户注册表加载完成: %d 个租户", len(registry.TenantIDs()))

	// 6. 初始化 Repository
	sessionRepo := repository.NewSessionRepository(database.DB)
	messageRepo := repository.NewMessageRepository(database.DB)
	historyRepo := repository.NewHistoryRepository(database.DB)
	feedbackRepo := repository.NewFeedbackRepository(database.DB)
	downloadRepo := repository.NewDownloadRepository(database.RDB)

	// 7. 初始化 Service (依赖注入)
	tokenManager := token.NewPanelTokenManager(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	embeddingClient := embedding.NewClient(cfg.Embedding)
	llmClient := llm.NewClient(cfg.LLM)
	limiter := ratelimit.NewLimiter(cfg.RateLimit.MaxRequests, cfg.RateLimit.WindowSeconds)

	registryTools := tools.NewRegistry()
	registryTools.Register(tools.NewDatetimeTool())
	registryTools.Register(tools.NewReportTool(
		historyRepo,
		downloadRepo,
		cfg.Server.PublicBaseURL,
		time.Duration(cfg.Downloads.TTLMinutes)*time.Minute,
	))

	retriever := service.NewRetriever(embeddingClient)
	memoryBuilder := service.NewMemoryBuilder(messageRepo, llmClient)
	ragService := service.NewRAGService(retriever, llmClient, registryTools)
	titleService := service.NewTitleService(sessionRepo, llmClient)
	chatService := service.NewChatService(registry, limiter, sessionRepo, messageRepo, historyRepo, memoryBuilder, ragService, titleService)
	sessionService := service.NewSessionService(sessionRepo, messageRepo)
	feedbackService := service.NewFeedbackService(feedbackRepo)

	// 8. 启动后台 Kafka 消费者与限流清理协程
	consumerCtx, cancelConsumer := context.WithCancel(context.Background())
	defer cancelConsumer()
	go kafka.StartConsumer(consumerCtx, cfg.Kafka, titleService)
	go runLimiterJanitor(consumerCtx, limiter, time.Duration(cfg.RateLimit.WindowSeconds)*time.Second)

	// 9. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	r.Use(middleware.RequestLogger(), gin.Recovery())

	// 10. 注册路由
	r.GET("/health", handler.Health)
	r.GET("/downloads/:fileName", handler.NewDownloadHandler(downloadRepo).Serve)

	api := r.Group("/api")
	{
		api.POST("/chat/:tenant", handler.NewChatHandler(chatService).HandleTurn)

		sessionHandler := handler.NewSessionHandler(sessionService, titleService)
		profileGroup := api.Group("/:profileKey")
		{
			// 公开路由：消息记录与评分，各自带用途前缀的限流
			profileGroup.GET("/messages", middleware.RateLimit(limiter, "messages"), sessionHandler.Messages)
			profileGroup.POST("/feedback", middleware.RateLimit(limiter, "feedback"), handler.NewFeedbackHandler(feedbackService).Submit)

			// 面板路由：会话管理，需要租户 token
			panel := profileGroup.Group("/sessions")
			panel.Use(middleware.PanelAuthMiddleware(tokenManager))
			{
				panel.GET("", middleware.RateLimit(limiter, "sessions"), sessionHandler.ListSessions)
				panel.POST("/:sessionId/title", middleware.RateLimit(limiter, "title"), sessionHandler.RenameTitle)
				panel.DELETE("/:sessionId", middleware.RateLimit(limiter, "delete"), sessionHandler.DeleteSession)
			}
		}
	}

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	cancelConsumer()

	// 设置一个5秒的超时上下文
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}
	log.Info("服务已优雅关闭")
}

// runLimiterJanitor 周期性清理限流桶里过期的滑动窗口记录。
func runLimiterJanitor(ctx context.Context, limiter *ratelimit.Limiter, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limiter.ClearExpired()
		}
	}
}
