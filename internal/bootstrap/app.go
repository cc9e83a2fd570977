package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	httpHandler "github.com/reddit-archive/reddit-plugin-place-opensource/internal/handler/http"
	wsHandler "github.com/reddit-archive/reddit-plugin-place-opensource/internal/handler/websocket"
	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/hub"
	gormpersistence "github.com/reddit-archive/reddit-plugin-place-opensource/internal/infra/persistence/gorm"
	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/infra/setup"
	redisstate "github.com/reddit-archive/reddit-plugin-place-opensource/internal/infra/state/redis"
	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/middleware"
	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/service"
	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/tasks"
	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/worker"
)

// App 结构体包含应用的所有组件和配置
type App struct {
	Config       *Config
	Log          *logrus.Logger
	DB           *gorm.DB
	RedisClient  *redis.Client
	AsynqClient  *asynq.Client
	AsynqServer  *worker.WorkerServer
	Hub          *hub.Hub
	HttpServer   *http.Server
	PlaceService *service.PlaceService

	redisClientOpt asynq.RedisClientOpt
	scheduler      *asynq.Scheduler
	hubCancel      context.CancelFunc
}

// NewLogger 配置并返回进程使用的 logger。
// 各个包直接使用 logrus 的全局函数, 所以这里配置的是 StandardLogger。
func NewLogger(level, appEnv string) *logrus.Logger {
	log := logrus.StandardLogger()
	if appEnv == "production" {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, ForceColors: true})
	}
	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	log.SetLevel(logLevel)
	log.SetOutput(os.Stdout)
	return log
}

// NewApp 创建并初始化应用的所有组件
func NewApp() (*App, error) {
	// 1. 加载配置
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return nil, err
	}

	// 2. 初始化 Logger
	log := NewLogger(cfg.LogLevel, cfg.AppEnv)
	log.WithFields(logrus.Fields{
		"canvas":   fmt.Sprintf("%dx%d", cfg.CanvasWidth, cfg.CanvasHeight),
		"cooldown": cfg.PixelCooldown,
	}).Info("Configuration loaded successfully")

	// 3. 初始化基础设施
	db, err := setup.InitDB(setup.DBConfig{
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		Name:     cfg.DBName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init DB: %w", err)
	}
	if err := setup.MigrateDB(db); err != nil {
		return nil, fmt.Errorf("failed to migrate DB: %w", err)
	}
	log.Info("Database initialized and migrated")

	redisClient, err := setup.InitRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("failed to init Redis: %w", err)
	}
	log.Info("Redis client initialized")

	redisClientOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
	asynqClient := asynq.NewClient(redisClientOpt)

	// 4. 初始化 Repositories
	userRepo := gormpersistence.NewGormUserRepository(db)
	pixelRepo := gormpersistence.NewGormPixelRepository(db)
	boardRepo := redisstate.NewRedisBoardRepository(redisClient, cfg.KeyPrefix, cfg.CanvasWidth, cfg.CanvasHeight)

	// 5. 初始化 Services
	authService, err := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTExpiryHours)
	if err != nil {
		return nil, fmt.Errorf("failed to create AuthService: %w", err)
	}
	placeService := service.NewPlaceService(boardRepo, pixelRepo, tasks.NewEnqueuer(asynqClient), service.PlaceConfig{
		Width:    cfg.CanvasWidth,
		Height:   cfg.CanvasHeight,
		Cooldown: cfg.PixelCooldown,
	})

	// 6. 初始化 Hub, 它订阅 Redis 推送频道
	hubInstance := hub.NewHub(boardRepo)

	// 7. 初始化 Worker Server
	workerServer := worker.NewWorkerServer(redisClientOpt, pixelRepo, hubInstance, placeService, log)

	// 8. 初始化 Gin Engine 和路由
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	router := NewRouter(cfg, log, boardRepo, Handlers{
		Auth:      httpHandler.NewAuthHandler(authService),
		Place:     httpHandler.NewPlaceHandler(placeService),
		WebSocket: wsHandler.NewWebSocketHandler(hubInstance, cfg.CORSAllowedOrigin),
	})

	httpServer := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info("Application assembled successfully")
	return &App{
		Config:         cfg,
		Log:            log,
		DB:             db,
		RedisClient:    redisClient,
		AsynqClient:    asynqClient,
		AsynqServer:    workerServer,
		Hub:            hubInstance,
		HttpServer:     httpServer,
		PlaceService:   placeService,
		redisClientOpt: redisClientOpt,
	}, nil
}

// Handlers 是路由需要的全部 Handler
type Handlers struct {
	Auth      *httpHandler.AuthHandler
	Place     *httpHandler.PlaceHandler
	WebSocket *wsHandler.WebSocketHandler
}

// NewRouter 创建 Gin Engine 并注册中间件与路由
func NewRouter(cfg *Config, log *logrus.Logger, limiter middleware.RateLimiter, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(log))
	router.Use(CORSMiddleware(cfg.CORSAllowedOrigin))

	router.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"message": "pong"}) })

	// 推送连接是长连接, 不参与接口限流
	router.GET("/ws/place", middleware.OptionalAuth(cfg.JWTSecret), h.WebSocket.HandleConnection)

	api := router.Group("/api")
	api.Use(middleware.RateLimit(limiter, cfg.RateLimitMax, cfg.RateLimitWindow))

	authRoutes := api.Group("/auth")
	{
		authRoutes.POST("/register", h.Auth.Register)
		authRoutes.POST("/login", h.Auth.Login)
	}

	place := api.Group("/place")
	{
		place.GET("/board-bitmap", h.Place.Bitmap)
		place.GET("/pixel.json", h.Place.PixelInfo)

		authed := place.Group("", middleware.Auth(cfg.JWTSecret))
		authed.POST("/draw.json", h.Place.Draw)
		authed.GET("/time-to-wait.json", h.Place.TimeToWait)
		authed.POST("/drawrect.json", middleware.AdminOnly(), h.Place.DrawRect)
	}
	return router
}

// CORSMiddleware 允许配置的来源访问接口
func CORSMiddleware(allowedOrigin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// Start 启动应用的所有后台 Goroutine 和 HTTP 服务器
func (a *App) Start() {
	if a.Config.RestoreBoard {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		if n, err := a.PlaceService.RestoreBoard(ctx); err != nil {
			a.Log.WithError(err).Error("Failed to restore board from pixel history")
		} else {
			a.Log.WithField("tiles", n).Info("Board restored")
		}
		cancel()
	}

	hubCtx, cancel := context.WithCancel(context.Background())
	a.hubCancel = cancel
	go func() {
		if err := a.Hub.Run(hubCtx); err != nil {
			a.Log.WithError(err).Error("Hub stopped with error")
		}
	}()

	go a.AsynqServer.Start()
	a.registerPeriodicTasks()

	go func() {
		a.Log.Infof("HTTP server starting to listen on %s", a.HttpServer.Addr)
		if err := a.HttpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Log.Fatalf("Failed to start HTTP server: %v", err)
		}
		a.Log.Info("HTTP server stopped listening.")
	}()
}

func (a *App) registerPeriodicTasks() {
	scheduler := asynq.NewScheduler(a.redisClientOpt, &asynq.SchedulerOpts{
		Logger: worker.NewAsynqLogger(a.Log.WithField("component", "scheduler")),
	})

	schedule := fmt.Sprintf("@every %s", a.Config.ActivityInterval)
	entryID, err := scheduler.Register(schedule, tasks.NewActivityBroadcastTask(), asynq.Queue("low"), asynq.MaxRetry(0))
	if err != nil {
		a.Log.WithError(err).Error("Could not register periodic activity broadcast task")
		return
	}
	a.Log.Infof("Periodic activity broadcast registered with schedule '%s' (EntryID: %s)", schedule, entryID)

	if err := scheduler.Start(); err != nil {
		a.Log.WithError(err).Error("Asynq scheduler failed to start")
		return
	}
	a.scheduler = scheduler
}

// Shutdown 优雅地关闭应用
func (a *App) Shutdown() {
	a.Log.Info("Shutting down application...")

	if a.scheduler != nil {
		a.scheduler.Shutdown()
	}

	// 先停止 HTTP, 不再接受新的绘制请求
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.HttpServer.Shutdown(ctx); err != nil {
		a.Log.WithError(err).Error("Error shutting down HTTP server")
	}

	if a.hubCancel != nil {
		a.hubCancel()
	}
	if a.AsynqServer != nil {
		a.AsynqServer.Shutdown()
	}
	if a.AsynqClient != nil {
		if err := a.AsynqClient.Close(); err != nil {
			a.Log.WithError(err).Error("Error closing Asynq client")
		}
	}
	if a.RedisClient != nil {
		if err := a.RedisClient.Close(); err != nil {
			a.Log.WithError(err).Error("Error closing Redis connection")
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				a.Log.WithError(err).Error("Error closing database connection")
			}
		}
	}

	a.Log.Info("Application shutdown complete.")
}

// LoggerMiddleware 创建一个 Gin 中间件用于记录请求日志
func LoggerMiddleware(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		c.Next()
		latency := time.Since(startTime)
		statusCode := c.Writer.Status()
		path := c.Request.URL.Path
		if c.Request.URL.RawQuery != "" {
			path = path + "?" + c.Request.URL.RawQuery
		}

		entry := log.WithFields(logrus.Fields{
			"status_code": statusCode,
			"latency_ms":  latency.Milliseconds(),
			"client_ip":   c.ClientIP(),
			"method":      c.Request.Method,
			"path":        path,
		})

		if errorMessage := c.Errors.ByType(gin.ErrorTypePrivate).String(); errorMessage != "" {
			entry.Error(errorMessage)
			return
		}
		switch {
		case statusCode >= 500:
			entry.Error("Server error")
		case statusCode >= 400:
			entry.Warn("Client error")
		default:
			entry.Debug("Request handled")
		}
	}
}
