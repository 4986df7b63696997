// Package app 提供应用程序的初始化和配置功能.
package app

import (
	contextPkg "context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yeisme/assetvault/pkg/api"
	appcache "github.com/yeisme/assetvault/pkg/cache"
	"github.com/yeisme/assetvault/pkg/configs"
	"github.com/yeisme/assetvault/pkg/internal/jobs"
	"github.com/yeisme/assetvault/pkg/internal/storage"
	"github.com/yeisme/assetvault/pkg/log"
	"github.com/yeisme/assetvault/pkg/metrics"
	"github.com/yeisme/assetvault/pkg/middleware"
	"github.com/yeisme/assetvault/pkg/scheduler"
	"github.com/yeisme/assetvault/pkg/tracing"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	Engine  *gin.Engine
	config  *configs.AppConfig
	manager *storage.Manager
	sched   *scheduler.Scheduler
}

func NewApp(configPath string) *App {
	ctx := contextPkg.Background()

	// 初始化配置
	if err := configs.InitConfig(configPath); err != nil {
		fmt.Printf("Error initializing config: %v\n", err)
		os.Exit(1)
	}

	config := configs.GetConfig()

	log.Init()

	if !config.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化追踪
	if err := tracing.InitTracer(config.Tracing); err != nil {
		fmt.Printf("Error initializing tracing: %v\n", err)
		os.Exit(1)
	}

	// 初始化监控
	if err := metrics.InitMetrics(config.Metrics); err != nil {
		fmt.Printf("Error initializing metrics: %v\n", err)
		os.Exit(1)
	}

	manager, err := storage.Init(ctx)
	if err != nil {
		fmt.Printf("Error initializing storage: %v\n", err)
		os.Exit(1)
	}

	sched, err := scheduler.NewScheduler()
	if err != nil {
		fmt.Printf("Error initializing scheduler: %v\n", err)
		os.Exit(1)
	}

	if err := jobs.RegisterCronJobs(sched, manager); err != nil {
		fmt.Printf("Error registering cron jobs: %v\n", err)
		os.Exit(1)
	}

	sched.Start()

	l := log.Logger()
	gin.DefaultWriter = log.NewGinWriter(l, zerolog.InfoLevel)
	gin.DefaultErrorWriter = log.NewGinWriter(l, zerolog.ErrorLevel)

	engine := gin.New()

	engine.Use(
		gin.Recovery(),
		middleware.GinLoggerMiddleware(),
		middleware.CORSMiddleware(config.Server),
		gzip.Gzip(gzip.DefaultCompression),
		middleware.TracingMiddleware(),
		middleware.PrometheusMiddleware(),
		middleware.RateLimitMiddleware(config.RateLimit),
		middleware.CircuitBreakerMiddleware(config.CircuitBreaker),
		middleware.StorageMiddleware(manager),
		middleware.SchedulerMiddleware(sched),
		middleware.AuthMiddleware(config.Auth),
		middleware.RoleMiddleware(),
	)

	// KV 可用时挂响应缓存，列表类只读接口直接受益
	if kvc := manager.GetKVClient(); kvc != nil {
		engine.Use(middleware.CacheMiddleware(middleware.DefaultCacheConfig(appcache.NewCache(kvc))))
	}

	api.RegisterGroup(engine)

	if config.Metrics.Enabled {
		_ = metrics.StartMetricsServer(config.Metrics, engine)
	}

	return &App{
		Engine:  engine,
		config:  config,
		manager: manager,
		sched:   sched,
	}
}

// Run 启动 HTTP 服务并阻塞，收到 SIGINT/SIGTERM 后优雅退出：
// 先停调度器，再给在途请求一个超时窗口，最后关闭存储连接.
func (a *App) Run() error {
	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", a.config.Server.Host, a.config.Server.Port),
		Handler: a.Engine,
	}

	errCh := make(chan error, 1)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	log.Logger().Info().Str("addr", srv.Addr).Msg("server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Logger().Info().Str("signal", sig.String()).Msg("shutting down")
	}

	if err := a.sched.Stop(); err != nil {
		log.Logger().Warn().Err(err).Msg("scheduler stop failed")
	}

	ctx, cancel := contextPkg.WithTimeout(contextPkg.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	if err := a.manager.Close(); err != nil {
		log.Logger().Warn().Err(err).Msg("storage close failed")
	}

	if err := tracing.ShutdownTracer(ctx); err != nil {
		log.Logger().Warn().Err(err).Msg("tracer shutdown failed")
	}

	return nil
}
