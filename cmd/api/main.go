package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/parul297/MeraEvents/internal/api"
	"github.com/parul297/MeraEvents/internal/api/handler"
	apimiddleware "github.com/parul297/MeraEvents/internal/api/middleware"
	"github.com/parul297/MeraEvents/internal/application"
	"github.com/parul297/MeraEvents/internal/config"
	"github.com/parul297/MeraEvents/internal/infrastructure/postgres"
	redisinfra "github.com/parul297/MeraEvents/internal/infrastructure/redis"
	"github.com/parul297/MeraEvents/internal/pkg/logger"
	"github.com/parul297/MeraEvents/internal/pkg/metrics"
	"github.com/parul297/MeraEvents/internal/worker"
)

func main() {
	cfg := config.Load()
	defer logger.Sync()

	// DB接続
	db, err := postgres.NewConnection(&cfg.Database)
	if err != nil {
		logger.Fatal("データベース接続に失敗しました", zap.Error(err))
	}
	defer db.Close()

	// マイグレーション
	if path := os.Getenv("MIGRATIONS_PATH"); path != "" {
		if err := postgres.RunMigrations(db.DB, path); err != nil {
			logger.Fatal("マイグレーションに失敗しました", zap.Error(err))
		}
	}

	// Redis接続（任意。未接続でもDBの行ロックだけで不変条件は守られる）
	var lockManager *redisinfra.LockManager
	var rosterCache *redisinfra.RosterCache
	redisClient := redisinfra.NewClient(&cfg.Redis)
	if err := redisinfra.Ping(context.Background(), redisClient); err != nil {
		logger.Warn("Redis接続に失敗したためロック・キャッシュなしで起動します", zap.Error(err))
		redisClient.Close()
	} else {
		defer redisClient.Close()
		lockManager = redisinfra.NewLockManager(redisClient)
		rosterCache = redisinfra.NewRosterCache(redisClient)
	}

	// メトリクス初期化
	m := metrics.Init()

	// リポジトリ・サービス初期化
	eventRepo := postgres.NewEventRepository(db)
	attendeeRepo := postgres.NewAttendeeRepository(db)
	txManager := postgres.NewTxManager(db)

	eventService := application.NewEventService(txManager, eventRepo, attendeeRepo, rosterCache, cfg.Registration)
	registrationService := application.NewRegistrationService(txManager, attendeeRepo, eventRepo, lockManager, rosterCache, cfg.Registration)

	// ワーカー起動
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	refresher := worker.NewRosterCountRefresher(eventService, time.Minute)
	if rosterCache != nil {
		go refresher.Start(workerCtx)
	}

	// Echo初期化
	e := echo.New()
	e.HideBanner = true
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler
	apimiddleware.SetupMiddleware(e)
	e.Use(apimiddleware.PrometheusMiddleware(m))

	// ルーティング
	eventHandler := handler.NewEventHandler(eventService)
	attendeeHandler := handler.NewAttendeeHandler(registrationService)
	healthHandler := handler.NewHealthHandler()

	v1 := e.Group("/api/v1")
	v1.GET("/health", healthHandler.Check)
	v1.POST("/events", eventHandler.Create)
	v1.GET("/events", eventHandler.List)
	v1.GET("/events/:id", eventHandler.GetByID)
	v1.PUT("/events/:id", eventHandler.Update)
	v1.DELETE("/events/:id", eventHandler.Delete)
	v1.GET("/events/:id/attendees", attendeeHandler.ListByEvent)
	v1.POST("/attendees", attendeeHandler.Register)
	v1.GET("/attendees/:id", attendeeHandler.GetByID)
	v1.PUT("/attendees/:id", attendeeHandler.Update)
	v1.DELETE("/attendees/:id", attendeeHandler.Cancel)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()), apimiddleware.MetricsBasicAuth())

	// サーバー起動
	go func() {
		if err := e.Start(":" + cfg.Server.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("サーバー起動エラー", zap.Error(err))
		}
	}()

	// シグナル待機
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("サーバーをシャットダウンしています...")

	if rosterCache != nil {
		refresher.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal("サーバーシャットダウンエラー", zap.Error(err))
	}

	logger.Info("サーバーが正常にシャットダウンしました")
}
