package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"jobpilot/internal/app"
	"jobpilot/internal/config"
	"jobpilot/internal/handler"
	"jobpilot/internal/httpserver"
	"jobpilot/pkg/db"
	"jobpilot/pkg/logger"
	"jobpilot/pkg/mq"
	"jobpilot/pkg/outbox"
	redisclient "jobpilot/pkg/redis"
)

func main() {
	log := logger.NewLogger()
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	log.Info("Starting jobpilot api...",
		zap.String("db_host", cfg.DB.Host),
		zap.String("transport", cfg.Transport),
		zap.String("resume_backend", cfg.Resume.Backend),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// DB
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()

	// Redis
	rdb, err := redisclient.NewRedisClient(cfg.Redis)
	if err != nil {
		log.Fatal("Failed to init Redis", zap.Error(err))
	}
	defer rdb.Close()

	// MQ publisher 只用于异步批量发送；连不上时同步接口照常工作
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Warn("MQ publisher unavailable, async bulk disabled", zap.Error(err))
	} else {
		defer publisher.Close()
	}

	core, err := app.NewCore(ctx, cfg, dbConn, rdb, log)
	if err != nil {
		log.Fatal("Failed to init services", zap.Error(err))
	}

	var bulkPublisher handler.Publisher
	if publisher != nil {
		bulkPublisher = publisher
	}

	replay := outbox.NewReplayService(core.Outbox, log)
	handlers := httpserver.Handlers{
		ColdEmail: handler.NewColdEmailHandler(core.ColdEmail, bulkPublisher, log),
		Templates: handler.NewTemplateHandler(core.Templates, log),
		Match:     handler.NewMatchHandler(core.Match, core.Jobs, log),
		Profile:   handler.NewProfileHandler(core.Profiles, core.Box, log),
		Admin:     handler.NewAdminHandler(core.Outbox, replay, log),
	}

	readiness := map[string]httpserver.ReadinessCheck{
		"db":    dbConn.Ping,
		"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	}
	router := httpserver.NewRouter(handlers, httpserver.Options{
		JWTSecret: cfg.JWT.Secret,
		Profiles:  core.Profiles,
		Readiness: readiness,
	}, log)

	srv := &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// 优雅退出
	<-ctx.Done()
	log.Info("Shutting down api gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}

	log.Info("api shutdown complete")
}
