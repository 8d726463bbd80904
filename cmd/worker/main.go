package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"jobpilot/internal/app"
	"jobpilot/internal/config"
	"jobpilot/internal/mqhandler"
	pkgconfig "jobpilot/pkg/config"
	"jobpilot/pkg/db"
	"jobpilot/pkg/logger"
	"jobpilot/pkg/mq"
	"jobpilot/pkg/outbox"
	redisclient "jobpilot/pkg/redis"
	"jobpilot/pkg/util"
)

const (
	bulkQueue = "coldemail.bulk.q"
	dedupTTL  = 24 * time.Hour
)

func main() {
	log := logger.NewLogger()
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	log.Info("Starting jobpilot worker...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Redis
	rdb, err := redisclient.NewRedisClient(cfg.Redis)
	if err != nil {
		log.Fatal("Failed to init Redis", zap.Error(err))
	}
	defer rdb.Close()

	deduper := util.NewDeduper(rdb, dedupTTL, log)

	// DB
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("DB connection failed", zap.Error(err))
	}
	defer dbConn.Close()

	core, err := app.NewCore(ctx, cfg, dbConn, rdb, log)
	if err != nil {
		log.Fatal("Failed to init services", zap.Error(err))
	}

	// -------------------------
	// Outbox Dispatcher
	// -------------------------
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("Failed to init publisher", zap.Error(err))
	}
	defer publisher.Close()

	dispatcher := outbox.NewDispatcher(core.Outbox, publisher, log).
		WithInterval(cfg.Outbox.Interval).
		WithBatchSize(cfg.Outbox.BatchSize).
		WithMaxRetries(cfg.Outbox.MaxRetries)
	go dispatcher.Start(ctx)

	// -------------------------
	// Bulk Send Consumer
	// -------------------------
	log.Info("Init consumer", zap.String("queue", bulkQueue), zap.String("routing_key", mq.RoutingColdEmailBulkRequested))
	consumer, err := mq.NewConsumer(cfg.MQ.URL, bulkQueue, mq.RoutingColdEmailBulkRequested, log)
	if err != nil {
		log.Fatal("Bulk consumer init failed", zap.Error(err))
	}
	defer consumer.Close()

	bulkHandler := mqhandler.NewColdEmailBulkHandler(core.ColdEmail, deduper, log)
	consumer.SetHandler(bulkHandler.Handle)

	go func() {
		if err := consumer.StartConsuming(); err != nil {
			log.Fatal("Bulk consumer crashed", zap.Error(err))
		}
	}()

	// metrics
	metricsSrv := &http.Server{
		Addr:              pkgconfig.GetEnv("WORKER_METRICS_ADDR", ":9091"),
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Metrics server failed", zap.Error(err))
		}
	}()

	log.Info("Worker running")
	<-ctx.Done()

	log.Info("Shutting down worker...")
	consumer.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = metricsSrv.Shutdown(shutdownCtx)

	log.Info("worker shutdown complete")
}
