package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sheltermail/internal/api"
	"sheltermail/internal/config"
	"sheltermail/internal/mailer"
	"sheltermail/internal/metrics"
	"sheltermail/internal/model"
	"sheltermail/internal/render"
	"sheltermail/internal/repository"
	"sheltermail/internal/service"
	"sheltermail/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func main() {
	cfg := config.Load()

	logger.InitLogger(cfg.Server.Environment)
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.Error("application startup failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb, err := initRedis(cfg.Redis)
	if err != nil {
		return err
	}
	defer rdb.Close()

	db, err := initDB(cfg.MySQL)
	if err != nil {
		return err
	}

	outboxRepo := repository.NewOutboxRepository(db)

	observer := metrics.NewPrometheusObserver()
	hub := service.NewHub(observer, cfg.Stream.HeartbeatInterval, cfg.Stream.EventBufferSize)
	registry := render.NewRegistry()
	sender := mailer.NewClient(cfg.Provider)

	outboxSvc := service.NewOutboxService(outboxRepo)
	worker := service.NewDeliveryWorker(
		outboxRepo, registry, sender, observer, hub,
		cfg.Worker.BatchSize, cfg.Worker.Interval, cfg.Worker.SendTimeout,
	)

	go func() {
		logger.Info("starting hub")
		hub.Run(ctx)
	}()

	// The built-in poll loop and the stale-sending sweeper are both optional;
	// a cron-driven deployment disables the former and keeps the latter.
	if cfg.Worker.Interval > 0 {
		go func() {
			logger.Info("starting delivery poll loop")
			worker.Run(ctx)
		}()
	}
	if cfg.Worker.ReclaimAfter > 0 {
		reclaimer := service.NewReclaimer(outboxRepo, cfg.Worker.ReclaimAfter, cfg.Worker.ReclaimInterval)
		go func() {
			logger.Info("starting reclaimer")
			reclaimer.Run(ctx)
		}()
	}

	r := api.RegisterRoutes(
		api.NewMessageHandler(outboxSvc),
		api.NewCronHandler(worker, cfg.Worker.BatchSize),
		api.NewStreamHandler(hub),
		rdb,
		cfg,
	)

	srv := &http.Server{
		Addr:    cfg.Server.Port,
		Handler: r,
	}

	go func() {
		logger.Info("server starting",
			zap.String("addr", cfg.Server.Port),
			zap.String("env", cfg.Server.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server listen failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Stop workers first so no batch is claimed mid-shutdown.
	cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server exited properly")
	return nil
}

func initRedis(cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rdb, nil
}

func initDB(cfg config.MySQLConfig) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mysql: %w", err)
	}

	// Auto-migrate for dev convenience; production schemas are managed with
	// a migration tool.
	if err := db.AutoMigrate(&model.OutboxMessage{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}
