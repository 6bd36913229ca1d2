package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/user/listing-crawler/internal/adapter/chromedp_crawler"
	"github.com/user/listing-crawler/internal/adapter/notify"
	"github.com/user/listing-crawler/internal/adapter/postgres"
	redis_adapter "github.com/user/listing-crawler/internal/adapter/redis"
	"github.com/user/listing-crawler/internal/adapter/sqlite"
	"github.com/user/listing-crawler/internal/delivery/http/handler"
	"github.com/user/listing-crawler/internal/delivery/http/router"
	"github.com/user/listing-crawler/internal/engine"
	"github.com/user/listing-crawler/internal/repository"
	"github.com/user/listing-crawler/internal/scheduler"
	"github.com/user/listing-crawler/internal/usecase"
	"github.com/user/listing-crawler/internal/worker"
	"github.com/user/listing-crawler/pkg/config"
	"github.com/user/listing-crawler/pkg/logger"
	"github.com/user/listing-crawler/pkg/metrics"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load(".env")
	if err != nil {
		panic(err)
	}

	// --- Logger ---
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync() //nolint:errcheck

	// --- Metrics ---
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Stores ---
	checks := map[string]handler.HealthCheck{}
	var (
		listings repository.ListingRepository
		history  repository.RunHistoryRepository
	)
	switch cfg.ListingStore {
	case "sqlite":
		store, err := sqlite.NewStore(cfg.SQLitePath)
		if err != nil {
			log.Fatal("unable to open sqlite store", zap.String("path", cfg.SQLitePath), zap.Error(err))
		}
		defer store.Close()
		listings, history = store, store
		checks["sqlite"] = store.Ping
		log.Info("sqlite store opened", zap.String("path", cfg.SQLitePath))
	default:
		pool, err := postgres.NewPool(ctx, cfg.PostgresURL)
		if err != nil {
			log.Fatal("unable to connect to database", zap.Error(err))
		}
		defer pool.Close()
		if err := postgres.Migrate(ctx, pool); err != nil {
			log.Fatal("unable to migrate database", zap.Error(err))
		}
		listings, history = postgres.NewListingRepo(pool), postgres.NewRunHistoryRepo(pool)
		checks["postgres"] = pool.Ping
		log.Info("postgres connection pool established")
	}

	rdb, err := redis_adapter.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatal("unable to connect to redis", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}
	defer rdb.Close()
	checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	log.Info("redis connection established")

	queue := redis_adapter.NewQueueRepo(rdb)
	lock := redis_adapter.NewRunLockRepo(rdb, cfg.TargetURL)
	progress := redis_adapter.NewProgressRepo(rdb)

	// --- Notifier ---
	var notifier repository.Notifier = notify.NewLogNotifier(log)
	if cfg.SMTPEnabled() {
		notifier = notify.NewSMTPNotifier(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			To:       strings.Split(cfg.NotifyTo, ","),
		})
	}

	// --- Engine ---
	provisioner := chromedp_crawler.NewProvisioner(log)
	provisioner.ExecPath = cfg.ChromePath
	orchestrator := engine.NewOrchestrator(provisioner, log)

	// --- Use Cases ---
	crawler := usecase.NewCrawlerUseCase(usecase.CrawlerDeps{
		Runner:   orchestrator,
		Listings: listings,
		Notifier: notifier,
		Queue:    queue,
		Lock:     lock,
		Progress: progress,
		History:  history,
	}, cfg.CrawlConfig(), cfg.RunLockTTL(), log)
	runs := usecase.NewRunManager(queue, lock, progress, history, log)

	// --- Background ---
	w := worker.New(crawler, cfg.WorkerPollInterval(), log)
	w.Start(ctx)

	sched := scheduler.New(runs, cfg.DefaultPages, log)
	if err := sched.Start(ctx, cfg.ScheduleCron); err != nil {
		log.Fatal("invalid crawl schedule", zap.String("spec", cfg.ScheduleCron), zap.Error(err))
	}

	// --- HTTP Server ---
	apiHandler := handler.NewHandler(runs, checks, log)
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router.New(apiHandler, log),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("starting server", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("could not listen on port", zap.String("port", cfg.ServerPort), zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sched.Stop()
	w.Stop()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
		os.Exit(1)
	}
	log.Info("server exiting")
}
