package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tmokoena/eventdash/internal/config"
	"github.com/tmokoena/eventdash/internal/db"
	"github.com/tmokoena/eventdash/internal/notifications"
	"github.com/tmokoena/eventdash/internal/observability"
	"github.com/tmokoena/eventdash/internal/queue/redisclient"
	"github.com/tmokoena/eventdash/internal/queue/worker"
	"github.com/tmokoena/eventdash/internal/repo/postgres"
)

func main() {
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(cfg.DBURL)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	prom := observability.NewProm(prometheus.DefaultRegisterer)
	jobsRepo := postgres.NewJobsRepo(pool, prom)

	redisC := redisclient.New(redisclient.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer func() { _ = redisC.Close() }()

	var waker worker.Waker
	if err := redisC.Ping(ctx); err != nil {
		log.Warn("redis unreachable, falling back to polling only", "err", err)
	} else {
		waker = redisC
	}

	host, _ := os.Hostname()
	workerID := host + "-" + strconv.Itoa(os.Getpid())

	notifier := notifications.NewLogNotifier(log)

	w := worker.New(worker.Config{
		PollInterval:  time.Second,
		WorkerID:      workerID,
		Concurrency:   4,
		ShutdownGrace: 10 * time.Second,
		StaleLockTTL:  5 * time.Minute,
	}, jobsRepo, notifier, waker, prom, log)

	// health endpoints on a side port
	healthPort := os.Getenv("WORKER_HEALTH_PORT")
	if healthPort == "" {
		healthPort = "8081"
	}

	healthSrv := &http.Server{
		Addr:              fmt.Sprintf(":%s", healthPort),
		Handler:           w.HealthHandler(pool),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := healthSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("worker health server failed", "err", err)
		}
	}()

	log.Info("worker started", "worker_id", workerID)

	if err := w.Run(ctx); err != nil {
		log.Error("worker stopped with error", "err", err)
	}

	hctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()
	_ = healthSrv.Shutdown(hctx)

	log.Info("worker shutdown complete")
}
