// Package main provides the outbox relay that moves pending outbox records to the queue backend.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jnst/event-outbox/internal/config"
	"github.com/jnst/event-outbox/internal/logger"
	"github.com/jnst/event-outbox/internal/metrics"
	"github.com/jnst/event-outbox/internal/queue"
	"github.com/jnst/event-outbox/internal/repository"
	"github.com/jnst/event-outbox/internal/service"
)

const (
	signalBufferSize  = 1
	exitCode          = 1
	readHeaderTimeout = 5 * time.Second
	kafkaClientID     = "outbox-relay"
)

func setupDatabase(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	dbPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	if err := dbPool.Ping(ctx); err != nil {
		dbPool.Close()
		return nil, err
	}

	return dbPool, nil
}

func setupBackend(cfg *config.Config) (queue.Backend, error) {
	switch cfg.QueueBackend {
	case config.BackendRedis:
		client, err := queue.DialRedis(cfg.RedisAddr)
		if err != nil {
			return nil, err
		}

		return queue.NewRedis(client), nil
	case config.BackendRabbitMQ:
		return queue.DialRabbitMQ(cfg.RabbitMQURL)
	case config.BackendKafka:
		return queue.DialKafka(cfg.KafkaBrokers, kafkaClientID)
	default:
		return nil, fmt.Errorf("unknown queue backend %q", cfg.QueueBackend)
	}
}

func setupMetrics(cfg *config.Config) (metrics.Sink, *http.Server, error) {
	if cfg.MetricsAddr == "" {
		return metrics.Nop{}, nil, nil
	}

	reg := prometheus.NewRegistry()

	sink, err := metrics.NewPrometheus(reg)
	if err != nil {
		return nil, nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))

	server := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server stopped", slog.String("error", err.Error()))
		}
	}()

	return sink, server, nil
}

func setupSignalHandling() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, signalBufferSize)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("shutdown signal received, finishing current sweep")
		cancel()
	}()

	return ctx, cancel
}

func run(cfg *config.Config, loggerInstance *slog.Logger) error {
	ctx, cancel := setupSignalHandling()
	defer cancel()

	dbPool, err := setupDatabase(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer dbPool.Close()

	backend, err := setupBackend(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to queue backend %s: %w", cfg.QueueBackend, err)
	}
	defer backend.Close()

	sink, metricsServer, err := setupMetrics(cfg)
	if err != nil {
		return fmt.Errorf("failed to set up metrics: %w", err)
	}

	if metricsServer != nil {
		defer func() {
			_ = metricsServer.Shutdown(context.Background())
		}()
	}

	transactionMgr := repository.NewTransactionManagerImpl(dbPool)
	outboxRepo := repository.NewOutboxRepositoryImpl(transactionMgr)
	lockRepo := repository.NewLockRepositoryImpl(transactionMgr, loggerInstance,
		repository.WithLockTimeout(cfg.OutboxLockTimeout))

	consumer, err := service.NewOutboxConsumerImpl(service.ConsumerConfig{
		Format:        cfg.OutboxFormat,
		PartitionKeys: cfg.OutboxPartitionKeys,
		BatchSize:     cfg.OutboxBatchSize,
		PollInterval:  cfg.OutboxPollInterval,
	}, outboxRepo, lockRepo, backend, sink, loggerInstance)
	if err != nil {
		return fmt.Errorf("failed to create outbox consumer: %w", err)
	}

	if err := consumer.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize outbox consumer: %w", err)
	}

	slog.Info("starting outbox relay",
		slog.String("service", "relay"),
		slog.String("backend", cfg.QueueBackend),
		slog.Duration("poll_interval", cfg.OutboxPollInterval),
		slog.Int("batch_size", cfg.OutboxBatchSize),
	)

	return consumer.Run(ctx)
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(exitCode)
	}

	loggerInstance := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(loggerInstance)

	// run returns only after its deferred cleanup, so exiting here skips nothing
	if err := run(cfg, loggerInstance); err != nil {
		slog.Error("outbox relay stopped", slog.String("error", err.Error()))
		os.Exit(exitCode)
	}
}
