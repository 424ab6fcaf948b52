// Package main provides maintenance commands for the outbox tables.
//
// Usage:
//
//	outboxctl purge [-older-than 168h]
//	outboxctl unlock -partition-key orders
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jnst/event-outbox/internal/config"
	"github.com/jnst/event-outbox/internal/logger"
	"github.com/jnst/event-outbox/internal/repository"
)

const exitCode = 1

var errUsage = errors.New("usage: outboxctl <purge|unlock> [flags]")

type commands struct {
	outboxRepo repository.OutboxRepository
	lockRepo   repository.LockRepository
	format     string
	now        func() time.Time
}

func (c *commands) purge(ctx context.Context, args []string, retention time.Duration) error {
	fs := flag.NewFlagSet("purge", flag.ContinueOnError)
	olderThan := fs.Duration("older-than", retention, "delete enqueued records created before now minus this duration")

	if err := fs.Parse(args); err != nil {
		return err
	}

	deleted, err := c.outboxRepo.DeleteEnqueuedBefore(ctx, c.format, c.now().Add(-*olderThan))
	if err != nil {
		return fmt.Errorf("failed to purge outbox: %w", err)
	}

	slog.Info("purged enqueued outbox records", slog.Int64("deleted", deleted), slog.Duration("older_than", *olderThan))

	return nil
}

func (c *commands) unlock(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("unlock", flag.ContinueOnError)
	partitionKey := fs.String("partition-key", "", "partition key whose lock is cleared")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *partitionKey == "" {
		return errors.New("-partition-key is required")
	}

	if err := c.lockRepo.Clear(ctx, *partitionKey); err != nil {
		return err
	}

	slog.Info("cleared outbox lock", slog.String("partition_key", *partitionKey))

	return nil
}

func (c *commands) run(ctx context.Context, args []string, retention time.Duration) error {
	if len(args) == 0 {
		return errUsage
	}

	switch args[0] {
	case "purge":
		return c.purge(ctx, args[1:], retention)
	case "unlock":
		return c.unlock(ctx, args[1:])
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(exitCode)
	}

	loggerInstance := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(loggerInstance)

	ctx := context.Background()

	dbPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(exitCode)
	}

	transactionMgr := repository.NewTransactionManagerImpl(dbPool)
	cmds := &commands{
		outboxRepo: repository.NewOutboxRepositoryImpl(transactionMgr),
		lockRepo:   repository.NewLockRepositoryImpl(transactionMgr, loggerInstance),
		format:     cfg.OutboxFormat,
		now:        time.Now,
	}

	err = cmds.run(ctx, os.Args[1:], cfg.OutboxRetention)

	dbPool.Close()

	if err != nil {
		slog.Error("outboxctl failed", slog.String("error", err.Error()))
		os.Exit(exitCode)
	}
}
