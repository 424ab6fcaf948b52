// Package main provides the job worker that drains the Redis queues filled by the outbox relay.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/rueidis"
	"github.com/relvacode/iso8601"

	"github.com/jnst/event-outbox/internal/config"
	"github.com/jnst/event-outbox/internal/logger"
	"github.com/jnst/event-outbox/internal/model"
	"github.com/jnst/event-outbox/internal/queue"
)

const (
	popTimeoutSeconds = 1
	processedTTL      = int64(24 * time.Hour / time.Second)
	processedPrefix   = "processed:"
	errorRetryDelay   = 1 * time.Second
	signalBufferSize  = 1
	exitCode          = 1
)

var errMalformedJob = errors.New("malformed job")

// JobWorker pops sidekiq jobs from Redis and dispatches them by class.
type JobWorker struct {
	redisClient rueidis.Client
	name        string
}

// NewJobWorker creates a new job worker instance.
func NewJobWorker(redisClient rueidis.Client, name string) *JobWorker {
	return &JobWorker{
		redisClient: redisClient,
		name:        name,
	}
}

// HandleOrderPlaced processes an OrderPlaced record.
func (*JobWorker) HandleOrderPlaced(_ context.Context, record *model.RecordArgs, occurredAt time.Time) error {
	var event model.OrderPlaced
	if err := json.Unmarshal([]byte(record.Data), &event); err != nil {
		return fmt.Errorf("failed to parse %s data: %w", record.EventType, err)
	}

	slog.Info("processing order event",
		slog.String("event_type", record.EventType),
		slog.String("event_id", record.EventID),
		slog.String("order_id", event.OrderID),
		slog.String("customer", event.Customer),
		slog.Int64("amount", event.Amount),
		slog.Time("occurred_at", occurredAt),
	)

	return nil
}

func (w *JobWorker) popJob(ctx context.Context, keys []string) (string, error) {
	cmd := w.redisClient.B().Brpop().Key(keys...).Timeout(popTimeoutSeconds).Build()

	reply, err := w.redisClient.Do(ctx, cmd).AsStrSlice()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return "", nil
		}

		return "", err
	}

	// [key, element]
	if len(reply) != 2 {
		return "", fmt.Errorf("%w: unexpected BRPOP reply of %d elements", errMalformedJob, len(reply))
	}

	return reply[1], nil
}

// claim reports whether jid has not been processed yet and records it.
func (w *JobWorker) claim(ctx context.Context, jid string) (bool, error) {
	cmd := w.redisClient.B().Set().Key(processedPrefix + jid).Value(w.name).Nx().ExSeconds(processedTTL).Build()

	err := w.redisClient.Do(ctx, cmd).Error()
	if rueidis.IsRedisNil(err) {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	return true, nil
}

// unclaim forgets jid so a redelivery of the job is handled again.
func (w *JobWorker) unclaim(ctx context.Context, jid string) error {
	return w.redisClient.Do(ctx, w.redisClient.B().Del().Key(processedPrefix+jid).Build()).Error()
}

func (w *JobWorker) dispatch(ctx context.Context, jid string, record *model.RecordArgs, occurredAt time.Time) error {
	switch record.EventType {
	case model.EventTypeOrderPlaced:
		return w.HandleOrderPlaced(ctx, record, occurredAt)
	default:
		slog.Warn("unknown event type", slog.String("event_type", record.EventType), slog.String("jid", jid))
		return nil
	}
}

func (w *JobWorker) processJob(ctx context.Context, raw string) error {
	var job model.Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return fmt.Errorf("%w: %v", errMalformedJob, err)
	}

	if job.JID == "" || len(job.Args) != 1 {
		return fmt.Errorf("%w: jid %q with %d args", errMalformedJob, job.JID, len(job.Args))
	}

	var record model.RecordArgs
	if err := json.Unmarshal(job.Args[0], &record); err != nil {
		return fmt.Errorf("%w: %v", errMalformedJob, err)
	}

	occurredAt, err := iso8601.ParseString(record.Timestamp)
	if err != nil {
		return fmt.Errorf("%w: timestamp %q: %v", errMalformedJob, record.Timestamp, err)
	}

	fresh, err := w.claim(ctx, job.JID)
	if err != nil {
		return fmt.Errorf("failed to claim job %s: %w", job.JID, err)
	}

	if !fresh {
		slog.Info("skipping already processed job", slog.String("jid", job.JID), slog.String("class", job.Class))
		return nil
	}

	if err := w.dispatch(ctx, job.JID, &record, occurredAt); err != nil {
		if uerr := w.unclaim(ctx, job.JID); uerr != nil {
			slog.Error("failed to release job claim", slog.String("jid", job.JID), slog.String("error", uerr.Error()))
		}

		return fmt.Errorf("job %s failed: %w", job.JID, err)
	}

	return nil
}

func setupSignalHandling() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, signalBufferSize)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("shutdown signal received, stopping consumer")
		cancel()
	}()

	return ctx, cancel
}

func runConsumerLoop(ctx context.Context, worker *JobWorker, keys []string) {
	for {
		select {
		case <-ctx.Done():
			slog.Info("consumer stopped")
			return
		default:
		}

		raw, err := worker.popJob(ctx, keys)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}

			slog.Error("error popping job", slog.String("error", err.Error()))
			time.Sleep(errorRetryDelay)

			continue
		}

		if raw == "" {
			continue
		}

		if err := worker.processJob(ctx, raw); err != nil {
			slog.Error("failed to process job", slog.String("error", err.Error()))
		}
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

	redisClient, err := queue.DialRedis(cfg.RedisAddr)
	if err != nil {
		slog.Error("failed to connect to Redis", slog.String("error", err.Error()))
		os.Exit(exitCode)
	}
	defer redisClient.Close()

	worker := NewJobWorker(redisClient, cfg.ConsumerName)
	ctx, cancel := setupSignalHandling()
	defer cancel()

	keys := make([]string, len(cfg.ConsumerQueues))
	for i, q := range cfg.ConsumerQueues {
		keys[i] = queue.QueueKey(q)
	}

	slog.Info("starting job consumer",
		slog.String("service", "consumer"),
		slog.Any("queues", keys),
		slog.String("consumer", cfg.ConsumerName),
	)

	runConsumerLoop(ctx, worker, keys)
}
