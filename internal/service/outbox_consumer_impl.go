package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jnst/event-outbox/internal/metrics"
	"github.com/jnst/event-outbox/internal/model"
	"github.com/jnst/event-outbox/internal/queue"
	"github.com/jnst/event-outbox/internal/repository"
)

const (
	defaultBatchSize    = 100
	defaultPollInterval = 100 * time.Millisecond
)

// ConsumerConfig configures an OutboxConsumerImpl.
type ConsumerConfig struct {
	Format string
	// PartitionKeys restricts the relay to these keys. Empty means every key
	// with pending records.
	PartitionKeys []string
	BatchSize     int
	PollInterval  time.Duration
	HolderID      string
}

// PartitionResult reports what one partition did during a sweep.
type PartitionResult struct {
	PartitionKey string
	Lock         model.LockStatus
	Changed      bool
	Outcomes     []model.RecordOutcome
}

// ConsumerOption configures an OutboxConsumerImpl.
type ConsumerOption func(*OutboxConsumerImpl)

// WithConsumerClock overrides the clock used for enqueued timestamps.
func WithConsumerClock(now func() time.Time) ConsumerOption {
	return func(c *OutboxConsumerImpl) {
		c.now = now
	}
}

// OutboxConsumerImpl implements OutboxConsumer.
type OutboxConsumerImpl struct {
	cfg        ConsumerConfig
	outboxRepo repository.OutboxRepository
	lockRepo   repository.LockRepository
	backend    queue.Backend
	metrics    metrics.Sink
	logger     *slog.Logger
	now        func() time.Time
}

// NewOutboxConsumerImpl creates a relay for the configured format.
func NewOutboxConsumerImpl(
	cfg ConsumerConfig,
	outboxRepo repository.OutboxRepository,
	lockRepo repository.LockRepository,
	backend queue.Backend,
	sink metrics.Sink,
	logger *slog.Logger,
	opts ...ConsumerOption,
) (*OutboxConsumerImpl, error) {
	if cfg.Format != model.FormatSidekiq5 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, cfg.Format)
	}

	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}

	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}

	if cfg.HolderID == "" {
		cfg.HolderID = uuid.NewString()
	}

	if sink == nil {
		sink = metrics.Nop{}
	}

	if logger == nil {
		logger = slog.Default()
	}

	c := &OutboxConsumerImpl{
		cfg:        cfg,
		outboxRepo: outboxRepo,
		lockRepo:   lockRepo,
		backend:    backend,
		metrics:    sink,
		logger:     logger.With("holder", cfg.HolderID),
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// HolderID returns the identity written into lock rows.
func (c *OutboxConsumerImpl) HolderID() string {
	return c.cfg.HolderID
}

// Init registers the configured channels with the backend.
func (c *OutboxConsumerImpl) Init(ctx context.Context) error {
	if err := c.backend.Register(ctx, c.cfg.PartitionKeys); err != nil {
		return fmt.Errorf("failed to register queues: %w", err)
	}

	keys := "(all of them)"
	if len(c.cfg.PartitionKeys) > 0 {
		keys = strings.Join(c.cfg.PartitionKeys, ", ")
	}

	c.logger.Info("initiated outbox consumer", "format", c.cfg.Format, "partition_keys", keys)

	return nil
}

// Run sweeps until ctx is cancelled, sleeping PollInterval after a sweep
// that changed nothing. A sweep in progress always runs to completion.
func (c *OutboxConsumerImpl) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			c.logger.Info("gracefully shutting down")

			return nil
		}

		if c.Sweep(context.WithoutCancel(ctx)) {
			continue
		}

		timer := time.NewTimer(c.cfg.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			c.logger.Info("gracefully shutting down")

			return nil
		case <-timer.C:
		}
	}
}

// Sweep handles every partition once and reports whether any record was enqueued.
func (c *OutboxConsumerImpl) Sweep(ctx context.Context) bool {
	keys, err := c.partitionKeys(ctx)
	if err != nil {
		c.logger.Error("listing partition keys failed", "error", err)

		return false
	}

	changed := false

	for _, key := range keys {
		if c.HandlePartition(ctx, key).Changed {
			changed = true
		}
	}

	return changed
}

func (c *OutboxConsumerImpl) partitionKeys(ctx context.Context) ([]string, error) {
	if len(c.cfg.PartitionKeys) > 0 {
		return c.cfg.PartitionKeys, nil
	}

	return c.outboxRepo.ListPendingPartitionKeys(ctx, c.cfg.Format)
}

// HandlePartition relays one batch of partitionKey while holding its lock.
func (c *OutboxConsumerImpl) HandlePartition(ctx context.Context, partitionKey string) PartitionResult {
	result := PartitionResult{PartitionKey: partitionKey}

	lock := c.lockRepo.Acquire(ctx, partitionKey, c.cfg.HolderID)
	result.Lock = lock.Status

	if !lock.Obtained() {
		if lock.StorageConflict() {
			c.metrics.WriteQueuePoint(metrics.QueuePoint{
				PartitionKey: partitionKey,
				Status:       pointStatus(lock.Status),
			})
		}

		return result
	}

	defer c.release(ctx, partitionKey)

	records, err := c.outboxRepo.ListPending(ctx, c.cfg.Format, partitionKey, c.cfg.BatchSize)
	if err != nil {
		c.logger.Error("listing pending records failed", "partition_key", partitionKey, "error", err)
		c.metrics.WriteQueuePoint(metrics.QueuePoint{PartitionKey: partitionKey, Status: metrics.StatusFailed})

		return result
	}

	if len(records) == 0 {
		c.metrics.WriteQueuePoint(metrics.QueuePoint{PartitionKey: partitionKey, Status: metrics.StatusOK})

		return result
	}

	result.Outcomes = c.ProcessBatch(ctx, records)

	point := metrics.QueuePoint{PartitionKey: partitionKey, Status: metrics.StatusOK}

	for _, o := range result.Outcomes {
		if o.Status == model.RecordOK {
			point.Enqueued++
		} else {
			point.Failed++
		}
	}

	result.Changed = point.Enqueued > 0

	c.metrics.WriteQueuePoint(point)
	c.logger.Info("sent messages from outbox table",
		"partition_key", partitionKey, "enqueued", point.Enqueued, "failed", point.Failed)

	return result
}

func (c *OutboxConsumerImpl) release(ctx context.Context, partitionKey string) {
	outcome := c.lockRepo.Release(ctx, partitionKey, c.cfg.HolderID)
	if outcome.Status == model.LockNotHeld {
		c.logger.Warn("lock was not held at release", "partition_key", partitionKey)
	}
}

// ProcessBatch relays each record in order. A failed record does not stop the batch.
func (c *OutboxConsumerImpl) ProcessBatch(ctx context.Context, records []*model.OutboxRecord) []model.RecordOutcome {
	outcomes := make([]model.RecordOutcome, 0, len(records))

	for _, record := range records {
		outcome := c.processRecord(ctx, record)
		if outcome.Err != nil {
			c.logger.Error("relaying outbox record failed",
				"id", record.ID, "status", string(outcome.Status), "error", outcome.Err)
		}

		outcomes = append(outcomes, outcome)
	}

	return outcomes
}

func (c *OutboxConsumerImpl) processRecord(ctx context.Context, record *model.OutboxRecord) model.RecordOutcome {
	outcome := model.RecordOutcome{RecordID: record.ID, Status: model.RecordOK}

	// Fields stay raw so the payload passes through unchanged apart from enqueued_at.
	var job map[string]json.RawMessage
	if err := json.Unmarshal(record.Payload, &job); err != nil {
		outcome.Status = model.RecordPoison
		outcome.Err = fmt.Errorf("failed to parse payload: %w", err)

		return outcome
	}

	var channel string
	if raw, ok := job["queue"]; ok {
		_ = json.Unmarshal(raw, &channel)
	}

	if channel == "" {
		outcome.Status = model.RecordPoison
		outcome.Err = ErrNoDestination

		return outcome
	}

	now := c.now().UTC()

	enqueuedAt, err := json.Marshal(unixSeconds(now))
	if err != nil {
		outcome.Status = model.RecordPoison
		outcome.Err = fmt.Errorf("failed to marshal enqueued_at: %w", err)

		return outcome
	}

	job["enqueued_at"] = enqueuedAt

	payload, err := json.Marshal(job)
	if err != nil {
		outcome.Status = model.RecordPoison
		outcome.Err = fmt.Errorf("failed to marshal payload: %w", err)

		return outcome
	}

	if err := c.backend.Push(ctx, channel, payload); err != nil {
		outcome.Status = model.RecordTransientFailure
		outcome.Err = fmt.Errorf("failed to push to %s: %w", channel, err)

		return outcome
	}

	if err := c.outboxRepo.MarkEnqueued(ctx, record.ID, now); err != nil {
		// The payload is already in the backend and will be pushed again.
		outcome.Status = model.RecordTransientFailure
		outcome.Err = fmt.Errorf("pushed but failed to mark enqueued: %w", err)

		return outcome
	}

	return outcome
}

func pointStatus(s model.LockStatus) string {
	switch s {
	case model.LockDeadlocked:
		return metrics.StatusDeadlocked
	case model.LockTimeout:
		return metrics.StatusLockTimeout
	default:
		return metrics.StatusFailed
	}
}
