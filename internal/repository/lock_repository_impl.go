package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/jnst/event-outbox/internal/db"
	"github.com/jnst/event-outbox/internal/model"
)

const defaultLockTimeout = time.Second

// LockRepositoryImpl implements LockRepository on the outbox locks table.
// The lock has no lease: a holder that never releases keeps the partition
// until Clear is called.
type LockRepositoryImpl struct {
	tm          TransactionManager
	logger      *slog.Logger
	lockTimeout time.Duration
	now         func() time.Time
}

// LockRepositoryOption configures a LockRepositoryImpl.
type LockRepositoryOption func(*LockRepositoryImpl)

// WithLockTimeout bounds how long a lock row may be waited on.
func WithLockTimeout(d time.Duration) LockRepositoryOption {
	return func(r *LockRepositoryImpl) {
		r.lockTimeout = d
	}
}

// WithLockClock sets the clock stamping locked_at.
func WithLockClock(now func() time.Time) LockRepositoryOption {
	return func(r *LockRepositoryImpl) {
		r.now = now
	}
}

// NewLockRepositoryImpl creates a new LockRepository implementation.
func NewLockRepositoryImpl(tm TransactionManager, logger *slog.Logger, opts ...LockRepositoryOption) *LockRepositoryImpl {
	if logger == nil {
		logger = slog.Default()
	}

	r := &LockRepositoryImpl{
		tm:          tm,
		logger:      logger,
		lockTimeout: defaultLockTimeout,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Acquire takes the lock of partitionKey for holderID without waiting for
// another holder. Storage conflicts are logged and reported in the outcome.
func (r *LockRepositoryImpl) Acquire(ctx context.Context, partitionKey, holderID string) model.LockOutcome {
	var outcome model.LockOutcome

	err := r.tm.WithTransaction(ctx, func(ctx context.Context) error {
		q := r.tm.Querier(ctx)

		lock, err := r.lockForUpdate(ctx, q, partitionKey)
		if err != nil {
			return err
		}

		if lock.LockedBy.Valid {
			outcome = model.LockOutcome{Status: model.LockContended}
			return nil
		}

		if err := q.UpdateLock(ctx, &db.UpdateLockParams{
			PartitionKey: partitionKey,
			LockedBy:     pgtype.Text{String: holderID, Valid: true},
			LockedAt:     pgtype.Timestamptz{Time: r.now().UTC(), Valid: true},
		}); err != nil {
			return err
		}

		outcome = model.LockOutcome{Status: model.LockObtained}

		return nil
	})
	if err != nil {
		status := lockStatus(err)
		r.logger.Warn("obtaining lock failed",
			slog.String("partition_key", partitionKey),
			slog.String("holder", holderID),
			slog.String("status", string(status)),
			slog.String("error", err.Error()),
		)

		return model.LockOutcome{Status: status, Err: err}
	}

	return outcome
}

// Release gives the lock back if holderID still holds it; otherwise it does nothing.
func (r *LockRepositoryImpl) Release(ctx context.Context, partitionKey, holderID string) model.LockOutcome {
	var outcome model.LockOutcome

	err := r.tm.WithTransaction(ctx, func(ctx context.Context) error {
		q := r.tm.Querier(ctx)

		if err := q.SetLocalLockTimeout(ctx, r.timeoutSetting()); err != nil {
			return err
		}

		lock, err := q.GetLockForUpdate(ctx, partitionKey)
		if errors.Is(err, pgx.ErrNoRows) {
			outcome = model.LockOutcome{Status: model.LockNotHeld}
			return nil
		}

		if err != nil {
			return err
		}

		if !lock.LockedBy.Valid || lock.LockedBy.String != holderID {
			outcome = model.LockOutcome{Status: model.LockNotHeld}
			return nil
		}

		if err := q.UpdateLock(ctx, &db.UpdateLockParams{PartitionKey: partitionKey}); err != nil {
			return err
		}

		outcome = model.LockOutcome{Status: model.LockReleased}

		return nil
	})
	if err != nil {
		status := lockStatus(err)
		r.logger.Warn("releasing lock failed",
			slog.String("partition_key", partitionKey),
			slog.String("holder", holderID),
			slog.String("status", string(status)),
			slog.String("error", err.Error()),
		)

		return model.LockOutcome{Status: status, Err: err}
	}

	return outcome
}

// Clear drops whoever holds the lock of partitionKey.
func (r *LockRepositoryImpl) Clear(ctx context.Context, partitionKey string) error {
	if err := r.tm.Querier(ctx).UpdateLock(ctx, &db.UpdateLockParams{PartitionKey: partitionKey}); err != nil {
		return fmt.Errorf("failed to clear lock %q: %w", partitionKey, err)
	}

	return nil
}

// lockForUpdate reads the lock row, creating it first when this is the
// first acquirer of the partition.
func (r *LockRepositoryImpl) lockForUpdate(
	ctx context.Context, q db.Querier, partitionKey string,
) (db.EventStoreOutboxLock, error) {
	if err := q.SetLocalLockTimeout(ctx, r.timeoutSetting()); err != nil {
		return db.EventStoreOutboxLock{}, err
	}

	lock, err := q.GetLockForUpdate(ctx, partitionKey)
	if err == nil || !errors.Is(err, pgx.ErrNoRows) {
		return lock, err
	}

	if err := q.CreateLock(ctx, partitionKey); err != nil {
		if pgErr, ok := pgErrorCode(err); !ok || pgErr.Code != codeUniqueViolation {
			return db.EventStoreOutboxLock{}, err
		}
	}

	return q.GetLockForUpdate(ctx, partitionKey)
}

func (r *LockRepositoryImpl) timeoutSetting() string {
	return fmt.Sprintf("%dms", r.lockTimeout.Milliseconds())
}
