// Package repository provides data access interfaces and implementations.
package repository

import (
	"context"
	"time"

	"github.com/jnst/event-outbox/internal/db"
	"github.com/jnst/event-outbox/internal/model"
)

// EventRepository defines the append-only event stream store.
type EventRepository interface {
	Append(ctx context.Context, eventIDs []string, stream model.Stream, expected model.ExpectedVersion, alsoToGlobal bool) error
	AppendToStream(ctx context.Context, records []model.SerializedRecord, stream model.Stream, expected model.ExpectedVersion) error
	LinkToStream(ctx context.Context, eventIDs []string, stream model.Stream, expected model.ExpectedVersion) error
	Read(ctx context.Context, stream model.Stream, fromPosition *int64, limit int) ([]model.StreamEntry, error)
	ReadRecords(ctx context.Context, stream model.Stream, fromPosition *int64, limit int) ([]model.SerializedRecord, error)
	LastPosition(ctx context.Context, stream model.Stream) (*int64, error)
}

// OutboxRepository defines methods for outbox record data access.
type OutboxRepository interface {
	Create(ctx context.Context, params *model.CreateOutboxRecordParams) (*model.OutboxRecord, error)
	ListPending(ctx context.Context, format, partitionKey string, limit int) ([]*model.OutboxRecord, error)
	ListPendingPartitionKeys(ctx context.Context, format string) ([]string, error)
	MarkEnqueued(ctx context.Context, id int64, at time.Time) error
	DeleteEnqueuedBefore(ctx context.Context, format string, before time.Time) (int64, error)
}

// LockRepository defines the per-partition advisory lock.
type LockRepository interface {
	Acquire(ctx context.Context, partitionKey, holderID string) model.LockOutcome
	Release(ctx context.Context, partitionKey, holderID string) model.LockOutcome
	Clear(ctx context.Context, partitionKey string) error
}

// TransactionManager defines methods for database transaction management.
type TransactionManager interface {
	// WithTransaction runs fn in a transaction, joining the one carried by ctx if any.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	// InTransaction reports whether ctx carries an open transaction.
	InTransaction(ctx context.Context) bool
	// Querier returns queries bound to the transaction carried by ctx, or to the pool.
	Querier(ctx context.Context) db.Querier
}
