package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/jnst/event-outbox/internal/db"
	"github.com/jnst/event-outbox/internal/model"
)

// OutboxRepositoryImpl implements OutboxRepository using PostgreSQL.
type OutboxRepositoryImpl struct {
	tm TransactionManager
}

// NewOutboxRepositoryImpl creates a new OutboxRepository implementation.
func NewOutboxRepositoryImpl(tm TransactionManager) *OutboxRepositoryImpl {
	return &OutboxRepositoryImpl{tm: tm}
}

// Create inserts a pending outbox record on the transaction carried by ctx, if any.
// The empty key is reserved for records stored without one, so it is rejected.
func (r *OutboxRepositoryImpl) Create(
	ctx context.Context, params *model.CreateOutboxRecordParams,
) (*model.OutboxRecord, error) {
	partitionKey := pgtype.Text{}
	if params.PartitionKey != nil {
		if *params.PartitionKey == "" {
			return nil, model.ErrEmptyPartitionKey
		}

		partitionKey = pgtype.Text{String: *params.PartitionKey, Valid: true}
	}

	row, err := r.tm.Querier(ctx).CreateOutboxRecord(ctx, &db.CreateOutboxRecordParams{
		PartitionKey: partitionKey,
		Format:       params.Format,
		Payload:      params.Payload,
	})
	if err != nil {
		return nil, err
	}

	return toOutboxRecord(row), nil
}

// ListPending returns up to limit pending records of one partition in id order.
// An empty partitionKey selects records stored without one (a NULL key).
func (r *OutboxRepositoryImpl) ListPending(
	ctx context.Context, format, partitionKey string, limit int,
) ([]*model.OutboxRecord, error) {
	rows, err := r.tm.Querier(ctx).ListPendingOutboxRecords(ctx, &db.ListPendingOutboxRecordsParams{
		Format:       format,
		PartitionKey: partitionKey,
		Limit:        int32(limit),
	})
	if err != nil {
		return nil, err
	}

	records := make([]*model.OutboxRecord, len(rows))
	for i, row := range rows {
		records[i] = toOutboxRecord(row)
	}

	return records, nil
}

// ListPendingPartitionKeys returns the partitions that currently hold pending records.
func (r *OutboxRepositoryImpl) ListPendingPartitionKeys(ctx context.Context, format string) ([]string, error) {
	return r.tm.Querier(ctx).ListPendingPartitionKeys(ctx, format)
}

// MarkEnqueued marks a pending record as pushed to the queue backend.
func (r *OutboxRepositoryImpl) MarkEnqueued(ctx context.Context, id int64, at time.Time) error {
	return r.tm.Querier(ctx).MarkOutboxRecordEnqueued(ctx, &db.MarkOutboxRecordEnqueuedParams{
		ID:         id,
		EnqueuedAt: pgtype.Timestamptz{Time: at.UTC(), Valid: true},
	})
}

// DeleteEnqueuedBefore removes records created and enqueued before the given instant.
func (r *OutboxRepositoryImpl) DeleteEnqueuedBefore(ctx context.Context, format string, before time.Time) (int64, error) {
	return r.tm.Querier(ctx).DeleteEnqueuedOutboxRecords(ctx, &db.DeleteEnqueuedOutboxRecordsParams{
		Format: format,
		Before: pgtype.Timestamptz{Time: before.UTC(), Valid: true},
	})
}

func toOutboxRecord(row db.EventStoreOutbox) *model.OutboxRecord {
	record := &model.OutboxRecord{
		ID:        row.ID,
		Format:    row.Format,
		Payload:   row.Payload,
		CreatedAt: row.CreatedAt.Time,
	}

	if row.PartitionKey.Valid {
		key := row.PartitionKey.String
		record.PartitionKey = &key
	}

	if row.EnqueuedAt.Valid {
		enqueuedAt := row.EnqueuedAt.Time
		record.EnqueuedAt = &enqueuedAt
	}

	return record
}
