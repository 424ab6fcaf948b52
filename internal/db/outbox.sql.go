package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createOutboxRecord = `-- name: CreateOutboxRecord :one
INSERT INTO event_store_outbox (partition_key, format, payload, created_at)
VALUES ($1, $2, $3, now())
RETURNING id, partition_key, format, payload, created_at, enqueued_at
`

type CreateOutboxRecordParams struct {
	PartitionKey pgtype.Text
	Format       string
	Payload      []byte
}

func (q *Queries) CreateOutboxRecord(ctx context.Context, arg *CreateOutboxRecordParams) (EventStoreOutbox, error) {
	row := q.db.QueryRow(ctx, createOutboxRecord, arg.PartitionKey, arg.Format, arg.Payload)
	var i EventStoreOutbox
	err := row.Scan(
		&i.ID,
		&i.PartitionKey,
		&i.Format,
		&i.Payload,
		&i.CreatedAt,
		&i.EnqueuedAt,
	)
	return i, err
}

const listPendingOutboxRecords = `-- name: ListPendingOutboxRecords :many
SELECT id, partition_key, format, payload, created_at, enqueued_at
FROM event_store_outbox
WHERE format = $1
  AND enqueued_at IS NULL
  AND partition_key IS NOT DISTINCT FROM NULLIF($2::text, '')
ORDER BY id ASC
LIMIT $3
`

type ListPendingOutboxRecordsParams struct {
	Format       string
	PartitionKey string
	Limit        int32
}

func (q *Queries) ListPendingOutboxRecords(ctx context.Context, arg *ListPendingOutboxRecordsParams) ([]EventStoreOutbox, error) {
	rows, err := q.db.Query(ctx, listPendingOutboxRecords, arg.Format, arg.PartitionKey, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []EventStoreOutbox
	for rows.Next() {
		var i EventStoreOutbox
		if err := rows.Scan(
			&i.ID,
			&i.PartitionKey,
			&i.Format,
			&i.Payload,
			&i.CreatedAt,
			&i.EnqueuedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listPendingPartitionKeys = `-- name: ListPendingPartitionKeys :many
SELECT DISTINCT COALESCE(partition_key, '')::text AS partition_key
FROM event_store_outbox
WHERE format = $1
  AND enqueued_at IS NULL
ORDER BY partition_key
`

func (q *Queries) ListPendingPartitionKeys(ctx context.Context, format string) ([]string, error) {
	rows, err := q.db.Query(ctx, listPendingPartitionKeys, format)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var partition_key string
		if err := rows.Scan(&partition_key); err != nil {
			return nil, err
		}
		items = append(items, partition_key)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const markOutboxRecordEnqueued = `-- name: MarkOutboxRecordEnqueued :exec
UPDATE event_store_outbox SET enqueued_at = $2 WHERE id = $1 AND enqueued_at IS NULL
`

type MarkOutboxRecordEnqueuedParams struct {
	ID         int64
	EnqueuedAt pgtype.Timestamptz
}

func (q *Queries) MarkOutboxRecordEnqueued(ctx context.Context, arg *MarkOutboxRecordEnqueuedParams) error {
	_, err := q.db.Exec(ctx, markOutboxRecordEnqueued, arg.ID, arg.EnqueuedAt)
	return err
}

const deleteEnqueuedOutboxRecords = `-- name: DeleteEnqueuedOutboxRecords :execrows
DELETE FROM event_store_outbox
WHERE format = $1
  AND created_at < $2
  AND enqueued_at IS NOT NULL
  AND enqueued_at < $2
`

type DeleteEnqueuedOutboxRecordsParams struct {
	Format string
	Before pgtype.Timestamptz
}

func (q *Queries) DeleteEnqueuedOutboxRecords(ctx context.Context, arg *DeleteEnqueuedOutboxRecordsParams) (int64, error) {
	result, err := q.db.Exec(ctx, deleteEnqueuedOutboxRecords, arg.Format, arg.Before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
