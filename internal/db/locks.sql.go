package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createLock = `-- name: CreateLock :exec
INSERT INTO event_store_outbox_locks (partition_key)
VALUES ($1)
ON CONFLICT (partition_key) DO NOTHING
`

func (q *Queries) CreateLock(ctx context.Context, partitionKey string) error {
	_, err := q.db.Exec(ctx, createLock, partitionKey)
	return err
}

const getLockForUpdate = `-- name: GetLockForUpdate :one
SELECT id, partition_key, locked_by, locked_at
FROM event_store_outbox_locks
WHERE partition_key = $1
FOR UPDATE
`

func (q *Queries) GetLockForUpdate(ctx context.Context, partitionKey string) (EventStoreOutboxLock, error) {
	row := q.db.QueryRow(ctx, getLockForUpdate, partitionKey)
	var i EventStoreOutboxLock
	err := row.Scan(
		&i.ID,
		&i.PartitionKey,
		&i.LockedBy,
		&i.LockedAt,
	)
	return i, err
}

const updateLock = `-- name: UpdateLock :exec
UPDATE event_store_outbox_locks SET locked_by = $2, locked_at = $3 WHERE partition_key = $1
`

type UpdateLockParams struct {
	PartitionKey string
	LockedBy     pgtype.Text
	LockedAt     pgtype.Timestamptz
}

func (q *Queries) UpdateLock(ctx context.Context, arg *UpdateLockParams) error {
	_, err := q.db.Exec(ctx, updateLock, arg.PartitionKey, arg.LockedBy, arg.LockedAt)
	return err
}

const setLocalLockTimeout = `-- name: SetLocalLockTimeout :exec
SELECT set_config('lock_timeout', $1, true)
`

func (q *Queries) SetLocalLockTimeout(ctx context.Context, timeout string) error {
	_, err := q.db.Exec(ctx, setLocalLockTimeout, timeout)
	return err
}
