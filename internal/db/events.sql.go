package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const countEventsByIDs = `-- name: CountEventsByIDs :one
SELECT COUNT(*) FROM event_store_events WHERE event_id = ANY($1::text[])
`

func (q *Queries) CountEventsByIDs(ctx context.Context, eventIds []string) (int64, error) {
	row := q.db.QueryRow(ctx, countEventsByIDs, eventIds)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const createEvent = `-- name: CreateEvent :exec
INSERT INTO event_store_events (event_id, event_type, data, metadata, created_at)
VALUES ($1, $2, $3, $4, $5)
`

type CreateEventParams struct {
	EventID   string
	EventType string
	Data      string
	Metadata  string
	CreatedAt pgtype.Timestamptz
}

func (q *Queries) CreateEvent(ctx context.Context, arg *CreateEventParams) error {
	_, err := q.db.Exec(ctx, createEvent,
		arg.EventID,
		arg.EventType,
		arg.Data,
		arg.Metadata,
		arg.CreatedAt,
	)
	return err
}

const getEventsByIDs = `-- name: GetEventsByIDs :many
SELECT id, event_id, event_type, data, metadata, created_at
FROM event_store_events
WHERE event_id = ANY($1::text[])
ORDER BY id ASC
`

func (q *Queries) GetEventsByIDs(ctx context.Context, eventIds []string) ([]EventStoreEvent, error) {
	rows, err := q.db.Query(ctx, getEventsByIDs, eventIds)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []EventStoreEvent
	for rows.Next() {
		var i EventStoreEvent
		if err := rows.Scan(
			&i.ID,
			&i.EventID,
			&i.EventType,
			&i.Data,
			&i.Metadata,
			&i.CreatedAt,
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

const getMaxPosition = `-- name: GetMaxPosition :one
SELECT MAX(position)::bigint FROM event_store_events_in_streams WHERE stream = $1
`

func (q *Queries) GetMaxPosition(ctx context.Context, stream string) (pgtype.Int8, error) {
	row := q.db.QueryRow(ctx, getMaxPosition, stream)
	var column_1 pgtype.Int8
	err := row.Scan(&column_1)
	return column_1, err
}

const createStreamEntry = `-- name: CreateStreamEntry :exec
INSERT INTO event_store_events_in_streams (stream, position, event_id, created_at)
VALUES ($1, $2, $3, $4)
`

type CreateStreamEntryParams struct {
	Stream    string
	Position  pgtype.Int8
	EventID   string
	CreatedAt pgtype.Timestamptz
}

func (q *Queries) CreateStreamEntry(ctx context.Context, arg *CreateStreamEntryParams) error {
	_, err := q.db.Exec(ctx, createStreamEntry,
		arg.Stream,
		arg.Position,
		arg.EventID,
		arg.CreatedAt,
	)
	return err
}

const listStreamEntries = `-- name: ListStreamEntries :many
SELECT id, stream, position, event_id, created_at
FROM event_store_events_in_streams
WHERE stream = $1
  AND ($2::bigint IS NULL OR position > $2::bigint)
ORDER BY position ASC
LIMIT $3
`

type ListStreamEntriesParams struct {
	Stream       string
	FromPosition pgtype.Int8
	Limit        int32
}

func (q *Queries) ListStreamEntries(ctx context.Context, arg *ListStreamEntriesParams) ([]EventStoreEventsInStream, error) {
	rows, err := q.db.Query(ctx, listStreamEntries, arg.Stream, arg.FromPosition, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStreamEntries(rows)
}

const listGlobalEntries = `-- name: ListGlobalEntries :many
SELECT id, stream, position, event_id, created_at
FROM event_store_events_in_streams
WHERE stream = $1
  AND ($2::bigint IS NULL OR id > $2::bigint)
ORDER BY id ASC
LIMIT $3
`

type ListGlobalEntriesParams struct {
	Stream  string
	AfterID pgtype.Int8
	Limit   int32
}

func (q *Queries) ListGlobalEntries(ctx context.Context, arg *ListGlobalEntriesParams) ([]EventStoreEventsInStream, error) {
	rows, err := q.db.Query(ctx, listGlobalEntries, arg.Stream, arg.AfterID, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStreamEntries(rows)
}

type entryRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanStreamEntries(rows entryRows) ([]EventStoreEventsInStream, error) {
	var items []EventStoreEventsInStream
	for rows.Next() {
		var i EventStoreEventsInStream
		if err := rows.Scan(
			&i.ID,
			&i.Stream,
			&i.Position,
			&i.EventID,
			&i.CreatedAt,
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
