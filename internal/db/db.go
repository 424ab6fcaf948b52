// Package db provides typed queries over the event store and outbox tables.
package db

import (
	"context"
	_ "embed"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema holds the DDL of every table the queries rely on.
//
//go:embed schema.sql
var Schema string

// Unique constraint names surfaced in pgconn.PgError.ConstraintName.
const (
	ConstraintEventID          = "event_store_events_event_id_key"
	ConstraintStreamPosition   = "index_event_store_events_in_streams_on_stream_and_position"
	ConstraintStreamEventID    = "index_event_store_events_in_streams_on_stream_and_event_id"
	ConstraintLockPartitionKey = "event_store_outbox_locks_partition_key_key"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// New wraps a connection, pool or transaction.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// Queries runs the typed queries against a DBTX.
type Queries struct {
	db DBTX
}

// WithTx returns Queries bound to tx.
func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{
		db: tx,
	}
}
