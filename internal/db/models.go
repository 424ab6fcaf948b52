package db

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type EventStoreEvent struct {
	ID        int64
	EventID   string
	EventType string
	Data      string
	Metadata  string
	CreatedAt pgtype.Timestamptz
}

type EventStoreEventsInStream struct {
	ID        int64
	Stream    string
	Position  pgtype.Int8
	EventID   string
	CreatedAt pgtype.Timestamptz
}

type EventStoreOutbox struct {
	ID           int64
	PartitionKey pgtype.Text
	Format       string
	Payload      []byte
	CreatedAt    pgtype.Timestamptz
	EnqueuedAt   pgtype.Timestamptz
}

type EventStoreOutboxLock struct {
	ID           int64
	PartitionKey string
	LockedBy     pgtype.Text
	LockedAt     pgtype.Timestamptz
}
