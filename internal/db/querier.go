package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

type Querier interface {
	CountEventsByIDs(ctx context.Context, eventIds []string) (int64, error)
	CreateEvent(ctx context.Context, arg *CreateEventParams) error
	CreateLock(ctx context.Context, partitionKey string) error
	CreateOutboxRecord(ctx context.Context, arg *CreateOutboxRecordParams) (EventStoreOutbox, error)
	CreateStreamEntry(ctx context.Context, arg *CreateStreamEntryParams) error
	DeleteEnqueuedOutboxRecords(ctx context.Context, arg *DeleteEnqueuedOutboxRecordsParams) (int64, error)
	GetEventsByIDs(ctx context.Context, eventIds []string) ([]EventStoreEvent, error)
	GetLockForUpdate(ctx context.Context, partitionKey string) (EventStoreOutboxLock, error)
	GetMaxPosition(ctx context.Context, stream string) (pgtype.Int8, error)
	ListGlobalEntries(ctx context.Context, arg *ListGlobalEntriesParams) ([]EventStoreEventsInStream, error)
	ListPendingOutboxRecords(ctx context.Context, arg *ListPendingOutboxRecordsParams) ([]EventStoreOutbox, error)
	ListPendingPartitionKeys(ctx context.Context, format string) ([]string, error)
	ListStreamEntries(ctx context.Context, arg *ListStreamEntriesParams) ([]EventStoreEventsInStream, error)
	MarkOutboxRecordEnqueued(ctx context.Context, arg *MarkOutboxRecordEnqueuedParams) error
	SetLocalLockTimeout(ctx context.Context, timeout string) error
	UpdateLock(ctx context.Context, arg *UpdateLockParams) error
}

var _ Querier = (*Queries)(nil)
