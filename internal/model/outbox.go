package model

import "time"

// FormatSidekiq5 tags outbox payloads laid out as sidekiq 5 jobs.
const FormatSidekiq5 = "sidekiq5"

// OutboxRecord is a pending or enqueued message waiting in the outbox table.
type OutboxRecord struct {
	ID           int64      `json:"id"`
	PartitionKey *string    `json:"partition_key"`
	Format       string     `json:"format"`
	Payload      []byte     `json:"payload"`
	CreatedAt    time.Time  `json:"created_at"`
	EnqueuedAt   *time.Time `json:"enqueued_at"`
}

// Pending reports whether the record has not been pushed to the queue backend yet.
func (r *OutboxRecord) Pending() bool {
	return r.EnqueuedAt == nil
}

// CreateOutboxRecordParams represents parameters for creating a new outbox record.
type CreateOutboxRecordParams struct {
	PartitionKey *string
	Format       string
	Payload      []byte
}

// RecordStatus is the result of relaying one outbox record.
type RecordStatus string

const (
	// RecordOK means the record was pushed and marked enqueued.
	RecordOK RecordStatus = "ok"
	// RecordPoison means the payload cannot be routed; it stays pending.
	RecordPoison RecordStatus = "poison"
	// RecordTransientFailure means the push or the enqueued mark failed; retried next sweep.
	RecordTransientFailure RecordStatus = "transient_failure"
)

// RecordOutcome reports what happened to one record of a batch.
type RecordOutcome struct {
	RecordID int64
	Status   RecordStatus
	Err      error
}
