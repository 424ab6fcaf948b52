package model

import "errors"

var (
	// ErrStringsRequired is returned when a record lacks an event id or event type.
	ErrStringsRequired = errors.New("event id and event type are required")
	// ErrConcurrencyViolation is returned when an append's expected version does not hold.
	ErrConcurrencyViolation = errors.New("optimistic concurrency check failed")
	// ErrInvalidExpectedVersion is returned for an expected version that cannot apply to the stream.
	ErrInvalidExpectedVersion = errors.New("invalid expected version")
	// ErrStreamNameRequired is returned when a stream has no name.
	ErrStreamNameRequired = errors.New("stream name is required")
	// ErrEventDuplicatedInRepository is returned when an event id is already stored.
	ErrEventDuplicatedInRepository = errors.New("event already stored")
	// ErrEventDuplicatedInStream is returned when an event is already linked to the stream.
	ErrEventDuplicatedInStream = errors.New("event already linked to stream")
	// ErrEventNotFound is returned when linking an event that is not stored.
	ErrEventNotFound = errors.New("event not found")
	// ErrEmptyPartitionKey is returned for an outbox record keyed by the empty string.
	// A record without a partition carries a nil key instead.
	ErrEmptyPartitionKey = errors.New("partition key must not be empty")
)
