package model

import "time"

// Lock is the advisory lock row guarding one partition key.
type Lock struct {
	PartitionKey string     `json:"partition_key"`
	LockedBy     *string    `json:"locked_by"`
	LockedAt     *time.Time `json:"locked_at"`
}

// LockStatus classifies the result of acquiring or releasing a lock.
type LockStatus string

const (
	LockObtained    LockStatus = "obtained"
	LockReleased    LockStatus = "released"
	LockContended   LockStatus = "contended"
	LockNotHeld     LockStatus = "not_held"
	LockDeadlocked  LockStatus = "deadlocked"
	LockTimeout     LockStatus = "lock_timeout"
	LockStoreFailed LockStatus = "failed"
)

// LockOutcome is returned by lock operations instead of an error.
type LockOutcome struct {
	Status LockStatus
	Err    error
}

// Obtained reports whether the caller now holds the lock.
func (o LockOutcome) Obtained() bool {
	return o.Status == LockObtained
}

// StorageConflict reports whether the store aborted the operation.
func (o LockOutcome) StorageConflict() bool {
	switch o.Status {
	case LockDeadlocked, LockTimeout, LockStoreFailed:
		return true
	default:
		return false
	}
}
