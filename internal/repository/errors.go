package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jnst/event-outbox/internal/db"
	"github.com/jnst/event-outbox/internal/model"
)

const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
)

func pgErrorCode(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}

	return nil, false
}

// appendError maps constraint violations raised while writing a stream to domain errors.
func appendError(err error) error {
	pgErr, ok := pgErrorCode(err)
	if !ok {
		return err
	}

	switch pgErr.Code {
	case codeUniqueViolation:
		switch pgErr.ConstraintName {
		case db.ConstraintEventID:
			return model.ErrEventDuplicatedInRepository
		case db.ConstraintStreamEventID:
			return model.ErrEventDuplicatedInStream
		default:
			return model.ErrConcurrencyViolation
		}
	case codeForeignKeyViolation:
		return model.ErrEventNotFound
	}

	return err
}

// lockStatus classifies a storage error raised while touching a lock row.
func lockStatus(err error) model.LockStatus {
	pgErr, ok := pgErrorCode(err)
	if !ok {
		return model.LockStoreFailed
	}

	switch pgErr.Code {
	case codeDeadlockDetected, codeSerializationFailure:
		return model.LockDeadlocked
	case codeLockNotAvailable:
		return model.LockTimeout
	default:
		return model.LockStoreFailed
	}
}
