package service

import "errors"

var (
	// ErrTransactionRequired is returned when an outbox write has no enclosing transaction.
	ErrTransactionRequired = errors.New("outbox writes must run inside a transaction")
	// ErrNotThroughOutbox is returned for a handler that is not delivered through the outbox.
	ErrNotThroughOutbox = errors.New("handler is not delivered through the outbox")
	// ErrUnknownFormat is returned when the relay is configured with an unsupported message format.
	ErrUnknownFormat = errors.New("unknown outbox message format")
	// ErrNoDestination is reported for a payload without a queue to push to.
	ErrNoDestination = errors.New("outbox payload has no destination queue")
)
