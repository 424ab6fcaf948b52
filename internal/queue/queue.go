// Package queue provides the queue backends the outbox relay pushes to.
package queue

import (
	"context"
	"errors"
)

// ErrChannelRequired is returned when a push has no destination channel.
var ErrChannelRequired = errors.New("channel is required")

// Backend accepts relayed payloads into named channels. A nil error from
// Push means the backend accepted the payload; nothing else is promised.
type Backend interface {
	Push(ctx context.Context, channel string, payload []byte) error
	Register(ctx context.Context, channels []string) error
	Close()
}
