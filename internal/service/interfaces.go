// Package service provides business logic layer implementations.
package service

import (
	"context"

	"github.com/jnst/event-outbox/internal/model"
)

// OrderService defines business logic methods for order placement.
type OrderService interface {
	PlaceOrder(ctx context.Context, params *model.PlaceOrderParams) (*model.PlacedOrder, error)
}

// OutboxWriter schedules jobs through the outbox table.
type OutboxWriter interface {
	Verify(subscriber any) bool
	Enqueue(ctx context.Context, handler JobHandler, record model.SerializedRecord) error
}

// OutboxConsumer relays pending outbox records to the queue backend.
type OutboxConsumer interface {
	Init(ctx context.Context) error
	Run(ctx context.Context) error
	Sweep(ctx context.Context) bool
}

// JobHandler names the job class and queue a record is delivered to.
type JobHandler interface {
	JobClass() string
	Queue() string
}

// OutboxSubscriber marks a handler whose jobs go through the outbox.
type OutboxSubscriber interface {
	ThroughOutbox() bool
}
