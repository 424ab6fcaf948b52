package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrPublishNacked is returned when the broker refuses a published payload.
var ErrPublishNacked = errors.New("publish not confirmed by broker")

type amqpChannel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithDeferredConfirmWithContext(
		ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing,
	) (*amqp.DeferredConfirmation, error)
	Close() error
}

// RabbitMQ publishes payloads to one durable queue per channel through the
// default exchange and waits for the broker confirm.
type RabbitMQ struct {
	conn *amqp.Connection
	ch   amqpChannel

	mu       sync.Mutex
	declared map[string]struct{}
}

// DialRabbitMQ connects to url and opens a channel in confirm mode.
func DialRabbitMQ(url string) (*RabbitMQ, error) {
	if url == "" {
		return nil, errors.New("rabbitmq url is required")
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open rabbitmq channel: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to enable publisher confirms: %w", err)
	}

	b := newRabbitMQ(ch)
	b.conn = conn

	return b, nil
}

func newRabbitMQ(ch amqpChannel) *RabbitMQ {
	return &RabbitMQ{
		ch:       ch,
		declared: make(map[string]struct{}),
	}
}

// Push publishes payload as a persistent JSON message to the channel's queue.
func (r *RabbitMQ) Push(ctx context.Context, channel string, payload []byte) error {
	if channel == "" {
		return ErrChannelRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.declare(channel); err != nil {
		return err
	}

	confirm, err := r.ch.PublishWithDeferredConfirmWithContext(ctx, "", channel, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         payload,
	})
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", channel, err)
	}

	// nil when the channel is not in confirm mode
	if confirm == nil {
		return nil
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to confirm publish to %s: %w", channel, err)
	}

	if !acked {
		return fmt.Errorf("%w: %s", ErrPublishNacked, channel)
	}

	return nil
}

// Register declares the queues of channels.
func (r *RabbitMQ) Register(_ context.Context, channels []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, channel := range channels {
		if err := r.declare(channel); err != nil {
			return err
		}
	}

	return nil
}

func (r *RabbitMQ) declare(channel string) error {
	if _, ok := r.declared[channel]; ok {
		return nil
	}

	if _, err := r.ch.QueueDeclare(channel, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", channel, err)
	}

	r.declared[channel] = struct{}{}

	return nil
}

// Close closes the channel and the connection.
func (r *RabbitMQ) Close() {
	_ = r.ch.Close()

	if r.conn != nil {
		_ = r.conn.Close()
	}
}
