package queue

import (
	"context"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	key string
	msg amqp.Publishing
}

type fakeChannel struct {
	declared   []string
	published  []published
	publishErr error
	closed     bool
}

func (f *fakeChannel) QueueDeclare(name string, durable, _, _, _ bool, _ amqp.Table) (amqp.Queue, error) {
	if !durable {
		return amqp.Queue{}, errors.New("queue must be durable")
	}

	f.declared = append(f.declared, name)

	return amqp.Queue{Name: name}, nil
}

func (f *fakeChannel) PublishWithDeferredConfirmWithContext(
	_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing,
) (*amqp.DeferredConfirmation, error) {
	if f.publishErr != nil {
		return nil, f.publishErr
	}

	if exchange != "" {
		return nil, errors.New("unexpected exchange")
	}

	f.published = append(f.published, published{key: key, msg: msg})

	return nil, nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestRabbitMQ_PushDeclaresOncePerChannel(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ch := &fakeChannel{}
	backend := newRabbitMQ(ch)

	require.NoError(t, backend.Push(ctx, "orders", []byte(`{"jid":"1"}`)))
	require.NoError(t, backend.Push(ctx, "orders", []byte(`{"jid":"2"}`)))

	assert.Equal(t, []string{"orders"}, ch.declared)
	require.Len(t, ch.published, 2)
	assert.Equal(t, "orders", ch.published[0].key)
	assert.Equal(t, amqp.Persistent, ch.published[0].msg.DeliveryMode)
	assert.Equal(t, "application/json", ch.published[0].msg.ContentType)
	assert.JSONEq(t, `{"jid":"2"}`, string(ch.published[1].msg.Body))
}

func TestRabbitMQ_RegisterDeclaresQueues(t *testing.T) {
	t.Parallel()

	ch := &fakeChannel{}
	backend := newRabbitMQ(ch)

	require.NoError(t, backend.Register(context.Background(), []string{"orders", "mail"}))
	require.NoError(t, backend.Push(context.Background(), "mail", []byte(`{}`)))

	assert.Equal(t, []string{"orders", "mail"}, ch.declared)

	backend.Close()
	assert.True(t, ch.closed)
}

func TestRabbitMQ_PushErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ch := &fakeChannel{publishErr: amqp.ErrClosed}
	backend := newRabbitMQ(ch)

	require.ErrorIs(t, backend.Push(ctx, "", []byte(`{}`)), ErrChannelRequired)
	require.ErrorIs(t, backend.Push(ctx, "orders", []byte(`{}`)), amqp.ErrClosed)
}
