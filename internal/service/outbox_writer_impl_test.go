package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jnst/event-outbox/internal/db/dbtest"
	"github.com/jnst/event-outbox/internal/model"
	"github.com/jnst/event-outbox/internal/repository"
)

type plainHandler struct{}

func (plainHandler) JobClass() string { return "Plain" }
func (plainHandler) Queue() string    { return "" }

type inlineHandler struct{ plainHandler }

func (inlineHandler) ThroughOutbox() bool { return false }

type defaultQueueHandler struct{ plainHandler }

func (defaultQueueHandler) ThroughOutbox() bool { return true }

func newWriter(mem *dbtest.Memory) *OutboxWriterImpl {
	w := NewOutboxWriterImpl(repository.NewOutboxRepositoryImpl(mem), mem)
	w.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 250000000, time.UTC) }

	return w
}

func testRecord(t *testing.T) model.SerializedRecord {
	t.Helper()

	record, err := model.NewSerializedRecord("e-1", `{"order_id":"1"}`, `{}`, model.EventTypeOrderPlaced,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	return record
}

func TestOutboxWriter_Verify(t *testing.T) {
	t.Parallel()

	w := newWriter(dbtest.New())

	assert.True(t, w.Verify(OrderPlacedNotifier{}))
	assert.True(t, w.Verify(defaultQueueHandler{}))
	assert.False(t, w.Verify(plainHandler{}))
	assert.False(t, w.Verify(inlineHandler{}))
	assert.False(t, w.Verify("OrderPlacedNotifier"))
}

func TestOutboxWriter_EnqueueWritesSidekiqJob(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mem := dbtest.New()
	w := newWriter(mem)
	record := testRecord(t)

	require.NoError(t, mem.WithTransaction(ctx, func(ctx context.Context) error {
		return w.Enqueue(ctx, OrderPlacedNotifier{}, record)
	}))

	rows := mem.Outbox()
	require.Len(t, rows, 1)
	assert.Equal(t, "orders", rows[0].PartitionKey.String)
	assert.Equal(t, model.FormatSidekiq5, rows[0].Format)
	assert.False(t, rows[0].EnqueuedAt.Valid)

	var job model.Job
	require.NoError(t, json.Unmarshal(rows[0].Payload, &job))
	assert.Equal(t, "OrderPlacedNotifier", job.Class)
	assert.Equal(t, "orders", job.Queue)
	assert.Len(t, job.JID, 24)
	assert.True(t, job.Retry)
	assert.InDelta(t, 1704067200.25, job.CreatedAt, 1e-6)
	assert.Zero(t, job.EnqueuedAt)
	require.Len(t, job.Args, 1)

	var args model.RecordArgs
	require.NoError(t, json.Unmarshal(job.Args[0], &args))
	assert.Equal(t, model.RecordArgs{
		EventID:   "e-1",
		Data:      `{"order_id":"1"}`,
		Metadata:  `{}`,
		EventType: model.EventTypeOrderPlaced,
		Timestamp: "2024-01-01T00:00:00Z",
	}, args)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(rows[0].Payload, &raw))
	assert.NotContains(t, raw, "enqueued_at")
}

func TestOutboxWriter_EnqueueUsesDefaultQueue(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mem := dbtest.New()
	w := newWriter(mem)

	require.NoError(t, mem.WithTransaction(ctx, func(ctx context.Context) error {
		return w.Enqueue(ctx, defaultQueueHandler{}, testRecord(t))
	}))

	rows := mem.Outbox()
	require.Len(t, rows, 1)
	assert.Equal(t, "default", rows[0].PartitionKey.String)
}

func TestOutboxWriter_EnqueueRequiresTransaction(t *testing.T) {
	t.Parallel()

	mem := dbtest.New()
	w := newWriter(mem)

	err := w.Enqueue(context.Background(), OrderPlacedNotifier{}, testRecord(t))
	require.ErrorIs(t, err, ErrTransactionRequired)
	assert.Empty(t, mem.Outbox())
}

func TestOutboxWriter_EnqueueRejectsInlineHandler(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mem := dbtest.New()
	w := newWriter(mem)

	err := mem.WithTransaction(ctx, func(ctx context.Context) error {
		return w.Enqueue(ctx, inlineHandler{}, testRecord(t))
	})
	require.ErrorIs(t, err, ErrNotThroughOutbox)
}

func TestOutboxWriter_RollbackDiscardsJob(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mem := dbtest.New()
	w := newWriter(mem)
	boom := errors.New("boom")

	err := mem.WithTransaction(ctx, func(ctx context.Context) error {
		if err := w.Enqueue(ctx, OrderPlacedNotifier{}, testRecord(t)); err != nil {
			return err
		}

		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Empty(t, mem.Outbox())
}
