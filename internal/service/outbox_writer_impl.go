package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jnst/event-outbox/internal/model"
	"github.com/jnst/event-outbox/internal/repository"
)

const defaultQueue = "default"

// OutboxWriterImpl implements OutboxWriter with sidekiq 5 payloads.
type OutboxWriterImpl struct {
	outboxRepo     repository.OutboxRepository
	transactionMgr repository.TransactionManager
	now            func() time.Time
}

// NewOutboxWriterImpl creates a new OutboxWriter implementation.
func NewOutboxWriterImpl(
	outboxRepo repository.OutboxRepository,
	transactionMgr repository.TransactionManager,
) *OutboxWriterImpl {
	return &OutboxWriterImpl{
		outboxRepo:     outboxRepo,
		transactionMgr: transactionMgr,
		now:            time.Now,
	}
}

// Verify reports whether subscriber is a job handler delivered through the outbox.
func (*OutboxWriterImpl) Verify(subscriber any) bool {
	if _, ok := subscriber.(JobHandler); !ok {
		return false
	}

	s, ok := subscriber.(OutboxSubscriber)

	return ok && s.ThroughOutbox()
}

// Enqueue stores a job for handler carrying record. It must run on the same
// transaction as the stream append that produced record.
func (w *OutboxWriterImpl) Enqueue(ctx context.Context, handler JobHandler, record model.SerializedRecord) error {
	if !w.Verify(handler) {
		return fmt.Errorf("%w: %T", ErrNotThroughOutbox, handler)
	}

	if !w.transactionMgr.InTransaction(ctx) {
		return ErrTransactionRequired
	}

	queue := handler.Queue()
	if queue == "" {
		queue = defaultQueue
	}

	payload, err := w.createJobPayload(handler.JobClass(), queue, record)
	if err != nil {
		return err
	}

	_, err = w.outboxRepo.Create(ctx, &model.CreateOutboxRecordParams{
		PartitionKey: &queue,
		Format:       model.FormatSidekiq5,
		Payload:      payload,
	})
	if err != nil {
		return fmt.Errorf("failed to create outbox record: %w", err)
	}

	return nil
}

func (w *OutboxWriterImpl) createJobPayload(class, queue string, record model.SerializedRecord) ([]byte, error) {
	args, err := json.Marshal(record.ToMap())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job args: %w", err)
	}

	job := model.Job{
		Class:     class,
		Queue:     queue,
		Args:      []json.RawMessage{args},
		JID:       newJID(),
		Retry:     true,
		CreatedAt: unixSeconds(w.now()),
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job payload: %w", err)
	}

	return payload, nil
}

func newJID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:24]
}

func unixSeconds(t time.Time) float64 {
	return float64(t.Unix()) + float64(t.Nanosecond())/float64(time.Second)
}
