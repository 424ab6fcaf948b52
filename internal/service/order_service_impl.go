package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jnst/event-outbox/internal/model"
	"github.com/jnst/event-outbox/internal/repository"
)

// OrderServiceImpl implements OrderService for order placement business logic.
type OrderServiceImpl struct {
	eventRepo      repository.EventRepository
	outboxWriter   OutboxWriter
	transactionMgr repository.TransactionManager
	notifier       JobHandler
	now            func() time.Time
}

// NewOrderServiceImpl creates a new OrderService implementation.
func NewOrderServiceImpl(
	eventRepo repository.EventRepository,
	outboxWriter OutboxWriter,
	transactionMgr repository.TransactionManager,
) *OrderServiceImpl {
	return &OrderServiceImpl{
		eventRepo:      eventRepo,
		outboxWriter:   outboxWriter,
		transactionMgr: transactionMgr,
		notifier:       OrderPlacedNotifier{},
		now:            time.Now,
	}
}

// PlaceOrder appends an OrderPlaced event to a new order stream and schedules
// its notification job in the same transaction.
func (s *OrderServiceImpl) PlaceOrder(ctx context.Context, params *model.PlaceOrderParams) (*model.PlacedOrder, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	orderID := uuid.NewString()

	record, err := s.createOrderPlacedRecord(orderID, params)
	if err != nil {
		return nil, err
	}

	stream := model.OrderStream(orderID)

	var position *int64

	err = s.transactionMgr.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.eventRepo.AppendToStream(ctx, []model.SerializedRecord{record}, stream, model.NoneVersion()); err != nil {
			return fmt.Errorf("failed to append order event: %w", err)
		}

		if err := s.outboxWriter.Enqueue(ctx, s.notifier, record); err != nil {
			return fmt.Errorf("failed to enqueue order notification: %w", err)
		}

		position, err = s.eventRepo.LastPosition(ctx, stream)

		return err
	})
	if err != nil {
		return nil, err
	}

	placed := &model.PlacedOrder{
		OrderID: orderID,
		EventID: record.EventID(),
		Stream:  stream.Name,
	}
	if position != nil {
		placed.Position = *position
	}

	return placed, nil
}

func (s *OrderServiceImpl) createOrderPlacedRecord(orderID string, params *model.PlaceOrderParams) (model.SerializedRecord, error) {
	data, err := json.Marshal(model.OrderPlaced{
		OrderID:  orderID,
		Customer: params.Customer,
		Amount:   params.Amount,
	})
	if err != nil {
		return model.SerializedRecord{}, fmt.Errorf("failed to marshal event data: %w", err)
	}

	return model.NewSerializedRecord(uuid.NewString(), string(data), "{}", model.EventTypeOrderPlaced, s.now())
}
