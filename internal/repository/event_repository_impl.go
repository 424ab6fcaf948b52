package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/jnst/event-outbox/internal/db"
	"github.com/jnst/event-outbox/internal/model"
)

const defaultReadLimit = 100

// EventRepositoryImpl implements EventRepository using PostgreSQL.
type EventRepositoryImpl struct {
	tm    TransactionManager
	shift int64
	now   func() time.Time
}

// EventRepositoryOption configures an EventRepositoryImpl.
type EventRepositoryOption func(*EventRepositoryImpl)

// WithPositionShift sets the position of the first event in a stream.
func WithPositionShift(shift int64) EventRepositoryOption {
	return func(r *EventRepositoryImpl) {
		r.shift = shift
	}
}

// WithClock sets the clock stamping stream entries.
func WithClock(now func() time.Time) EventRepositoryOption {
	return func(r *EventRepositoryImpl) {
		r.now = now
	}
}

// NewEventRepositoryImpl creates a new EventRepository implementation.
func NewEventRepositoryImpl(tm TransactionManager, opts ...EventRepositoryOption) *EventRepositoryImpl {
	r := &EventRepositoryImpl{
		tm:  tm,
		now: time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Append links already stored events to stream. Positions are assigned from
// the stream's current maximum; a concurrent writer taking the same position
// makes the whole append fail with model.ErrConcurrencyViolation.
func (r *EventRepositoryImpl) Append(
	ctx context.Context,
	eventIDs []string,
	stream model.Stream,
	expected model.ExpectedVersion,
	alsoToGlobal bool,
) error {
	if stream.Name == "" {
		return model.ErrStreamNameRequired
	}

	if len(eventIDs) == 0 {
		return nil
	}

	err := r.tm.WithTransaction(ctx, func(ctx context.Context) error {
		return r.appendEntries(ctx, eventIDs, stream, expected, alsoToGlobal)
	})

	return appendFailure(stream, err)
}

// AppendToStream stores records and links them to stream and to the global stream.
func (r *EventRepositoryImpl) AppendToStream(
	ctx context.Context,
	records []model.SerializedRecord,
	stream model.Stream,
	expected model.ExpectedVersion,
) error {
	if stream.Name == "" {
		return model.ErrStreamNameRequired
	}

	if len(records) == 0 {
		return nil
	}

	err := r.tm.WithTransaction(ctx, func(ctx context.Context) error {
		q := r.tm.Querier(ctx)
		eventIDs := make([]string, len(records))

		for i, record := range records {
			if err := q.CreateEvent(ctx, &db.CreateEventParams{
				EventID:   record.EventID(),
				EventType: record.EventType(),
				Data:      record.Data(),
				Metadata:  record.Metadata(),
				CreatedAt: pgtype.Timestamptz{Time: record.Timestamp(), Valid: true},
			}); err != nil {
				return err
			}

			eventIDs[i] = record.EventID()
		}

		return r.appendEntries(ctx, eventIDs, stream, expected, true)
	})

	return appendFailure(stream, err)
}

// LinkToStream adds stored events to another stream without touching the global stream.
func (r *EventRepositoryImpl) LinkToStream(
	ctx context.Context,
	eventIDs []string,
	stream model.Stream,
	expected model.ExpectedVersion,
) error {
	if stream.Name == "" {
		return model.ErrStreamNameRequired
	}

	if len(eventIDs) == 0 {
		return nil
	}

	err := r.tm.WithTransaction(ctx, func(ctx context.Context) error {
		found, err := r.tm.Querier(ctx).CountEventsByIDs(ctx, eventIDs)
		if err != nil {
			return fmt.Errorf("failed to look up events: %w", err)
		}

		if found != int64(len(unique(eventIDs))) {
			return model.ErrEventNotFound
		}

		return r.appendEntries(ctx, eventIDs, stream, expected, false)
	})

	return appendFailure(stream, err)
}

func (r *EventRepositoryImpl) appendEntries(
	ctx context.Context,
	eventIDs []string,
	stream model.Stream,
	expected model.ExpectedVersion,
	alsoToGlobal bool,
) error {
	q := r.tm.Querier(ctx)

	current, err := q.GetMaxPosition(ctx, stream.Name)
	if err != nil {
		return fmt.Errorf("failed to read stream position: %w", err)
	}

	offset, err := expected.Resolve(stream, int8Ptr(current), r.shift)
	if err != nil {
		return err
	}

	createdAt := pgtype.Timestamptz{Time: r.now().UTC(), Valid: true}

	for i, eventID := range eventIDs {
		if !stream.IsGlobal() {
			if err := q.CreateStreamEntry(ctx, &db.CreateStreamEntryParams{
				Stream:    stream.Name,
				Position:  pgtype.Int8{Int64: offset + int64(i) + r.shift, Valid: true},
				EventID:   eventID,
				CreatedAt: createdAt,
			}); err != nil {
				return err
			}
		}

		if alsoToGlobal || stream.IsGlobal() {
			if err := q.CreateStreamEntry(ctx, &db.CreateStreamEntryParams{
				Stream:    model.GlobalStreamName,
				EventID:   eventID,
				CreatedAt: createdAt,
			}); err != nil {
				return err
			}
		}
	}

	return nil
}

// Read returns up to limit entries of stream after fromPosition. Named
// streams are ordered by position; the global stream by entry sequence, in
// which case fromPosition is an exclusive sequence.
func (r *EventRepositoryImpl) Read(
	ctx context.Context,
	stream model.Stream,
	fromPosition *int64,
	limit int,
) ([]model.StreamEntry, error) {
	if stream.Name == "" {
		return nil, model.ErrStreamNameRequired
	}

	if limit <= 0 {
		limit = defaultReadLimit
	}

	q := r.tm.Querier(ctx)
	from := pgtype.Int8{}

	if fromPosition != nil {
		from = pgtype.Int8{Int64: *fromPosition, Valid: true}
	}

	var (
		rows []db.EventStoreEventsInStream
		err  error
	)

	if stream.IsGlobal() {
		rows, err = q.ListGlobalEntries(ctx, &db.ListGlobalEntriesParams{
			Stream:  model.GlobalStreamName,
			AfterID: from,
			Limit:   int32(limit),
		})
	} else {
		rows, err = q.ListStreamEntries(ctx, &db.ListStreamEntriesParams{
			Stream:       stream.Name,
			FromPosition: from,
			Limit:        int32(limit),
		})
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read stream %q: %w", stream.Name, err)
	}

	entries := make([]model.StreamEntry, len(rows))

	for i, row := range rows {
		entries[i] = model.StreamEntry{
			Sequence:  row.ID,
			Stream:    row.Stream,
			Position:  int8Ptr(row.Position),
			EventID:   row.EventID,
			CreatedAt: row.CreatedAt.Time,
		}
	}

	return entries, nil
}

// ReadRecords is Read resolved to the stored records, in stream order.
func (r *EventRepositoryImpl) ReadRecords(
	ctx context.Context,
	stream model.Stream,
	fromPosition *int64,
	limit int,
) ([]model.SerializedRecord, error) {
	entries, err := r.Read(ctx, stream, fromPosition, limit)
	if err != nil {
		return nil, err
	}

	if len(entries) == 0 {
		return nil, nil
	}

	eventIDs := make([]string, len(entries))
	for i, entry := range entries {
		eventIDs[i] = entry.EventID
	}

	rows, err := r.tm.Querier(ctx).GetEventsByIDs(ctx, eventIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}

	byID := make(map[string]db.EventStoreEvent, len(rows))
	for _, row := range rows {
		byID[row.EventID] = row
	}

	records := make([]model.SerializedRecord, 0, len(entries))

	for _, entry := range entries {
		row, ok := byID[entry.EventID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", model.ErrEventNotFound, entry.EventID)
		}

		record, err := model.NewSerializedRecord(row.EventID, row.Data, row.Metadata, row.EventType, row.CreatedAt.Time)
		if err != nil {
			return nil, err
		}

		records = append(records, record)
	}

	return records, nil
}

// LastPosition returns the highest position of stream, or nil if it is empty.
func (r *EventRepositoryImpl) LastPosition(ctx context.Context, stream model.Stream) (*int64, error) {
	current, err := r.tm.Querier(ctx).GetMaxPosition(ctx, stream.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to read stream position: %w", err)
	}

	return int8Ptr(current), nil
}

func appendFailure(stream model.Stream, err error) error {
	if err == nil {
		return nil
	}

	mapped := appendError(err)
	if mapped == err {
		return err
	}

	return fmt.Errorf("%w: stream %q", mapped, stream.Name)
}

func int8Ptr(v pgtype.Int8) *int64 {
	if !v.Valid {
		return nil
	}

	n := v.Int64
	return &n
}

func unique(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))

	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}

		seen[v] = struct{}{}
		out = append(out, v)
	}

	return out
}
