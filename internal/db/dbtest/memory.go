// Package dbtest provides an in-memory db.Querier for tests.
//
// Memory mirrors the constraints of schema.sql: unique violations and
// foreign key misses are reported as *pgconn.PgError with the same SQLSTATE
// and constraint names Postgres uses. Transactions are serialized and roll
// back every change when the callback fails.
package dbtest

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/jnst/event-outbox/internal/db"
)

type txKey struct{}

type state struct {
	events  []db.EventStoreEvent
	entries []db.EventStoreEventsInStream
	outbox  []db.EventStoreOutbox
	locks   map[string]db.EventStoreOutboxLock
	nextID  int64
}

func (s *state) clone() *state {
	c := &state{
		events:  slices.Clone(s.events),
		entries: slices.Clone(s.entries),
		outbox:  slices.Clone(s.outbox),
		locks:   make(map[string]db.EventStoreOutboxLock, len(s.locks)),
		nextID:  s.nextID,
	}

	for k, v := range s.locks {
		c.locks[k] = v
	}

	return c
}

// Memory is an in-memory store. The zero value is not usable; call New.
type Memory struct {
	// Now stamps created_at columns.
	Now func() time.Time

	txMu sync.Mutex
	mu   sync.Mutex
	data *state

	failures    map[string][]error
	lockTimeout string
}

// New returns an empty store.
func New() *Memory {
	return &Memory{
		Now:      time.Now,
		data:     &state{locks: make(map[string]db.EventStoreOutboxLock)},
		failures: make(map[string][]error),
	}
}

// FailNext makes the next call of the named Querier method return err.
func (m *Memory) FailNext(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.failures[method] = append(m.failures[method], err)
}

// WithTransaction runs fn in a serialized transaction, joining the one
// carried by ctx if present.
func (m *Memory) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.InTransaction(ctx) {
		return fn(ctx)
	}

	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	snapshot := m.data.clone()
	m.mu.Unlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		m.mu.Lock()
		m.data = snapshot
		m.mu.Unlock()

		return err
	}

	return nil
}

// InTransaction reports whether ctx carries a transaction.
func (*Memory) InTransaction(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}

// Querier returns the store itself; every query sees committed and
// in-flight writes alike.
func (m *Memory) Querier(context.Context) db.Querier {
	return m
}

// Events returns a copy of the stored event rows.
func (m *Memory) Events() []db.EventStoreEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	return slices.Clone(m.data.events)
}

// Entries returns a copy of the stored stream entries.
func (m *Memory) Entries() []db.EventStoreEventsInStream {
	m.mu.Lock()
	defer m.mu.Unlock()

	return slices.Clone(m.data.entries)
}

// Outbox returns a copy of the outbox rows.
func (m *Memory) Outbox() []db.EventStoreOutbox {
	m.mu.Lock()
	defer m.mu.Unlock()

	return slices.Clone(m.data.outbox)
}

// Lock returns the lock row of a partition key.
func (m *Memory) Lock(partitionKey string) (db.EventStoreOutboxLock, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.data.locks[partitionKey]
	return l, ok
}

// LockTimeout returns the last lock_timeout set by a transaction.
func (m *Memory) LockTimeout() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.lockTimeout
}

func (m *Memory) injected(method string) error {
	queue := m.failures[method]
	if len(queue) == 0 {
		return nil
	}

	m.failures[method] = queue[1:]

	return queue[0]
}

func (m *Memory) id() int64 {
	m.data.nextID++
	return m.data.nextID
}

func (m *Memory) now() pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: m.Now().UTC(), Valid: true}
}

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint, Message: "duplicate key value violates unique constraint"}
}

func (m *Memory) CountEventsByIDs(_ context.Context, eventIds []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.injected("CountEventsByIDs"); err != nil {
		return 0, err
	}

	var n int64

	for _, e := range m.data.events {
		if slices.Contains(eventIds, e.EventID) {
			n++
		}
	}

	return n, nil
}

func (m *Memory) CreateEvent(_ context.Context, arg *db.CreateEventParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.injected("CreateEvent"); err != nil {
		return err
	}

	for _, e := range m.data.events {
		if e.EventID == arg.EventID {
			return uniqueViolation(db.ConstraintEventID)
		}
	}

	m.data.events = append(m.data.events, db.EventStoreEvent{
		ID:        m.id(),
		EventID:   arg.EventID,
		EventType: arg.EventType,
		Data:      arg.Data,
		Metadata:  arg.Metadata,
		CreatedAt: arg.CreatedAt,
	})

	return nil
}

func (m *Memory) GetEventsByIDs(_ context.Context, eventIds []string) ([]db.EventStoreEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.injected("GetEventsByIDs"); err != nil {
		return nil, err
	}

	var out []db.EventStoreEvent

	for _, e := range m.data.events {
		if slices.Contains(eventIds, e.EventID) {
			out = append(out, e)
		}
	}

	return out, nil
}

func (m *Memory) GetMaxPosition(_ context.Context, stream string) (pgtype.Int8, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.injected("GetMaxPosition"); err != nil {
		return pgtype.Int8{}, err
	}

	var highest pgtype.Int8

	for _, e := range m.data.entries {
		if e.Stream != stream || !e.Position.Valid {
			continue
		}

		if !highest.Valid || e.Position.Int64 > highest.Int64 {
			highest = e.Position
		}
	}

	return highest, nil
}

func (m *Memory) CreateStreamEntry(_ context.Context, arg *db.CreateStreamEntryParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.injected("CreateStreamEntry"); err != nil {
		return err
	}

	if !slices.ContainsFunc(m.data.events, func(e db.EventStoreEvent) bool { return e.EventID == arg.EventID }) {
		return &pgconn.PgError{Code: "23503", Message: "insert violates foreign key constraint"}
	}

	for _, e := range m.data.entries {
		if e.Stream != arg.Stream {
			continue
		}

		if arg.Position.Valid && e.Position.Valid && e.Position.Int64 == arg.Position.Int64 {
			return uniqueViolation(db.ConstraintStreamPosition)
		}

		if e.EventID == arg.EventID {
			return uniqueViolation(db.ConstraintStreamEventID)
		}
	}

	createdAt := arg.CreatedAt
	if !createdAt.Valid {
		createdAt = m.now()
	}

	m.data.entries = append(m.data.entries, db.EventStoreEventsInStream{
		ID:        m.id(),
		Stream:    arg.Stream,
		Position:  arg.Position,
		EventID:   arg.EventID,
		CreatedAt: createdAt,
	})

	return nil
}

func (m *Memory) ListStreamEntries(_ context.Context, arg *db.ListStreamEntriesParams) ([]db.EventStoreEventsInStream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.injected("ListStreamEntries"); err != nil {
		return nil, err
	}

	var out []db.EventStoreEventsInStream

	for _, e := range m.data.entries {
		if e.Stream != arg.Stream || !e.Position.Valid {
			continue
		}

		if arg.FromPosition.Valid && e.Position.Int64 <= arg.FromPosition.Int64 {
			continue
		}

		out = append(out, e)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Position.Int64 < out[j].Position.Int64 })

	return limit(out, arg.Limit), nil
}

func (m *Memory) ListGlobalEntries(_ context.Context, arg *db.ListGlobalEntriesParams) ([]db.EventStoreEventsInStream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.injected("ListGlobalEntries"); err != nil {
		return nil, err
	}

	var out []db.EventStoreEventsInStream

	for _, e := range m.data.entries {
		if e.Stream != arg.Stream {
			continue
		}

		if arg.AfterID.Valid && e.ID <= arg.AfterID.Int64 {
			continue
		}

		out = append(out, e)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return limit(out, arg.Limit), nil
}

func (m *Memory) CreateOutboxRecord(_ context.Context, arg *db.CreateOutboxRecordParams) (db.EventStoreOutbox, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.injected("CreateOutboxRecord"); err != nil {
		return db.EventStoreOutbox{}, err
	}

	row := db.EventStoreOutbox{
		ID:           m.id(),
		PartitionKey: arg.PartitionKey,
		Format:       arg.Format,
		Payload:      slices.Clone(arg.Payload),
		CreatedAt:    m.now(),
	}

	m.data.outbox = append(m.data.outbox, row)

	return row, nil
}

func (m *Memory) ListPendingOutboxRecords(_ context.Context, arg *db.ListPendingOutboxRecordsParams) ([]db.EventStoreOutbox, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.injected("ListPendingOutboxRecords"); err != nil {
		return nil, err
	}

	var out []db.EventStoreOutbox

	for _, r := range m.data.outbox {
		if r.Format != arg.Format || r.EnqueuedAt.Valid || partitionKey(r.PartitionKey) != arg.PartitionKey {
			continue
		}

		out = append(out, r)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return limit(out, arg.Limit), nil
}

func (m *Memory) ListPendingPartitionKeys(_ context.Context, format string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.injected("ListPendingPartitionKeys"); err != nil {
		return nil, err
	}

	var keys []string

	for _, r := range m.data.outbox {
		if r.Format != format || r.EnqueuedAt.Valid {
			continue
		}

		if k := partitionKey(r.PartitionKey); !slices.Contains(keys, k) {
			keys = append(keys, k)
		}
	}

	sort.Strings(keys)

	return keys, nil
}

func (m *Memory) MarkOutboxRecordEnqueued(_ context.Context, arg *db.MarkOutboxRecordEnqueuedParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.injected("MarkOutboxRecordEnqueued"); err != nil {
		return err
	}

	for i, r := range m.data.outbox {
		if r.ID == arg.ID && !r.EnqueuedAt.Valid {
			m.data.outbox[i].EnqueuedAt = arg.EnqueuedAt
		}
	}

	return nil
}

func (m *Memory) DeleteEnqueuedOutboxRecords(_ context.Context, arg *db.DeleteEnqueuedOutboxRecordsParams) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.injected("DeleteEnqueuedOutboxRecords"); err != nil {
		return 0, err
	}

	var (
		kept    []db.EventStoreOutbox
		deleted int64
	)

	for _, r := range m.data.outbox {
		if r.Format == arg.Format &&
			r.CreatedAt.Time.Before(arg.Before.Time) &&
			r.EnqueuedAt.Valid &&
			r.EnqueuedAt.Time.Before(arg.Before.Time) {
			deleted++

			continue
		}

		kept = append(kept, r)
	}

	m.data.outbox = kept

	return deleted, nil
}

func (m *Memory) CreateLock(_ context.Context, partitionKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.injected("CreateLock"); err != nil {
		return err
	}

	if _, ok := m.data.locks[partitionKey]; !ok {
		m.data.locks[partitionKey] = db.EventStoreOutboxLock{ID: m.id(), PartitionKey: partitionKey}
	}

	return nil
}

func (m *Memory) GetLockForUpdate(_ context.Context, partitionKey string) (db.EventStoreOutboxLock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.injected("GetLockForUpdate"); err != nil {
		return db.EventStoreOutboxLock{}, err
	}

	l, ok := m.data.locks[partitionKey]
	if !ok {
		return db.EventStoreOutboxLock{}, pgx.ErrNoRows
	}

	return l, nil
}

func (m *Memory) UpdateLock(_ context.Context, arg *db.UpdateLockParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.injected("UpdateLock"); err != nil {
		return err
	}

	l, ok := m.data.locks[arg.PartitionKey]
	if !ok {
		return nil
	}

	l.LockedBy = arg.LockedBy
	l.LockedAt = arg.LockedAt
	m.data.locks[arg.PartitionKey] = l

	return nil
}

func (m *Memory) SetLocalLockTimeout(_ context.Context, timeout string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.injected("SetLocalLockTimeout"); err != nil {
		return err
	}

	m.lockTimeout = timeout

	return nil
}

func partitionKey(t pgtype.Text) string {
	if !t.Valid {
		return ""
	}

	return t.String
}

func limit[T any](rows []T, n int32) []T {
	if n > 0 && len(rows) > int(n) {
		return rows[:n]
	}

	return rows
}

var _ db.Querier = (*Memory)(nil)
