package main

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jnst/event-outbox/internal/db/dbtest"
	"github.com/jnst/event-outbox/internal/model"
	"github.com/jnst/event-outbox/internal/repository"
)

func newCommands(mem *dbtest.Memory, now time.Time) *commands {
	return &commands{
		outboxRepo: repository.NewOutboxRepositoryImpl(mem),
		lockRepo:   repository.NewLockRepositoryImpl(mem, slog.New(slog.NewTextHandler(io.Discard, nil))),
		format:     model.FormatSidekiq5,
		now:        func() time.Time { return now },
	}
}

func TestCommands_Purge(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mem := dbtest.New()
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mem.Now = func() time.Time { return created }

	outbox := repository.NewOutboxRepositoryImpl(mem)
	key := "orders"

	old, err := outbox.Create(ctx, &model.CreateOutboxRecordParams{PartitionKey: &key, Format: model.FormatSidekiq5, Payload: []byte(`{}`)})
	require.NoError(t, err)
	require.NoError(t, outbox.MarkEnqueued(ctx, old.ID, created))

	_, err = outbox.Create(ctx, &model.CreateOutboxRecordParams{PartitionKey: &key, Format: model.FormatSidekiq5, Payload: []byte(`{}`)})
	require.NoError(t, err)

	cmds := newCommands(mem, created.Add(48*time.Hour))

	require.NoError(t, cmds.run(ctx, []string{"purge", "-older-than", "72h"}, 168*time.Hour))
	assert.Len(t, mem.Outbox(), 2)

	require.NoError(t, cmds.run(ctx, []string{"purge"}, 24*time.Hour))
	assert.Len(t, mem.Outbox(), 1)
}

func TestCommands_Unlock(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mem := dbtest.New()
	cmds := newCommands(mem, time.Now())

	require.True(t, cmds.lockRepo.Acquire(ctx, "orders", "crashed-relay").Obtained())

	require.Error(t, cmds.run(ctx, []string{"unlock"}, 0))
	require.NoError(t, cmds.run(ctx, []string{"unlock", "-partition-key", "orders"}, 0))

	lock, ok := mem.Lock("orders")
	require.True(t, ok)
	assert.False(t, lock.LockedBy.Valid)
}

func TestCommands_Usage(t *testing.T) {
	t.Parallel()

	cmds := newCommands(dbtest.New(), time.Now())

	require.ErrorIs(t, cmds.run(context.Background(), nil, 0), errUsage)
	require.ErrorIs(t, cmds.run(context.Background(), []string{"vacuum"}, 0), errUsage)
}
