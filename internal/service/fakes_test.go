package service

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/jnst/event-outbox/internal/metrics"
)

type pushedJob struct {
	channel string
	payload []byte
}

type fakeBackend struct {
	mu         sync.Mutex
	pushed     []pushedJob
	registered []string
	failures   []error
	// block, when set, is received from before every push; entered is
	// signalled first.
	block   chan struct{}
	entered chan struct{}
}

func (f *fakeBackend) Push(_ context.Context, channel string, payload []byte) error {
	if f.block != nil {
		if f.entered != nil {
			f.entered <- struct{}{}
		}

		<-f.block
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.failures) > 0 {
		err := f.failures[0]
		f.failures = f.failures[1:]

		if err != nil {
			return err
		}
	}

	f.pushed = append(f.pushed, pushedJob{channel: channel, payload: payload})

	return nil
}

func (f *fakeBackend) Register(_ context.Context, channels []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.registered = append(f.registered, channels...)

	return nil
}

func (*fakeBackend) Close() {}

func (f *fakeBackend) jobs() []pushedJob {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]pushedJob(nil), f.pushed...)
}

type recordingSink struct {
	mu     sync.Mutex
	points []metrics.QueuePoint
}

func (s *recordingSink) WriteQueuePoint(point metrics.QueuePoint) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.points = append(s.points, point)
}

func (s *recordingSink) all() []metrics.QueuePoint {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]metrics.QueuePoint(nil), s.points...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
