package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
)

type fakeProducer struct {
	records []*kgo.Record
	err     error
	closed  bool
}

func (f *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	results := make(kgo.ProduceResults, 0, len(rs))

	for _, r := range rs {
		if f.err == nil {
			f.records = append(f.records, r)
		}

		results = append(results, kgo.ProduceResult{Record: r, Err: f.err})
	}

	return results
}

func (f *fakeProducer) Close() {
	f.closed = true
}

func TestKafka_PushKeysRecordsByChannel(t *testing.T) {
	t.Parallel()

	producer := &fakeProducer{}
	backend := &Kafka{client: producer}

	require.NoError(t, backend.Push(context.Background(), "orders", []byte(`{"jid":"1"}`)))
	require.NoError(t, backend.Register(context.Background(), []string{"orders"}))

	require.Len(t, producer.records, 1)
	assert.Equal(t, "orders", producer.records[0].Topic)
	assert.Equal(t, []byte("orders"), producer.records[0].Key)
	assert.Equal(t, []byte(`{"jid":"1"}`), producer.records[0].Value)

	backend.Close()
	assert.True(t, producer.closed)
}

func TestKafka_PushErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("not enough replicas")
	backend := &Kafka{client: &fakeProducer{err: boom}}

	require.ErrorIs(t, backend.Push(context.Background(), "orders", []byte(`{}`)), boom)
	require.ErrorIs(t, backend.Push(context.Background(), "", []byte(`{}`)), ErrChannelRequired)

	_, err := DialKafka(nil, "")
	require.Error(t, err)
}
