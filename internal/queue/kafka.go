package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
)

type kafkaProducer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

// Kafka produces payloads to one topic per channel. Records are keyed by
// channel so a channel maps to a single partition and keeps its order.
type Kafka struct {
	client kafkaProducer
}

// DialKafka creates a client for the given seed brokers.
func DialKafka(brokers []string, clientID string) (*Kafka, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}

	opts := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.AllowAutoTopicCreation(),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	}

	if clientID != "" {
		opts = append(opts, kgo.ClientID(clientID))
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}

	return &Kafka{client: client}, nil
}

// Push produces payload to the channel topic and waits for the acknowledgement.
func (k *Kafka) Push(ctx context.Context, channel string, payload []byte) error {
	if channel == "" {
		return ErrChannelRequired
	}

	record := &kgo.Record{
		Topic: channel,
		Key:   []byte(channel),
		Value: payload,
	}

	if err := k.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("failed to produce to %s: %w", channel, err)
	}

	return nil
}

// Register is a no-op; topics are created on first produce.
func (*Kafka) Register(context.Context, []string) error {
	return nil
}

// Close flushes and closes the client.
func (k *Kafka) Close() {
	k.client.Close()
}
