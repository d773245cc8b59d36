// Package kafka publishes audit events to a Kafka topic, dual-writing to an
// inner store that serves queries. Downstream compliance tooling consumes the
// topic; the inner store is the local materialized view.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	"cobal/internal/audit"
	id "cobal/pkg/domain"
)

// Sink implements audit.Store by producing to Kafka and delegating to the
// inner store.
type Sink struct {
	client *kgo.Client
	topic  string
	inner  audit.Store
}

// New connects to the brokers and returns a Kafka-backed audit sink.
func New(brokers []string, topic string, inner audit.Store) (*Sink, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("connect kafka: %w", err)
	}
	return &Sink{client: client, topic: topic, inner: inner}, nil
}

// Append publishes the event to the topic keyed by recipient so per-recipient
// ordering is preserved, then appends to the inner store.
func (s *Sink) Append(ctx context.Context, event audit.Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.RecipientID.String()),
		Value: value,
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}

	return s.inner.Append(ctx, event)
}

func (s *Sink) ListByRecipient(ctx context.Context, recipientID id.RecipientID) ([]audit.Event, error) {
	return s.inner.ListByRecipient(ctx, recipientID)
}

// Close flushes buffered records and releases the client.
func (s *Sink) Close() {
	s.client.Close()
}
