// Package redpanda publishes committed application transitions to a
// Kafka-compatible broker (Redpanda in deployment).
package redpanda

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kotel"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/softrate-ats/internal/adapter/observability"
	"github.com/fairyhunter13/softrate-ats/internal/domain"
)

// DefaultTopic receives every application event.
const DefaultTopic = "application-events"

// producer is the part of *kgo.Client the publisher needs.
type producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Ping(ctx context.Context) error
	Close()
}

// Publisher implements domain.EventPublisher with franz-go.
type Publisher struct {
	client  producer
	topic   string
	timeout time.Duration
}

var _ domain.EventPublisher = (*Publisher)(nil)

// NewPublisher connects to brokers and ensures topic exists. Topic creation
// failures are logged; the broker may auto-create or the topic may exist.
func NewPublisher(ctx context.Context, brokers []string, topic string) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("op=events.new: %w: no seed brokers provided", domain.ErrInvalidArgument)
	}
	if topic == "" {
		topic = DefaultTopic
	}
	kotelService := kotel.NewKotel(
		kotel.WithTracer(kotel.NewTracer(kotel.TracerProvider(otel.GetTracerProvider()))),
	)
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerLinger(5*time.Millisecond),
		kgo.RequestRetries(5),
		kgo.DialTimeout(10*time.Second),
		kgo.WithHooks(kotelService.Hooks()...),
	)
	if err != nil {
		return nil, fmt.Errorf("op=events.new: %w", err)
	}
	if err := createTopicIfNotExists(ctx, client, topic, 3, 1); err != nil {
		slog.Warn("failed to create topic, it may already exist", slog.String("topic", topic), slog.Any("error", err))
	}
	slog.Info("event publisher ready", slog.Any("brokers", brokers), slog.String("topic", topic))
	return &Publisher{client: client, topic: topic, timeout: 5 * time.Second}, nil
}

// Publish writes ev keyed by candidate id so one candidate's events stay
// ordered on a single partition.
func (p *Publisher) Publish(ctx context.Context, ev domain.ApplicationEvent) error {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("op=events.publish: %w", err)
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(ev.CandidateID),
		Value: b,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(ev.Type)},
			{Key: "application_id", Value: []byte(ev.ApplicationID)},
		},
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	err = p.client.ProduceSync(ctx, record).FirstErr()
	observability.RecordEventPublish(ev.Type, err)
	if err != nil {
		return fmt.Errorf("op=events.publish: %w: %v", domain.ErrExternalService, err)
	}
	return nil
}

// Ping checks that at least one broker answers; used by readiness.
func (p *Publisher) Ping(ctx context.Context) error {
	if err := p.client.Ping(ctx); err != nil {
		return fmt.Errorf("op=redpanda.ping: %w", err)
	}
	return nil
}

// Close flushes and closes the client.
func (p *Publisher) Close() {
	if p.client != nil {
		p.client.Close()
	}
}
