package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"MarketLens/internal/recorder"
)

const (
	EventSnapshot      = "INDICATOR_SNAPSHOT"
	EventRefreshFailed = "REFRESH_FAILED"
)

// Event is the JSON payload written to the topic.
type Event struct {
	EventType string             `json:"event_type"`
	Symbol    string             `json:"symbol,omitempty"`
	Snapshot  *recorder.Snapshot `json:"snapshot,omitempty"`
	Symbols   []string           `json:"symbols,omitempty"`
	Error     string             `json:"error,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

// Publisher announces watchlist refresh results.
type Publisher interface {
	PublishSnapshot(ctx context.Context, snap *recorder.Snapshot) error
	PublishRefreshFailed(ctx context.Context, symbols []string, cause error) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer handles publishing events to Kafka.
type Producer struct {
	writer messageWriter
	topic  string
	now    func() time.Time
}

// NewProducer creates a new Kafka producer.
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
	}
	return &Producer{writer: writer, topic: topic, now: time.Now}
}

// PublishSnapshot publishes one symbol's snapshot keyed by symbol so a partition keeps its order.
func (p *Producer) PublishSnapshot(ctx context.Context, snap *recorder.Snapshot) error {
	return p.publish(ctx, snap.Symbol, Event{
		EventType: EventSnapshot,
		Symbol:    snap.Symbol,
		Snapshot:  snap,
		Timestamp: p.now(),
	})
}

// PublishRefreshFailed publishes a failed refresh.
func (p *Producer) PublishRefreshFailed(ctx context.Context, symbols []string, cause error) error {
	return p.publish(ctx, "watchlist", Event{
		EventType: EventRefreshFailed,
		Symbols:   symbols,
		Error:     cause.Error(),
		Timestamp: p.now(),
	})
}

func (p *Producer) publish(ctx context.Context, key string, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}
	return nil
}

// Close closes the Kafka producer.
func (p *Producer) Close() error {
	return p.writer.Close()
}

// NoopPublisher drops every event. Used when no brokers are configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishSnapshot(context.Context, *recorder.Snapshot) error        { return nil }
func (NoopPublisher) PublishRefreshFailed(context.Context, []string, error) error { return nil }
func (NoopPublisher) Close() error                                               { return nil }
