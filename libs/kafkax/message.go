package kafkax

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

// Header keys carried on every event published by the booking service.
const (
	HeaderEventID       = "event_id"
	HeaderEventType     = "event_type"
	HeaderAggregateType = "aggregate_type"
)

// Envelope is what a producer knows about an event before it hits the wire.
type Envelope struct {
	EventID       string
	EventType     string
	AggregateType string
	AggregateID   string
	Payload       []byte
	OccurredAt    time.Time
}

// NewMessage keys the message by aggregate so per-room ordering is kept within
// a partition, and attaches trace headers from ctx.
func NewMessage(ctx context.Context, env Envelope) kafka.Message {
	headers := []kafka.Header{
		{Key: HeaderEventID, Value: []byte(env.EventID)},
		{Key: HeaderEventType, Value: []byte(env.EventType)},
		{Key: HeaderAggregateType, Value: []byte(env.AggregateType)},
	}
	return kafka.Message{
		Topic:   env.EventType,
		Key:     []byte(env.AggregateID),
		Value:   env.Payload,
		Time:    env.OccurredAt,
		Headers: InjectTraceHeaders(ctx, headers),
	}
}

func HeaderValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

// NewWriter returns a synchronous writer that routes by message topic.
func NewWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}
}
