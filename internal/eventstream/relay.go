// Package eventstream relays appointment lifecycle events to Kafka for
// downstream consumers such as analytics.
package eventstream

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"estate_portal_backend/internal/events"
	"estate_portal_backend/platform/config"
	"estate_portal_backend/platform/logger"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const writeTimeout = 10 * time.Second

// contactFields never leave the service; consumers resolve people by id.
var contactFields = []string{"customerName", "customerEmail", "agentName", "agentEmail"}

// MessageWriter is the subset of *kafka.Writer used by the relay.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type partitioned interface {
	PartitionKey() int64
}

// Relay forwards bus events to a Kafka topic.
type Relay struct {
	writer MessageWriter
	topic  string
	log    *logger.Logger
}

// New creates a relay writing to the configured brokers and topic.
func New(cfg config.KafkaConfig, log *logger.Logger) *Relay {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.GetKafkaBrokers()...),
		Topic:        cfg.GetKafkaTopic(),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
	return NewWithWriter(writer, cfg.GetKafkaTopic(), log)
}

// NewWithWriter creates a relay around an existing writer. The writer must
// already be bound to topic.
func NewWithWriter(writer MessageWriter, topic string, log *logger.Logger) *Relay {
	return &Relay{writer: writer, topic: topic, log: log}
}

// RegisterHandlers subscribes the relay to every appointment event.
func (r *Relay) RegisterHandlers(bus events.Bus) {
	for _, name := range events.AllAppointmentEvents {
		bus.Subscribe(name, r)
	}
	r.log.Info("event stream relay registered", "topic", r.topic)
}

// Handle publishes one event. Failures are logged and returned; the bus
// does not retry asynchronous deliveries.
func (r *Relay) Handle(ctx context.Context, event events.Event) error {
	msg, err := BuildMessage(ctx, event)
	if err != nil {
		return err
	}

	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := r.writer.WriteMessages(writeCtx, msg); err != nil {
		r.log.WithContext(ctx).Error("event stream write failed",
			"event", event.EventName(), "event_id", event.ID().String(), "error", err)
		return fmt.Errorf("relay %s: %w", event.EventName(), err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (r *Relay) Close() error {
	return r.writer.Close()
}

// BuildMessage encodes event as JSON keyed by property id, with event_id and
// event_type headers plus the W3C trace context of ctx. Names and email
// addresses are stripped from the payload.
func BuildMessage(ctx context.Context, event events.Event) (kafka.Message, error) {
	payload, err := encodePayload(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode %s: %w", event.EventName(), err)
	}

	key := event.ID().String()
	if p, ok := event.(partitioned); ok {
		key = strconv.FormatInt(p.PartitionKey(), 10)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Time:  event.OccurredAt(),
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(event.ID().String())},
			{Key: "event_type", Value: []byte(event.EventName())},
		},
	}
	msg.Headers = injectTraceHeaders(ctx, msg.Headers)
	return msg, nil
}

func encodePayload(event events.Event) ([]byte, error) {
	raw, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	for _, key := range contactFields {
		delete(fields, key)
	}
	return json.Marshal(fields)
}

// HeaderValue returns the first header value for key.
func HeaderValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func injectTraceHeaders(ctx context.Context, headers []kafka.Header) []kafka.Header {
	carrier := &headerCarrier{headers: headers}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return carrier.headers
}

type headerCarrier struct {
	headers []kafka.Header
}

func (c *headerCarrier) Get(key string) string {
	return HeaderValue(c.headers, key)
}

func (c *headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c.headers))
	for _, h := range c.headers {
		keys = append(keys, h.Key)
	}
	return keys
}

func (c *headerCarrier) Set(key, value string) {
	for i := range c.headers {
		if c.headers[i].Key == key {
			c.headers[i].Value = []byte(value)
			return
		}
	}
	c.headers = append(c.headers, kafka.Header{Key: key, Value: []byte(value)})
}

var _ propagation.TextMapCarrier = (*headerCarrier)(nil)
