package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/ppiankov/deepcheck/internal/model"
)

const originHeader = "deepcheck-origin"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// KafkaPublisher forwards local bus events to a Kafka topic so that other
// processes sharing the same history store can refresh their view.
type KafkaPublisher struct {
	writer messageWriter
	origin string
	logger *slog.Logger
}

// NewKafkaPublisher creates a publisher for the configured brokers and topic
func NewKafkaPublisher(cfg model.NotifyConfig, origin string, logger *slog.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		MaxAttempts:  3,
		RequiredAcks: kafka.RequireOne,
	}
	return newKafkaPublisher(writer, origin, logger)
}

func newKafkaPublisher(writer messageWriter, origin string, logger *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: writer,
		origin: origin,
		logger: logger.With("system", "notify-publisher"),
	}
}

// Run forwards local events until ctx is done. Events that arrived from
// other processes are not forwarded again.
func (p *KafkaPublisher) Run(ctx context.Context, bus *Bus) error {
	events, cancel := bus.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return p.writer.Close()
		case e, ok := <-events:
			if !ok {
				return p.writer.Close()
			}
			if e.Origin != "" {
				continue
			}
			if err := p.publish(ctx, e); err != nil {
				p.logger.Warn("publish history event", "key", e.Key, "error", err)
			}
		}
	}
}

func (p *KafkaPublisher) publish(ctx context.Context, e Event) error {
	e.Origin = p.origin
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(e.Key),
		Value:   payload,
		Headers: []kafka.Header{{Key: originHeader, Value: []byte(p.origin)}},
	})
}

// KafkaRelay consumes change events written by other processes and
// republishes them on the local bus.
type KafkaRelay struct {
	reader messageReader
	origin string
	logger *slog.Logger
}

// NewKafkaRelay creates a relay. Without a group id every process reads
// the whole topic, which is what a broadcast needs.
func NewKafkaRelay(cfg model.NotifyConfig, origin string, logger *slog.Logger) *KafkaRelay {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.GroupID,
		StartOffset: kafka.LastOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
	})
	return newKafkaRelay(reader, origin, logger)
}

func newKafkaRelay(reader messageReader, origin string, logger *slog.Logger) *KafkaRelay {
	return &KafkaRelay{
		reader: reader,
		origin: origin,
		logger: logger.With("system", "notify-relay"),
	}
}

// Run relays remote events until ctx is done or the reader fails
func (r *KafkaRelay) Run(ctx context.Context, bus *Bus) error {
	defer func() { _ = r.reader.Close() }()

	for {
		msg, err := r.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("read history event: %w", err)
		}

		if headerValue(msg.Headers, originHeader) == r.origin {
			continue
		}

		var e Event
		if err := json.Unmarshal(msg.Value, &e); err != nil {
			r.logger.Warn("discard malformed history event", "offset", msg.Offset, "error", err)
			continue
		}
		if e.Origin == "" {
			e.Origin = "remote"
		}

		bus.Publish(e)
	}
}

func headerValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
