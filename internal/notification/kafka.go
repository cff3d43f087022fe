package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaNotifier publishes notifications as JSON records keyed by destination,
// for payout processors that act on payment and withdrawal requests. The
// writer runs in async mode, so Send only enqueues and never waits on the
// broker; delivery failures are reported through the logger.
type KafkaNotifier struct {
	writer *kafka.Writer
	logger *slog.Logger
}

// NewKafkaNotifier builds a notifier writing to topic on brokers.
func NewKafkaNotifier(brokers []string, topic string, logger *slog.Logger) *KafkaNotifier {
	n := &KafkaNotifier{logger: logger}
	n.writer = &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		MaxAttempts:  3,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		Async:        true,
		Completion:   n.completed,
	}
	return n
}

// Send enqueues the message for publishing.
func (n *KafkaNotifier) Send(ctx context.Context, message Message) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	err = n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(message.Destination),
		Value: payload,
		Time:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}
	return nil
}

func (n *KafkaNotifier) completed(messages []kafka.Message, err error) {
	if err == nil || n.logger == nil {
		return
	}
	for _, m := range messages {
		var msg Message
		_ = json.Unmarshal(m.Value, &msg)
		n.logger.Error("publish notification failed",
			slog.String("kind", msg.Kind),
			slog.String("reference", msg.Reference),
			slog.Any("error", err),
		)
	}
}

// Close flushes pending writes and releases the connection.
func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
