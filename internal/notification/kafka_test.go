package notification

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

func TestKafkaSendDoesNotWaitForBroker(t *testing.T) {
	// nothing listens on port 1, so a synchronous write would block until it gave up
	n := NewKafkaNotifier([]string{"127.0.0.1:1"}, "payvia.requests", nil)

	start := time.Now()
	err := n.Send(context.Background(), Message{Kind: KindPaymentCreated, Destination: "U", Reference: "bill_1"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("send blocked for %s", elapsed)
	}
}

func TestKafkaCompletionLogsFailures(t *testing.T) {
	var buf bytes.Buffer
	n := &KafkaNotifier{logger: slog.New(slog.NewJSONHandler(&buf, nil))}

	n.completed([]kafka.Message{{Value: []byte(`{"kind":"payment_created","reference":"bill_1"}`)}}, errors.New("broker down"))
	if !strings.Contains(buf.String(), `"reference":"bill_1"`) || !strings.Contains(buf.String(), "broker down") {
		t.Fatalf("expected failure log, got %s", buf.String())
	}

	buf.Reset()
	n.completed([]kafka.Message{{Value: []byte(`{}`)}}, nil)
	if buf.Len() != 0 {
		t.Fatalf("successful batch should not log, got %s", buf.String())
	}
}
