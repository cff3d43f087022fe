package notification

import (
	"context"
	"log/slog"
)

const (
	// KindTransferReceived is sent to the recipient of a peer transfer.
	KindTransferReceived = "transfer_received"
	// KindPaymentCreated is sent when a bill payment request is recorded.
	KindPaymentCreated = "payment_created"
	// KindPaymentStatus is sent when the administrator relabels a payment.
	KindPaymentStatus = "payment_status_updated"
	// KindWithdrawalCreated is sent when a withdrawal request is recorded.
	KindWithdrawalCreated = "withdrawal_created"
	// KindWithdrawalStatus is sent when the administrator relabels a withdrawal.
	KindWithdrawalStatus = "withdrawal_status_updated"
)

// Message describes a notification payload.
type Message struct {
	Kind        string `json:"kind"`
	Destination string `json:"destination"`
	Reference   string `json:"reference,omitempty"`
	Body        string `json:"body"`
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notifications to the structured logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification",
		"kind", message.Kind,
		"destination", message.Destination,
		"reference", message.Reference,
		"body", message.Body,
	)
	return nil
}

// Send delivers msg through n when n is set. Delivery happens after the
// operation committed, so errors are only reported to the notifier's own log.
func Send(ctx context.Context, n Notifier, msg Message) {
	if n == nil {
		return
	}
	_ = n.Send(ctx, msg)
}
