package notification

import (
	"context"
	"log/slog"
)

const (
	// KindWalletTransfer indicates funds arrived in a wallet.
	KindWalletTransfer = "wallet_transfer"
	// KindApprovalRequested indicates a new multi-signature request awaits signers.
	KindApprovalRequested = "approval_requested"
	// KindApprovalApproved indicates a request reached its approval threshold.
	KindApprovalApproved = "approval_approved"
	// KindApprovalRejected indicates a request can no longer reach quorum.
	KindApprovalRejected = "approval_rejected"
	// KindApprovalExecuted indicates an approved request moved funds.
	KindApprovalExecuted = "approval_executed"
	// KindApprovalExpired indicates a request lapsed before a decision.
	KindApprovalExpired = "approval_expired"
)

// Message describes a notification payload.
type Message struct {
	Kind        string
	Destination string
	Body        string
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier is a stub implementation that writes notifications to the logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier stub.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification", "kind", message.Kind, "destination", message.Destination, "body", message.Body)
	return nil
}
