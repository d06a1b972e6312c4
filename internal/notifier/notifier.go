// Package notifier is the minimal contract with the notification/toast
// system. Calls are fire-and-forget; no return value is consumed by the core.
package notifier

import "go.uber.org/zap"

// Kind is the severity of a notification.
type Kind string

const (
	Success Kind = "success"
	Error   Kind = "error"
	Warning Kind = "warning"
	Info    Kind = "info"
)

// Notifier delivers user-facing notifications.
type Notifier interface {
	Notify(kind Kind, message string)
}

// ZapNotifier logs notifications. The default collaborator when no real
// notification channel is wired.
type ZapNotifier struct {
	logger *zap.Logger
}

func NewZapNotifier(logger *zap.Logger) *ZapNotifier {
	return &ZapNotifier{logger: logger}
}

func (n *ZapNotifier) Notify(kind Kind, message string) {
	switch kind {
	case Error:
		n.logger.Error(message, zap.String("notification", string(kind)))
	case Warning:
		n.logger.Warn(message, zap.String("notification", string(kind)))
	default:
		n.logger.Info(message, zap.String("notification", string(kind)))
	}
}

// Noop discards notifications.
type Noop struct{}

func (Noop) Notify(Kind, string) {}
