package client

import "log/slog"

// Notifier receives user-visible, non-blocking notifications. Every
// remote failure in this package degrades to one of these; nothing in
// the sync core has a fatal path.
type Notifier interface {
	Notify(msg string)
}

// LogNotifier is the default Notifier, writing notifications to a
// slog.Logger at warn level.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Notify(msg string) {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("notification", "message", msg)
}
