package sms

import (
	"context"
	"log/slog"
)

// Sender delivers a text message to a phone number. Implementations may
// block on network I/O and should honor context cancellation.
type Sender interface {
	Send(ctx context.Context, phone, body string) error
}

// LoggerSender is a stub implementation that writes messages to the logger.
// Used in development and tests where no SMS provider is configured.
type LoggerSender struct {
	logger *slog.Logger
}

// NewLoggerSender constructs a logging sender stub.
func NewLoggerSender(logger *slog.Logger) *LoggerSender {
	return &LoggerSender{logger: logger}
}

// Send writes the message to the structured logger.
func (s *LoggerSender) Send(_ context.Context, phone, body string) error {
	if s == nil || s.logger == nil {
		return nil
	}
	s.logger.Info("sms dispatched", "phone", phone, "body", body)
	return nil
}
