package notify

import (
	"context"
	"log/slog"
	"time"
)

// Security selects how the SMTP connection is protected
type Security string

const (
	// SecurityTLS dials with implicit TLS, usually on port 465
	SecurityTLS Security = "tls"
	// SecuritySTARTTLS upgrades a plain connection, usually on port 587
	SecuritySTARTTLS Security = "starttls"
	// SecurityNone sends in clear text; only meant for local relays
	SecurityNone Security = "none"
)

// Notifier delivers a finished report notification to one recipient
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Config holds SMTP settings
type Config struct {
	Host            string
	Port            int
	Username        string
	Password        string
	From            string
	FromName        string
	Security        Security
	HTMLAlternative bool
	Timeout         time.Duration
}

// New returns an SMTP notifier, or a LogNotifier when no SMTP host is configured
func New(cfg Config, logger *slog.Logger) Notifier {
	if cfg.Host == "" {
		logger.Warn("SMTP host not configured, notifications will only be logged")
		return NewLogNotifier(logger)
	}
	return NewSMTPNotifier(cfg, logger)
}

// LogNotifier writes notifications to the log instead of sending them
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Send logs the notification and never fails
func (n *LogNotifier) Send(ctx context.Context, to, subject, body string) error {
	n.logger.Info("Notification",
		slog.String("to", to),
		slog.String("subject", subject),
		slog.String("body", body),
	)
	return nil
}
