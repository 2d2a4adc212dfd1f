package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/cuongbtq/tube-insights/internal/domain"
	"github.com/emersion/go-message/mail"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

const defaultSMTPTimeout = 30 * time.Second

// transport hands a composed message to the mail server
type transport func(ctx context.Context, from, to string, msg []byte) error

// SMTPNotifier composes MIME messages and submits them over SMTP
type SMTPNotifier struct {
	cfg      Config
	logger   *slog.Logger
	markdown goldmark.Markdown
	send     transport
	now      func() time.Time
}

// NewSMTPNotifier creates an SMTPNotifier. An empty Security defaults to implicit TLS on 465 and STARTTLS otherwise.
func NewSMTPNotifier(cfg Config, logger *slog.Logger) *SMTPNotifier {
	if cfg.Security == "" {
		cfg.Security = SecuritySTARTTLS
		if cfg.Port == 465 {
			cfg.Security = SecurityTLS
		}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultSMTPTimeout
	}

	n := &SMTPNotifier{
		cfg:    cfg,
		logger: logger,
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(
				html.WithHardWraps(),
				html.WithXHTML(),
			),
		),
		now: time.Now,
	}
	n.send = n.deliver
	return n
}

// Send composes and delivers one message. Every failure is a *domain.NotificationError.
func (n *SMTPNotifier) Send(ctx context.Context, to, subject, body string) error {
	recipient, err := mail.ParseAddress(to)
	if err != nil {
		return &domain.NotificationError{Recipient: to, Err: fmt.Errorf("invalid recipient address: %w", err)}
	}

	msg, err := n.compose(recipient, subject, body)
	if err != nil {
		return &domain.NotificationError{Recipient: to, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, n.cfg.Timeout)
	defer cancel()

	// the envelope takes the bare address, the header keeps any display name
	if err := n.send(ctx, n.cfg.From, recipient.Address, msg); err != nil {
		return &domain.NotificationError{Recipient: to, Err: err}
	}

	n.logger.Info("Notification sent",
		slog.String("to", to),
		slog.Int("size", len(msg)),
	)
	return nil
}

// compose builds a plain text message, or multipart/alternative with an HTML rendering of the body
func (n *SMTPNotifier) compose(recipient *mail.Address, subject, body string) ([]byte, error) {
	var h mail.Header
	h.SetDate(n.now())
	h.SetAddressList("From", []*mail.Address{{Name: n.cfg.FromName, Address: n.cfg.From}})
	h.SetAddressList("To", []*mail.Address{recipient})
	h.SetSubject(subject)
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("failed to generate message id: %w", err)
	}

	var buf bytes.Buffer

	if !n.cfg.HTMLAlternative {
		h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
		h.Set("Content-Transfer-Encoding", "quoted-printable")
		w, err := mail.CreateSingleInlineWriter(&buf, h)
		if err != nil {
			return nil, fmt.Errorf("failed to create message writer: %w", err)
		}
		if _, err := io.WriteString(w, body); err != nil {
			return nil, fmt.Errorf("failed to write message body: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("failed to close message writer: %w", err)
		}
		return buf.Bytes(), nil
	}

	var rendered bytes.Buffer
	if err := n.markdown.Convert([]byte(body), &rendered); err != nil {
		return nil, fmt.Errorf("failed to render html body: %w", err)
	}

	w, err := mail.CreateInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("failed to create message writer: %w", err)
	}
	if err := writePart(w, "text/plain", body); err != nil {
		return nil, err
	}
	if err := writePart(w, "text/html", rendered.String()); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to close message writer: %w", err)
	}

	return buf.Bytes(), nil
}

func writePart(w *mail.InlineWriter, contentType, content string) error {
	var h mail.InlineHeader
	h.SetContentType(contentType, map[string]string{"charset": "utf-8"})
	h.Set("Content-Transfer-Encoding", "quoted-printable")

	part, err := w.CreatePart(h)
	if err != nil {
		return fmt.Errorf("failed to create %s part: %w", contentType, err)
	}
	if _, err := io.WriteString(part, content); err != nil {
		return fmt.Errorf("failed to write %s part: %w", contentType, err)
	}
	return part.Close()
}

// deliver runs one SMTP session bounded by ctx
func (n *SMTPNotifier) deliver(ctx context.Context, from, to string, msg []byte) error {
	addr := net.JoinHostPort(n.cfg.Host, strconv.Itoa(n.cfg.Port))
	tlsConfig := &tls.Config{ServerName: n.cfg.Host}
	dialer := &net.Dialer{Timeout: n.cfg.Timeout}

	var (
		conn net.Conn
		err  error
	)
	if n.cfg.Security == SecurityTLS {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: tlsConfig}).DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, n.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Close()

	if n.cfg.Security == SecuritySTARTTLS {
		if err := client.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("failed to start TLS: %w", err)
		}
	}

	if n.cfg.Username != "" {
		if ok, _ := client.Extension("AUTH"); !ok {
			return errors.New("SMTP server does not support authentication")
		}
		if err := client.Auth(smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	if err := client.Mail(from); err != nil {
		return fmt.Errorf("failed to set mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set mail recipient: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to start data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	return client.Quit()
}
