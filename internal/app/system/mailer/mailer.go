// Package mailer delivers account emails. Mailer sends over SMTP with
// go-mail; LogNotifier stands in when no SMTP host is configured.
package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// Email is a rendered message.
type Email struct {
	To      string
	Subject string
	Body    string
}

// Notifier delivers a plain-text message. Implementations return a
// *DeliveryError when the message could not be handed off.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// DeliveryError reports a failed hand-off to the mail transport.
type DeliveryError struct {
	To  string
	Err error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("mail delivery to %s failed: %v", e.To, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Config holds SMTP settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	Timeout  time.Duration
}

// Mailer sends email through an SMTP relay.
type Mailer struct {
	cfg    Config
	logger *zap.Logger
}

// New creates a Mailer. Port defaults to 587 and Timeout to 15s.
func New(cfg Config, logger *zap.Logger) *Mailer {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Mailer{cfg: cfg, logger: logger}
}

// Send delivers one plain-text message.
func (m *Mailer) Send(ctx context.Context, to, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.FromFormat(m.cfg.FromName, m.cfg.From); err != nil {
		return &DeliveryError{To: to, Err: fmt.Errorf("from address: %w", err)}
	}
	if err := msg.To(to); err != nil {
		return &DeliveryError{To: to, Err: fmt.Errorf("to address: %w", err)}
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	client, err := mail.NewClient(m.cfg.Host, m.clientOptions()...)
	if err != nil {
		return &DeliveryError{To: to, Err: err}
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return &DeliveryError{To: to, Err: err}
	}

	m.logger.Debug("email sent", zap.String("subject", subject))
	return nil
}

func (m *Mailer) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithTimeout(m.cfg.Timeout),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}
	return opts
}

// LogNotifier writes messages to the log instead of sending them.
// Used in development when mail_smtp_host is empty.
type LogNotifier struct {
	Logger *zap.Logger
}

func (n LogNotifier) Send(_ context.Context, to, subject, body string) error {
	n.Logger.Info("email (not sent: no SMTP host configured)",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", body))
	return nil
}
