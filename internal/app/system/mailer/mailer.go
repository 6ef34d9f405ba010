// internal/app/system/mailer/mailer.go
package mailer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/waffle/pantry/email"
	"go.uber.org/zap"
)

// Email is one outgoing message.
type Email struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// Sender delivers email. Implementations stop when ctx is done.
type Sender interface {
	Send(ctx context.Context, msg Email) error
}

// Config holds SMTP settings.
type Config struct {
	Host     string
	Port     int
	User     string
	Pass     string
	From     string
	FromName string
	// UseSSL selects implicit TLS (port 465). Otherwise STARTTLS is required.
	UseSSL bool
	// Timeout bounds each SMTP exchange. Zero uses the waffle default.
	Timeout time.Duration
}

// ErrNoRecipient is returned for a message without a To address.
var ErrNoRecipient = errors.New("mailer: empty recipient")

// Mailer sends email over SMTP through waffle's email.Sender.
type Mailer struct {
	log  *zap.Logger
	send func(ctx context.Context, msg email.Message) error
}

// New creates a Mailer. Authentication is used only when cfg.User is set.
func New(cfg Config, log *zap.Logger) *Mailer {
	s := email.NewSender(email.Config{
		Host:        cfg.Host,
		Port:        cfg.Port,
		Username:    cfg.User,
		Password:    cfg.Pass,
		FromAddress: cfg.From,
		FromName:    cfg.FromName,
		UseSSL:      cfg.UseSSL,
		Timeout:     cfg.Timeout,
	})
	return &Mailer{log: log, send: s.Send}
}

// Send delivers msg as a text message with an HTML alternative.
func (m *Mailer) Send(ctx context.Context, msg Email) error {
	if msg.To == "" {
		return ErrNoRecipient
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mailer: send to %s: %w", msg.To, err)
	}
	err := m.send(ctx, email.Message{
		To:       []string{msg.To},
		Subject:  msg.Subject,
		TextBody: msg.TextBody,
		HTMLBody: msg.HTMLBody,
	})
	if err != nil {
		return fmt.Errorf("mailer: send to %s: %w", msg.To, err)
	}
	if m.log != nil {
		m.log.Debug("email sent", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	}
	return nil
}

// LogSender writes messages to the log instead of delivering them. It is used
// when no SMTP host is configured.
type LogSender struct {
	Log *zap.Logger
}

func (s LogSender) Send(ctx context.Context, msg Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.Log.Info("email (not delivered)",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("text", msg.TextBody),
	)
	return nil
}
