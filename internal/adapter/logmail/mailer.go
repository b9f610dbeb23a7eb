// Package logmail provides a development mailer that logs messages
// instead of delivering them.
package logmail

import (
	"context"
	"log/slog"

	"github.com/Strob0t/contactrelay/internal/port/mailer"
)

func init() {
	mailer.Register("log", func(map[string]string) (mailer.Mailer, error) {
		return New(slog.Default()), nil
	})
}

// Mailer writes each message to a logger.
type Mailer struct {
	log *slog.Logger
}

// New returns a mailer that logs to l.
func New(l *slog.Logger) *Mailer { return &Mailer{log: l} }

// Name returns the driver identifier.
func (m *Mailer) Name() string { return "log" }

// Send logs the envelope and body size. It never fails unless ctx is done.
func (m *Mailer) Send(ctx context.Context, msg mailer.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.log.InfoContext(ctx, "email not sent (log mailer)",
		"id", msg.ID,
		"from", msg.From.Email,
		"recipients", msg.Recipients(),
		"subject", msg.Subject,
		"body_bytes", len(msg.HTML),
	)
	return nil
}
