// Package memory provides an in-process mailer that records messages
// instead of sending them.
package memory

import (
	"context"
	"sync"

	"github.com/Strob0t/contactrelay/internal/port/mailer"
)

func init() {
	mailer.Register("memory", func(map[string]string) (mailer.Mailer, error) {
		return New(), nil
	})
}

// Mailer stores every message it is asked to send.
type Mailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

// New returns an empty memory mailer.
func New() *Mailer { return &Mailer{} }

// Name returns the driver identifier.
func (m *Mailer) Name() string { return "memory" }

// Send records msg, or returns the injected failure.
func (m *Mailer) Send(ctx context.Context, msg mailer.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

// FailWith makes subsequent sends return err. Pass nil to recover.
func (m *Mailer) FailWith(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

// Sent returns a copy of the recorded messages.
func (m *Mailer) Sent() []mailer.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]mailer.Message, len(m.sent))
	copy(out, m.sent)
	return out
}
