// Package mailer defines the outbound mail port and its delivery errors.
package mailer

import (
	"context"
	"errors"
)

// Delivery failure kinds. Adapters wrap the underlying cause with one of these.
var (
	ErrConnect = errors.New("mailer: connect to relay failed")
	ErrAuth    = errors.New("mailer: relay authentication failed")
	ErrSend    = errors.New("mailer: relay rejected message")

	// ErrNotConfigured is returned by factories when required settings are missing.
	ErrNotConfigured = errors.New("mailer: not configured")
)

// Address is a mailbox with an optional display name.
type Address struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

// Message is a fully rendered outgoing email.
// Bcc recipients receive the message but never appear in its headers.
type Message struct {
	ID      string    `json:"id"`
	From    Address   `json:"from"`
	To      []Address `json:"to"`
	Bcc     []Address `json:"bcc,omitempty"`
	Subject string    `json:"subject"`
	HTML    string    `json:"html"`
}

// Recipients returns the envelope recipients: every To followed by every Bcc.
func (m *Message) Recipients() []string {
	out := make([]string, 0, len(m.To)+len(m.Bcc))
	for _, a := range m.To {
		out = append(out, a.Email)
	}
	for _, a := range m.Bcc {
		out = append(out, a.Email)
	}
	return out
}

// Mailer delivers a rendered message. Send returns nil only when the relay
// accepted the message. Implementations must honour ctx cancellation.
type Mailer interface {
	// Name returns the driver identifier (e.g. "smtp", "log", "memory").
	Name() string

	Send(ctx context.Context, msg Message) error
}
