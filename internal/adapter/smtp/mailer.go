// Package smtp implements the mailer port over an SMTP relay using
// STARTTLS and SASL PLAIN. Each Send opens, uses and closes its own
// connection; nothing is pooled.
package smtp

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-sasl"
	gosmtp "github.com/emersion/go-smtp"

	crotel "github.com/Strob0t/contactrelay/internal/adapter/otel"
	"github.com/Strob0t/contactrelay/internal/domain/delivery"
	"github.com/Strob0t/contactrelay/internal/port/mailer"
)

// TLS modes.
const (
	TLSStartTLS = "starttls"
	TLSNone     = "none"
)

// quitTimeout bounds the best-effort QUIT sent on failure paths.
const quitTimeout = 2 * time.Second

// Config holds the relay settings.
type Config struct {
	Host           string
	Port           int
	Username       string
	Password       string
	TLS            string // TLSStartTLS (default) or TLSNone
	DialTimeout    time.Duration
	CommandTimeout time.Duration
}

// Option customises a Mailer.
type Option func(*Mailer)

// WithTLSConfig overrides the TLS client configuration used for STARTTLS.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(m *Mailer) { m.tlsConfig = cfg }
}

// WithAttemptObserver registers fn to receive every finished attempt.
func WithAttemptObserver(fn func(*delivery.Attempt)) Option {
	return func(m *Mailer) { m.observe = fn }
}

// Mailer sends messages through an SMTP relay.
type Mailer struct {
	cfg       Config
	addr      string
	tlsConfig *tls.Config
	observe   func(*delivery.Attempt)
	now       func() time.Time
}

// New creates an SMTP mailer. Host and port are required.
func New(cfg Config, opts ...Option) (*Mailer, error) {
	if cfg.Host == "" || cfg.Port == 0 {
		return nil, fmt.Errorf("smtp host and port are required: %w", mailer.ErrNotConfigured)
	}
	if cfg.TLS == "" {
		cfg.TLS = TLSStartTLS
	}
	if cfg.TLS != TLSStartTLS && cfg.TLS != TLSNone {
		return nil, fmt.Errorf("unknown tls mode %q: %w", cfg.TLS, mailer.ErrNotConfigured)
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = 30 * time.Second
	}

	m := &Mailer{
		cfg:  cfg,
		addr: net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		tlsConfig: &tls.Config{
			ServerName: cfg.Host,
			MinVersion: tls.VersionTLS12,
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Name returns the driver identifier.
func (m *Mailer) Name() string { return "smtp" }

// Send runs one attempt: connect, STARTTLS, AUTH, MAIL/RCPT/DATA, QUIT.
// There is no retry. The returned error wraps mailer.ErrConnect,
// mailer.ErrAuth or mailer.ErrSend, or is the context error when ctx ended first.
func (m *Mailer) Send(ctx context.Context, msg mailer.Message) error {
	ctx, span := crotel.StartSMTPSpan(ctx, m.addr)
	defer span.End()

	attempt := delivery.NewAttempt()
	err := m.send(ctx, attempt, msg)
	m.finish(ctx, attempt, err)
	if err != nil {
		span.RecordError(err)
	}
	return err
}

// Verify checks that the relay is reachable and accepts the credentials,
// without sending anything.
func (m *Mailer) Verify(ctx context.Context) error {
	attempt := delivery.NewAttempt()
	s, err := m.open(ctx, attempt)
	if err != nil {
		m.finish(ctx, attempt, err)
		return err
	}
	s.quit(ctx, attempt)
	return nil
}

func (m *Mailer) send(ctx context.Context, a *delivery.Attempt, msg mailer.Message) error {
	if err := ctx.Err(); err != nil {
		_ = a.Fail(err)
		return err
	}

	body, err := buildMessage(&msg, m.now())
	if err != nil {
		_ = a.Fail(err)
		return fmt.Errorf("build message: %w", err)
	}

	s, err := m.open(ctx, a)
	if err != nil {
		return err
	}

	if err := s.checkpoint(ctx); err != nil {
		return s.abort(ctx, a, err, nil)
	}
	if err := a.Advance(delivery.StateSending); err != nil {
		return s.abort(ctx, a, err, nil)
	}
	slog.DebugContext(ctx, "sending message", "recipients", len(msg.Recipients()))
	if err := s.client.SendMail(msg.From.Email, msg.Recipients(), bytes.NewReader(body)); err != nil {
		return s.abort(ctx, a, err, mailer.ErrSend)
	}
	if err := a.Advance(delivery.StateSent); err != nil {
		return s.abort(ctx, a, err, nil)
	}

	s.quit(ctx, a)
	return nil
}

// open dials the relay, upgrades with STARTTLS and authenticates.
// On success the attempt is Authenticated and the caller owns the session.
func (m *Mailer) open(ctx context.Context, a *delivery.Attempt) (*session, error) {
	if err := ctx.Err(); err != nil {
		_ = a.Fail(err)
		return nil, err
	}
	if err := a.Advance(delivery.StateConnecting); err != nil {
		return nil, err
	}

	slog.DebugContext(ctx, "connecting to smtp relay", "addr", m.addr, "tls", m.cfg.TLS)
	dialer := net.Dialer{Timeout: m.cfg.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", m.addr)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		} else {
			err = fmt.Errorf("%w: %w", mailer.ErrConnect, err)
		}
		_ = a.Fail(err)
		return nil, err
	}

	s, err := newSession(ctx, conn, m.cfg.TLS == TLSStartTLS, m.tlsConfig.Clone(), m.cfg.CommandTimeout)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		} else {
			err = fmt.Errorf("%w: starttls: %w", mailer.ErrConnect, err)
		}
		_ = a.Fail(err)
		return nil, err
	}
	if err := a.Advance(delivery.StateConnected); err != nil {
		return nil, s.abort(ctx, a, err, nil)
	}
	slog.DebugContext(ctx, "connected to smtp relay")

	if err := s.checkpoint(ctx); err != nil {
		return nil, s.abort(ctx, a, err, nil)
	}
	if err := a.Advance(delivery.StateAuthenticating); err != nil {
		return nil, s.abort(ctx, a, err, nil)
	}
	if m.cfg.Username != "" {
		if err := s.client.Auth(sasl.NewPlainClient("", m.cfg.Username, m.cfg.Password)); err != nil {
			return nil, s.abort(ctx, a, err, mailer.ErrAuth)
		}
	} else {
		slog.DebugContext(ctx, "no smtp username configured, skipping AUTH")
	}
	if err := a.Advance(delivery.StateAuthenticated); err != nil {
		return nil, s.abort(ctx, a, err, nil)
	}
	slog.DebugContext(ctx, "smtp client authenticated")

	return s, nil
}

func (m *Mailer) finish(ctx context.Context, a *delivery.Attempt, err error) {
	switch {
	case err == nil:
		slog.InfoContext(ctx, "smtp attempt finished",
			"state", a.State(), "duration_ms", a.Elapsed().Milliseconds())
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		slog.InfoContext(ctx, "smtp attempt cancelled",
			"failed_in", a.FailedIn(), "error", err)
	default:
		slog.WarnContext(ctx, "smtp attempt failed",
			"failed_in", a.FailedIn(), "duration_ms", a.Elapsed().Milliseconds(), "error", err)
	}
	if m.observe != nil {
		m.observe(a)
	}
}

// session is one open relay connection.
type session struct {
	client *gosmtp.Client
	// stop detaches the cancellation hook; it reports false when the hook
	// already fired and closed the connection.
	stop func() bool
}

// newSession wraps conn in an SMTP client, upgrading it with STARTTLS
// first when startTLS is set. The upgrade is bounded by commandTimeout.
// On error the connection is closed.
func newSession(ctx context.Context, conn net.Conn, startTLS bool, tlsConfig *tls.Config, commandTimeout time.Duration) (*session, error) {
	// Cancellation mid-command unblocks the pending read/write by closing the socket.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })

	var client *gosmtp.Client
	if startTLS {
		handshake := time.AfterFunc(commandTimeout, func() { _ = conn.Close() })
		c, err := gosmtp.NewClientStartTLS(conn, tlsConfig)
		expired := !handshake.Stop()
		if err != nil {
			stop()
			_ = conn.Close()
			if expired {
				err = fmt.Errorf("handshake timed out after %s: %w", commandTimeout, err)
			}
			return nil, err
		}
		client = c
	} else {
		client = gosmtp.NewClient(conn)
	}
	client.CommandTimeout = commandTimeout
	client.SubmissionTimeout = commandTimeout

	return &session{client: client, stop: stop}, nil
}

// checkpoint is an explicit cancellation point between protocol steps.
func (s *session) checkpoint(ctx context.Context) error {
	return ctx.Err()
}

// abort fails the attempt and tears the session down, sending a
// best-effort QUIT when the connection is still usable. cause is the raw
// error; kind, when non-nil, classifies it. A context error always wins
// over the I/O error it caused.
func (s *session) abort(ctx context.Context, a *delivery.Attempt, cause, kind error) error {
	err := cause
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
	} else if kind != nil {
		err = fmt.Errorf("%w: %w", kind, cause)
	}
	_ = a.Fail(err)

	// After cancellation the hook has already closed the socket and no
	// QUIT can follow; a relay-side failure leaves it intact.
	if s.stop() {
		s.client.CommandTimeout = quitTimeout
		_ = s.client.Quit()
	}
	_ = s.client.Close()
	return err
}

// quit ends a successful session. A failed QUIT does not undo delivery.
func (s *session) quit(ctx context.Context, a *delivery.Attempt) {
	if s.stop() {
		if err := s.client.Quit(); err != nil {
			slog.DebugContext(ctx, "smtp quit failed", "error", err)
		}
	}
	_ = s.client.Close()

	// A verify-only session never sends, so it stays Authenticated.
	if a.State() == delivery.StateSent {
		_ = a.Advance(delivery.StateDisconnected)
	}
	slog.DebugContext(ctx, "disconnected from smtp relay")
}
