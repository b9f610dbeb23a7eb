package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	crotel "github.com/Strob0t/contactrelay/internal/adapter/otel"
	"github.com/Strob0t/contactrelay/internal/config"
	"github.com/Strob0t/contactrelay/internal/domain/contact"
	"github.com/Strob0t/contactrelay/internal/port/mailer"
	"github.com/Strob0t/contactrelay/internal/resilience"
)

// Receipt confirms that the relay accepted a submission's email.
type Receipt struct {
	ID     string    `json:"id"`
	SentAt time.Time `json:"sent_at"`
}

// DispatchConfig fixes the addressing of outgoing mail.
type DispatchConfig struct {
	From           mailer.Address
	Operator       mailer.Address // zero value: no operator copy
	Subject        string
	OperatorPolicy string // config.OperatorBCC or config.OperatorTo
	MaxSessions    int    // concurrent relay sessions; 0 means unlimited
}

// Dispatcher turns a rendered template into one outgoing message and
// hands it to the mailer through the session pool and the relay circuit
// breaker. There is no retry.
type Dispatcher struct {
	mailer  mailer.Mailer
	breaker *resilience.Breaker
	pool    *resilience.Pool
	cfg     DispatchConfig
	metrics *crotel.Metrics
	now     func() time.Time
}

// NewDispatcher creates a Dispatcher. breaker and metrics may be nil.
func NewDispatcher(m mailer.Mailer, breaker *resilience.Breaker, cfg DispatchConfig, metrics *crotel.Metrics) *Dispatcher {
	if cfg.OperatorPolicy == "" {
		cfg.OperatorPolicy = config.OperatorBCC
	}
	var pool *resilience.Pool
	if cfg.MaxSessions > 0 {
		pool = resilience.NewPool(cfg.MaxSessions)
	}
	return &Dispatcher{
		mailer:  m,
		breaker: breaker,
		pool:    pool,
		cfg:     cfg,
		metrics: metrics,
		now:     time.Now,
	}
}

// Message builds the outgoing message for a submission without sending it.
func (d *Dispatcher) Message(id string, s contact.Submission, tmpl string) mailer.Message {
	msg := mailer.Message{
		ID:      id,
		From:    d.cfg.From,
		To:      []mailer.Address{{Name: s.Name, Email: s.Email}},
		Subject: d.cfg.Subject,
		HTML:    contact.RenderSubmission(tmpl, s),
	}
	if d.cfg.Operator.Email != "" {
		if d.cfg.OperatorPolicy == config.OperatorTo {
			msg.To = append(msg.To, d.cfg.Operator)
		} else {
			msg.Bcc = []mailer.Address{d.cfg.Operator}
		}
	}
	return msg
}

// Dispatch substitutes the submitter into tmpl and sends the result.
func (d *Dispatcher) Dispatch(ctx context.Context, id string, s contact.Submission, tmpl string) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}
	msg := d.Message(id, s, tmpl)

	start := d.now()
	err := d.pool.Run(ctx, func(ctx context.Context) error {
		send := func(ctx context.Context) error { return d.mailer.Send(ctx, msg) }
		if d.breaker != nil {
			return d.breaker.Execute(ctx, send)
		}
		return send(ctx)
	})
	elapsed := d.now().Sub(start)

	if d.metrics != nil {
		d.metrics.DispatchDuration.Record(ctx, elapsed.Seconds(),
			metric.WithAttributes(attribute.String("mailer", d.mailer.Name())))
	}

	if err != nil {
		reason := failureReason(err)
		if d.metrics != nil {
			d.metrics.SubmissionsFailed.Add(ctx, 1,
				metric.WithAttributes(attribute.String("reason", reason)))
		}
		slog.WarnContext(ctx, "email dispatch failed",
			"mailer", d.mailer.Name(), "reason", reason, "error", err)
		return Receipt{}, fmt.Errorf("dispatch: %w", err)
	}

	if d.metrics != nil {
		d.metrics.SubmissionsDelivered.Add(ctx, 1)
	}
	slog.InfoContext(ctx, "email dispatched",
		"mailer", d.mailer.Name(), "recipients", len(msg.Recipients()),
		"duration_ms", elapsed.Milliseconds())
	return Receipt{ID: id, SentAt: d.now().UTC()}, nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, resilience.ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, mailer.ErrConnect):
		return "connect"
	case errors.Is(err, mailer.ErrAuth):
		return "auth"
	case errors.Is(err, mailer.ErrSend):
		return "send"
	default:
		return "other"
	}
}
