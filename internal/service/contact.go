// Package service contains application services.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	crotel "github.com/Strob0t/contactrelay/internal/adapter/otel"
	"github.com/Strob0t/contactrelay/internal/domain/contact"
	"github.com/Strob0t/contactrelay/internal/logger"
)

// TemplateLoader returns a template with the operator profile applied.
type TemplateLoader interface {
	Load(ctx context.Context, name string) (string, error)
}

// ContactService handles contact form submissions end to end:
// validate, load the template, render and dispatch.
type ContactService struct {
	validator    *contact.Validator
	templates    TemplateLoader
	templateName string
	dispatcher   *Dispatcher
	metrics      *crotel.Metrics
	newID        func() string
}

// NewContactService creates a ContactService. metrics may be nil.
func NewContactService(v *contact.Validator, templates TemplateLoader, templateName string, d *Dispatcher, metrics *crotel.Metrics) *ContactService {
	return &ContactService{
		validator:    v,
		templates:    templates,
		templateName: templateName,
		dispatcher:   d,
		metrics:      metrics,
		newID:        uuid.NewString,
	}
}

// Submit processes one submission. An invalid submission returns a
// *contact.ValidationError and never touches the template or the relay.
func (s *ContactService) Submit(ctx context.Context, sub contact.Submission) (Receipt, error) {
	id := s.newID()
	ctx = logger.WithSubmissionID(ctx, id)
	ctx, span := crotel.StartSubmitSpan(ctx, id)
	defer span.End()

	if s.metrics != nil {
		s.metrics.SubmissionsReceived.Add(ctx, 1)
	}

	if err := s.validator.Check(sub); err != nil {
		if s.metrics != nil {
			s.metrics.SubmissionsRejected.Add(ctx, 1)
		}
		slog.InfoContext(ctx, "submission rejected", "error", err)
		return Receipt{}, err
	}

	tmpl, err := s.templates.Load(ctx, s.templateName)
	if err != nil {
		span.RecordError(err)
		slog.ErrorContext(ctx, "template load failed", "template", s.templateName, "error", err)
		return Receipt{}, fmt.Errorf("load template: %w", err)
	}

	receipt, err := s.dispatcher.Dispatch(ctx, id, sub, tmpl)
	if err != nil {
		span.RecordError(err)
		return Receipt{}, err
	}
	return receipt, nil
}

// Render returns the email body a submission would produce, without sending it.
func (s *ContactService) Render(ctx context.Context, sub contact.Submission) (string, error) {
	tmpl, err := s.templates.Load(ctx, s.templateName)
	if err != nil {
		return "", fmt.Errorf("load template: %w", err)
	}
	return contact.RenderSubmission(tmpl, sub), nil
}
