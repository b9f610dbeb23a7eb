// Package contact defines the contact-form submission, the operator profile
// and the placeholder rendering rules for the notification template.
package contact

import (
	"fmt"
	"strings"

	"github.com/Strob0t/contactrelay/internal/domain"
)

// ErrTemplateNotFound is returned when the configured template file does not exist.
// It matches domain.ErrNotFound with errors.Is.
var ErrTemplateNotFound = fmt.Errorf("template %w", domain.ErrNotFound)

// Submission is a single contact-form payload. It lives for one request only.
type Submission struct {
	Email   string `json:"email" validate:"required,email"`
	Name    string `json:"name" validate:"required,min=2,max=100,alphaspace"`
	Message string `json:"message" validate:"required,max=500"`
}

// Profile holds the site operator's own contact details. Loaded once at
// startup and shared read-only across requests.
type Profile struct {
	Name     string
	Email    string
	Contact  string
	Website  string
	Github   string
	LinkedIn string
	Whatsapp string
	Address  string
}

// Violation is a single field-level validation failure.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every violation found in a submission.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.Field+": "+v.Message)
	}
	return domain.ErrValidation.Error() + ": " + strings.Join(msgs, "; ")
}

// Unwrap lets callers match with errors.Is(err, domain.ErrValidation).
func (e *ValidationError) Unwrap() error {
	return domain.ErrValidation
}
