package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Strob0t/contactrelay/internal/domain/contact"
	"github.com/Strob0t/contactrelay/internal/resilience"
	"github.com/Strob0t/contactrelay/internal/service"
)

// StatusClientClosedRequest is the non-standard status logged when the
// client went away before a response could be written.
const StatusClientClosedRequest = 499

const (
	statusBanner   = "Email Service API is Running"
	sentMessage    = "Email sent successfully."
	failedMessage  = "failed to send email"
	timeoutMessage = "request timed out"
)

// Submitter accepts contact form submissions.
type Submitter interface {
	Submit(ctx context.Context, s contact.Submission) (service.Receipt, error)
}

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	Contact    Submitter
	MailerName string
	Breaker    *resilience.Breaker // optional
	BodyLimit  int64
}

type sendEmailRequest struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

type sendEmailResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

type validationResponse struct {
	Errors []contact.Violation `json:"errors"`
}

type healthResponse struct {
	Status string `json:"status"`
	Mailer string `json:"mailer"`
	Relay  string `json:"relay"`
}

// Status answers the liveness banner.
func (h *Handlers) Status(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusOK, statusBanner)
}

// Health reports the mailer driver and the relay breaker position.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{Status: "ok", Mailer: h.MailerName, Relay: string(resilience.StateClosed)}
	if h.Breaker != nil {
		resp.Relay = string(h.Breaker.State())
		if h.Breaker.State() == resilience.StateOpen {
			resp.Status = "degraded"
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// SendEmail validates a submission and sends the confirmation email.
func (h *Handlers) SendEmail(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[sendEmailRequest](w, r, h.BodyLimit)
	if !ok {
		return
	}

	receipt, err := h.Contact.Submit(r.Context(), contact.Submission{
		Email:   req.Email,
		Name:    req.Name,
		Message: req.Message,
	})
	if err != nil {
		writeSubmitError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, sendEmailResponse{Message: sentMessage, ID: receipt.ID})
}

// writeSubmitError maps a Submit failure to a response. Only field
// violations reach the client verbatim.
func writeSubmitError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *contact.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, validationResponse{Errors: verr.Violations})
	case errors.Is(err, context.DeadlineExceeded):
		slog.WarnContext(r.Context(), "submission timed out", "error", err)
		writeError(w, http.StatusGatewayTimeout, timeoutMessage)
	case errors.Is(err, context.Canceled):
		slog.InfoContext(r.Context(), "client cancelled submission")
		w.WriteHeader(StatusClientClosedRequest)
	default:
		slog.ErrorContext(r.Context(), "submission failed", "error", err)
		writeError(w, http.StatusInternalServerError, failedMessage)
	}
}
