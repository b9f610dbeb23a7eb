package logger

import "context"

type ctxKey int

const (
	requestIDKey ctxKey = iota
	submissionIDKey
)

// WithRequestID returns a new context carrying the HTTP request ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID extracts the request ID from the context, or "" if unset.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithSubmissionID returns a new context carrying the ID assigned to a contact submission.
func WithSubmissionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, submissionIDKey, id)
}

// SubmissionID extracts the submission ID from the context, or "" if unset.
func SubmissionID(ctx context.Context) string {
	id, _ := ctx.Value(submissionIDKey).(string)
	return id
}
