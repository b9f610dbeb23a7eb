// Package templatefs loads HTML email templates from a directory on disk
// and applies the operator profile to them.
package templatefs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	crotel "github.com/Strob0t/contactrelay/internal/adapter/otel"
	"github.com/Strob0t/contactrelay/internal/domain/contact"
	"github.com/Strob0t/contactrelay/internal/port/cache"
)

// Option customises a Loader.
type Option func(*Loader)

// WithCache keeps raw template bodies in c for ttl.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(l *Loader) {
		l.cache = c
		l.ttl = ttl
	}
}

// WithKeepUnset leaves profile markers in place when the field is empty.
func WithKeepUnset(keep bool) Option {
	return func(l *Loader) { l.keepUnset = keep }
}

// Loader reads templates from a single root directory.
type Loader struct {
	dir       string
	profile   contact.Profile
	keepUnset bool
	cache     cache.Cache
	ttl       time.Duration
	group     singleflight.Group
}

// New creates a Loader rooted at dir that renders p into every template.
func New(dir string, p contact.Profile, opts ...Option) *Loader {
	l := &Loader{dir: dir, profile: p}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load returns the named template with profile markers substituted.
// A name that does not resolve to a regular file inside the root yields
// contact.ErrTemplateNotFound.
func (l *Loader) Load(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !validName(name) {
		return "", fmt.Errorf("%q: %w", name, contact.ErrTemplateNotFound)
	}

	ctx, span := crotel.StartTemplateSpan(ctx, name)
	defer span.End()

	raw, err := l.raw(ctx, name)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	return contact.RenderProfile(raw, l.profile, l.keepUnset), nil
}

// raw returns the unrendered file content, from cache when possible.
// Concurrent loads of the same name share a single read.
func (l *Loader) raw(ctx context.Context, name string) (string, error) {
	if l.cache != nil {
		if b, ok, err := l.cache.Get(ctx, name); err == nil && ok {
			return string(b), nil
		}
	}

	// The shared read is detached from any one caller; each caller still
	// observes its own cancellation before and after.
	v, err, shared := l.group.Do(name, func() (any, error) {
		return l.read(name)
	})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}
	if err != nil {
		return "", err
	}
	if shared {
		slog.DebugContext(ctx, "template load shared", "template", name)
	}

	b := v.([]byte)
	if l.cache != nil {
		if err := l.cache.Set(ctx, name, b, l.ttl); err != nil {
			slog.WarnContext(ctx, "template cache set failed", "template", name, "error", err)
		}
	}
	return string(b), nil
}

func (l *Loader) read(name string) ([]byte, error) {
	f, err := os.OpenInRoot(l.dir, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%q: %w", name, contact.ErrTemplateNotFound)
		}
		return nil, fmt.Errorf("open template %q: %w", name, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat template %q: %w", name, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%q: %w", name, contact.ErrTemplateNotFound)
	}

	b, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read template %q: %w", name, err)
	}
	return b, nil
}

// validName rejects anything but a plain file name inside the root.
func validName(name string) bool {
	if name == "" || strings.HasPrefix(name, ".") {
		return false
	}
	return !strings.ContainsAny(name, `/\`+"\x00")
}
