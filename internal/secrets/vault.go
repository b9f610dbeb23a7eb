// Package secrets holds credentials loaded once at startup from the
// environment or a directory of secret files.
package secrets

import (
	"fmt"
	"maps"
	"strings"
	"sync"
)

// Well-known secret keys.
const (
	SMTPUsername = "smtp_username"
	SMTPPassword = "smtp_password"
)

// Loader retrieves secrets from a source.
type Loader func() (map[string]string, error)

// Vault holds secret values in memory. It is read-only after construction.
type Vault struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewVault creates a Vault populated by a single call to loader.
func NewVault(loader Loader) (*Vault, error) {
	vals, err := loader()
	if err != nil {
		return nil, fmt.Errorf("load secrets: %w", err)
	}
	if vals == nil {
		vals = map[string]string{}
	}
	return &Vault{values: vals}, nil
}

// Get returns the secret for key, or an empty string if not found.
func (v *Vault) Get(key string) string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.values[key]
}

// Redacted returns a log-safe form of the secret: the first two characters
// followed by asterisks, or only asterisks for short values.
func (v *Vault) Redacted(key string) string {
	val := v.Get(key)
	switch {
	case val == "":
		return ""
	case len(val) <= 4:
		return "****"
	default:
		return val[:2] + "****"
	}
}

// Chain merges the results of loaders in order; later loaders win.
func Chain(loaders ...Loader) Loader {
	return func() (map[string]string, error) {
		out := map[string]string{}
		for _, l := range loaders {
			vals, err := l()
			if err != nil {
				return nil, err
			}
			maps.Copy(out, vals)
		}
		return out, nil
	}
}

func trimSecret(s string) string {
	return strings.TrimRight(s, "\r\n")
}
