package secrets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// EnvLoader reads secrets from environment variables. vars maps secret key
// to variable name; unset variables are omitted.
func EnvLoader(vars map[string]string) Loader {
	return func() (map[string]string, error) {
		vals := make(map[string]string, len(vars))
		for key, name := range vars {
			if v := os.Getenv(name); v != "" {
				vals[key] = v
			}
		}
		return vals, nil
	}
}

// DirLoader reads one file per key from dir, as mounted by Docker or
// Kubernetes secrets. Missing files are omitted; an empty dir disables it.
func DirLoader(dir string, keys ...string) Loader {
	return func() (map[string]string, error) {
		vals := make(map[string]string, len(keys))
		if dir == "" {
			return vals, nil
		}
		for _, key := range keys {
			b, err := os.ReadFile(filepath.Join(dir, key))
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("read secret %s: %w", key, err)
			}
			if v := trimSecret(string(b)); v != "" {
				vals[key] = v
			}
		}
		return vals, nil
	}
}
