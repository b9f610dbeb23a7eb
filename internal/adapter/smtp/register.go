package smtp

import (
	"fmt"
	"strconv"
	"time"

	"github.com/Strob0t/contactrelay/internal/port/mailer"
)

func init() {
	mailer.Register("smtp", func(settings map[string]string) (mailer.Mailer, error) {
		port, err := strconv.Atoi(settings["port"])
		if err != nil {
			return nil, fmt.Errorf("smtp port %q: %w", settings["port"], mailer.ErrNotConfigured)
		}
		return New(Config{
			Host:           settings["host"],
			Port:           port,
			Username:       settings["username"],
			Password:       settings["password"],
			TLS:            settings["tls"],
			DialTimeout:    parseDuration(settings["dial_timeout"]),
			CommandTimeout: parseDuration(settings["command_timeout"]),
		})
	})
}

// parseDuration returns zero for empty or malformed values so New applies its default.
func parseDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}
