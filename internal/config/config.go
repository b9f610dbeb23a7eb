// Package config provides hierarchical configuration loading for contactrelay.
// Precedence: defaults < YAML file < environment variables.
package config

import "time"

// Config holds all runtime configuration for the contact relay service.
type Config struct {
	Server    Server    `yaml:"server"`
	SMTP      SMTP      `yaml:"smtp"`
	Profile   Profile   `yaml:"profile"`
	Templates Templates `yaml:"templates"`
	Mail      Mail      `yaml:"mail"`
	Mailer    Mailer    `yaml:"mailer"`
	Logging   Logging   `yaml:"logging"`
	Breaker   Breaker   `yaml:"breaker"`
	Rate      Rate      `yaml:"rate"`
	OTEL      OTEL      `yaml:"otel"`
	Secrets   Secrets   `yaml:"secrets"`
	Idem      Idem      `yaml:"idempotency"`
}

// Server holds HTTP server configuration.
type Server struct {
	Port           string        `yaml:"port"`
	CORSOrigins    []string      `yaml:"cors_origins"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	BodyLimit      int64         `yaml:"body_limit"` // Max request body in bytes (default: 16 KiB)
	LegacySunset   string        `yaml:"legacy_sunset"` // YYYY-MM-DD; when set, root routes carry Deprecation/Sunset headers
}

// Sunset parses LegacySunset as a date (YYYY-MM-DD). The zero time means unset.
func (s Server) Sunset() (time.Time, error) {
	if s.LegacySunset == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.DateOnly, s.LegacySunset)
}

// SMTP holds the relay connection settings. Immutable after startup.
type SMTP struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	Username       string        `yaml:"username"`
	Password       string        `yaml:"password"`
	DisplayName    string        `yaml:"display_name"`
	TLS            string        `yaml:"tls"` // "starttls" | "none"
	DialTimeout    time.Duration `yaml:"dial_timeout"`
	CommandTimeout time.Duration `yaml:"command_timeout"`
	MaxSessions    int           `yaml:"max_sessions"` // concurrent relay connections; 0 = unlimited
}

// Profile holds the operator's own identity fields substituted into templates.
type Profile struct {
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Contact  string `yaml:"contact"`
	Website  string `yaml:"website"`
	Github   string `yaml:"github"`
	LinkedIn string `yaml:"linkedin"`
	Whatsapp string `yaml:"whatsapp"`
	Address  string `yaml:"address"`
}

// Templates holds template lookup and caching configuration.
type Templates struct {
	Dir                   string        `yaml:"dir"`
	Name                  string        `yaml:"name"`
	KeepUnsetPlaceholders bool          `yaml:"keep_unset_placeholders"` // leave #TOKEN# in place when the profile field is empty
	CacheEnabled          bool          `yaml:"cache_enabled"`
	CacheMaxMB            int64         `yaml:"cache_max_mb"`
	CacheTTL              time.Duration `yaml:"cache_ttl"`
}

// Mail holds fixed properties of the outgoing message.
type Mail struct {
	Subject        string `yaml:"subject"`
	OperatorPolicy string `yaml:"operator_policy"` // "bcc" | "to"
}

// Mailer selects the delivery backend.
type Mailer struct {
	Driver string `yaml:"driver"` // "smtp" | "log" | "memory"
}

// Logging holds structured logging configuration.
type Logging struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
	Async   bool   `yaml:"async"`
}

// Breaker holds relay circuit breaker configuration.
type Breaker struct {
	MaxFailures int           `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Rate holds rate limiter configuration for the send endpoints.
type Rate struct {
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	CleanupInterval   time.Duration `yaml:"cleanup_interval"`
	MaxIdleTime       time.Duration `yaml:"max_idle_time"`
}

// OTEL holds OpenTelemetry exporter configuration.
type OTEL struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	Insecure    bool   `yaml:"insecure"`
	ServiceName string `yaml:"service_name"`
}

// Idem holds Idempotency-Key replay settings for the send endpoints.
type Idem struct {
	Enabled    bool          `yaml:"enabled"`
	TTL        time.Duration `yaml:"ttl"`
	CacheMaxMB int64         `yaml:"cache_max_mb"`
}

// Secrets points at an optional directory of secret files (one file per key).
type Secrets struct {
	Dir string `yaml:"dir"`
}

// Operator policies for addressing the profile owner.
const (
	OperatorBCC = "bcc"
	OperatorTo  = "to"
)

// SMTP TLS modes.
const (
	TLSStartTLS = "starttls"
	TLSNone     = "none"
)

// Defaults returns a Config with sensible default values for local development.
func Defaults() Config {
	return Config{
		Server: Server{
			Port:           "8080",
			CORSOrigins:    []string{"http://localhost:3000"},
			RequestTimeout: 30 * time.Second,
			BodyLimit:      16 << 10,
		},
		SMTP: SMTP{
			Host:           "localhost",
			Port:           587,
			DisplayName:    "Contact Form",
			TLS:            TLSStartTLS,
			DialTimeout:    10 * time.Second,
			CommandTimeout: 30 * time.Second,
			MaxSessions:    4,
		},
		Templates: Templates{
			Dir:        "templates",
			Name:       "Template1.html",
			CacheMaxMB: 4,
			CacheTTL:   time.Hour,
		},
		Mail: Mail{
			Subject:        "Thank you for reaching out!",
			OperatorPolicy: OperatorBCC,
		},
		Mailer: Mailer{
			Driver: "smtp",
		},
		Logging: Logging{
			Level:   "info",
			Service: "contactrelay",
		},
		Breaker: Breaker{
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		},
		Rate: Rate{
			RequestsPerSecond: 0.2,
			Burst:             5,
			CleanupInterval:   5 * time.Minute,
			MaxIdleTime:       10 * time.Minute,
		},
		Idem: Idem{
			Enabled:    true,
			TTL:        24 * time.Hour,
			CacheMaxMB: 8,
		},
		OTEL: OTEL{
			Endpoint:    "localhost:4317",
			Insecure:    true,
			ServiceName: "contactrelay",
		},
	}
}
