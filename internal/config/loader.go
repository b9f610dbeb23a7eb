package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "contactrelay.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// The YAML path can be overridden with CONTACT_CONFIG; a missing file is not an error.
func Load() (*Config, error) {
	path := DefaultConfigFile
	if v := os.Getenv("CONTACT_CONFIG"); v != "" {
		path = v
	}
	return LoadFrom(path)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from operator config
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "CONTACT_PORT")
	setList(&cfg.Server.CORSOrigins, "CONTACT_CORS_ORIGINS")
	setDuration(&cfg.Server.RequestTimeout, "CONTACT_REQUEST_TIMEOUT")
	setInt64(&cfg.Server.BodyLimit, "CONTACT_BODY_LIMIT")
	setString(&cfg.Server.LegacySunset, "CONTACT_LEGACY_SUNSET")

	// SMTP
	setString(&cfg.SMTP.Host, "CONTACT_SMTP_HOST")
	setInt(&cfg.SMTP.Port, "CONTACT_SMTP_PORT")
	setString(&cfg.SMTP.Username, "CONTACT_SMTP_USERNAME")
	setString(&cfg.SMTP.Password, "CONTACT_SMTP_PASSWORD")
	setString(&cfg.SMTP.DisplayName, "CONTACT_SMTP_DISPLAY_NAME")
	setString(&cfg.SMTP.TLS, "CONTACT_SMTP_TLS")
	setDuration(&cfg.SMTP.DialTimeout, "CONTACT_SMTP_DIAL_TIMEOUT")
	setDuration(&cfg.SMTP.CommandTimeout, "CONTACT_SMTP_COMMAND_TIMEOUT")
	setInt(&cfg.SMTP.MaxSessions, "CONTACT_SMTP_MAX_SESSIONS")

	// Profile
	setString(&cfg.Profile.Name, "CONTACT_PROFILE_NAME")
	setString(&cfg.Profile.Email, "CONTACT_PROFILE_EMAIL")
	setString(&cfg.Profile.Contact, "CONTACT_PROFILE_CONTACT")
	setString(&cfg.Profile.Website, "CONTACT_PROFILE_WEBSITE")
	setString(&cfg.Profile.Github, "CONTACT_PROFILE_GITHUB")
	setString(&cfg.Profile.LinkedIn, "CONTACT_PROFILE_LINKEDIN")
	setString(&cfg.Profile.Whatsapp, "CONTACT_PROFILE_WHATSAPP")
	setString(&cfg.Profile.Address, "CONTACT_PROFILE_ADDRESS")

	// Templates
	setString(&cfg.Templates.Dir, "CONTACT_TEMPLATE_DIR")
	setString(&cfg.Templates.Name, "CONTACT_TEMPLATE_NAME")
	setBool(&cfg.Templates.KeepUnsetPlaceholders, "CONTACT_TEMPLATE_KEEP_UNSET")
	setBool(&cfg.Templates.CacheEnabled, "CONTACT_TEMPLATE_CACHE")
	setInt64(&cfg.Templates.CacheMaxMB, "CONTACT_TEMPLATE_CACHE_MB")
	setDuration(&cfg.Templates.CacheTTL, "CONTACT_TEMPLATE_CACHE_TTL")

	setString(&cfg.Mail.Subject, "CONTACT_MAIL_SUBJECT")
	setString(&cfg.Mail.OperatorPolicy, "CONTACT_MAIL_OPERATOR_POLICY")
	setString(&cfg.Mailer.Driver, "CONTACT_MAILER")

	setString(&cfg.Logging.Level, "CONTACT_LOG_LEVEL")
	setString(&cfg.Logging.Service, "CONTACT_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "CONTACT_LOG_ASYNC")

	setInt(&cfg.Breaker.MaxFailures, "CONTACT_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "CONTACT_BREAKER_TIMEOUT")

	setFloat64(&cfg.Rate.RequestsPerSecond, "CONTACT_RATE_RPS")
	setInt(&cfg.Rate.Burst, "CONTACT_RATE_BURST")
	setDuration(&cfg.Rate.CleanupInterval, "CONTACT_RATE_CLEANUP_INTERVAL")
	setDuration(&cfg.Rate.MaxIdleTime, "CONTACT_RATE_MAX_IDLE_TIME")

	// OpenTelemetry
	setBool(&cfg.OTEL.Enabled, "CONTACT_OTEL_ENABLED")
	setString(&cfg.OTEL.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setBool(&cfg.OTEL.Insecure, "CONTACT_OTEL_INSECURE")
	setString(&cfg.OTEL.ServiceName, "OTEL_SERVICE_NAME")

	setString(&cfg.Secrets.Dir, "CONTACT_SECRETS_DIR")

	setBool(&cfg.Idem.Enabled, "CONTACT_IDEMPOTENCY_ENABLED")
	setDuration(&cfg.Idem.TTL, "CONTACT_IDEMPOTENCY_TTL")
	setInt64(&cfg.Idem.CacheMaxMB, "CONTACT_IDEMPOTENCY_CACHE_MB")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Server.BodyLimit < 1 {
		return errors.New("server.body_limit must be >= 1")
	}
	if cfg.Templates.Dir == "" {
		return errors.New("templates.dir is required")
	}
	if cfg.Templates.Name == "" {
		return errors.New("templates.name is required")
	}
	if cfg.Mailer.Driver == "smtp" {
		if cfg.SMTP.Host == "" {
			return errors.New("smtp.host is required")
		}
		if cfg.SMTP.Port < 1 || cfg.SMTP.Port > 65535 {
			return errors.New("smtp.port must be between 1 and 65535")
		}
	}
	if cfg.SMTP.MaxSessions < 0 {
		return errors.New("smtp.max_sessions must be >= 0")
	}
	switch cfg.SMTP.TLS {
	case TLSStartTLS, TLSNone:
	default:
		return fmt.Errorf("smtp.tls must be %q or %q", TLSStartTLS, TLSNone)
	}
	switch cfg.Mail.OperatorPolicy {
	case OperatorBCC, OperatorTo:
	default:
		return fmt.Errorf("mail.operator_policy must be %q or %q", OperatorBCC, OperatorTo)
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Rate.RequestsPerSecond <= 0 {
		return errors.New("rate.requests_per_second must be > 0")
	}
	if cfg.Rate.Burst < 1 {
		return errors.New("rate.burst must be >= 1")
	}
	if cfg.Rate.CleanupInterval <= 0 {
		return errors.New("rate.cleanup_interval must be > 0")
	}
	if cfg.Rate.MaxIdleTime <= 0 {
		return errors.New("rate.max_idle_time must be > 0")
	}
	if cfg.Idem.Enabled && (cfg.Idem.TTL <= 0 || cfg.Idem.CacheMaxMB < 1) {
		return errors.New("idempotency.ttl and idempotency.cache_max_mb must be positive when enabled")
	}
	if cfg.Server.LegacySunset != "" {
		if _, err := cfg.Server.Sunset(); err != nil {
			return fmt.Errorf("server.legacy_sunset: %w", err)
		}
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// setList splits a comma-separated env value, dropping empty entries.
func setList(dst *[]string, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	*dst = out
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
