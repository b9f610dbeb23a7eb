// Package app wires configuration, adapters and services into a ready
// HTTP handler. Both the server and the Lambda entrypoint build on it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	crhttp "github.com/Strob0t/contactrelay/internal/adapter/http"
	crotel "github.com/Strob0t/contactrelay/internal/adapter/otel"
	"github.com/Strob0t/contactrelay/internal/adapter/ristretto"
	"github.com/Strob0t/contactrelay/internal/adapter/templatefs"
	"github.com/Strob0t/contactrelay/internal/config"
	"github.com/Strob0t/contactrelay/internal/domain/contact"
	"github.com/Strob0t/contactrelay/internal/middleware"
	"github.com/Strob0t/contactrelay/internal/port/mailer"
	"github.com/Strob0t/contactrelay/internal/resilience"
	"github.com/Strob0t/contactrelay/internal/secrets"
	"github.com/Strob0t/contactrelay/internal/service"

	// Mailer drivers register themselves.
	_ "github.com/Strob0t/contactrelay/internal/adapter/logmail"
	_ "github.com/Strob0t/contactrelay/internal/adapter/memory"
	_ "github.com/Strob0t/contactrelay/internal/adapter/smtp"
)

// App is the assembled service.
type App struct {
	Handler   http.Handler
	Contact   *service.ContactService
	Templates *templatefs.Loader
	Mailer    mailer.Mailer
	Limiter   *middleware.RateLimiter

	closers []func(context.Context) error
}

// Build assembles the service from cfg. Secrets found in cfg.Secrets.Dir
// override the SMTP credentials before anything is constructed.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := ApplySecrets(cfg); err != nil {
		return nil, err
	}

	a := &App{}

	shutdownOTEL, err := crotel.Setup(ctx, cfg.OTEL)
	if err != nil {
		return nil, fmt.Errorf("otel: %w", err)
	}
	a.closers = append(a.closers, shutdownOTEL)

	metrics, err := crotel.NewMetrics()
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}

	var closeCache func()
	a.Templates, closeCache, err = NewTemplates(cfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func(context.Context) error {
		closeCache()
		return nil
	})

	a.Mailer, err = mailer.New(cfg.Mailer.Driver, MailerSettings(cfg.SMTP))
	if err != nil {
		return nil, fmt.Errorf("mailer: %w", err)
	}

	from, err := SenderAddress(cfg)
	if err != nil {
		return nil, err
	}
	breaker := resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout)
	dispatcher := service.NewDispatcher(a.Mailer, breaker, service.DispatchConfig{
		From:           from,
		Operator:       mailer.Address{Name: cfg.Profile.Name, Email: cfg.Profile.Email},
		Subject:        cfg.Mail.Subject,
		OperatorPolicy: cfg.Mail.OperatorPolicy,
		MaxSessions:    cfg.SMTP.MaxSessions,
	}, metrics)
	a.Contact = service.NewContactService(contact.NewValidator(), a.Templates, cfg.Templates.Name, dispatcher, metrics)

	a.Limiter = middleware.NewRateLimiter(cfg.Rate.RequestsPerSecond, cfg.Rate.Burst)

	var idempotency func(http.Handler) http.Handler
	if cfg.Idem.Enabled {
		replays, err := ristretto.New(cfg.Idem.CacheMaxMB << 20)
		if err != nil {
			return nil, fmt.Errorf("idempotency cache: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error {
			replays.Close()
			return nil
		})
		idempotency = middleware.Idempotency(replays, cfg.Idem.TTL)
	}
	sunset, err := cfg.Server.Sunset()
	if err != nil {
		return nil, fmt.Errorf("legacy sunset: %w", err)
	}

	var serviceName string
	if cfg.OTEL.Enabled {
		serviceName = cfg.OTEL.ServiceName
	}
	a.Handler = crhttp.NewRouter(&crhttp.Handlers{
		Contact:    a.Contact,
		MailerName: a.Mailer.Name(),
		Breaker:    breaker,
		BodyLimit:  cfg.Server.BodyLimit,
	}, crhttp.RouterOptions{
		CORSOrigins:    cfg.Server.CORSOrigins,
		RequestTimeout: cfg.Server.RequestTimeout,
		Limiter:        a.Limiter,
		ServiceName:    serviceName,
		Idempotency:    idempotency,
		LegacySunset:   sunset,
	})

	slog.Info("contact relay assembled",
		"mailer", a.Mailer.Name(),
		"template", cfg.Templates.Name,
		"operator_policy", cfg.Mail.OperatorPolicy,
		"template_cache", cfg.Templates.CacheEnabled,
		"idempotency", cfg.Idem.Enabled,
	)
	return a, nil
}

// Close releases background resources in reverse order of creation.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i](ctx))
	}
	return errors.Join(errs...)
}

// NewTemplates builds the template loader, with the ristretto cache when
// enabled. The returned func releases the cache.
func NewTemplates(cfg *config.Config) (*templatefs.Loader, func(), error) {
	opts := []templatefs.Option{templatefs.WithKeepUnset(cfg.Templates.KeepUnsetPlaceholders)}
	release := func() {}
	if cfg.Templates.CacheEnabled {
		c, err := ristretto.New(cfg.Templates.CacheMaxMB << 20)
		if err != nil {
			return nil, nil, fmt.Errorf("template cache: %w", err)
		}
		opts = append(opts, templatefs.WithCache(c, cfg.Templates.CacheTTL))
		release = c.Close
	}
	return templatefs.New(cfg.Templates.Dir, Profile(cfg.Profile), opts...), release, nil
}

// Profile converts the configured operator profile.
func Profile(p config.Profile) contact.Profile {
	return contact.Profile{
		Name:     p.Name,
		Email:    p.Email,
		Contact:  p.Contact,
		Website:  p.Website,
		Github:   p.Github,
		LinkedIn: p.LinkedIn,
		Whatsapp: p.Whatsapp,
		Address:  p.Address,
	}
}

// MailerSettings flattens the SMTP section into driver settings.
func MailerSettings(s config.SMTP) map[string]string {
	return map[string]string{
		"host":            s.Host,
		"port":            strconv.Itoa(s.Port),
		"username":        s.Username,
		"password":        s.Password,
		"tls":             s.TLS,
		"dial_timeout":    s.DialTimeout.String(),
		"command_timeout": s.CommandTimeout.String(),
	}
}

// SenderAddress is the SMTP username with the display name, falling back
// to the operator's email when no username is configured.
func SenderAddress(cfg *config.Config) (mailer.Address, error) {
	email := cfg.SMTP.Username
	if email == "" {
		email = cfg.Profile.Email
	}
	if email == "" {
		return mailer.Address{}, errors.New("no sender address: set smtp.username or profile.email")
	}
	return mailer.Address{Name: cfg.SMTP.DisplayName, Email: email}, nil
}

// ApplySecrets overrides SMTP credentials with values from the secrets
// directory, read once.
func ApplySecrets(cfg *config.Config) error {
	vault, err := secrets.NewVault(secrets.DirLoader(cfg.Secrets.Dir, secrets.SMTPUsername, secrets.SMTPPassword))
	if err != nil {
		return fmt.Errorf("secrets: %w", err)
	}
	if v := vault.Get(secrets.SMTPUsername); v != "" {
		cfg.SMTP.Username = v
	}
	if v := vault.Get(secrets.SMTPPassword); v != "" {
		cfg.SMTP.Password = v
		slog.Debug("smtp password loaded from secrets dir", "password", vault.Redacted(secrets.SMTPPassword))
	}
	return nil
}
