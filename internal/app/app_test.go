package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Strob0t/contactrelay/internal/adapter/memory"
	"github.com/Strob0t/contactrelay/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "Template1.html"),
		[]byte("<p>#NAME# thanks #SUBMITTER_NAME#</p>"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := config.Defaults()
	cfg.Mailer.Driver = "memory"
	cfg.Templates.Dir = dir
	cfg.Templates.CacheEnabled = true
	cfg.Profile.Name = "Alex Operator"
	cfg.Profile.Email = "alex@example.org"
	return &cfg
}

func TestBuild_ServesSubmissions(t *testing.T) {
	cfg := testConfig(t)
	a, err := Build(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer func() { _ = a.Close(context.Background()) }()

	body := `{"email":"jane@example.com","name":"Jane Doe","message":"Hello"}`
	req := httptest.NewRequest(http.MethodPost, "/api/contact/send-email", strings.NewReader(body))
	rec := httptest.NewRecorder()
	a.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	m, ok := a.Mailer.(*memory.Mailer)
	if !ok {
		t.Fatalf("expected memory mailer, got %T", a.Mailer)
	}
	sent := m.Sent()
	if len(sent) != 1 || sent[0].HTML != "<p>Alex Operator thanks Jane Doe</p>" {
		t.Errorf("unexpected sent messages %+v", sent)
	}
	if sent[0].From.Email != "alex@example.org" {
		t.Errorf("expected profile email as fallback sender, got %q", sent[0].From.Email)
	}
}

func TestBuild_UnknownDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.Mailer.Driver = "carrier-pigeon"
	if _, err := Build(context.Background(), cfg); err == nil {
		t.Fatal("expected error for unknown mailer driver")
	}
}

func TestSenderAddress(t *testing.T) {
	cfg := config.Defaults()
	if _, err := SenderAddress(&cfg); err == nil {
		t.Error("expected error without username or profile email")
	}

	cfg.SMTP.Username = "relay@example.org"
	cfg.Profile.Email = "alex@example.org"
	from, err := SenderAddress(&cfg)
	if err != nil {
		t.Fatal(err)
	}
	if from.Email != "relay@example.org" || from.Name != "Contact Form" {
		t.Errorf("unexpected sender %+v", from)
	}
}

func TestApplySecrets(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "smtp_password"), []byte("from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg := config.Defaults()
	cfg.SMTP.Username = "relay@example.org"
	cfg.SMTP.Password = "from-env"
	cfg.Secrets.Dir = dir

	if err := ApplySecrets(&cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.SMTP.Password != "from-file" {
		t.Errorf("expected secrets dir to win, got %q", cfg.SMTP.Password)
	}
	if cfg.SMTP.Username != "relay@example.org" {
		t.Errorf("username without secret file must be kept, got %q", cfg.SMTP.Username)
	}
}

func TestMailerSettings(t *testing.T) {
	cfg := config.Defaults()
	s := MailerSettings(cfg.SMTP)
	if s["port"] != "587" || s["tls"] != "starttls" || s["command_timeout"] != "30s" {
		t.Errorf("unexpected settings %v", s)
	}
}

func TestBuild_IdempotencyKeyPreventsDuplicateEmail(t *testing.T) {
	cfg := testConfig(t)
	a, err := Build(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer func() { _ = a.Close(context.Background()) }()

	body := `{"email":"jane@example.com","name":"Jane Doe","message":"Hello"}`
	for i := range 2 {
		req := httptest.NewRequest(http.MethodPost, "/api/contact/send-email", strings.NewReader(body))
		req.Header.Set("Idempotency-Key", "retry-1")
		rec := httptest.NewRecorder()
		a.Handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
	}
	if got := len(a.Mailer.(*memory.Mailer).Sent()); got != 1 {
		t.Errorf("expected a single email for a repeated key, got %d", got)
	}
}
