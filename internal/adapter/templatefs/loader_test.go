package templatefs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Strob0t/contactrelay/internal/adapter/ristretto"
	"github.com/Strob0t/contactrelay/internal/domain"
	"github.com/Strob0t/contactrelay/internal/domain/contact"
)

const tmpl = `<h1>#NAME#</h1><a href="#WEBSITE#">site</a><p>#WHATSAPP#</p><p>#SUBMITTER_NAME#</p>`

func writeTemplate(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func testProfile() contact.Profile {
	return contact.Profile{Name: "Alex Operator", Website: "https://alex.example.org"}
}

func TestLoad_SubstitutesProfile(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "Template1.html", tmpl)

	l := New(dir, testProfile())
	got, err := l.Load(context.Background(), "Template1.html")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := `<h1>Alex Operator</h1><a href="https://alex.example.org">site</a><p></p><p>#SUBMITTER_NAME#</p>`
	if got != want {
		t.Errorf("unexpected render\nwant: %q\ngot:  %q", want, got)
	}
}

func TestLoad_KeepUnset(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "Template1.html", tmpl)

	l := New(dir, testProfile(), WithKeepUnset(true))
	got, err := l.Load(context.Background(), "Template1.html")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := `<h1>Alex Operator</h1><a href="https://alex.example.org">site</a><p>#WHATSAPP#</p><p>#SUBMITTER_NAME#</p>`
	if got != want {
		t.Errorf("unexpected render\nwant: %q\ngot:  %q", want, got)
	}
}

func TestLoad_NotFound(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	l := New(dir, testProfile())

	tests := []struct {
		name     string
		template string
	}{
		{"missing file", "Missing.html"},
		{"empty name", ""},
		{"parent traversal", "../etc/passwd"},
		{"nested path", "sub/Template1.html"},
		{"hidden file", ".env"},
		{"directory", "sub"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.Load(context.Background(), tt.template)
			if !errors.Is(err, contact.ErrTemplateNotFound) {
				t.Fatalf("expected ErrTemplateNotFound, got %v", err)
			}
			if !errors.Is(err, domain.ErrNotFound) {
				t.Errorf("expected error to match domain.ErrNotFound, got %v", err)
			}
		})
	}
}

func TestLoad_CancelledBeforeRead(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "Template1.html", tmpl)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(dir, testProfile()).Load(ctx, "Template1.html")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestLoad_CancelledWinsOverMissing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(t.TempDir(), testProfile()).Load(ctx, "Missing.html")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestLoad_Cached(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "Template1.html", "<p>#NAME# v1</p>")

	c, err := ristretto.New(1 << 20)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	l := New(dir, testProfile(), WithCache(c, time.Hour))
	first, err := l.Load(context.Background(), "Template1.html")
	if err != nil {
		t.Fatal(err)
	}

	writeTemplate(t, dir, "Template1.html", "<p>#NAME# v2</p>")
	second, err := l.Load(context.Background(), "Template1.html")
	if err != nil {
		t.Fatal(err)
	}
	if first != second || first != "<p>Alex Operator v1</p>" {
		t.Errorf("expected cached v1 render, got %q then %q", first, second)
	}

	// Without a cache every load reads the file.
	uncached := New(dir, testProfile())
	if got, _ := uncached.Load(context.Background(), "Template1.html"); got != "<p>Alex Operator v2</p>" {
		t.Errorf("expected fresh read, got %q", got)
	}
}

func TestLoad_Concurrent(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "Template1.html", tmpl)
	l := New(dir, testProfile())

	want, err := l.Load(context.Background(), "Template1.html")
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := l.Load(context.Background(), "Template1.html")
			if err != nil {
				errs <- err
				return
			}
			if got != want {
				errs <- errors.New("render mismatch: " + got)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
