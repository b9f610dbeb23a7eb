package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/Strob0t/contactrelay/internal/adapter/ristretto"
	"github.com/Strob0t/contactrelay/internal/port/cache"
)

// runComplianceTests runs the standard suite against any Cache implementation.
func runComplianceTests(t *testing.T, c cache.Cache) {
	t.Helper()
	ctx := context.Background()

	t.Run("SetAndGet", func(t *testing.T) {
		if err := c.Set(ctx, "Template1.html", []byte("<p>#SUBMITTER_NAME#</p>"), time.Minute); err != nil {
			t.Fatal(err)
		}
		val, found, err := c.Get(ctx, "Template1.html")
		if err != nil {
			t.Fatal(err)
		}
		if !found {
			t.Fatal("expected found after Set")
		}
		if string(val) != "<p>#SUBMITTER_NAME#</p>" {
			t.Fatalf("unexpected value %q", val)
		}
	})

	t.Run("GetMiss", func(t *testing.T) {
		_, found, err := c.Get(ctx, "missing.html")
		if err != nil {
			t.Fatal(err)
		}
		if found {
			t.Fatal("expected miss for unknown key")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		_ = c.Set(ctx, "del.html", []byte("x"), time.Minute)
		if err := c.Delete(ctx, "del.html"); err != nil {
			t.Fatal(err)
		}
		if _, found, _ := c.Get(ctx, "del.html"); found {
			t.Fatal("expected miss after Delete")
		}
	})

	t.Run("DeleteNonexistent", func(t *testing.T) {
		if err := c.Delete(ctx, "never-existed"); err != nil {
			t.Fatal("Delete of unknown key should not error")
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		_ = c.Set(ctx, "ow.html", []byte("v1"), time.Minute)
		_ = c.Set(ctx, "ow.html", []byte("v2"), time.Minute)
		val, found, err := c.Get(ctx, "ow.html")
		if err != nil {
			t.Fatal(err)
		}
		if !found || string(val) != "v2" {
			t.Fatalf("expected v2 after overwrite, got %q (found=%v)", val, found)
		}
	})
}

func TestRistrettoCompliance(t *testing.T) {
	c, err := ristretto.New(1 << 20)
	if err != nil {
		t.Fatalf("ristretto.New: %v", err)
	}
	defer c.Close()

	runComplianceTests(t, c)
}
