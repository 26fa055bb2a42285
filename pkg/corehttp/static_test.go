package corehttp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/corehttp/corehttp/internal/adapter/metrics"
	"github.com/corehttp/corehttp/internal/domain/staticfiles"
)

func newTestModule(t *testing.T) (*staticfiles.Module, string) {
	t.Helper()
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "hello.txt"), []byte("hello world"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	mod, err := staticfiles.NewModule(staticfiles.Options{
		Root:      root,
		URLPrefix: "/",
		Logger:    discardLogger(),
		Limits:    staticfiles.Limits{MaxCachedFileBytes: 1 << 20, MaxTotalCacheBytes: 1 << 20, MaxCacheEntries: 16},
	})
	if err != nil {
		t.Fatalf("NewModule() error = %v", err)
	}
	t.Cleanup(func() { _ = mod.Close() })
	return mod, root
}

func TestStaticHandler_ServesCachedEntry(t *testing.T) {
	t.Parallel()

	mod, _ := newTestModule(t)
	m := metrics.New(prometheus.NewRegistry())

	c := newTestContext("GET", "/hello.txt")
	handler := StaticHandler(mod, m)
	if _, err := handler(c); err != nil {
		t.Fatalf("handler() error = %v", err)
	}
	if c.Response.StatusCode != 200 {
		t.Fatalf("StatusCode = %d, want 200", c.Response.StatusCode)
	}
	if firstHeader(c.Response, "ETag") == "" {
		t.Error("ETag header not set")
	}
}

func TestStaticHandler_NotFound(t *testing.T) {
	t.Parallel()

	mod, _ := newTestModule(t)

	c := newTestContext("GET", "/missing.txt")
	handler := StaticHandler(mod, nil)
	if _, err := handler(c); err != nil {
		t.Fatalf("handler() error = %v", err)
	}
	if c.Response.StatusCode != 404 {
		t.Errorf("StatusCode = %d, want 404", c.Response.StatusCode)
	}
}

func TestStaticHandler_NotModifiedOnMatchingETag(t *testing.T) {
	t.Parallel()

	mod, _ := newTestModule(t)

	first := newTestContext("GET", "/hello.txt")
	if _, err := StaticHandler(mod, nil)(first); err != nil {
		t.Fatalf("handler() error = %v", err)
	}
	etag := firstHeader(first.Response, "ETag")

	second := newTestContext("GET", "/hello.txt")
	second.Request.Headers.Add("If-None-Match", etag)
	if _, err := StaticHandler(mod, nil)(second); err != nil {
		t.Fatalf("handler() error = %v", err)
	}
	if second.Response.StatusCode != 304 {
		t.Errorf("StatusCode = %d, want 304", second.Response.StatusCode)
	}
}
