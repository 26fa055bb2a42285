package staticfiles

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newModuleFixture(t *testing.T) (*Module, string) {
	t.Helper()
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("content-a"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	mod, err := NewModule(Options{
		Root:      root,
		URLPrefix: "/",
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Limits:    Limits{MaxCachedFileBytes: 1 << 20, MaxTotalCacheBytes: 1 << 20, MaxCacheEntries: 16},
	})
	if err != nil {
		t.Fatalf("NewModule() error = %v", err)
	}
	t.Cleanup(func() { _ = mod.Close() })
	return mod, root
}

func TestModule_ResolveFile(t *testing.T) {
	t.Parallel()

	mod, _ := newModuleFixture(t)
	result, err := mod.Resolve("/a.txt", "", "")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if result.Entry == nil || string(result.Entry.Data) != "content-a" {
		t.Fatalf("Resolve() = %+v, want cached entry with content-a", result)
	}

	entries, bytes := mod.CacheStats()
	if entries != 1 || bytes == 0 {
		t.Errorf("CacheStats() = (%d, %d), want (1, >0)", entries, bytes)
	}
}

func TestModule_ResolveMissing(t *testing.T) {
	t.Parallel()

	mod, _ := newModuleFixture(t)
	result, err := mod.Resolve("/missing.txt", "", "")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !result.NotFound {
		t.Errorf("Resolve() = %+v, want NotFound", result)
	}
}

func TestModule_ResolveDirectoryAutoIndex(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, "sub"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	mod, err := NewModule(Options{
		Root:      root,
		URLPrefix: "/",
		AutoIndex: true,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Limits:    Limits{MaxCachedFileBytes: 1 << 20, MaxTotalCacheBytes: 1 << 20, MaxCacheEntries: 16},
	})
	if err != nil {
		t.Fatalf("NewModule() error = %v", err)
	}
	t.Cleanup(func() { _ = mod.Close() })

	result, err := mod.Resolve("/sub", "", "")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !result.IsAutoIndex {
		t.Fatalf("Resolve() = %+v, want IsAutoIndex", result)
	}
}

func TestModule_WatcherInvalidatesCacheOnChange(t *testing.T) {
	mod, root := newModuleFixture(t)

	if _, err := mod.Resolve("/a.txt", "", ""); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if entries, _ := mod.CacheStats(); entries != 1 {
		t.Fatalf("CacheStats() entries = %d, want 1 before modification", entries)
	}

	path := filepath.Join(root, "a.txt")
	time.Sleep(10 * time.Millisecond)
	if err := os.WriteFile(path, []byte("content-a-modified"), 0o644); err != nil {
		t.Fatalf("rewrite fixture: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		result, err := mod.Resolve("/a.txt", "", "")
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if result.Entry != nil && string(result.Entry.Data) == "content-a-modified" {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("cache was never invalidated after filesystem change")
}

func TestModule_Close(t *testing.T) {
	t.Parallel()

	mod, _ := newModuleFixture(t)
	if err := mod.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}
