package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/vendorsync/pkg/cache"
)

func TestCacheDir_XDGOverride(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg-test")

	dir, err := cacheDir()
	if err != nil {
		t.Fatal(err)
	}
	if dir != filepath.Join("/tmp/xdg-test", appName) {
		t.Errorf("cacheDir() = %s", dir)
	}
}

func TestCacheDir_HomeFallback(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "")
	t.Setenv("HOME", "/home/tester")

	dir, err := cacheDir()
	if err != nil {
		t.Fatal(err)
	}
	if dir != filepath.Join("/home/tester", ".cache", appName) {
		t.Errorf("cacheDir() = %s", dir)
	}
}

func TestNewCacheBackend_NullFallbackWarns(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "")
	t.Setenv("VENDORSYNC_REDIS_URL", "")
	t.Setenv("HOME", "")

	var buf bytes.Buffer
	c := New(&buf)

	backend := c.newCacheBackend(context.Background(), false)
	defer backend.Close()

	if _, ok := backend.(*cache.NullCache); !ok {
		t.Fatalf("backend = %T, want *cache.NullCache", backend)
	}
	if !strings.Contains(buf.String(), "caching disabled") {
		t.Errorf("fallback to NullCache was not logged: %q", buf.String())
	}
}

func TestCacheClear_UsesActiveBackend(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	t.Setenv("VENDORSYNC_REDIS_URL", "")

	ctx := context.Background()
	c := New(&bytes.Buffer{})

	// Prime the backend check would use
	backend := c.newCacheBackend(ctx, false)
	if err := backend.Set(ctx, "repoquery:abc", []byte("x"), time.Hour); err != nil {
		t.Fatal(err)
	}
	backend.Close()

	cmd := c.cacheClearCommand()
	cmd.SetArgs(nil)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("cache clear: %v", err)
	}

	fresh := c.newCacheBackend(ctx, false)
	defer fresh.Close()
	if _, hit, _ := fresh.Get(ctx, "repoquery:abc"); hit {
		t.Error("entry survived cache clear")
	}
}

func TestRootCommand_Subcommands(t *testing.T) {
	c := New(&bytes.Buffer{})
	root := c.RootCommand()

	for _, name := range []string{"check", "cache"} {
		found := false
		for _, sub := range root.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("root command is missing %q", name)
		}
	}
}
