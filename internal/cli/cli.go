// Package cli implements the vendorsync command-line interface.
//
// This package provides commands for reconciling a Rust project's crate
// dependencies against a distribution's package repositories and for managing
// the repoquery result cache. The CLI is built using cobra and supports
// verbose logging via the charmbracelet/log library.
//
// # Commands
//
//   - check: scan manifests, reconcile against the distro index, update artifacts
//   - cache: manage the repoquery result cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context to allow structured progress tracking.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/vendorsync/pkg/buildinfo"
	"github.com/matzehuels/vendorsync/pkg/cache"
)

// appName is the application name used for directories and display.
const appName = "vendorsync"

// redisURLEnv selects the shared Redis cache backend when set.
const redisURLEnv = "VENDORSYNC_REDIS_URL"

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// out receives reports; defaults to stdout.
	out io.Writer
}

// New creates a new CLI instance with a default logger writing to w.
func New(w io.Writer) *CLI {
	return &CLI{Logger: newLogger(w, log.InfoLevel), out: os.Stdout}
}

// stdout returns the report writer.
func (c *CLI) stdout() io.Writer {
	if c.out == nil {
		return os.Stdout
	}
	return c.out
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   appName,
		Short: "Reconcile crate dependencies between a release and its target distribution",
		Long: `Vendorsync scans a Rust project's Cargo manifests, checks which crates the
target distribution already packages, and regenerates the RPM spec file's
dependency blocks and the vendor exclusion list accordingly.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				c.Logger.SetLevel(log.DebugLevel)
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(c.checkCommand())
	root.AddCommand(c.cacheCommand())

	return root
}

// newCacheBackend picks the cache backend for a run: disabled, shared Redis,
// or the default on-disk cache. A broken Redis configuration falls back to
// the file cache with a warning rather than failing the run.
func (c *CLI) newCacheBackend(ctx context.Context, noCache bool) cache.Cache {
	if noCache {
		return cache.NewNullCache()
	}

	if url := os.Getenv(redisURLEnv); url != "" {
		backend, err := cache.NewRedisCache(ctx, url)
		if err == nil {
			return backend
		}
		c.Logger.Warnf("Redis cache unavailable, falling back to file cache: %v", err)
	}

	dir, err := cacheDir()
	if err != nil {
		c.Logger.Warnf("caching disabled, cannot resolve cache directory: %v", err)
		return cache.NewNullCache()
	}
	backend, err := cache.NewFileCache(dir)
	if err != nil {
		c.Logger.Warnf("caching disabled, cannot open %s: %v", dir, err)
		return cache.NewNullCache()
	}
	return backend
}

// cacheDir returns the cache directory using XDG standard (~/.cache/vendorsync/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
