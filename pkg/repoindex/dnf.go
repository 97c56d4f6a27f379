package repoindex

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	vserrors "github.com/matzehuels/vendorsync/pkg/errors"
)

const (
	dnfProgram   = "dnf"
	queryTimeout = 10 * time.Second

	// retryAttempts is the total number of tries per pattern: the initial
	// query plus one retry with backoff.
	retryAttempts = 2
	retryDelay    = 500 * time.Millisecond
)

// runner executes a repository query and returns its stdout. Split out so
// tests can substitute a fake without spawning processes.
type runner func(ctx context.Context, args ...string) (string, error)

// DNF queries Fedora-style repositories through `dnf repoquery`.
//
// Fedora packages Rust crates as rust-<crate>-devel and additionally exposes
// the virtual provide rust(<crate>); both patterns are tried. If neither
// matches, one normalized fallback folds hyphens and underscores before the
// crate is declared absent, since a handful of crates are packaged under the
// folded spelling.
type DNF struct {
	run  runner
	logf Logger

	mu       sync.Mutex
	lookups  int // lookups that reached the query tool
	failures int // lookups where no pattern produced an answer
}

// NewDNF creates a dnf-backed index. logf receives warnings for downgraded
// transient failures; it may be nil.
func NewDNF(logf Logger) *DNF {
	return &DNF{run: runDNF, logf: logf}
}

// CheckAvailable verifies the query tool exists before any lookups run.
// A missing tool is a systemic failure: the whole run must abort rather than
// classify every crate as must-vendor.
func CheckAvailable() error {
	if _, err := exec.LookPath(dnfProgram); err != nil {
		return vserrors.Wrap(vserrors.ErrCodeQuerySystemic, err,
			"%s not found in PATH; cannot query distribution repositories", dnfProgram)
	}
	return nil
}

// Lookup queries the repository for a package providing the crate.
func (d *DNF) Lookup(ctx context.Context, name string) (*Record, error) {
	if err := vserrors.ValidateCrateName(name); err != nil {
		return nil, err
	}

	candidates := []string{name}
	if folded := foldName(name); folded != name {
		candidates = append(candidates, folded)
	}

	d.mu.Lock()
	d.lookups++
	d.mu.Unlock()

	answered := false
	for _, candidate := range candidates {
		for _, pattern := range queryPatterns(candidate) {
			rec, err := d.query(ctx, pattern)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				d.warnf("repoquery for %s failed, treating as absent: %v", pattern, err)
				continue
			}
			answered = true
			if rec != nil {
				return rec, nil
			}
		}
	}

	if !answered {
		d.mu.Lock()
		d.failures++
		d.mu.Unlock()
	}
	return nil, ErrNotFound
}

// AllLookupsFailed reports whether every lookup that reached the repository
// failed outright: not one pattern returned a match or a clean miss across
// the whole run. That distinguishes an unreachable repository from crates
// that are genuinely absent.
func (d *DNF) AllLookupsFailed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lookups > 0 && d.failures == d.lookups
}

// query runs one repoquery pattern, retrying transient failures once.
// Returns (nil, nil) when the pattern matches nothing.
func (d *DNF) query(ctx context.Context, pattern string) (*Record, error) {
	var out string
	err := retry(ctx, retryAttempts, retryDelay, func() error {
		var runErr error
		out, runErr = d.run(ctx, "repoquery", "--quiet", "--whatprovides", pattern)
		return runErr
	})
	if err != nil {
		return nil, err
	}

	line, _, _ := strings.Cut(strings.TrimSpace(out), "\n")
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, nil
	}

	pkgName, version := parseNEVRA(line)
	return &Record{
		Package: line,
		Name:    pkgName,
		Version: version,
		FoundAt: time.Now().UTC(),
	}, nil
}

func (d *DNF) warnf(format string, args ...any) {
	if d.logf != nil {
		d.logf(format, args...)
	}
}

// queryPatterns returns the provide patterns tried for a crate name, in order.
func queryPatterns(name string) []string {
	return []string{
		fmt.Sprintf("rust(%s)", name),
		fmt.Sprintf("rust-%s-devel", name),
	}
}

// foldName normalizes between the two spellings crate names commonly use.
// Underscores fold to hyphens; a name already free of underscores folds the
// other way.
func foldName(name string) string {
	if strings.Contains(name, "_") {
		return strings.ReplaceAll(name, "_", "-")
	}
	return strings.ReplaceAll(name, "-", "_")
}

// parseNEVRA splits a package NEVRA into name and version, dropping epoch,
// release, and architecture. Input: name-[epoch:]version-release.arch.
func parseNEVRA(nevra string) (name, version string) {
	s := nevra
	if i := strings.LastIndex(s, "."); i > 0 {
		s = s[:i] // drop arch
	}
	i := strings.LastIndex(s, "-")
	if i < 0 {
		return nevra, ""
	}
	s = s[:i] // drop release
	j := strings.LastIndex(s, "-")
	if j < 0 {
		return nevra, ""
	}
	name, version = s[:j], s[j+1:]
	if k := strings.Index(version, ":"); k >= 0 {
		version = version[k+1:] // drop epoch
	}
	return name, version
}

// runDNF executes dnf with a per-query timeout. A non-zero exit means the
// pattern matched nothing and yields empty output without error; failures to
// start or finish the process are transient and retried.
func runDNF(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, dnfProgram, args...)
	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return "", retryable(ctx.Err())
		}
		if _, ok := err.(*exec.ExitError); ok {
			// dnf exits non-zero when nothing provides the pattern
			return "", nil
		}
		return "", retryable(err)
	}
	return string(out), nil
}
