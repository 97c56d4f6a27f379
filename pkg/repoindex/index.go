// Package repoindex answers the question "does the target distribution ship a
// package for this crate?". The production implementation shells out to dnf
// repoquery; a caching decorator memoizes both positive and negative answers
// so repeated runs do not hammer the repository metadata.
package repoindex

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no distro package provides the crate.
var ErrNotFound = errors.New("not found in distribution repositories")

// Record is a positive query result: a distro package that provides the crate.
// Absence is represented by ErrNotFound, never by a Record.
type Record struct {
	Package string    `json:"package"`  // Full NEVRA (e.g., "rust-serde-devel-0:1.0.193-1.fc41.noarch")
	Name    string    `json:"name"`     // Package name without version/release/arch
	Version string    `json:"version"`  // Package version without epoch or release
	FoundAt time.Time `json:"found_at"` // When the query was answered
}

// Index looks up crates in a distribution package repository.
//
// Lookup returns ErrNotFound for absent packages. Any other error is a query
// failure the caller may not treat as absence. Implementations must behave as
// pure functions of their inputs modulo caching.
type Index interface {
	Lookup(ctx context.Context, name string) (*Record, error)
}

// Logger receives warning messages from index implementations. It matches the
// printf signature so callers can pass their structured logger's Warnf.
type Logger func(format string, args ...any)
