// Package manifest discovers third-party crate requirements across a Rust
// project tree. It parses every Cargo.toml in the tree (multi-crate workspaces
// included), merges the declarations into a deduplicated requirement set, and
// annotates each requirement with the exact version pinned in Cargo.lock.
package manifest

import (
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Requirement is a single third-party crate the project depends on.
// Requirements are unique by Name within one scan.
type Requirement struct {
	Name       string   // Crate name as declared in Cargo.toml
	Constraint string   // Raw version requirement ("1.0", ">=0.4, <0.6"); empty means any
	Locked     string   // Exact version from Cargo.lock; empty if the lock has no entry
	Sources    []string // Manifest paths (relative to the scan root) declaring this crate
}

// SatisfiedBy reports whether a distro-packaged version can stand in for this
// requirement. The full Cargo operator set is honored: bare requirements are
// caret requirements ("1.0" means "^1.0"), "=" pins, ">" is exclusive, and
// comma-separated parts must all hold. A requirement with no restriction is
// satisfied by any version; an unparseable constraint or candidate version is
// conservatively rejected.
func (r Requirement) SatisfiedBy(version string) bool {
	c, ok := cargoConstraint(r.Constraint)
	if !ok {
		return false
	}
	if c == nil {
		return true
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return false
	}
	return c.Check(v)
}

// cargoConstraint translates a Cargo version requirement into a semver
// constraint set. Returns (nil, true) when the requirement places no
// restriction and (nil, false) when it cannot be parsed.
func cargoConstraint(constraint string) (*semver.Constraints, bool) {
	var parts []string
	for _, part := range strings.Split(constraint, ",") {
		part = strings.TrimSpace(part)
		if part == "" || part == "*" {
			continue
		}
		// Cargo treats a bare requirement as a caret requirement
		if !strings.ContainsAny(part[:1], "^~=<>") {
			part = "^" + part
		}
		parts = append(parts, part)
	}
	if len(parts) == 0 {
		return nil, true
	}
	c, err := semver.NewConstraint(strings.Join(parts, ", "))
	if err != nil {
		return nil, false
	}
	return c, true
}

// lowerBound extracts the minimum acceptable version from a Cargo version
// requirement, or nil if the requirement has none (wildcards, empty).
// For comma-separated requirements the highest lower bound wins.
func lowerBound(constraint string) *semver.Version {
	var bound *semver.Version
	for _, part := range strings.Split(constraint, ",") {
		part = strings.TrimSpace(part)
		part = strings.TrimLeft(part, "^~>=")
		part = strings.TrimSpace(part)
		if part == "" || part == "*" || strings.HasPrefix(part, "<") {
			continue
		}
		v, err := semver.NewVersion(part)
		if err != nil {
			continue
		}
		if bound == nil || v.GreaterThan(bound) {
			bound = v
		}
	}
	return bound
}

// stricterConstraint picks the winner when two manifests declare the same
// crate with different requirements: the one with the higher lower bound.
// Ties (and constraints with no lower bound) keep a, the first seen.
func stricterConstraint(a, b string) string {
	boundA, boundB := lowerBound(a), lowerBound(b)
	if boundA == nil {
		if boundB == nil {
			return a
		}
		return b
	}
	if boundB != nil && boundB.GreaterThan(boundA) {
		return b
	}
	return a
}
