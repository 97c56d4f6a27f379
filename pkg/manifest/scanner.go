package manifest

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ScanOptions controls manifest discovery.
type ScanOptions struct {
	// AllManifests scans every Cargo.toml in the tree. When false only the
	// root manifest is read.
	AllManifests bool

	// Logger receives warnings (constraint conflicts). May be nil.
	Logger func(format string, args ...any)
}

// ScanResult is the outcome of scanning one project tree.
type ScanResult struct {
	// Requirements holds every third-party crate requirement, sorted
	// lexicographically by name and deduplicated.
	Requirements []Requirement

	// Members lists the workspace's own crate names. These never appear in
	// Requirements: they are built from the source tree, not vendored or
	// pulled from the distro.
	Members []string

	// ManifestCount is the number of Cargo.toml files parsed.
	ManifestCount int
}

// skipDirs are directory names never descended into during discovery.
var skipDirs = map[string]bool{
	"target": true,
	"vendor": true,
	".git":   true,
}

// Scan discovers crate requirements under root. Every manifest is attempted
// even when an earlier one fails, so a single run reports all parse errors;
// any failure still fails the scan, since a partial requirement set would
// silently under-vendor.
func Scan(root string, opts ScanOptions) (*ScanResult, error) {
	logf := opts.Logger
	if logf == nil {
		logf = func(string, ...any) {}
	}

	paths, err := findManifests(root, opts.AllManifests)
	if err != nil {
		return nil, err
	}

	locked, err := parseCargoLock(filepath.Join(root, "Cargo.lock"))
	if err != nil {
		return nil, err
	}

	merged := make(map[string]*Requirement)
	members := make(map[string]bool)
	var parseErrs []error

	for _, path := range paths {
		parsed, err := parseCargoToml(path)
		if err != nil {
			parseErrs = append(parseErrs, err)
			continue
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}

		if parsed.PackageName != "" {
			members[parsed.PackageName] = true
		}

		for name, constraint := range parsed.Deps {
			req, ok := merged[name]
			if !ok {
				merged[name] = &Requirement{
					Name:       name,
					Constraint: constraint,
					Sources:    []string{rel},
				}
				continue
			}
			req.Sources = append(req.Sources, rel)
			if constraint != req.Constraint {
				winner := stricterConstraint(req.Constraint, constraint)
				logf("conflicting requirements for %s (%q vs %q), keeping %q",
					name, req.Constraint, constraint, winner)
				req.Constraint = winner
			}
		}
	}

	if len(parseErrs) > 0 {
		return nil, errors.Join(parseErrs...)
	}

	result := &ScanResult{ManifestCount: len(paths)}
	for name := range members {
		result.Members = append(result.Members, name)
	}
	sort.Strings(result.Members)

	for name, req := range merged {
		if members[name] {
			// Workspace members are built from this source tree
			continue
		}
		req.Locked = locked[name]
		sort.Strings(req.Sources)
		result.Requirements = append(result.Requirements, *req)
	}
	sort.Slice(result.Requirements, func(i, j int) bool {
		return result.Requirements[i].Name < result.Requirements[j].Name
	})

	return result, nil
}

// findManifests locates Cargo.toml files under root in deterministic
// (lexicographic) order. The root manifest is required.
func findManifests(root string, all bool) ([]string, error) {
	rootManifest := filepath.Join(root, "Cargo.toml")

	if !all {
		if _, err := os.Stat(rootManifest); err != nil {
			return nil, err
		}
		return []string{rootManifest}, nil
	}

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (skipDirs[name] || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.EqualFold(d.Name(), "Cargo.toml") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}
