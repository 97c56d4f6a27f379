// Package reconcile decides, for every crate requirement, whether the target
// distribution ships a usable package or the crate must be vendored into the
// release tarball.
//
// The partition is total and deterministic: every requirement lands in exactly
// one of the two output lists, both lists are ordered lexicographically by
// crate name, and re-running against unchanged inputs yields identical output.
package reconcile

import (
	"context"
	"errors"
	"sort"

	"github.com/matzehuels/vendorsync/pkg/manifest"
	"github.com/matzehuels/vendorsync/pkg/repoindex"
)

// Match pairs a requirement with the distro package satisfying it.
type Match struct {
	Requirement manifest.Requirement
	Record      repoindex.Record
}

// Result partitions the requirement set.
type Result struct {
	// DistroSatisfied holds requirements covered by distribution packages,
	// sorted by crate name.
	DistroSatisfied []Match

	// MustVendor holds requirements with no usable distro package, sorted
	// by crate name.
	MustVendor []manifest.Requirement
}

// Total returns the number of reconciled requirements.
func (r *Result) Total() int {
	return len(r.DistroSatisfied) + len(r.MustVendor)
}

// Options tunes a reconciliation run.
type Options struct {
	// Progress is invoked after each requirement is classified; rec is nil
	// when the crate must be vendored. May be nil.
	Progress func(done, total int, req manifest.Requirement, rec *repoindex.Record)

	// Logger receives warnings for lookups that failed outright and were
	// conservatively classified as must-vendor. May be nil.
	Logger func(format string, args ...any)
}

// Reconcile classifies each requirement against the index, in lexicographic
// order regardless of input order. A found package whose version fails the
// requirement's constraint counts as not found: declaring a distro dependency
// that cannot satisfy the build is worse than vendoring one crate too many.
// Lookup failures other than cancellation are likewise downgraded to
// must-vendor with a warning; retries are the index's business, not ours.
func Reconcile(ctx context.Context, reqs []manifest.Requirement, index repoindex.Index, opts Options) (*Result, error) {
	logf := opts.Logger
	if logf == nil {
		logf = func(string, ...any) {}
	}

	ordered := make([]manifest.Requirement, len(reqs))
	copy(ordered, reqs)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Name < ordered[j].Name
	})

	result := &Result{}
	for i, req := range ordered {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rec, err := index.Lookup(ctx, req.Name)
		switch {
		case err == nil && req.SatisfiedBy(rec.Version):
			result.DistroSatisfied = append(result.DistroSatisfied, Match{Requirement: req, Record: *rec})
		case err == nil:
			logf("distro has %s %s but %s requires %s, vendoring",
				req.Name, rec.Version, req.Name, req.Constraint)
			rec = nil
			result.MustVendor = append(result.MustVendor, req)
		case errors.Is(err, repoindex.ErrNotFound):
			rec = nil
			result.MustVendor = append(result.MustVendor, req)
		case ctx.Err() != nil:
			return nil, ctx.Err()
		default:
			logf("lookup failed for %s, vendoring conservatively: %v", req.Name, err)
			rec = nil
			result.MustVendor = append(result.MustVendor, req)
		}

		if opts.Progress != nil {
			opts.Progress(i+1, len(ordered), req, rec)
		}
	}

	return result, nil
}
