package specfile

import (
	"fmt"
	"os"

	vserrors "github.com/matzehuels/vendorsync/pkg/errors"
	"github.com/matzehuels/vendorsync/pkg/reconcile"
)

// Marker comments bounding the generated regions of the spec file. The
// content between each pair is owned by this tool; the markers themselves
// and everything outside them belong to the packager.
const (
	markerRustStart    = "# Rust dependencies"
	markerRustEnd      = "# End rust dependencies"
	markerBundledStart = "# Bundled dependencies"
	markerBundledEnd   = "# End bundled dependencies"
)

// UpdateSpec rewrites the two generated dependency blocks of an RPM spec
// file: distro-satisfied crates become BuildRequires on the packaged -devel
// crate, vendored crates become bundled(crate(...)) Provides. The spec file
// must already carry both marker pairs.
func UpdateSpec(path string, result *reconcile.Result, mode Mode) (*Change, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, vserrors.Wrap(vserrors.ErrCodeFileNotFound, err, "spec file not found: %s", path)
		}
		return nil, vserrors.Wrap(vserrors.ErrCodeArtifactWrite, err, "read %s", path)
	}
	current := string(raw)

	lines, trailingNewline := splitLines(current)

	lines, err = replaceSection(lines, markerRustStart, markerRustEnd, buildRequiresLines(result))
	if err != nil {
		return nil, err
	}
	lines, err = replaceSection(lines, markerBundledStart, markerBundledEnd, providesLines(result))
	if err != nil {
		return nil, err
	}

	return apply(path, current, joinLines(lines, trailingNewline), mode)
}

// buildRequiresLines renders one BuildRequires per distro-satisfied crate.
// The result is already sorted by crate name.
func buildRequiresLines(result *reconcile.Result) []string {
	lines := make([]string, 0, len(result.DistroSatisfied))
	for _, m := range result.DistroSatisfied {
		lines = append(lines, fmt.Sprintf("BuildRequires: rust-%s-devel", m.Requirement.Name))
	}
	return lines
}

// providesLines renders one bundled Provides per vendored crate. The locked
// version is included when Cargo.lock pinned one.
func providesLines(result *reconcile.Result) []string {
	lines := make([]string, 0, len(result.MustVendor))
	for _, req := range result.MustVendor {
		if req.Locked != "" {
			lines = append(lines, fmt.Sprintf("Provides: bundled(crate(%s)) = %s", req.Name, req.Locked))
		} else {
			lines = append(lines, fmt.Sprintf("Provides: bundled(crate(%s))", req.Name))
		}
	}
	return lines
}
