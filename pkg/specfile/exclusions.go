package specfile

import (
	"fmt"
	"os"
	"strings"

	vserrors "github.com/matzehuels/vendorsync/pkg/errors"
	"github.com/matzehuels/vendorsync/pkg/reconcile"
)

// excludeTable is the top-level TOML table owned by this tool in the vendor
// exclusion file. The vendoring tool drops every crate listed under it from
// the vendor tarball; the wildcard version excludes all versions of a crate.
const excludeTable = "[exclude]"

// UpdateExclusions rewrites the [exclude] table of the vendor exclusion file
// so that it lists exactly the distro-satisfied crates, i.e. the crates the
// vendoring tool must NOT bundle because the build uses the distro package.
// Content outside the table is preserved; a missing file is created with only
// the table.
func UpdateExclusions(path string, result *reconcile.Result, mode Mode) (*Change, error) {
	raw, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, vserrors.Wrap(vserrors.ErrCodeArtifactWrite, err, "read %s", path)
	}
	current := string(raw)

	lines, trailingNewline := splitLines(current)
	if len(lines) == 0 {
		trailingNewline = true
	}

	entries := exclusionLines(result)

	start, end := findExcludeTable(lines)
	var out []string
	if start == -1 {
		// No table yet: append one, separated from existing content
		out = append(out, lines...)
		if len(out) > 0 && strings.TrimSpace(out[len(out)-1]) != "" {
			out = append(out, "")
		}
		out = append(out, excludeTable)
		out = append(out, entries...)
	} else {
		out = append(out, lines[:start+1]...)
		out = append(out, entries...)
		out = append(out, lines[end:]...)
	}

	return apply(path, current, joinLines(out, trailingNewline), mode)
}

// exclusionLines renders one wildcard entry per distro-satisfied crate,
// already sorted by name.
func exclusionLines(result *reconcile.Result) []string {
	lines := make([]string, 0, len(result.DistroSatisfied))
	for _, m := range result.DistroSatisfied {
		lines = append(lines, fmt.Sprintf("%s = \"*\"", m.Requirement.Name))
	}
	return lines
}

// findExcludeTable locates the owned table. start is the index of the table
// header line; end is the index of the first line after the table's entries
// (the next table header, or len(lines)). Returns start == -1 if the file has
// no [exclude] table.
func findExcludeTable(lines []string) (start, end int) {
	start = -1
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if start == -1 {
			if trimmed == excludeTable {
				start = i
			}
			continue
		}
		if strings.HasPrefix(trimmed, "[") {
			return start, i
		}
	}
	if start == -1 {
		return -1, -1
	}
	return start, len(lines)
}
