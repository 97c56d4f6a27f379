// Package specfile rewrites the generated regions of the two committed
// packaging artifacts: the RPM spec file's dependency blocks and the vendor
// exclusion list. Everything outside an owned region is preserved
// byte-for-byte, and rewriting with unchanged input produces no diff.
package specfile

import (
	"strings"

	vserrors "github.com/matzehuels/vendorsync/pkg/errors"
)

// splitLines breaks content into lines without their terminators, remembering
// whether the file ended with a newline so joinLines can restore it exactly.
func splitLines(content string) (lines []string, trailingNewline bool) {
	if content == "" {
		return nil, false
	}
	trailingNewline = strings.HasSuffix(content, "\n")
	if trailingNewline {
		content = content[:len(content)-1]
	}
	return strings.Split(content, "\n"), trailingNewline
}

func joinLines(lines []string, trailingNewline bool) string {
	out := strings.Join(lines, "\n")
	if trailingNewline {
		out += "\n"
	}
	return out
}

// replaceSection swaps the lines strictly between the start and end marker
// lines for replacement, keeping both marker lines in place. Markers are
// matched by substring, the way they appear in hand-maintained spec files.
func replaceSection(lines []string, startMarker, endMarker string, replacement []string) ([]string, error) {
	startIdx, endIdx := -1, -1
	for i, line := range lines {
		if startIdx == -1 {
			if strings.Contains(line, startMarker) {
				startIdx = i
			}
			continue
		}
		if strings.Contains(line, endMarker) {
			endIdx = i
			break
		}
	}
	if startIdx == -1 || endIdx == -1 {
		return nil, vserrors.New(vserrors.ErrCodeMarkerNotFound,
			"could not find %q / %q markers", startMarker, endMarker)
	}

	out := make([]string, 0, startIdx+1+len(replacement)+len(lines)-endIdx)
	out = append(out, lines[:startIdx+1]...)
	out = append(out, replacement...)
	out = append(out, lines[endIdx:]...)
	return out, nil
}
