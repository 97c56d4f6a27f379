package specfile

import (
	"os"
	"path/filepath"

	"github.com/pmezard/go-difflib/difflib"

	vserrors "github.com/matzehuels/vendorsync/pkg/errors"
)

// Mode selects between rewriting an artifact and previewing the rewrite.
type Mode int

const (
	// Commit rewrites the artifact in place (atomically).
	Commit Mode = iota
	// Draft computes the rewrite and reports the diff without touching the file.
	Draft
)

// Change describes the outcome of one artifact update.
type Change struct {
	Path    string
	Diff    string // Unified diff against the previous content; empty if nothing changed
	Applied bool   // True when the file was rewritten (commit mode, nonempty diff)
}

// Changed reports whether the target content differs from what is on disk.
func (c *Change) Changed() bool {
	return c.Diff != ""
}

// apply finalizes an update: it diffs current against target and, in commit
// mode, atomically replaces the file. An unchanged artifact is never
// rewritten, so repeated runs leave no trace.
func apply(path, current, target string, mode Mode) (*Change, error) {
	change := &Change{Path: path}

	if current == target {
		return change, nil
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(current),
		B:        difflib.SplitLines(target),
		FromFile: path,
		ToFile:   path + " (updated)",
		Context:  3,
	})
	if err != nil {
		return nil, vserrors.Wrap(vserrors.ErrCodeInternal, err, "diff %s", path)
	}
	change.Diff = diff

	if mode == Draft {
		return change, nil
	}

	if err := atomicWrite(path, []byte(target)); err != nil {
		return nil, vserrors.Wrap(vserrors.ErrCodeArtifactWrite, err, "rewrite %s", path)
	}
	change.Applied = true
	return change, nil
}

// atomicWrite replaces path via a temp file in the same directory and a
// rename, so an interrupted run never leaves a half-written artifact.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if info, err := os.Stat(path); err == nil {
		_ = os.Chmod(tmp.Name(), info.Mode())
	} else {
		_ = os.Chmod(tmp.Name(), 0644)
	}
	return os.Rename(tmp.Name(), path)
}
