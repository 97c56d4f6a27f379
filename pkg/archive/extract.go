// Package archive unpacks upstream release tarballs so their manifests can be
// scanned without the caller extracting anything by hand.
package archive

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"

	vserrors "github.com/matzehuels/vendorsync/pkg/errors"
)

// Extract unpacks the tarball into a fresh temporary directory and returns
// the source root: if the archive contains a single top-level directory (the
// usual release layout), that directory is returned, otherwise the extraction
// root itself. The caller owns cleanup via the returned function.
//
// Compression is chosen by extension: .zst/.zstd, .gz/.tgz, or plain .tar.
func Extract(tarballPath string) (dir string, cleanup func(), err error) {
	f, err := os.Open(tarballPath)
	if err != nil {
		return "", nil, vserrors.Wrap(vserrors.ErrCodeFileNotFound, err, "open tarball %s", tarballPath)
	}
	defer f.Close()

	reader, closeReader, err := decompress(f, tarballPath)
	if err != nil {
		return "", nil, err
	}
	defer closeReader()

	tmpDir, err := os.MkdirTemp("", "vendorsync-")
	if err != nil {
		return "", nil, err
	}
	cleanup = func() { _ = os.RemoveAll(tmpDir) }

	if err := untar(reader, tmpDir); err != nil {
		cleanup()
		return "", nil, vserrors.Wrap(vserrors.ErrCodeInvalidInput, err, "extract %s", tarballPath)
	}

	return sourceRoot(tmpDir), cleanup, nil
}

// decompress wraps f in the decompressor matching the file extension.
func decompress(f *os.File, path string) (io.Reader, func(), error) {
	switch {
	case strings.HasSuffix(path, ".zst") || strings.HasSuffix(path, ".zstd"):
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, nil, vserrors.Wrap(vserrors.ErrCodeInvalidInput, err, "zstd reader for %s", path)
		}
		return zr, zr.Close, nil
	case strings.HasSuffix(path, ".gz") || strings.HasSuffix(path, ".tgz"):
		gr, err := pgzip.NewReader(f)
		if err != nil {
			return nil, nil, vserrors.Wrap(vserrors.ErrCodeInvalidInput, err, "gzip reader for %s", path)
		}
		return gr, func() { _ = gr.Close() }, nil
	default:
		return f, func() {}, nil
	}
}

// untar writes the archive entries under dest, rejecting paths that would
// escape it.
func untar(r io.Reader, dest string) error {
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		target, err := safeJoin(dest, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return err
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode)&0777)
			if err != nil {
				return err
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return err
			}
			if err := out.Close(); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return err
			}
			_ = os.Symlink(hdr.Linkname, target)
		default:
			// Hard links, devices, etc. are irrelevant to manifest scanning
		}
	}
}

// safeJoin joins name under dest and rejects traversal outside it.
func safeJoin(dest, name string) (string, error) {
	target := filepath.Join(dest, name)
	if !strings.HasPrefix(target, filepath.Clean(dest)+string(os.PathSeparator)) && target != filepath.Clean(dest) {
		return "", fmt.Errorf("archive entry escapes extraction root: %s", name)
	}
	return target, nil
}

// sourceRoot descends into the single top-level directory if the archive has
// one.
func sourceRoot(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) != 1 || !entries[0].IsDir() {
		return dir
	}
	return filepath.Join(dir, entries[0].Name())
}
