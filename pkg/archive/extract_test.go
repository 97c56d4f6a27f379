package archive

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
)

// writeTarball builds a small release-style tarball with the given
// compression ("", "gz", or "zst").
func writeTarball(t *testing.T, path, compression string, files map[string]string) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var w io.Writer = f
	var closer io.Closer
	switch compression {
	case "gz":
		gw := pgzip.NewWriter(f)
		w, closer = gw, gw
	case "zst":
		zw, err := zstd.NewWriter(f)
		if err != nil {
			t.Fatal(err)
		}
		w, closer = zw, zw
	}

	tw := tar.NewWriter(w)
	for name, content := range files {
		hdr := &tar.Header{Name: name, Mode: 0644, Size: int64(len(content))}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if closer != nil {
		if err := closer.Close(); err != nil {
			t.Fatal(err)
		}
	}
}

func TestExtract(t *testing.T) {
	files := map[string]string{
		"goose-1.13.1/Cargo.toml":             "[package]\nname = \"goose\"\n",
		"goose-1.13.1/crates/mcp/Cargo.toml":  "[package]\nname = \"goose-mcp\"\n",
		"goose-1.13.1/src/main.rs":            "fn main() {}\n",
	}

	tests := []struct {
		name        string
		filename    string
		compression string
	}{
		{"plain tar", "goose.tar", ""},
		{"gzip", "goose.tar.gz", "gz"},
		{"zstd", "goose.tar.zst", "zst"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tarball := filepath.Join(t.TempDir(), tt.filename)
			writeTarball(t, tarball, tt.compression, files)

			dir, cleanup, err := Extract(tarball)
			if err != nil {
				t.Fatalf("Extract: %v", err)
			}
			defer cleanup()

			// Single top-level directory becomes the source root
			if filepath.Base(dir) != "goose-1.13.1" {
				t.Errorf("source root = %s, want goose-1.13.1", dir)
			}

			data, err := os.ReadFile(filepath.Join(dir, "Cargo.toml"))
			if err != nil {
				t.Fatalf("extracted manifest missing: %v", err)
			}
			if string(data) != "[package]\nname = \"goose\"\n" {
				t.Errorf("unexpected manifest content: %s", data)
			}

			if _, err := os.Stat(filepath.Join(dir, "crates", "mcp", "Cargo.toml")); err != nil {
				t.Errorf("nested manifest missing: %v", err)
			}
		})
	}
}

func TestExtract_RejectsTraversal(t *testing.T) {
	tarball := filepath.Join(t.TempDir(), "evil.tar")
	writeTarball(t, tarball, "", map[string]string{
		"../outside.txt": "nope",
	})

	_, cleanup, err := Extract(tarball)
	if err == nil {
		cleanup()
		t.Fatal("expected traversal rejection")
	}
}

func TestExtract_MissingTarball(t *testing.T) {
	_, _, err := Extract(filepath.Join(t.TempDir(), "nope.tar"))
	if err == nil {
		t.Fatal("expected error for missing tarball")
	}
}
