package manifest

import (
	"os"

	"github.com/BurntSushi/toml"

	vserrors "github.com/matzehuels/vendorsync/pkg/errors"
)

// lockFile mirrors the [[package]] array of a Cargo.lock.
type lockFile struct {
	Package []lockPackage `toml:"package"`
}

type lockPackage struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// parseCargoLock reads a Cargo.lock and returns every locked package version,
// including transitive dependencies. A missing lock file is not an error;
// the caller simply gets no pinned versions.
func parseCargoLock(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, vserrors.Wrap(vserrors.ErrCodeManifestParse, err, "read %s", path)
	}

	var lock lockFile
	if err := toml.Unmarshal(data, &lock); err != nil {
		return nil, vserrors.Wrap(vserrors.ErrCodeManifestParse, err, "malformed Cargo.lock: %s", path)
	}

	versions := make(map[string]string, len(lock.Package))
	for _, pkg := range lock.Package {
		if pkg.Name == "" {
			continue
		}
		versions[pkg.Name] = pkg.Version
	}
	return versions, nil
}
