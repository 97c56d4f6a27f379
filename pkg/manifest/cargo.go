package manifest

import (
	"os"

	"github.com/BurntSushi/toml"

	vserrors "github.com/matzehuels/vendorsync/pkg/errors"
)

// cargoFile mirrors the subset of Cargo.toml this tool cares about.
// Dependency values are either a bare version string ("1.0") or an inline
// table ({ version = "1.0", features = [...] }), so they decode as any.
type cargoFile struct {
	Package struct {
		Name    string `toml:"name"`
		Version string `toml:"version"`
	} `toml:"package"`
	Workspace struct {
		Dependencies map[string]any `toml:"dependencies"`
	} `toml:"workspace"`
	Dependencies      map[string]any           `toml:"dependencies"`
	DevDependencies   map[string]any           `toml:"dev-dependencies"`
	BuildDependencies map[string]any           `toml:"build-dependencies"`
	Target            map[string]targetSection `toml:"target"`
}

type targetSection struct {
	Dependencies      map[string]any `toml:"dependencies"`
	DevDependencies   map[string]any `toml:"dev-dependencies"`
	BuildDependencies map[string]any `toml:"build-dependencies"`
}

// parsedManifest is the result of reading one Cargo.toml.
type parsedManifest struct {
	PackageName string            // [package].name, empty for virtual workspace manifests
	Deps        map[string]string // crate name -> raw version requirement ("" if unspecified)
}

// parseCargoToml reads a single Cargo.toml and extracts every dependency
// declaration with its version requirement.
func parseCargoToml(path string) (*parsedManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, vserrors.Wrap(vserrors.ErrCodeManifestParse, err, "read %s", path)
	}

	var cargo cargoFile
	if err := toml.Unmarshal(data, &cargo); err != nil {
		return nil, vserrors.Wrap(vserrors.ErrCodeManifestParse, err, "malformed Cargo.toml: %s", path)
	}

	deps := make(map[string]string)
	mergeDeps(deps, cargo.Dependencies)
	mergeDeps(deps, cargo.DevDependencies)
	mergeDeps(deps, cargo.BuildDependencies)
	mergeDeps(deps, cargo.Workspace.Dependencies)
	for _, target := range cargo.Target {
		mergeDeps(deps, target.Dependencies)
		mergeDeps(deps, target.DevDependencies)
		mergeDeps(deps, target.BuildDependencies)
	}

	return &parsedManifest{
		PackageName: cargo.Package.Name,
		Deps:        deps,
	}, nil
}

// mergeDeps folds a dependency table into dst, keeping the stricter
// requirement when a crate appears twice within one manifest.
func mergeDeps(dst map[string]string, src map[string]any) {
	for name, value := range src {
		req := versionRequirement(value)
		if existing, ok := dst[name]; ok {
			dst[name] = stricterConstraint(existing, req)
			continue
		}
		dst[name] = req
	}
}

// versionRequirement extracts the version requirement from a dependency
// value. Path and git dependencies without a version yield an empty string.
func versionRequirement(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case map[string]any:
		if ver, ok := v["version"].(string); ok {
			return ver
		}
	}
	return ""
}
