// Package requirements holds the versioned catalog of protocol requirements.
package requirements

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"

	"github.com/mcp-compliance-runner/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed specs/*.yaml
var catalogFS embed.FS

// catalog is the on-disk shape of one spec version
type catalog struct {
	Version      string               `yaml:"version"`
	Features     []string             `yaml:"features"`
	Requirements []domain.Requirement `yaml:"requirements"`
}

// Registry maps spec versions to their requirement catalogs. It is read-only after Load.
type Registry struct {
	versions map[string]*catalog
	index    map[string]map[string]domain.Requirement
}

// Load parses the embedded catalogs
func Load() (*Registry, error) {
	return LoadFS(catalogFS, "specs")
}

// LoadFS parses every *.yaml catalog under dir in fsys
func LoadFS(fsys fs.FS, dir string) (*Registry, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog directory: %w", err)
	}

	r := &Registry{
		versions: make(map[string]*catalog),
		index:    make(map[string]map[string]domain.Requirement),
	}

	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".yaml" {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read catalog %s: %w", entry.Name(), err)
		}
		if err := r.add(entry.Name(), data); err != nil {
			return nil, err
		}
	}

	if len(r.versions) == 0 {
		return nil, fmt.Errorf("no requirement catalogs found in %s", dir)
	}
	return r, nil
}

func (r *Registry) add(name string, data []byte) error {
	var c catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return fmt.Errorf("failed to parse catalog %s: %w", name, err)
	}
	if c.Version == "" {
		return fmt.Errorf("catalog %s: version is required", name)
	}
	if _, dup := r.versions[c.Version]; dup {
		return fmt.Errorf("catalog %s: version %s defined twice", name, c.Version)
	}
	if len(c.Features) == 0 {
		return fmt.Errorf("catalog %s: no features defined", name)
	}
	if len(c.Requirements) == 0 {
		return fmt.Errorf("catalog %s: no requirements defined", name)
	}

	features := make(map[string]bool, len(c.Features))
	for _, f := range c.Features {
		features[f] = true
	}

	index := make(map[string]domain.Requirement, len(c.Requirements))
	for i, req := range c.Requirements {
		if !features[req.Feature] {
			return fmt.Errorf("catalog %s: requirement %d uses undeclared feature %q", name, i, req.Feature)
		}
		if req.ID == "" || req.Description == "" {
			return fmt.Errorf("catalog %s: requirement %d needs an id and description", name, i)
		}
		if !req.Level.Valid() {
			return fmt.Errorf("catalog %s: requirement %s has invalid level %q", name, req.ID, req.Level)
		}
		key := req.Feature + "#" + req.ID
		if _, dup := index[key]; dup {
			return fmt.Errorf("catalog %s: duplicate requirement %s in %s", name, req.ID, req.Feature)
		}
		index[key] = req
	}

	r.versions[c.Version] = &c
	r.index[c.Version] = index
	return nil
}

// SupportedVersions returns every known version in ascending order
func (r *Registry) SupportedVersions() []string {
	versions := make([]string, 0, len(r.versions))
	for v := range r.versions {
		versions = append(versions, v)
	}
	sort.Strings(versions)
	return versions
}

// Latest returns the newest known version; version identifiers are dates so they sort lexically
func (r *Registry) Latest() string {
	versions := r.SupportedVersions()
	return versions[len(versions)-1]
}

// Has reports whether version has a catalog
func (r *Registry) Has(version string) bool {
	_, ok := r.versions[version]
	return ok
}

// RequirementsFor returns the ordered requirement catalog for a version
func (r *Registry) RequirementsFor(version string) ([]domain.Requirement, error) {
	c, ok := r.versions[version]
	if !ok {
		return nil, &domain.UnsupportedVersionError{Version: version, Supported: r.SupportedVersions()}
	}
	out := make([]domain.Requirement, len(c.Requirements))
	copy(out, c.Requirements)
	return out, nil
}

// Features returns the feature list for a version
func (r *Registry) Features(version string) ([]string, error) {
	c, ok := r.versions[version]
	if !ok {
		return nil, &domain.UnsupportedVersionError{Version: version, Supported: r.SupportedVersions()}
	}
	out := make([]string, len(c.Features))
	copy(out, c.Features)
	return out, nil
}

// Describe looks a requirement description up across all versions, newest first.
// A missing entry is not an error; callers fall back to their own text.
func (r *Registry) Describe(feature, id string) (string, bool) {
	versions := r.SupportedVersions()
	for i := len(versions) - 1; i >= 0; i-- {
		if req, ok := r.index[versions[i]][feature+"#"+id]; ok {
			return req.Description, true
		}
	}
	return "", false
}
