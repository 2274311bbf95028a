// Package market manages marketplace catalogs: named references to remote
// module catalogs that can be browsed without adding every module locally.
// Each marketplace is stored as a small reference file plus a cached copy of
// its catalog, refreshed on demand.
package market

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/jingkaihe/skillet/pkg/module"
	"github.com/jingkaihe/skillet/pkg/osutil"
)

// Marketplace lookup errors.
var (
	ErrMarketplaceExists   = errors.New("marketplace already exists")
	ErrMarketplaceNotFound = errors.New("marketplace not found")
	ErrModuleNotListed     = errors.New("module not listed in any marketplace")
)

// CatalogModule is one module entry in a marketplace catalog.
type CatalogModule struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Version     string `yaml:"version,omitempty"`
	Repository  string `yaml:"repository"`
}

// Catalog is the published content of a marketplace: a named, versioned list
// of installable modules.
type Catalog struct {
	Name        string          `yaml:"name"`
	Description string          `yaml:"description,omitempty"`
	Version     string          `yaml:"version,omitempty"`
	Modules     []CatalogModule `yaml:"modules"`
}

// Validate checks the catalog for structural problems, aggregating every
// issue rather than stopping at the first.
func (c *Catalog) Validate() error {
	var result *multierror.Error
	if c.Name == "" {
		result = multierror.Append(result, errors.New("catalog has no name"))
	}
	if len(c.Modules) > 0 && c.Version == "" {
		result = multierror.Append(result, errors.New("catalog with modules must declare a version"))
	}
	for i, m := range c.Modules {
		if m.Name == "" {
			result = multierror.Append(result, errors.Errorf("module %d has no name", i))
		}
		if m.Repository == "" {
			result = multierror.Append(result, errors.Errorf("module %q has no repository", m.Name))
		}
	}
	return result.ErrorOrNil()
}

// Reference is the stored pointer to a marketplace: where its catalog lives
// and whether it participates in lookups.
type Reference struct {
	Name    string `yaml:"name"`
	URL     string `yaml:"url"`
	Enabled bool   `yaml:"enabled"`
}

// Marketplace pairs a stored reference with its cached catalog.
type Marketplace struct {
	Reference Reference
	Catalog   Catalog
}

// Registry manages marketplace references and their cached catalogs on disk.
type Registry struct {
	marketDir string
	cacheDir  string
}

// NewRegistry creates a Registry rooted at marketDir, with catalog caches in
// a cache subdirectory.
func NewRegistry(marketDir string) *Registry {
	return &Registry{
		marketDir: marketDir,
		cacheDir:  filepath.Join(marketDir, "cache"),
	}
}

func (r *Registry) referencePath(name string) string {
	return filepath.Join(r.marketDir, name+".yml")
}

func (r *Registry) cachePath(name string) string {
	return filepath.Join(r.cacheDir, name+".yml")
}

// Add fetches a catalog, validates it, and stores the marketplace reference
// plus a catalog cache. Adding a name that already exists is an error; the
// existing marketplace is not touched.
func (r *Registry) Add(ctx context.Context, name, catalogURL string) (*Marketplace, error) {
	if err := module.ValidateName(name); err != nil {
		return nil, err
	}
	if _, err := os.Stat(r.referencePath(name)); err == nil {
		return nil, errors.Wrapf(ErrMarketplaceExists, "%s", name)
	}

	catalog, err := fetchCatalog(ctx, catalogURL)
	if err != nil {
		return nil, err
	}
	if err := catalog.Validate(); err != nil {
		return nil, errors.Wrapf(err, "catalog at %s failed validation", catalogURL)
	}

	if err := os.MkdirAll(r.cacheDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create marketplace directory")
	}

	ref := Reference{Name: name, URL: catalogURL, Enabled: true}
	if err := writeYAML(r.referencePath(name), ref); err != nil {
		return nil, err
	}
	if err := writeYAML(r.cachePath(name), catalog); err != nil {
		os.Remove(r.referencePath(name))
		return nil, err
	}
	return &Marketplace{Reference: ref, Catalog: *catalog}, nil
}

// Get loads one marketplace by name.
func (r *Registry) Get(name string) (*Marketplace, error) {
	if err := module.ValidateName(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(r.referencePath(name))
	if err != nil {
		return nil, errors.Wrapf(ErrMarketplaceNotFound, "%s", name)
	}
	var ref Reference
	if err := yaml.Unmarshal(data, &ref); err != nil {
		return nil, errors.Wrapf(err, "failed to parse marketplace reference %s", name)
	}

	m := &Marketplace{Reference: ref}
	if cached, err := os.ReadFile(r.cachePath(name)); err == nil {
		// A stale or missing cache is tolerated; Update rebuilds it.
		if err := yaml.Unmarshal(cached, &m.Catalog); err != nil {
			return nil, errors.Wrapf(err, "failed to parse cached catalog %s", name)
		}
	}
	return m, nil
}

// List returns every stored marketplace sorted by name.
func (r *Registry) List() ([]*Marketplace, error) {
	entries, err := os.ReadDir(r.marketDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to read marketplace directory")
	}

	var markets []*Marketplace
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yml") {
			continue
		}
		m, err := r.Get(strings.TrimSuffix(entry.Name(), ".yml"))
		if err != nil {
			return nil, err
		}
		markets = append(markets, m)
	}

	sort.Slice(markets, func(i, j int) bool {
		return markets[i].Reference.Name < markets[j].Reference.Name
	})
	return markets, nil
}

// Remove deletes a marketplace reference and its catalog cache.
func (r *Registry) Remove(name string) error {
	if err := module.ValidateName(name); err != nil {
		return err
	}
	if _, err := os.Stat(r.referencePath(name)); err != nil {
		return errors.Wrapf(ErrMarketplaceNotFound, "%s", name)
	}
	if err := os.Remove(r.referencePath(name)); err != nil {
		return errors.Wrap(err, "failed to remove marketplace reference")
	}
	os.Remove(r.cachePath(name))
	return nil
}

// Update refetches a marketplace's catalog and rewrites its cache. A failed
// fetch or validation leaves the previous cache in place.
func (r *Registry) Update(ctx context.Context, name string) (*Marketplace, error) {
	m, err := r.Get(name)
	if err != nil {
		return nil, err
	}

	catalog, err := fetchCatalog(ctx, m.Reference.URL)
	if err != nil {
		return nil, err
	}
	if err := catalog.Validate(); err != nil {
		return nil, errors.Wrapf(err, "catalog at %s failed validation", m.Reference.URL)
	}

	if err := writeYAML(r.cachePath(name), catalog); err != nil {
		return nil, err
	}
	m.Catalog = *catalog
	return m, nil
}

// FindModule looks a module up across every enabled marketplace, returning
// the catalog entry and the marketplace that listed it.
func (r *Registry) FindModule(moduleName string) (*CatalogModule, string, error) {
	markets, err := r.List()
	if err != nil {
		return nil, "", err
	}
	for _, m := range markets {
		if !m.Reference.Enabled {
			continue
		}
		for i := range m.Catalog.Modules {
			if m.Catalog.Modules[i].Name == moduleName {
				return &m.Catalog.Modules[i], m.Reference.Name, nil
			}
		}
	}
	return nil, "", errors.Wrapf(ErrModuleNotListed, "%s", moduleName)
}

// fetchCatalog reads a catalog from an http(s) URL or a local file path.
// URL fetches retry transient failures.
func fetchCatalog(ctx context.Context, source string) (*Catalog, error) {
	var data []byte
	if parsed, err := url.Parse(source); err == nil && (parsed.Scheme == "http" || parsed.Scheme == "https") {
		err := retry.Do(
			func() error {
				var fetchErr error
				data, fetchErr = downloadCatalog(ctx, source)
				return fetchErr
			},
			retry.Attempts(3),
			retry.Delay(time.Second),
			retry.Context(ctx),
			retry.LastErrorOnly(true),
		)
		if err != nil {
			return nil, err
		}
	} else {
		var err error
		data, err = os.ReadFile(source)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read catalog %s", source)
		}
	}

	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, errors.Wrapf(err, "failed to parse catalog %s", source)
	}
	return &catalog, nil
}

func downloadCatalog(ctx context.Context, source string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build catalog request")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch catalog %s", source)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("failed to fetch catalog %s: HTTP %d", source, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func writeYAML(path string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "failed to marshal yaml")
	}
	return osutil.WriteFileAtomic(path, data, 0o644)
}
