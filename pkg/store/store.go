// Package store manages the local module store: the per-user directory of
// fetched modules that installations are rendered from, plus the
// project-local copies referenced by project-scope installs.
package store

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/jingkaihe/skillet/pkg/logger"
	"github.com/jingkaihe/skillet/pkg/module"
	"github.com/jingkaihe/skillet/pkg/osutil"
	"github.com/jingkaihe/skillet/pkg/sources"
)

const (
	skilletDir   = ".skillet"
	modulesDir   = "modules"
	marketDir    = "market"
	registryFile = "installed.yaml"
)

// ErrModuleNotFound is returned when a named module is not in the store.
var ErrModuleNotFound = errors.New("module not found in store")

// Store is the local module store rooted at ~/.skillet by default.
type Store struct {
	baseDir string
}

// Option configures a Store.
type Option func(*Store) error

// WithBaseDir sets a custom base directory, mainly for tests.
func WithBaseDir(dir string) Option {
	return func(s *Store) error {
		s.baseDir = dir
		return nil
	}
}

// New creates a Store rooted at the user's home directory unless overridden.
func New(opts ...Option) (*Store, error) {
	s := &Store{}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	if s.baseDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, errors.Wrap(err, "failed to get user home directory")
		}
		s.baseDir = filepath.Join(homeDir, skilletDir)
	}
	return s, nil
}

// ModulesDir returns the directory holding stored modules.
func (s *Store) ModulesDir() string {
	return filepath.Join(s.baseDir, modulesDir)
}

// RegistryPath returns the installation registry location.
func (s *Store) RegistryPath() string {
	return filepath.Join(s.baseDir, registryFile)
}

// MarketDir returns the directory holding marketplace references.
func (s *Store) MarketDir() string {
	return filepath.Join(s.baseDir, marketDir)
}

// ModulePath returns the store path for a module name.
func (s *Store) ModulePath(name string) string {
	return filepath.Join(s.ModulesDir(), name)
}

// Resolve loads the named module from the store. The store name is
// authoritative: a manifest whose name disagrees with the store entry does
// not rename the module, since artifacts and registry records all key on the
// name the module was added under.
func (s *Store) Resolve(name string) (*module.Module, error) {
	if err := module.ValidateName(name); err != nil {
		return nil, err
	}
	path := s.ModulePath(name)
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrapf(ErrModuleNotFound, "%s", name)
	}
	m, err := module.Discover(path)
	if err != nil {
		return nil, err
	}
	m.Name = name
	return m, nil
}

// List returns every discoverable module in the store, sorted by name.
// Entries that fail discovery are skipped with a debug log; they are not
// this command's problem to fix.
func (s *Store) List(ctx context.Context) ([]*module.Module, error) {
	entries, err := os.ReadDir(s.ModulesDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to read module store")
	}

	var modules []*module.Module
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		m, err := module.Discover(s.ModulePath(entry.Name()))
		if err != nil {
			logger.G(ctx).WithError(err).WithField("entry", entry.Name()).Debug("skipping undiscoverable store entry")
			continue
		}
		m.Name = entry.Name()
		modules = append(modules, m)
	}

	sort.Slice(modules, func(i, j int) bool { return modules[i].Name < modules[j].Name })
	return modules, nil
}

// Add fetches a module from source into the store. The fetch is staged and
// validated before the store entry appears; a failed fetch never disturbs an
// existing entry of the same name.
func (s *Store) Add(ctx context.Context, source, nameOverride string) (*module.Module, error) {
	handler := sources.Detect(source)
	if handler == nil {
		return nil, errors.Errorf("cannot determine source type for %q: expected a git repo, zip/tar archive, archive URL, or local folder", source)
	}

	if err := os.MkdirAll(s.ModulesDir(), 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create module store")
	}

	staging, err := os.MkdirTemp(s.ModulesDir(), ".staging-")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create staging directory")
	}
	defer os.RemoveAll(staging)

	stagingDest := filepath.Join(staging, "content")
	if err := handler.Fetch(ctx, source, stagingDest); err != nil {
		return nil, err
	}
	if err := sources.SaveInfo(stagingDest, source, handler.Name()); err != nil {
		return nil, err
	}

	staged, err := module.Discover(stagingDest)
	if err != nil {
		return nil, err
	}

	// Name priority: explicit override, then the manifest, then a name
	// derived from the source. The staging directory's own base name never
	// leaks into the store.
	name := nameOverride
	if name == "" {
		if manifest, err := module.ReadManifest(stagingDest); err == nil && manifest != nil && manifest.Name != "" {
			name = manifest.Name
		} else {
			name = DeriveName(source)
		}
	}
	if err := module.ValidateName(name); err != nil {
		return nil, err
	}
	for _, warning := range staged.Warnings {
		logger.G(ctx).WithField("module", name).Warn(warning)
	}

	if err := osutil.SwapDir(stagingDest, s.ModulePath(name)); err != nil {
		return nil, err
	}
	return s.Resolve(name)
}

// Remove deletes a module from the store.
func (s *Store) Remove(name string) error {
	if err := module.ValidateName(name); err != nil {
		return err
	}
	path := s.ModulePath(name)
	if _, err := os.Stat(path); err != nil {
		return errors.Wrapf(ErrModuleNotFound, "%s", name)
	}
	return os.RemoveAll(path)
}

// CopyToProject copies a module into a project's local module directory so
// project-scope artifacts can reference content relative to the project.
// Copying a module onto itself is a no-op.
func (s *Store) CopyToProject(m *module.Module, projectPath string) (string, error) {
	dest := filepath.Join(projectPath, skilletDir, modulesDir, m.Name)

	absSrc, err := filepath.Abs(m.Path)
	if err != nil {
		return "", err
	}
	absDest, err := filepath.Abs(dest)
	if err != nil {
		return "", err
	}
	if absSrc == absDest {
		return dest, nil
	}

	staging, err := os.MkdirTemp("", "skillet-project-copy-")
	if err != nil {
		return "", errors.Wrap(err, "failed to create staging directory")
	}
	defer os.RemoveAll(staging)

	stagingDest := filepath.Join(staging, m.Name)
	if err := osutil.CopyDir(m.Path, stagingDest); err != nil {
		return "", errors.Wrap(err, "failed to copy module")
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", err
	}
	// Cross-filesystem safe: the staged copy may live on another mount, so
	// fall back to copy+delete when rename fails.
	if err := osutil.SwapDir(stagingDest, dest); err != nil {
		os.RemoveAll(dest)
		if copyErr := osutil.CopyDir(stagingDest, dest); copyErr != nil {
			return "", errors.Wrap(copyErr, "failed to place project module copy")
		}
	}
	return dest, nil
}

// RemoveProjectCopy deletes a module's project-local copy if present.
func (s *Store) RemoveProjectCopy(moduleName, projectPath string) error {
	if err := module.ValidateName(moduleName); err != nil {
		return err
	}
	return os.RemoveAll(filepath.Join(projectPath, skilletDir, modulesDir, moduleName))
}

var nameSanitizeRe = regexp.MustCompile(`[^a-z0-9]+`)

// DeriveName derives a module name from a source: the repository, archive,
// or folder basename sanitized into a lowercase hyphen-separated token.
func DeriveName(source string) string {
	base := source
	if parsed, err := url.Parse(source); err == nil && parsed.Scheme != "" {
		base = parsed.Path
	}
	base = filepath.Base(strings.TrimRight(base, "/"))
	base = strings.TrimSuffix(base, ".git")
	for _, ext := range []string{".zip", ".tar.gz", ".tgz", ".tar.bz2", ".tar"} {
		base = strings.TrimSuffix(base, ext)
	}

	base = nameSanitizeRe.ReplaceAllString(strings.ToLower(base), "-")
	return strings.Trim(base, "-")
}
