// Package registry persists the durable record of which modules are
// installed where. The registry is a single YAML document holding an ordered
// list of installation records keyed on (module, assistant, scope, project
// path). It is the source of truth for what uninstall and update attempt to
// remove. Unknown fields in a record are preserved on rewrite so newer
// component kinds are never dropped by older code.
package registry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/jingkaihe/skillet/pkg/types/install"
)

const fileVersion = "1"

// Installation records that a module's components were materialized for a
// specific assistant, scope and, for project scope, filesystem location.
type Installation struct {
	Module       string        `yaml:"module"`
	Assistant    string        `yaml:"assistant"`
	Scope        install.Scope `yaml:"scope"`
	ProjectPath  string        `yaml:"project_path,omitempty"`
	Skills       []string      `yaml:"skills,omitempty"`
	Commands     []string      `yaml:"commands,omitempty"`
	Agents       []string      `yaml:"agents,omitempty"`
	Instructions bool          `yaml:"instructions,omitempty"`

	// Extra preserves fields written by newer versions of skillet.
	Extra map[string]any `yaml:",inline"`
}

// Key is the uniqueness key of an installation record.
type Key struct {
	Module      string
	Assistant   string
	Scope       install.Scope
	ProjectPath string
}

// Key returns the record's uniqueness key.
func (i Installation) Key() Key {
	return Key{
		Module:      i.Module,
		Assistant:   i.Assistant,
		Scope:       i.Scope,
		ProjectPath: i.ProjectPath,
	}
}

func (k Key) String() string {
	if k.ProjectPath != "" {
		return fmt.Sprintf("%s/%s/%s (%s)", k.Module, k.Assistant, k.Scope, k.ProjectPath)
	}
	return fmt.Sprintf("%s/%s/%s", k.Module, k.Assistant, k.Scope)
}

// CorruptError indicates the persisted registry could not be parsed. It is
// fatal: silently resetting to an empty registry would orphan real
// installations.
type CorruptError struct {
	Path string
	Err  error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("registry %s is corrupt: %v", e.Path, e.Err)
}

func (e *CorruptError) Unwrap() error { return e.Err }

// ErrNotFound is returned by Find when no record matches the key.
var ErrNotFound = errors.New("installation not found")

type registryFile struct {
	Version       string         `yaml:"version"`
	Installations []Installation `yaml:"installations"`

	Extra map[string]any `yaml:",inline"`
}

// Registry manages the installed.yaml document.
type Registry struct {
	path string
	file registryFile
}

// Load reads the registry at path. A missing file yields an empty registry;
// an unparsable file yields a CorruptError.
func Load(path string) (*Registry, error) {
	r := &Registry{
		path: path,
		file: registryFile{Version: fileVersion},
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, errors.Wrap(err, "failed to read registry")
	}

	if err := yaml.Unmarshal(data, &r.file); err != nil {
		return nil, &CorruptError{Path: path, Err: err}
	}
	if r.file.Version == "" {
		r.file.Version = fileVersion
	}
	return r, nil
}

// Path returns the registry file location.
func (r *Registry) Path() string {
	return r.path
}

// Record upserts an installation by its uniqueness key. The prior record for
// the same key is replaced in full so stale component names from a previous
// version are never inherited.
func (r *Registry) Record(inst Installation) error {
	key := inst.Key()
	replaced := false
	for i := range r.file.Installations {
		if r.file.Installations[i].Key() == key {
			r.file.Installations[i] = inst
			replaced = true
			break
		}
	}
	if !replaced {
		r.file.Installations = append(r.file.Installations, inst)
	}
	return r.save()
}

// Find returns the record for key, or ErrNotFound.
func (r *Registry) Find(key Key) (Installation, error) {
	for _, inst := range r.file.Installations {
		if inst.Key() == key {
			return inst, nil
		}
	}
	return Installation{}, ErrNotFound
}

// All returns every record in order.
func (r *Registry) All() []Installation {
	out := make([]Installation, len(r.file.Installations))
	copy(out, r.file.Installations)
	return out
}

// AllForModule returns every record for the named module.
func (r *Registry) AllForModule(module string) []Installation {
	var out []Installation
	for _, inst := range r.file.Installations {
		if inst.Module == module {
			out = append(out, inst)
		}
	}
	return out
}

// AllForAssistant returns every record for the named assistant.
func (r *Registry) AllForAssistant(assistant string) []Installation {
	var out []Installation
	for _, inst := range r.file.Installations {
		if inst.Assistant == assistant {
			out = append(out, inst)
		}
	}
	return out
}

// AllForScope returns every record with the given scope.
func (r *Registry) AllForScope(scope install.Scope) []Installation {
	var out []Installation
	for _, inst := range r.file.Installations {
		if inst.Scope == scope {
			out = append(out, inst)
		}
	}
	return out
}

// Delete removes the record for key. Deleting a missing record is a no-op.
func (r *Registry) Delete(key Key) error {
	kept := r.file.Installations[:0]
	for _, inst := range r.file.Installations {
		if inst.Key() != key {
			kept = append(kept, inst)
		}
	}
	r.file.Installations = kept
	return r.save()
}

// save rewrites the whole document through a temporary file and an atomic
// rename, so an interrupted write never leaves a syntactically invalid
// registry behind.
func (r *Registry) save() error {
	data, err := yaml.Marshal(&r.file)
	if err != nil {
		return errors.Wrap(err, "failed to marshal registry")
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "failed to create registry directory")
	}

	tmp, err := os.CreateTemp(dir, ".installed-*.yaml")
	if err != nil {
		return errors.Wrap(err, "failed to create temporary registry file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, "failed to write registry")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "failed to close registry file")
	}

	if err := os.Rename(tmpName, r.path); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "failed to replace registry")
	}
	return nil
}
