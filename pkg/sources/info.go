package sources

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// InfoPath is the source provenance file location relative to a stored
// module's root.
const InfoPath = ".skillet/source.yaml"

// Info records where a stored module came from so it can be updated later.
type Info struct {
	Source string `yaml:"source"`
	Type   string `yaml:"type"`
}

// SaveInfo writes source provenance inside a stored module. Local paths are
// resolved to absolute form so updates work from any working directory.
func SaveInfo(modulePath, source, sourceType string) error {
	switch sourceType {
	case "folder", "zip", "tar":
		abs, err := filepath.Abs(source)
		if err == nil {
			source = abs
		}
	}

	data, err := yaml.Marshal(Info{Source: source, Type: sourceType})
	if err != nil {
		return errors.Wrap(err, "failed to marshal source info")
	}

	path := filepath.Join(modulePath, filepath.FromSlash(InfoPath))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "failed to create .skillet directory")
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadInfo reads source provenance from a stored module. A missing file
// yields (nil, nil): the module was created in place and cannot be updated.
func LoadInfo(modulePath string) (*Info, error) {
	data, err := os.ReadFile(filepath.Join(modulePath, filepath.FromSlash(InfoPath)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to read source info")
	}

	var info Info
	if err := yaml.Unmarshal(data, &info); err != nil {
		return nil, errors.Wrap(err, "malformed source info")
	}
	return &info, nil
}
