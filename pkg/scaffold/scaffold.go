// Package scaffold creates the skeleton of a new skillet module: the
// manifest plus an optional starter skill.
package scaffold

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/jingkaihe/skillet/pkg/module"
)

// Options controls what gets scaffolded.
type Options struct {
	// Name of the module. Empty means "initialize the given directory and
	// take its base name"; non-empty means "create a fresh subdirectory".
	Name        string
	Description string
	// SkillName names the starter skill. Empty defaults to the module
	// name; NoSkill suppresses the starter skill entirely.
	SkillName string
	NoSkill   bool
}

// Result reports what Init created.
type Result struct {
	ModuleName string
	Dir        string
	SkillName  string
}

const starterSkill = `---
name: %s
description: Description of what this skill does and when to use it.
---

# %s

Describe the skill's purpose and capabilities here.

## Usage

Explain how to use this skill.

## Examples

Provide examples of the skill in action.
`

// Init scaffolds a module under baseDir. A non-empty Name creates a new
// subdirectory; otherwise baseDir itself becomes the module root. Fails if
// the target is already a module.
func Init(baseDir string, opts Options) (*Result, error) {
	dir := baseDir
	name := opts.Name
	if name != "" {
		dir = filepath.Join(baseDir, name)
		if _, err := os.Stat(dir); err == nil {
			return nil, errors.Errorf("directory %s already exists", dir)
		}
	} else {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, err
		}
		name = filepath.Base(abs)
	}
	if err := module.ValidateName(name); err != nil {
		return nil, err
	}

	manifestDir := filepath.Join(dir, ".skillet")
	if _, err := os.Stat(manifestDir); err == nil {
		return nil, errors.Errorf("module already initialized: %s exists", manifestDir)
	}
	if err := os.MkdirAll(manifestDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create module directory")
	}

	description := opts.Description
	if description == "" {
		description = name + " module"
	}
	manifest := module.Manifest{
		Name:        name,
		Version:     "0.1.0",
		Description: description,
	}
	data, err := yaml.Marshal(&manifest)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(manifestDir, "module.yaml"), data, 0o644); err != nil {
		return nil, errors.Wrap(err, "failed to write manifest")
	}

	res := &Result{ModuleName: name, Dir: dir}
	if opts.NoSkill {
		return res, nil
	}

	skillName := opts.SkillName
	if skillName == "" {
		skillName = name
	}
	if err := module.ValidateName(skillName); err != nil {
		return nil, err
	}

	skillDir := filepath.Join(dir, "skills", skillName)
	if err := os.MkdirAll(skillDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create skill directory")
	}
	content := fmt.Sprintf(starterSkill, skillName, titleFromName(skillName))
	if err := os.WriteFile(filepath.Join(skillDir, "SKILL.md"), []byte(content), 0o644); err != nil {
		return nil, errors.Wrap(err, "failed to write starter skill")
	}
	res.SkillName = skillName
	return res, nil
}

func titleFromName(name string) string {
	words := strings.Split(name, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ") + " Skill"
}
