package target

import (
	"path/filepath"

	"github.com/jingkaihe/skillet/pkg/module"
	"github.com/jingkaihe/skillet/pkg/section"
	"github.com/jingkaihe/skillet/pkg/types/install"
)

// codexAdapter renders for Codex. Skills and instructions are merged into
// AGENTS.md through the section engine; commands become prompt files under
// .codex/prompts. Codex has no agent concept of its own.
type codexAdapter struct{}

func init() {
	Register(&codexAdapter{})
}

func (a *codexAdapter) Name() string { return "codex" }

func (a *codexAdapter) docPath(route Route) string {
	return filepath.Join(route.Base(), "AGENTS.md")
}

func (a *codexAdapter) RenderSkill(skill *module.Skill, moduleName string, route Route) ([]string, error) {
	path := a.docPath(route)
	entry := skillSummaryEntry(skill, route)
	if err := mergedUpsertEntry(path, section.ForPurpose("skills"), moduleName, skill.Name, entry); err != nil {
		return nil, err
	}
	return []string{path}, nil
}

func (a *codexAdapter) RemoveSkill(skillName, moduleName string, route Route) error {
	return mergedRemoveEntry(a.docPath(route), section.ForPurpose("skills"), moduleName, skillName)
}

func (a *codexAdapter) RenderCommand(cmd *module.Command, moduleName string, route Route) ([]string, error) {
	path := filepath.Join(route.Base(), ".codex", "prompts", install.ArtifactName(moduleName, cmd.Name)+".md")
	if err := writeArtifact(path, []byte(cmd.Content)); err != nil {
		return nil, err
	}
	return []string{path}, nil
}

func (a *codexAdapter) RemoveCommand(commandName, moduleName string, route Route) error {
	return removeArtifact(filepath.Join(route.Base(), ".codex", "prompts", install.ArtifactName(moduleName, commandName)+".md"))
}

func (a *codexAdapter) RenderAgent(agent *module.Agent, moduleName string, route Route) ([]string, error) {
	return nil, ErrUnsupported
}

func (a *codexAdapter) RemoveAgent(agentName, moduleName string, route Route) error {
	return ErrUnsupported
}

func (a *codexAdapter) RenderInstructions(instructions, moduleName string, route Route) ([]string, error) {
	path := a.docPath(route)
	if err := mergedUpsert(path, section.ForPurpose("instructions"), moduleName, instructions); err != nil {
		return nil, err
	}
	return []string{path}, nil
}

func (a *codexAdapter) RemoveInstructions(moduleName string, route Route) error {
	return mergedRemove(a.docPath(route), section.ForPurpose("instructions"), moduleName)
}
