package target

import (
	"path/filepath"

	"github.com/jingkaihe/skillet/pkg/module"
	"github.com/jingkaihe/skillet/pkg/section"
	"github.com/jingkaihe/skillet/pkg/types/install"
)

// claudeAdapter renders for Claude Code. Skills are per-file: one directory
// per skill under .claude/skills with auxiliary files copied verbatim.
// Module instructions are merged into CLAUDE.md through the section engine.
type claudeAdapter struct{}

func init() {
	Register(&claudeAdapter{})
}

func (a *claudeAdapter) Name() string { return "claude-code" }

func (a *claudeAdapter) RenderSkill(skill *module.Skill, moduleName string, route Route) ([]string, error) {
	dest := filepath.Join(route.Base(), ".claude", "skills", install.ArtifactName(moduleName, skill.Name))
	if err := copySkillDir(skill.Directory, dest); err != nil {
		return nil, err
	}
	return []string{dest}, nil
}

func (a *claudeAdapter) RemoveSkill(skillName, moduleName string, route Route) error {
	return removeArtifact(filepath.Join(route.Base(), ".claude", "skills", install.ArtifactName(moduleName, skillName)))
}

func (a *claudeAdapter) RenderCommand(cmd *module.Command, moduleName string, route Route) ([]string, error) {
	path := filepath.Join(route.Base(), ".claude", "commands", install.ArtifactName(moduleName, cmd.Name)+".md")
	if err := writeArtifact(path, []byte(cmd.Content)); err != nil {
		return nil, err
	}
	return []string{path}, nil
}

func (a *claudeAdapter) RemoveCommand(commandName, moduleName string, route Route) error {
	return removeArtifact(filepath.Join(route.Base(), ".claude", "commands", install.ArtifactName(moduleName, commandName)+".md"))
}

func (a *claudeAdapter) RenderAgent(agent *module.Agent, moduleName string, route Route) ([]string, error) {
	content, err := withInheritedModel(agent.Content)
	if err != nil {
		return nil, adapterErr(SourceInvalid, agent.Path, err)
	}
	path := filepath.Join(route.Base(), ".claude", "agents", install.ArtifactName(moduleName, agent.Name)+".md")
	if err := writeArtifact(path, []byte(content)); err != nil {
		return nil, err
	}
	return []string{path}, nil
}

func (a *claudeAdapter) RemoveAgent(agentName, moduleName string, route Route) error {
	return removeArtifact(filepath.Join(route.Base(), ".claude", "agents", install.ArtifactName(moduleName, agentName)+".md"))
}

func (a *claudeAdapter) RenderInstructions(instructions, moduleName string, route Route) ([]string, error) {
	path := filepath.Join(route.Base(), "CLAUDE.md")
	if err := mergedUpsert(path, section.ForPurpose("instructions"), moduleName, instructions); err != nil {
		return nil, err
	}
	return []string{path}, nil
}

func (a *claudeAdapter) RemoveInstructions(moduleName string, route Route) error {
	return mergedRemove(filepath.Join(route.Base(), "CLAUDE.md"), section.ForPurpose("instructions"), moduleName)
}

// withInheritedModel forces model: inherit in an agent definition's
// frontmatter so installed agents follow the user's configured model.
func withInheritedModel(content string) (string, error) {
	front, body, err := splitFrontmatter(content)
	if err != nil {
		return "", err
	}
	front["model"] = "inherit"
	return rebuildFrontmatter(front, body)
}
