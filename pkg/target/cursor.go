package target

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jingkaihe/skillet/pkg/module"
	"github.com/jingkaihe/skillet/pkg/types/install"
)

// cursorAdapter renders for Cursor. Skills become MDC rule files under
// .cursor/rules; commands and agents are per-file like Claude Code. Module
// instructions land as an always-applied rule rather than a merged document.
type cursorAdapter struct{}

func init() {
	Register(&cursorAdapter{})
}

func (a *cursorAdapter) Name() string { return "cursor" }

func (a *cursorAdapter) rulePath(route Route, artifact string) string {
	return filepath.Join(route.Base(), ".cursor", "rules", artifact+".mdc")
}

func (a *cursorAdapter) RenderSkill(skill *module.Skill, moduleName string, route Route) ([]string, error) {
	path := a.rulePath(route, install.ArtifactName(moduleName, skill.Name))
	content := mdcRule(skill.Description, false, skillRuleBody(skill, route))
	if err := writeArtifact(path, []byte(content)); err != nil {
		return nil, err
	}
	return []string{path}, nil
}

func (a *cursorAdapter) RemoveSkill(skillName, moduleName string, route Route) error {
	return removeArtifact(a.rulePath(route, install.ArtifactName(moduleName, skillName)))
}

func (a *cursorAdapter) RenderCommand(cmd *module.Command, moduleName string, route Route) ([]string, error) {
	path := filepath.Join(route.Base(), ".cursor", "commands", install.ArtifactName(moduleName, cmd.Name)+".md")
	if err := writeArtifact(path, []byte(cmd.Content)); err != nil {
		return nil, err
	}
	return []string{path}, nil
}

func (a *cursorAdapter) RemoveCommand(commandName, moduleName string, route Route) error {
	return removeArtifact(filepath.Join(route.Base(), ".cursor", "commands", install.ArtifactName(moduleName, commandName)+".md"))
}

func (a *cursorAdapter) RenderAgent(agent *module.Agent, moduleName string, route Route) ([]string, error) {
	content, err := withInheritedModel(agent.Content)
	if err != nil {
		return nil, adapterErr(SourceInvalid, agent.Path, err)
	}
	path := filepath.Join(route.Base(), ".cursor", "agents", install.ArtifactName(moduleName, agent.Name)+".md")
	if err := writeArtifact(path, []byte(content)); err != nil {
		return nil, err
	}
	return []string{path}, nil
}

func (a *cursorAdapter) RemoveAgent(agentName, moduleName string, route Route) error {
	return removeArtifact(filepath.Join(route.Base(), ".cursor", "agents", install.ArtifactName(moduleName, agentName)+".md"))
}

func (a *cursorAdapter) RenderInstructions(instructions, moduleName string, route Route) ([]string, error) {
	path := a.rulePath(route, install.ArtifactName(moduleName, "instructions"))
	content := mdcRule(fmt.Sprintf("Instructions from the %s module", moduleName), true, instructions)
	if err := writeArtifact(path, []byte(content)); err != nil {
		return nil, err
	}
	return []string{path}, nil
}

func (a *cursorAdapter) RemoveInstructions(moduleName string, route Route) error {
	return removeArtifact(a.rulePath(route, install.ArtifactName(moduleName, "instructions")))
}

// mdcRule wraps a body in Cursor's MDC frontmatter.
func mdcRule(description string, alwaysApply bool, body string) string {
	var sb strings.Builder
	sb.WriteString("---\n")
	sb.WriteString("description: " + description + "\n")
	sb.WriteString("globs:\n")
	sb.WriteString(fmt.Sprintf("alwaysApply: %t\n", alwaysApply))
	sb.WriteString("---\n\n")
	sb.WriteString(strings.TrimRight(body, "\n"))
	sb.WriteString("\n")
	return sb.String()
}

// skillRuleBody appends a pointer to the skill's auxiliary files, which stay
// in the module store or project copy rather than being copied into .cursor.
func skillRuleBody(skill *module.Skill, route Route) string {
	body := strings.TrimRight(skill.Content, "\n")
	return body + fmt.Sprintf("\n\nSupporting files for this skill live in `%s`.\n", skillDirPointer(skill, route))
}
