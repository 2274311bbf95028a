package target

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jingkaihe/skillet/pkg/module"
	"github.com/jingkaihe/skillet/pkg/section"
	"github.com/jingkaihe/skillet/pkg/types/install"
)

// geminiAdapter renders for Gemini CLI. Skills and instructions are merged
// into GEMINI.md through the section engine, one entry per skill inside the
// module's block. Commands are converted to Gemini's TOML command format.
// Gemini has no agent concept.
type geminiAdapter struct{}

func init() {
	Register(&geminiAdapter{})
}

func (a *geminiAdapter) Name() string { return "gemini-cli" }

func (a *geminiAdapter) docPath(route Route) string {
	return filepath.Join(route.Base(), "GEMINI.md")
}

func (a *geminiAdapter) RenderSkill(skill *module.Skill, moduleName string, route Route) ([]string, error) {
	path := a.docPath(route)
	entry := skillSummaryEntry(skill, route)
	if err := mergedUpsertEntry(path, section.ForPurpose("skills"), moduleName, skill.Name, entry); err != nil {
		return nil, err
	}
	return []string{path}, nil
}

func (a *geminiAdapter) RemoveSkill(skillName, moduleName string, route Route) error {
	return mergedRemoveEntry(a.docPath(route), section.ForPurpose("skills"), moduleName, skillName)
}

func (a *geminiAdapter) RenderCommand(cmd *module.Command, moduleName string, route Route) ([]string, error) {
	content, err := commandToTOML(cmd.Content)
	if err != nil {
		return nil, adapterErr(SourceInvalid, cmd.Path, err)
	}
	path := filepath.Join(route.Base(), ".gemini", "commands", install.ArtifactName(moduleName, cmd.Name)+".toml")
	if err := writeArtifact(path, []byte(content)); err != nil {
		return nil, err
	}
	return []string{path}, nil
}

func (a *geminiAdapter) RemoveCommand(commandName, moduleName string, route Route) error {
	return removeArtifact(filepath.Join(route.Base(), ".gemini", "commands", install.ArtifactName(moduleName, commandName)+".toml"))
}

func (a *geminiAdapter) RenderAgent(agent *module.Agent, moduleName string, route Route) ([]string, error) {
	return nil, ErrUnsupported
}

func (a *geminiAdapter) RemoveAgent(agentName, moduleName string, route Route) error {
	return ErrUnsupported
}

func (a *geminiAdapter) RenderInstructions(instructions, moduleName string, route Route) ([]string, error) {
	path := a.docPath(route)
	if err := mergedUpsert(path, section.ForPurpose("instructions"), moduleName, instructions); err != nil {
		return nil, err
	}
	return []string{path}, nil
}

func (a *geminiAdapter) RemoveInstructions(moduleName string, route Route) error {
	return mergedRemove(a.docPath(route), section.ForPurpose("instructions"), moduleName)
}

// skillSummaryEntry is the per-skill entry merged into a shared document: a
// usage trigger plus a pointer to the full SKILL.md, project-relative for
// project scope.
func skillSummaryEntry(skill *module.Skill, route Route) string {
	return fmt.Sprintf("**When to use:** %s\n**Instructions:** Read `%s` for detailed guidance.",
		skill.Description, filepath.Join(skillDirPointer(skill, route), "SKILL.md"))
}

var positionalArgRe = regexp.MustCompile(`\$\d+`)

// commandToTOML converts a markdown command definition to Gemini's TOML
// command format. $ARGUMENTS becomes {{args}}; positional placeholders get
// an explicit arguments line prepended since Gemini has no positional
// substitution.
func commandToTOML(content string) (string, error) {
	front, body, err := splitFrontmatter(content)
	if err != nil {
		return "", err
	}
	description, _ := front["description"].(string)

	prompt := strings.ReplaceAll(body, "$ARGUMENTS", "{{args}}")
	if positionalArgRe.MatchString(prompt) {
		prompt = "Arguments: {{args}}\n\n" + prompt
	}

	escaped := strings.ReplaceAll(description, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)

	lines := []string{
		fmt.Sprintf(`description = "%s"`, escaped),
		`prompt = """`,
		strings.TrimRight(prompt, "\n"),
		`"""`,
	}
	return strings.Join(lines, "\n") + "\n", nil
}
