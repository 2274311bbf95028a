package module

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func writeSkill(t *testing.T, root, name, description string) {
	t.Helper()
	writeFile(t, filepath.Join(root, "skills", name, "SKILL.md"),
		"---\nname: "+name+"\ndescription: "+description+"\n---\n\n# "+name+"\n\nBody of "+name+".\n")
}

func fixtureModule(t *testing.T) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "my-skills")

	writeFile(t, filepath.Join(root, ".skillet", "module.yaml"),
		"name: my-skills\nversion: 1.2.0\ndescription: Test fixtures\n")
	writeSkill(t, root, "review", "Reviews code changes")
	writeSkill(t, root, "refactor", "Suggests refactorings")
	writeFile(t, filepath.Join(root, "commands", "lint.md"),
		"---\ndescription: Run the linter\n---\n\nLint $ARGUMENTS\n")
	writeFile(t, filepath.Join(root, "agents", "tester.md"),
		"---\nname: tester\ndescription: Writes tests\n---\n\nWrite tests.\n")
	writeFile(t, filepath.Join(root, "INSTRUCTIONS.md"), "Always run the linter first.\n")
	writeFile(t, filepath.Join(root, "mcp.yaml"),
		"servers:\n  github:\n    command: gh-mcp\n  docs:\n    command: docs-mcp\n")
	return root
}

func TestDiscover(t *testing.T) {
	root := fixtureModule(t)

	m, err := Discover(root)
	require.NoError(t, err)

	assert.Equal(t, "my-skills", m.Name)
	assert.Equal(t, "1.2.0", m.Version)
	assert.Equal(t, "Test fixtures", m.Description)
	assert.Equal(t, []string{"refactor", "review"}, m.SkillNames())
	assert.Equal(t, []string{"lint"}, m.CommandNames())
	assert.Equal(t, []string{"tester"}, m.AgentNames())
	assert.True(t, m.HasInstructions)
	assert.Equal(t, "Always run the linter first.\n", m.Instructions)
	assert.Equal(t, []string{"docs", "github"}, m.MCPServers)
	assert.Empty(t, m.Warnings)

	review := m.Skill("review")
	require.NotNil(t, review)
	assert.Equal(t, "Reviews code changes", review.Description)
	assert.Contains(t, review.Content, "Body of review.")
	assert.NotContains(t, review.Content, "---")
}

func TestDiscoverDeterministic(t *testing.T) {
	root := fixtureModule(t)

	first, err := Discover(root)
	require.NoError(t, err)
	second, err := Discover(root)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestDiscoverSkipsInvalidComponentsWithWarnings(t *testing.T) {
	root := fixtureModule(t)

	// A skill directory without SKILL.md and a command without a description.
	require.NoError(t, os.MkdirAll(filepath.Join(root, "skills", "broken"), 0o755))
	writeFile(t, filepath.Join(root, "commands", "nodesc.md"), "---\nname: nodesc\n---\n\nBody.\n")

	m, err := Discover(root)
	require.NoError(t, err)

	assert.NotContains(t, m.SkillNames(), "broken")
	assert.NotContains(t, m.CommandNames(), "nodesc")
	require.Len(t, m.Warnings, 2)
	assert.Contains(t, m.Warnings[0], "broken")
	assert.Contains(t, m.Warnings[1], "missing required field 'description'")
}

func TestDiscoverNoComponentsFails(t *testing.T) {
	root := filepath.Join(t.TempDir(), "empty-module")
	writeFile(t, filepath.Join(root, ".skillet", "module.yaml"), "name: empty-module\n")

	_, err := Discover(root)
	require.Error(t, err)
	var derr *DiscoveryError
	assert.ErrorAs(t, err, &derr)
}

func TestDiscoverMissingRoot(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "nope"))
	var derr *DiscoveryError
	assert.ErrorAs(t, err, &derr)
}

func TestDiscoverWithoutManifestUsesDirectoryName(t *testing.T) {
	root := filepath.Join(t.TempDir(), "bare-module")
	writeSkill(t, root, "solo", "Only skill")

	m, err := Discover(root)
	require.NoError(t, err)
	assert.Equal(t, "bare-module", m.Name)
	assert.Equal(t, "0.1.0", m.Version)
}

func TestDiscoverRejectsInvalidModuleName(t *testing.T) {
	root := filepath.Join(t.TempDir(), "bad")
	writeFile(t, filepath.Join(root, ".skillet", "module.yaml"), "name: ../escape\n")
	writeSkill(t, root, "solo", "Only skill")

	_, err := Discover(root)
	require.Error(t, err)
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "my-skills", false},
		{"single word", "skills", false},
		{"digits", "team2-skills", false},
		{"empty", "", true},
		{"dot", ".", true},
		{"dotdot", "..", true},
		{"slash", "a/b", true},
		{"backslash", `a\b`, true},
		{"uppercase", "MySkills", true},
		{"leading dot", ".hidden", true},
		{"underscore", "my_skills", true},
		{"trailing hyphen", "skills-", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
