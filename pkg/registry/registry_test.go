package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/skillet/pkg/types/install"
)

func testInstallation() Installation {
	return Installation{
		Module:       "my-skills",
		Assistant:    "claude-code",
		Scope:        install.ScopeProject,
		ProjectPath:  "/work/repo",
		Skills:       []string{"review", "refactor"},
		Commands:     []string{"lint"},
		Instructions: true,
	}
}

func TestLoadMissingFileYieldsEmptyRegistry(t *testing.T) {
	reg, err := Load(filepath.Join(t.TempDir(), "installed.yaml"))
	require.NoError(t, err)
	assert.Empty(t, reg.All())
}

func TestRecordAndFindRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "installed.yaml")
	reg, err := Load(path)
	require.NoError(t, err)

	inst := testInstallation()
	require.NoError(t, reg.Record(inst))

	reloaded, err := Load(path)
	require.NoError(t, err)
	found, err := reloaded.Find(inst.Key())
	require.NoError(t, err)
	assert.Equal(t, inst.Module, found.Module)
	assert.Equal(t, inst.Skills, found.Skills)
	assert.Equal(t, inst.Commands, found.Commands)
	assert.True(t, found.Instructions)
}

func TestRecordReplacesByKey(t *testing.T) {
	reg, err := Load(filepath.Join(t.TempDir(), "installed.yaml"))
	require.NoError(t, err)

	inst := testInstallation()
	require.NoError(t, reg.Record(inst))

	inst.Skills = []string{"review"}
	inst.Instructions = false
	require.NoError(t, reg.Record(inst))

	assert.Len(t, reg.All(), 1)
	found, err := reg.Find(inst.Key())
	require.NoError(t, err)
	assert.Equal(t, []string{"review"}, found.Skills)
	assert.False(t, found.Instructions)
}

func TestDistinctKeysCoexist(t *testing.T) {
	reg, err := Load(filepath.Join(t.TempDir(), "installed.yaml"))
	require.NoError(t, err)

	a := testInstallation()
	b := testInstallation()
	b.Assistant = "cursor"
	c := testInstallation()
	c.Scope = install.ScopeUser
	c.ProjectPath = ""

	require.NoError(t, reg.Record(a))
	require.NoError(t, reg.Record(b))
	require.NoError(t, reg.Record(c))

	assert.Len(t, reg.All(), 3)
	assert.Len(t, reg.AllForModule("my-skills"), 3)
	assert.Len(t, reg.AllForAssistant("cursor"), 1)
	assert.Len(t, reg.AllForScope(install.ScopeUser), 1)
}

func TestFindNotFound(t *testing.T) {
	reg, err := Load(filepath.Join(t.TempDir(), "installed.yaml"))
	require.NoError(t, err)

	_, err = reg.Find(Key{Module: "ghost", Assistant: "claude-code", Scope: install.ScopeUser})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "installed.yaml")
	reg, err := Load(path)
	require.NoError(t, err)

	inst := testInstallation()
	require.NoError(t, reg.Record(inst))
	require.NoError(t, reg.Delete(inst.Key()))

	_, err = reg.Find(inst.Key())
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting again is a no-op.
	require.NoError(t, reg.Delete(inst.Key()))
}

func TestCorruptRegistryFailsLoud(t *testing.T) {
	path := filepath.Join(t.TempDir(), "installed.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: [unclosed\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	var corrupt *CorruptError
	assert.ErrorAs(t, err, &corrupt)
}

func TestUnknownFieldsSurviveRewrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "installed.yaml")
	content := `version: "1"
future_setting: keep-me
installations:
    - module: my-skills
      assistant: claude-code
      scope: user
      skills:
        - review
      provenance: some-future-field
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	reg, err := Load(path)
	require.NoError(t, err)

	// Touch an unrelated record and rewrite the file.
	other := testInstallation()
	require.NoError(t, reg.Record(other))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "future_setting: keep-me")
	assert.Contains(t, string(data), "provenance: some-future-field")
}
