package installer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/skillet/pkg/registry"
	"github.com/jingkaihe/skillet/pkg/section"
	"github.com/jingkaihe/skillet/pkg/store"
	"github.com/jingkaihe/skillet/pkg/types/install"
)

type fixture struct {
	src     string
	store   *store.Store
	reg     *registry.Registry
	ins     *Installer
	project string
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func writeSourceModule(t *testing.T, src string) {
	t.Helper()
	writeFile(t, filepath.Join(src, ".skillet", "module.yaml"),
		"name: my-skills\nversion: 1.0.0\ndescription: Test module\n")
	writeFile(t, filepath.Join(src, "skills", "review", "SKILL.md"),
		"---\nname: review\ndescription: Reviews code changes\n---\n\nReview carefully.\n")
	writeFile(t, filepath.Join(src, "skills", "deploy", "SKILL.md"),
		"---\nname: deploy\ndescription: Handles deployments\n---\n\nDeploy safely.\n")
	writeFile(t, filepath.Join(src, "commands", "lint.md"),
		"---\ndescription: Run the linter\n---\n\nLint $ARGUMENTS\n")
	writeFile(t, filepath.Join(src, "agents", "tester.md"),
		"---\nname: tester\ndescription: Writes tests\n---\n\nWrite tests.\n")
	writeFile(t, filepath.Join(src, "INSTRUCTIONS.md"), "Always lint before committing.\n")
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	src := filepath.Join(t.TempDir(), "module-src")
	writeSourceModule(t, src)

	st, err := store.New(store.WithBaseDir(t.TempDir()))
	require.NoError(t, err)
	_, err = st.Add(ctx, src, "my-skills")
	require.NoError(t, err)

	reg, err := registry.Load(st.RegistryPath())
	require.NoError(t, err)

	return &fixture{
		src:     src,
		store:   st,
		reg:     reg,
		ins:     New(st, reg),
		project: t.TempDir(),
	}
}

func (f *fixture) request(assistant string) Request {
	return Request{
		Module:      "my-skills",
		Assistant:   assistant,
		Scope:       install.ScopeProject,
		ProjectPath: f.project,
	}
}

func TestInstallRendersAndRecords(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	res, err := f.ins.Install(ctx, f.request("claude-code"))
	require.NoError(t, err)
	assert.Equal(t, StateDone, res.State)
	assert.False(t, res.Partial())
	assert.Len(t, res.Installed, 5) // 2 skills + 1 command + 1 agent + instructions

	assert.FileExists(t, filepath.Join(f.project, ".claude", "skills", "my-skills.review", "SKILL.md"))
	assert.FileExists(t, filepath.Join(f.project, ".claude", "skills", "my-skills.deploy", "SKILL.md"))
	assert.FileExists(t, filepath.Join(f.project, ".claude", "commands", "my-skills.lint.md"))
	assert.FileExists(t, filepath.Join(f.project, ".claude", "agents", "my-skills.tester.md"))

	claudeMD, err := os.ReadFile(filepath.Join(f.project, "CLAUDE.md"))
	require.NoError(t, err)
	assert.Contains(t, string(claudeMD), "Always lint before committing.")

	// A project-local copy backs the install.
	assert.DirExists(t, filepath.Join(f.project, ".skillet", "modules", "my-skills"))

	inst, err := f.reg.Find(registry.Key{
		Module: "my-skills", Assistant: "claude-code",
		Scope: install.ScopeProject, ProjectPath: f.project,
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"review", "deploy"}, inst.Skills)
	assert.Equal(t, []string{"lint"}, inst.Commands)
	assert.Equal(t, []string{"tester"}, inst.Agents)
	assert.True(t, inst.Instructions)
}

func TestInstallUnknownModuleIsFatal(t *testing.T) {
	f := setup(t)

	res, err := f.ins.Install(context.Background(), Request{
		Module: "ghost", Assistant: "claude-code",
		Scope: install.ScopeProject, ProjectPath: f.project,
	})
	require.Error(t, err)
	assert.Equal(t, StateFailed, res.State)
	assert.Empty(t, f.reg.All())
}

func TestInstallUnknownAssistantIsFatal(t *testing.T) {
	f := setup(t)

	res, err := f.ins.Install(context.Background(), f.request("emacs"))
	require.Error(t, err)
	assert.Equal(t, StateFailed, res.State)
	assert.Empty(t, f.reg.All())
	assert.NoFileExists(t, filepath.Join(f.project, "CLAUDE.md"))
}

func TestInstallUnsupportedKindIsWarning(t *testing.T) {
	f := setup(t)

	// Gemini has no agent concept: the agent becomes a warning, everything
	// else installs, and the record carries no agents.
	res, err := f.ins.Install(context.Background(), f.request("gemini-cli"))
	require.NoError(t, err)
	assert.Equal(t, StateDone, res.State)
	assert.NotEmpty(t, res.Warnings)

	inst, err := f.reg.Find(registry.Key{
		Module: "my-skills", Assistant: "gemini-cli",
		Scope: install.ScopeProject, ProjectPath: f.project,
	})
	require.NoError(t, err)
	assert.Empty(t, inst.Agents)
	assert.ElementsMatch(t, []string{"review", "deploy"}, inst.Skills)
}

func TestInstallAgentOnlyModuleToGeminiFails(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	src := filepath.Join(t.TempDir(), "agents-only")
	writeFile(t, filepath.Join(src, "agents", "helper.md"),
		"---\nname: helper\ndescription: Helps out\n---\n\nHelp.\n")
	_, err := f.store.Add(ctx, src, "agents-only")
	require.NoError(t, err)

	res, err := f.ins.Install(ctx, Request{
		Module: "agents-only", Assistant: "gemini-cli",
		Scope: install.ScopeProject, ProjectPath: f.project,
	})
	require.ErrorIs(t, err, ErrNoComponents)
	assert.Equal(t, StateFailed, res.State)
	assert.Empty(t, f.reg.AllForModule("agents-only"))
}

func TestReinstallReplacesRecord(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.ins.Install(ctx, f.request("claude-code"))
	require.NoError(t, err)
	_, err = f.ins.Install(ctx, f.request("claude-code"))
	require.NoError(t, err)

	assert.Len(t, f.reg.All(), 1)
}

func TestUninstallRemovesArtifactsAndRecord(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.ins.Install(ctx, f.request("claude-code"))
	require.NoError(t, err)

	res, err := f.ins.Uninstall(ctx, f.request("claude-code"))
	require.NoError(t, err)
	assert.Equal(t, StateDone, res.State)

	assert.NoDirExists(t, filepath.Join(f.project, ".claude", "skills", "my-skills.review"))
	assert.NoFileExists(t, filepath.Join(f.project, ".claude", "commands", "my-skills.lint.md"))

	claudeMD, err := os.ReadFile(filepath.Join(f.project, "CLAUDE.md"))
	require.NoError(t, err)
	assert.NotContains(t, string(claudeMD), "Always lint before committing.")

	_, err = f.reg.Find(registry.Key{
		Module: "my-skills", Assistant: "claude-code",
		Scope: install.ScopeProject, ProjectPath: f.project,
	})
	assert.ErrorIs(t, err, registry.ErrNotFound)

	// Last installation gone: the project copy goes with it.
	assert.NoDirExists(t, filepath.Join(f.project, ".skillet", "modules", "my-skills"))
}

func TestUninstallKeepsProjectCopyWhileStillUsed(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.ins.Install(ctx, f.request("claude-code"))
	require.NoError(t, err)
	_, err = f.ins.Install(ctx, f.request("cursor"))
	require.NoError(t, err)

	_, err = f.ins.Uninstall(ctx, f.request("claude-code"))
	require.NoError(t, err)
	assert.DirExists(t, filepath.Join(f.project, ".skillet", "modules", "my-skills"))

	_, err = f.ins.Uninstall(ctx, f.request("cursor"))
	require.NoError(t, err)
	assert.NoDirExists(t, filepath.Join(f.project, ".skillet", "modules", "my-skills"))
}

func TestInstallUsesStoreNameWhenManifestDiffers(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	// The manifest carries its upstream name; the user added the module
	// under a different one. Artifacts and records must agree on the store
	// name so uninstall can find everything install wrote.
	src := filepath.Join(t.TempDir(), "renamed-src")
	writeFile(t, filepath.Join(src, ".skillet", "module.yaml"),
		"name: upstream-name\nversion: 1.0.0\n")
	writeFile(t, filepath.Join(src, "skills", "review", "SKILL.md"),
		"---\nname: review\ndescription: Reviews code changes\n---\n\nReview.\n")
	_, err := f.store.Add(ctx, src, "custom")
	require.NoError(t, err)

	req := Request{
		Module: "custom", Assistant: "claude-code",
		Scope: install.ScopeProject, ProjectPath: f.project,
	}
	_, err = f.ins.Install(ctx, req)
	require.NoError(t, err)

	assert.DirExists(t, filepath.Join(f.project, ".claude", "skills", "custom.review"))
	assert.NoDirExists(t, filepath.Join(f.project, ".claude", "skills", "upstream-name.review"))

	_, err = f.ins.Uninstall(ctx, req)
	require.NoError(t, err)
	assert.NoDirExists(t, filepath.Join(f.project, ".claude", "skills", "custom.review"))

	entries, err := os.ReadDir(filepath.Join(f.project, ".claude", "skills"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUninstallPartialFailureIsReported(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.ins.Install(ctx, f.request("codex"))
	require.NoError(t, err)

	// Corrupt the shared document's skill markers: skill removal now hits a
	// layout conflict while everything else still comes off cleanly.
	markers := section.ForPurpose("skills")
	corrupted := markers.Start + "\n" + markers.End + "\n" + markers.Start + "\n" + markers.End + "\n"
	writeFile(t, filepath.Join(f.project, "AGENTS.md"), corrupted)

	res, err := f.ins.Uninstall(ctx, f.request("codex"))
	require.NoError(t, err)
	assert.Equal(t, StateDone, res.State)
	assert.True(t, res.Partial())
	assert.NotEmpty(t, res.Failed)
	assert.NotEmpty(t, res.Warnings)

	// The record goes regardless of removal failures.
	assert.Empty(t, f.reg.AllForModule("my-skills"))
}

func TestUninstallToleratesMissingArtifacts(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.ins.Install(ctx, f.request("claude-code"))
	require.NoError(t, err)

	// Someone deleted artifacts by hand; uninstall still completes and the
	// record is dropped.
	require.NoError(t, os.RemoveAll(filepath.Join(f.project, ".claude")))

	res, err := f.ins.Uninstall(ctx, f.request("claude-code"))
	require.NoError(t, err)
	assert.Equal(t, StateDone, res.State)
	assert.Empty(t, f.reg.All())
}

func TestUninstallUnknownInstallation(t *testing.T) {
	f := setup(t)

	_, err := f.ins.Uninstall(context.Background(), f.request("claude-code"))
	assert.ErrorIs(t, err, registry.ErrNotFound)
}

func TestUpdateDropsRemovedSkill(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.ins.Install(ctx, f.request("claude-code"))
	require.NoError(t, err)

	// The module author deletes a skill at the source.
	require.NoError(t, os.RemoveAll(filepath.Join(f.src, "skills", "deploy")))

	results, err := f.ins.Update(ctx, "my-skills")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, StateDone, results[0].State)

	assert.NoDirExists(t, filepath.Join(f.project, ".claude", "skills", "my-skills.deploy"))
	assert.DirExists(t, filepath.Join(f.project, ".claude", "skills", "my-skills.review"))

	inst, err := f.reg.Find(registry.Key{
		Module: "my-skills", Assistant: "claude-code",
		Scope: install.ScopeProject, ProjectPath: f.project,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"review"}, inst.Skills)
}

func TestUpdateReconcilesMergedDocuments(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.ins.Install(ctx, f.request("codex"))
	require.NoError(t, err)

	require.NoError(t, os.RemoveAll(filepath.Join(f.src, "skills", "deploy")))

	_, err = f.ins.Update(ctx, "my-skills")
	require.NoError(t, err)

	agentsMD, err := os.ReadFile(filepath.Join(f.project, "AGENTS.md"))
	require.NoError(t, err)
	assert.NotContains(t, string(agentsMD), "#### deploy")
	assert.Contains(t, string(agentsMD), "#### review")
}

func TestUpdateUnknownModule(t *testing.T) {
	f := setup(t)

	_, err := f.ins.Update(context.Background(), "ghost")
	assert.ErrorIs(t, err, store.ErrModuleNotFound)
}

func TestUpdateAll(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.ins.Install(ctx, f.request("claude-code"))
	require.NoError(t, err)
	_, err = f.ins.Install(ctx, f.request("cursor"))
	require.NoError(t, err)

	all, err := f.ins.UpdateAll(ctx)
	require.NoError(t, err)
	require.Contains(t, all, "my-skills")
	assert.Len(t, all["my-skills"], 2)
}
