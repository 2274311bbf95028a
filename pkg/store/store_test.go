package store

import (
	"context"
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

func writeSourceModule(t *testing.T, root, name string) {
	t.Helper()
	writeFile(t, filepath.Join(root, ".skillet", "module.yaml"), "name: "+name+"\nversion: 1.0.0\n")
	writeFile(t, filepath.Join(root, "skills", "review", "SKILL.md"),
		"---\nname: review\ndescription: Reviews code changes\n---\n\nReview carefully.\n")
}

func testStore(t *testing.T) *Store {
	t.Helper()
	st, err := New(WithBaseDir(t.TempDir()))
	require.NoError(t, err)
	return st
}

func TestAddAndResolve(t *testing.T) {
	ctx := context.Background()
	st := testStore(t)

	src := filepath.Join(t.TempDir(), "some-dir")
	writeSourceModule(t, src, "my-skills")

	m, err := st.Add(ctx, src, "")
	require.NoError(t, err)
	// The manifest name wins over the source directory name.
	assert.Equal(t, "my-skills", m.Name)
	assert.Equal(t, st.ModulePath("my-skills"), m.Path)

	resolved, err := st.Resolve("my-skills")
	require.NoError(t, err)
	assert.Equal(t, []string{"review"}, resolved.SkillNames())

	// Source provenance is recorded for later updates.
	assert.FileExists(t, filepath.Join(m.Path, ".skillet", "source.yaml"))
}

func TestAddNameOverride(t *testing.T) {
	ctx := context.Background()
	st := testStore(t)

	src := filepath.Join(t.TempDir(), "some-dir")
	writeSourceModule(t, src, "my-skills")

	m, err := st.Add(ctx, src, "renamed")
	require.NoError(t, err)
	assert.Equal(t, "renamed", m.Name)
	assert.DirExists(t, st.ModulePath("renamed"))
}

func TestResolveKeepsStoreNameOverManifest(t *testing.T) {
	ctx := context.Background()
	st := testStore(t)

	src := filepath.Join(t.TempDir(), "some-dir")
	writeSourceModule(t, src, "upstream-name")

	m, err := st.Add(ctx, src, "renamed")
	require.NoError(t, err)
	assert.Equal(t, "renamed", m.Name)

	// The manifest still says upstream-name, but the store entry is what
	// every later operation keys on.
	resolved, err := st.Resolve("renamed")
	require.NoError(t, err)
	assert.Equal(t, "renamed", resolved.Name)

	modules, err := st.List(ctx)
	require.NoError(t, err)
	require.Len(t, modules, 1)
	assert.Equal(t, "renamed", modules[0].Name)
}

func TestAddReplacesExistingEntry(t *testing.T) {
	ctx := context.Background()
	st := testStore(t)

	src := filepath.Join(t.TempDir(), "some-dir")
	writeSourceModule(t, src, "my-skills")
	_, err := st.Add(ctx, src, "")
	require.NoError(t, err)

	writeFile(t, filepath.Join(src, "skills", "deploy", "SKILL.md"),
		"---\nname: deploy\ndescription: Handles deployments\n---\n\nDeploy.\n")
	m, err := st.Add(ctx, src, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"deploy", "review"}, m.SkillNames())
}

func TestAddInvalidSourceLeavesNoEntry(t *testing.T) {
	ctx := context.Background()
	st := testStore(t)

	src := t.TempDir() // empty directory, no components
	_, err := st.Add(ctx, src, "empty")
	require.Error(t, err)
	assert.NoDirExists(t, st.ModulePath("empty"))
}

func TestResolveNotFound(t *testing.T) {
	st := testStore(t)
	_, err := st.Resolve("ghost")
	assert.ErrorIs(t, err, ErrModuleNotFound)
}

func TestResolveRejectsTraversal(t *testing.T) {
	st := testStore(t)
	_, err := st.Resolve("../escape")
	assert.Error(t, err)
	_, err = st.Resolve("..")
	assert.Error(t, err)
}

func TestListSortedByName(t *testing.T) {
	ctx := context.Background()
	st := testStore(t)

	for _, name := range []string{"zeta", "alpha"} {
		src := filepath.Join(t.TempDir(), name)
		writeSourceModule(t, src, name)
		_, err := st.Add(ctx, src, "")
		require.NoError(t, err)
	}

	modules, err := st.List(ctx)
	require.NoError(t, err)
	require.Len(t, modules, 2)
	assert.Equal(t, "alpha", modules[0].Name)
	assert.Equal(t, "zeta", modules[1].Name)
}

func TestListEmptyStore(t *testing.T) {
	st := testStore(t)
	modules, err := st.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, modules)
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	st := testStore(t)

	src := filepath.Join(t.TempDir(), "some-dir")
	writeSourceModule(t, src, "my-skills")
	_, err := st.Add(ctx, src, "")
	require.NoError(t, err)

	require.NoError(t, st.Remove("my-skills"))
	assert.NoDirExists(t, st.ModulePath("my-skills"))

	assert.ErrorIs(t, st.Remove("my-skills"), ErrModuleNotFound)
}

func TestCopyToProjectAndRemoveCopy(t *testing.T) {
	ctx := context.Background()
	st := testStore(t)

	src := filepath.Join(t.TempDir(), "some-dir")
	writeSourceModule(t, src, "my-skills")
	m, err := st.Add(ctx, src, "")
	require.NoError(t, err)

	project := t.TempDir()
	dest, err := st.CopyToProject(m, project)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(project, ".skillet", "modules", "my-skills"), dest)
	assert.FileExists(t, filepath.Join(dest, "skills", "review", "SKILL.md"))

	require.NoError(t, st.RemoveProjectCopy("my-skills", project))
	assert.NoDirExists(t, dest)
}

func TestDeriveName(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"https://github.com/example/My-Skills.git", "my-skills"},
		{"https://example.com/path/skills_pack.zip", "skills-pack"},
		{"https://example.com/archive.tar.gz", "archive"},
		{"/home/user/Modules/Dev Tools", "dev-tools"},
		{"./relative/dir", "dir"},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveName(tt.source))
		})
	}
}
