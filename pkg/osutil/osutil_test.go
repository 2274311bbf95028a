package osutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyDir(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "nested", "deep"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "top.txt"), []byte("top"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "nested", "deep", "leaf.txt"), []byte("leaf"), 0o600))

	dst := filepath.Join(t.TempDir(), "copy")
	require.NoError(t, CopyDir(src, dst))

	data, err := os.ReadFile(filepath.Join(dst, "top.txt"))
	require.NoError(t, err)
	assert.Equal(t, "top", string(data))

	info, err := os.Stat(filepath.Join(dst, "nested", "deep", "leaf.txt"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestSwapDirReplacesExisting(t *testing.T) {
	base := t.TempDir()

	old := filepath.Join(base, "dst")
	require.NoError(t, os.MkdirAll(old, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(old, "v.txt"), []byte("old"), 0o644))

	staged := filepath.Join(base, "staged")
	require.NoError(t, os.MkdirAll(staged, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(staged, "v.txt"), []byte("new"), 0o644))

	require.NoError(t, SwapDir(staged, old))

	data, err := os.ReadFile(filepath.Join(old, "v.txt"))
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
	assert.NoDirExists(t, staged)
	assert.NoDirExists(t, old+".old")
}

func TestSwapDirWithoutPrevious(t *testing.T) {
	base := t.TempDir()
	staged := filepath.Join(base, "staged")
	require.NoError(t, os.MkdirAll(staged, 0o755))

	dst := filepath.Join(base, "dst")
	require.NoError(t, SwapDir(staged, dst))
	assert.DirExists(t, dst)
}

func TestSwapDirRestoresOnFailure(t *testing.T) {
	base := t.TempDir()

	dst := filepath.Join(base, "dst")
	require.NoError(t, os.MkdirAll(dst, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dst, "v.txt"), []byte("old"), 0o644))

	// The staged source does not exist, so the swap fails after moving the
	// previous directory aside; it must come back.
	err := SwapDir(filepath.Join(base, "missing"), dst)
	require.Error(t, err)

	data, err := os.ReadFile(filepath.Join(dst, "v.txt"))
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))
}

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "doc.md")

	require.NoError(t, WriteFileAtomic(path, []byte("one"), 0o644))
	require.NoError(t, WriteFileAtomic(path, []byte("two"), 0o644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	// No temp litter left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
