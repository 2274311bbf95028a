// Package osutil provides filesystem helpers shared by the source handlers
// and the module store: recursive copies and the stage-then-swap discipline
// used for every multi-step external mutation.
package osutil

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// CopyDir recursively copies src into dst, preserving file modes.
func CopyDir(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		destPath := filepath.Join(dst, relPath)

		if info.IsDir() {
			return os.MkdirAll(destPath, info.Mode())
		}
		return CopyFile(path, destPath)
	})
}

// CopyFile copies a single file, creating parent directories as needed.
func CopyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	srcInfo, err := srcFile.Stat()
	if err != nil {
		return err
	}

	dstFile, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, srcInfo.Mode())
	if err != nil {
		return err
	}
	defer dstFile.Close()

	_, err = io.Copy(dstFile, srcFile)
	return err
}

// SwapDir atomically replaces dst with src. The current dst (if any) is
// moved aside first and restored when the swap fails, so an interrupted
// operation is observable only as "not yet applied", never as a torn state.
// src and dst must be on the same filesystem.
func SwapDir(src, dst string) error {
	backup := dst + ".old"
	os.RemoveAll(backup)

	hadPrevious := false
	if _, err := os.Stat(dst); err == nil {
		if err := os.Rename(dst, backup); err != nil {
			return errors.Wrap(err, "failed to move previous directory aside")
		}
		hadPrevious = true
	}

	if err := os.Rename(src, dst); err != nil {
		if hadPrevious {
			if restoreErr := os.Rename(backup, dst); restoreErr != nil {
				return errors.Wrapf(err, "swap failed and restore failed: %v", restoreErr)
			}
		}
		return errors.Wrap(err, "failed to move staged directory into place")
	}

	if hadPrevious {
		os.RemoveAll(backup)
	}
	return nil
}

// WriteFileAtomic writes data to path through a temporary file in the same
// directory and an atomic rename.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
