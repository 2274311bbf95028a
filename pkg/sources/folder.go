package sources

import (
	"context"
	"os"
	"path/filepath"

	"github.com/jingkaihe/skillet/pkg/osutil"
)

// folderHandler copies a local directory tree.
type folderHandler struct{}

func (f *folderHandler) Name() string { return "folder" }

func (f *folderHandler) CanHandle(source string) bool {
	info, err := os.Stat(source)
	return err == nil && info.IsDir()
}

func (f *folderHandler) Fetch(_ context.Context, source, dest string) error {
	abs, err := filepath.Abs(source)
	if err != nil {
		return fetchErr(KindNotFound, source, err)
	}
	if err := osutil.CopyDir(abs, dest); err != nil {
		os.RemoveAll(dest)
		return fetchErr(KindPermissionDenied, source, err)
	}
	return nil
}
