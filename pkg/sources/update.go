package sources

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/jingkaihe/skillet/pkg/logger"
	"github.com/jingkaihe/skillet/pkg/module"
	"github.com/jingkaihe/skillet/pkg/osutil"
)

// Update refetches a stored module from its recorded source. The fetch goes
// into a staging directory next to the module; only after the staged content
// validates as a discoverable module is the existing entry replaced by an
// atomic swap. On any failure the staging directory is deleted and the
// previous entry is left completely untouched.
func Update(ctx context.Context, modulePath string) (*module.Module, error) {
	info, err := LoadInfo(modulePath)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, errors.New("no source information recorded: module cannot be updated")
	}

	handler := ByName(info.Type)
	if handler == nil {
		return nil, errors.Errorf("unknown source type %q", info.Type)
	}

	staging, err := os.MkdirTemp(filepath.Dir(modulePath), "."+filepath.Base(modulePath)+"-staging-")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create staging directory")
	}
	defer os.RemoveAll(staging)

	// The handler wants a destination that does not exist yet.
	stagingDest := filepath.Join(staging, "content")
	if err := handler.Fetch(ctx, info.Source, stagingDest); err != nil {
		return nil, err
	}

	if err := SaveInfo(stagingDest, info.Source, info.Type); err != nil {
		return nil, err
	}

	staged, err := module.Discover(stagingDest)
	if err != nil {
		return nil, errors.Wrap(err, "fetched content is not a valid module; keeping previous version")
	}

	for _, warning := range staged.Warnings {
		logger.G(ctx).WithField("module", staged.Name).Warn(warning)
	}

	if err := osutil.SwapDir(stagingDest, modulePath); err != nil {
		return nil, err
	}

	updated, err := module.Discover(modulePath)
	if err != nil {
		return nil, err
	}
	return updated, nil
}
