package sources

import (
	"archive/tar"
	"archive/zip"
	"compress/bzip2"
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/pkg/errors"

	"github.com/jingkaihe/skillet/pkg/module"
	"github.com/jingkaihe/skillet/pkg/osutil"
)

var tarExtensions = []string{".tar", ".tar.gz", ".tgz", ".tar.bz2"}

func hasTarExtension(path string) bool {
	lower := strings.ToLower(path)
	for _, ext := range tarExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// zipHandler extracts a local zip archive.
type zipHandler struct{}

func (z *zipHandler) Name() string { return "zip" }

func (z *zipHandler) CanHandle(source string) bool {
	if !strings.HasSuffix(strings.ToLower(source), ".zip") {
		return false
	}
	_, err := os.Stat(source)
	return err == nil
}

func (z *zipHandler) Fetch(_ context.Context, source, dest string) error {
	return extractArchive(source, source, dest, extractZip)
}

// tarHandler extracts a local tar archive (.tar, .tar.gz, .tgz, .tar.bz2).
type tarHandler struct{}

func (t *tarHandler) Name() string { return "tar" }

func (t *tarHandler) CanHandle(source string) bool {
	if !hasTarExtension(source) {
		return false
	}
	_, err := os.Stat(source)
	return err == nil
}

func (t *tarHandler) Fetch(_ context.Context, source, dest string) error {
	return extractArchive(source, source, dest, extractTar)
}

// zipURLHandler downloads and extracts a zip archive URL.
type zipURLHandler struct{}

func (z *zipURLHandler) Name() string { return "zipurl" }

func (z *zipURLHandler) CanHandle(source string) bool {
	parsed, err := url.Parse(source)
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") &&
		strings.HasSuffix(strings.ToLower(parsed.Path), ".zip")
}

func (z *zipURLHandler) Fetch(ctx context.Context, source, dest string) error {
	return fetchURL(ctx, source, dest, extractZip)
}

// tarURLHandler downloads and extracts a tar archive URL.
type tarURLHandler struct{}

func (t *tarURLHandler) Name() string { return "tarurl" }

func (t *tarURLHandler) CanHandle(source string) bool {
	parsed, err := url.Parse(source)
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && hasTarExtension(parsed.Path)
}

func (t *tarURLHandler) Fetch(ctx context.Context, source, dest string) error {
	return fetchURL(ctx, source, dest, extractTar)
}

type extractFunc func(archivePath, dest string) error

// fetchURL downloads an archive to a temporary file, retrying transient
// transport failures, then extracts it.
func fetchURL(ctx context.Context, source, dest string, extract extractFunc) error {
	tmpDir, err := os.MkdirTemp("", "skillet-download-")
	if err != nil {
		return fetchErr(KindPermissionDenied, source, err)
	}
	defer os.RemoveAll(tmpDir)

	archivePath := filepath.Join(tmpDir, filepath.Base(source))
	err = retry.Do(
		func() error { return downloadFile(ctx, source, archivePath) },
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			var fe *FetchError
			return errors.As(err, &fe) && fe.Kind == KindTransportFailure
		}),
	)
	if err != nil {
		return err
	}

	return extractArchive(source, archivePath, dest, extract)
}

func downloadFile(ctx context.Context, source, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return fetchErr(KindTransportFailure, source, err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fetchErr(KindTransportFailure, source, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fetchErr(KindNotFound, source, errors.Errorf("HTTP %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return fetchErr(KindTransportFailure, source, errors.Errorf("HTTP %d", resp.StatusCode))
	}

	out, err := os.Create(dest)
	if err != nil {
		return fetchErr(KindPermissionDenied, source, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fetchErr(KindTransportFailure, source, err)
	}
	return nil
}

// extractArchive extracts into a scratch directory, locates the module root
// within the extracted tree, and copies it into dest. The destination only
// appears after a fully successful extraction.
func extractArchive(source, archivePath, dest string, extract extractFunc) error {
	scratch, err := os.MkdirTemp("", "skillet-extract-")
	if err != nil {
		return fetchErr(KindPermissionDenied, source, err)
	}
	defer os.RemoveAll(scratch)

	if err := extract(archivePath, scratch); err != nil {
		return fetchErr(KindCorruptArchive, source, err)
	}

	root := findModuleRoot(scratch)
	if err := osutil.CopyDir(root, dest); err != nil {
		os.RemoveAll(dest)
		return fetchErr(KindPermissionDenied, source, err)
	}
	return nil
}

// findModuleRoot locates the module content root inside an extracted tree:
// the directory holding the manifest or a skills/commands/agents layout,
// falling back to a solitary top-level directory, then the tree itself.
func findModuleRoot(dir string) string {
	var found string
	filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || found != "" {
			return filepath.SkipDir
		}
		if !info.IsDir() {
			return nil
		}
		for _, probe := range []string{
			filepath.FromSlash(module.ManifestPath),
			"skills",
			"commands",
			"agents",
		} {
			if _, err := os.Stat(filepath.Join(path, probe)); err == nil {
				found = path
				return filepath.SkipDir
			}
		}
		return nil
	})
	if found != "" {
		return found
	}

	entries, err := os.ReadDir(dir)
	if err == nil && len(entries) == 1 && entries[0].IsDir() {
		return filepath.Join(dir, entries[0].Name())
	}
	return dir
}

func extractZip(archivePath, dest string) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return errors.Wrap(err, "failed to open zip archive")
	}
	defer reader.Close()

	for _, file := range reader.File {
		target, err := safeJoin(dest, file.Name)
		if err != nil {
			return err
		}

		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}

		src, err := file.Open()
		if err != nil {
			return errors.Wrapf(err, "failed to read %s", file.Name)
		}

		dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, file.Mode())
		if err != nil {
			src.Close()
			return err
		}

		_, err = io.Copy(dst, src)
		src.Close()
		dst.Close()
		if err != nil {
			return errors.Wrapf(err, "failed to extract %s", file.Name)
		}
	}
	return nil
}

func extractTar(archivePath, dest string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return errors.Wrap(err, "failed to open tar archive")
	}
	defer f.Close()

	var reader io.Reader = f
	lower := strings.ToLower(archivePath)
	switch {
	case strings.HasSuffix(lower, ".gz") || strings.HasSuffix(lower, ".tgz"):
		gz, err := gzip.NewReader(f)
		if err != nil {
			return errors.Wrap(err, "failed to read gzip stream")
		}
		defer gz.Close()
		reader = gz
	case strings.HasSuffix(lower, ".bz2"):
		reader = bzip2.NewReader(f)
	}

	tr := tar.NewReader(reader)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "failed to read tar entry")
		}

		target, err := safeJoin(dest, header.Name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, os.FileMode(header.Mode)&0o777)
			if err != nil {
				return err
			}
			if _, err := io.Copy(dst, tr); err != nil {
				dst.Close()
				return errors.Wrapf(err, "failed to extract %s", header.Name)
			}
			dst.Close()
		}
	}
}

// safeJoin joins an archive member name onto dest, rejecting entries that
// escape the extraction root.
func safeJoin(dest, name string) (string, error) {
	target := filepath.Join(dest, filepath.FromSlash(name))
	if target != dest && !strings.HasPrefix(target, dest+string(os.PathSeparator)) {
		return "", errors.Errorf("archive entry %q escapes extraction directory", name)
	}
	return target, nil
}
