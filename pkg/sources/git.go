package sources

import (
	"context"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// gitHandler clones a repository at depth 1 and strips its .git directory.
type gitHandler struct{}

func (g *gitHandler) Name() string { return "git" }

func (g *gitHandler) CanHandle(source string) bool {
	if strings.HasSuffix(source, ".git") {
		return true
	}
	parsed, err := url.Parse(source)
	if err != nil {
		return false
	}
	switch parsed.Scheme {
	case "git", "ssh":
		return true
	case "http", "https":
		for _, host := range []string{"github.com", "gitlab.com", "bitbucket.org"} {
			if parsed.Host == host {
				return true
			}
		}
	}
	return false
}

func (g *gitHandler) Fetch(ctx context.Context, source, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fetchErr(KindPermissionDenied, source, err)
	}

	cmd := exec.CommandContext(ctx, "git", "clone", "--depth", "1", source, dest)
	output, err := cmd.CombinedOutput()
	if err != nil {
		os.RemoveAll(dest)
		msg := strings.TrimSpace(string(output))
		if strings.Contains(msg, "not found") || strings.Contains(msg, "does not exist") {
			return fetchErr(KindNotFound, source, errors.Errorf("git clone failed: %s", msg))
		}
		return fetchErr(KindTransportFailure, source, errors.Errorf("git clone failed: %s", msg))
	}

	// A module store entry carries its own provenance; the clone history is
	// not part of the module content.
	os.RemoveAll(filepath.Join(dest, ".git"))
	return nil
}
