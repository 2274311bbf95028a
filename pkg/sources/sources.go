// Package sources fetches module content from external origins: git
// repositories, zip and tar archives (local or URL), and local folders.
// Handlers materialize a source into a destination directory; the update
// path stages into a temporary location, validates the result, and only then
// atomically replaces the existing module store entry.
package sources

import (
	"context"
	"fmt"
)

// ErrorKind classifies fetch failures.
type ErrorKind string

// Fetch error kinds.
const (
	KindNotFound         ErrorKind = "not_found"
	KindTransportFailure ErrorKind = "transport_failure"
	KindCorruptArchive   ErrorKind = "corrupt_archive"
	KindPermissionDenied ErrorKind = "permission_denied"
)

// FetchError is a typed fetch failure with no partial side effects visible
// at the destination.
type FetchError struct {
	Kind   ErrorKind
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %s: %v", e.Source, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func fetchErr(kind ErrorKind, source string, err error) *FetchError {
	return &FetchError{Kind: kind, Source: source, Err: err}
}

// Handler materializes a module source into a destination directory.
type Handler interface {
	// Name is the stable handler identifier recorded in source provenance.
	Name() string
	// CanHandle reports whether this handler recognizes the source.
	CanHandle(source string) bool
	// Fetch materializes source into the dest directory, which must not
	// already contain module content. On failure dest is left untouched or
	// removed entirely.
	Fetch(ctx context.Context, source, dest string) error
}

// handlers in match order: URL archives before git (github archive URLs end
// in .zip/.tar.gz but are not clones), git before local paths.
func handlers() []Handler {
	return []Handler{
		&zipURLHandler{},
		&tarURLHandler{},
		&gitHandler{},
		&zipHandler{},
		&tarHandler{},
		&folderHandler{},
	}
}

// Detect returns the handler for a source, or nil when no handler
// recognizes it.
func Detect(source string) Handler {
	for _, h := range handlers() {
		if h.CanHandle(source) {
			return h
		}
	}
	return nil
}

// ByName returns the handler with the given name, or nil.
func ByName(name string) Handler {
	for _, h := range handlers() {
		if h.Name() == name {
			return h
		}
	}
	return nil
}

// Fetch materializes a source into dest using the first matching handler.
func Fetch(ctx context.Context, source, dest string) error {
	h := Detect(source)
	if h == nil {
		return fetchErr(KindNotFound, source, fmt.Errorf("unsupported source: expected a git repo, zip/tar archive, archive URL, or local folder"))
	}
	return h.Fetch(ctx, source, dest)
}
