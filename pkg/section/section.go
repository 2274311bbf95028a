// Package section implements the managed-section protocol used by
// merged-document targets. A shared document (for example GEMINI.md or
// AGENTS.md) contains at most one managed section per purpose, delimited by
// HTML comment markers, and the section contains at most one block per
// module. The package is a pure text transformation: callers read the file,
// pass its content through Upsert or Remove, and write the result back.
package section

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

const namespace = "skillet"

// Markers is a start/end marker pair delimiting a managed section.
type Markers struct {
	Start string
	End   string
}

// ForPurpose returns the section markers for a purpose such as "skills" or
// "instructions". The skillet namespace prefix keeps the markers from
// colliding with user-authored comments.
func ForPurpose(purpose string) Markers {
	return Markers{
		Start: fmt.Sprintf("<!-- %s:%s:start -->", namespace, purpose),
		End:   fmt.Sprintf("<!-- %s:%s:end -->", namespace, purpose),
	}
}

func blockStart(module string) string {
	return fmt.Sprintf("<!-- %s:module:%s:start -->", namespace, module)
}

func blockEnd(module string) string {
	return fmt.Sprintf("<!-- %s:module:%s:end -->", namespace, module)
}

// ConflictError reports corrupted marker structure: duplicated or unbalanced
// markers. It is never silently repaired since guessing intent risks
// destroying user edits.
type ConflictError struct {
	Marker string
	Reason string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("managed section conflict: %s marker %q", e.Reason, e.Marker)
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

var blockMarkerRe = regexp.MustCompile(`<!-- ` + namespace + `:module:([A-Za-z0-9._-]+):(start|end) -->`)

type block struct {
	key  string
	body string
}

// Upsert inserts or replaces the block for moduleKey inside the managed
// section identified by markers. When the section is absent it is appended
// to the end of the document, preserving all prior bytes. Blocks are kept
// sorted by module key, so repeated upserts converge to the same document
// regardless of install order.
func Upsert(doc string, markers Markers, moduleKey, body string) (string, error) {
	before, inner, after, found, err := locate(doc, markers)
	if err != nil {
		return "", err
	}

	if !found {
		sec := markers.Start + "\n" + renderBlock(moduleKey, body) + markers.End + "\n"
		switch {
		case doc == "":
			return sec, nil
		case strings.HasSuffix(doc, "\n"):
			return doc + "\n" + sec, nil
		default:
			return doc + "\n\n" + sec, nil
		}
	}

	preamble, blocks, err := parseBlocks(inner)
	if err != nil {
		return "", err
	}

	replaced := false
	for i := range blocks {
		if blocks[i].key == moduleKey {
			blocks[i].body = normalizeBody(body)
			replaced = true
			break
		}
	}
	if !replaced {
		blocks = append(blocks, block{key: moduleKey, body: normalizeBody(body)})
	}

	return before + renderSection(markers, preamble, blocks) + after, nil
}

// Remove deletes the block for moduleKey, including its markers. Removing a
// missing block is a no-op, and the section markers are never deleted even
// when the section becomes empty: they remain a stable anchor for future
// upserts.
func Remove(doc string, markers Markers, moduleKey string) (string, error) {
	before, inner, after, found, err := locate(doc, markers)
	if err != nil {
		return "", err
	}
	if !found {
		return doc, nil
	}

	preamble, blocks, err := parseBlocks(inner)
	if err != nil {
		return "", err
	}

	kept := blocks[:0]
	removed := false
	for _, b := range blocks {
		if b.key == moduleKey {
			removed = true
			continue
		}
		kept = append(kept, b)
	}
	if !removed {
		return doc, nil
	}

	return before + renderSection(markers, preamble, kept) + after, nil
}

// Body returns the body of the block for moduleKey, or the empty string
// when the section or the block is absent.
func Body(doc string, markers Markers, moduleKey string) (string, error) {
	_, inner, _, found, err := locate(doc, markers)
	if err != nil || !found {
		return "", err
	}
	_, blocks, err := parseBlocks(inner)
	if err != nil {
		return "", err
	}
	for _, b := range blocks {
		if b.key == moduleKey {
			return b.body, nil
		}
	}
	return "", nil
}

// Contains reports whether the managed section holds a block for moduleKey.
func Contains(doc string, markers Markers, moduleKey string) (bool, error) {
	_, inner, _, found, err := locate(doc, markers)
	if err != nil || !found {
		return false, err
	}
	_, blocks, err := parseBlocks(inner)
	if err != nil {
		return false, err
	}
	for _, b := range blocks {
		if b.key == moduleKey {
			return true, nil
		}
	}
	return false, nil
}

// locate splits the document around the managed section. found is false when
// neither marker is present. Duplicated or unbalanced section markers yield
// a ConflictError.
func locate(doc string, markers Markers) (before, inner, after string, found bool, err error) {
	startCount := strings.Count(doc, markers.Start)
	endCount := strings.Count(doc, markers.End)

	switch {
	case startCount == 0 && endCount == 0:
		return "", "", "", false, nil
	case startCount > 1:
		return "", "", "", false, &ConflictError{Marker: markers.Start, Reason: "duplicated"}
	case endCount > 1:
		return "", "", "", false, &ConflictError{Marker: markers.End, Reason: "duplicated"}
	case startCount != endCount:
		missing := markers.End
		if endCount == 1 {
			missing = markers.Start
		}
		return "", "", "", false, &ConflictError{Marker: missing, Reason: "unbalanced"}
	}

	startIdx := strings.Index(doc, markers.Start)
	endIdx := strings.Index(doc, markers.End)
	if endIdx < startIdx {
		return "", "", "", false, &ConflictError{Marker: markers.End, Reason: "unbalanced"}
	}

	innerStart := startIdx + len(markers.Start)
	inner = doc[innerStart:endIdx]
	inner = strings.TrimPrefix(inner, "\n")
	return doc[:startIdx], inner, doc[endIdx+len(markers.End):], true, nil
}

// parseBlocks extracts module blocks from section content. Text inside the
// section that belongs to no block is preserved verbatim as a preamble ahead
// of the blocks.
func parseBlocks(inner string) (preamble string, blocks []block, err error) {
	matches := blockMarkerRe.FindAllStringSubmatchIndex(inner, -1)

	var stray strings.Builder
	cursor := 0
	var openKey string
	openEnd := -1 // index just past the open marker (and its newline)

	for _, m := range matches {
		markerText := inner[m[0]:m[1]]
		key := inner[m[2]:m[3]]
		kind := inner[m[4]:m[5]]

		if kind == "start" {
			if openKey != "" {
				return "", nil, &ConflictError{Marker: markerText, Reason: "unbalanced"}
			}
			stray.WriteString(inner[cursor:m[0]])
			openKey = key
			openEnd = m[1]
			if openEnd < len(inner) && inner[openEnd] == '\n' {
				openEnd++
			}
			continue
		}

		if openKey == "" || openKey != key {
			return "", nil, &ConflictError{Marker: markerText, Reason: "unbalanced"}
		}
		for _, b := range blocks {
			if b.key == key {
				return "", nil, &ConflictError{Marker: markerText, Reason: "duplicated"}
			}
		}
		blocks = append(blocks, block{key: key, body: inner[openEnd:m[0]]})
		cursor = m[1]
		if cursor < len(inner) && inner[cursor] == '\n' {
			cursor++
		}
		openKey = ""
	}

	if openKey != "" {
		return "", nil, &ConflictError{Marker: blockStart(openKey), Reason: "unbalanced"}
	}
	stray.WriteString(inner[cursor:])

	preamble = stray.String()
	if strings.TrimSpace(preamble) == "" {
		preamble = ""
	}
	return preamble, blocks, nil
}

func normalizeBody(body string) string {
	return strings.TrimRight(body, "\n") + "\n"
}

func renderBlock(key, body string) string {
	return blockStart(key) + "\n" + normalizeBody(body) + blockEnd(key) + "\n"
}

func renderSection(markers Markers, preamble string, blocks []block) string {
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].key < blocks[j].key })

	var sb strings.Builder
	sb.WriteString(markers.Start)
	sb.WriteString("\n")
	if preamble != "" {
		sb.WriteString(normalizeBody(preamble))
	}
	for _, b := range blocks {
		sb.WriteString(blockStart(b.key))
		sb.WriteString("\n")
		sb.WriteString(normalizeBody(b.body))
		sb.WriteString(blockEnd(b.key))
		sb.WriteString("\n")
	}
	sb.WriteString(markers.End)
	return sb.String()
}
