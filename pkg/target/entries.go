package target

import (
	"sort"
	"strings"

	"github.com/jingkaihe/skillet/pkg/section"
)

// A module block in a merged document aggregates one entry per skill under
// "#### <name>" headings, preceded by a "### <module>" heading. Entries are
// kept sorted so repeated renders converge on identical text.

const entryHeading = "#### "

type docEntry struct {
	name string
	text string
}

// blockBody reads the existing block body for moduleKey from a document.
func blockBody(doc string, markers section.Markers, moduleKey string) (string, error) {
	return section.Body(doc, markers, moduleKey)
}

// parseEntries splits a block body into its entries, discarding the module
// heading, which is regenerated on render.
func parseEntries(body string) []docEntry {
	var entries []docEntry
	var current *docEntry

	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, entryHeading) {
			if current != nil {
				entries = append(entries, *current)
			}
			current = &docEntry{name: strings.TrimSpace(strings.TrimPrefix(line, entryHeading))}
			continue
		}
		if current != nil {
			current.text += line + "\n"
		}
	}
	if current != nil {
		entries = append(entries, *current)
	}

	for i := range entries {
		entries[i].text = strings.TrimRight(entries[i].text, "\n")
	}
	return entries
}

func renderEntries(moduleKey string, entries []docEntry) string {
	sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })

	var sb strings.Builder
	sb.WriteString("### ")
	sb.WriteString(moduleKey)
	sb.WriteString("\n")
	for _, e := range entries {
		sb.WriteString("\n")
		sb.WriteString(entryHeading)
		sb.WriteString(e.name)
		sb.WriteString("\n")
		sb.WriteString(strings.TrimRight(e.text, "\n"))
		sb.WriteString("\n")
	}
	return sb.String()
}

// upsertEntry replaces or inserts the named entry in a block body.
func upsertEntry(body, moduleKey, entryName, entryText string) string {
	entries := parseEntries(body)

	replaced := false
	for i := range entries {
		if entries[i].name == entryName {
			entries[i].text = strings.TrimRight(entryText, "\n")
			replaced = true
			break
		}
	}
	if !replaced {
		entries = append(entries, docEntry{name: entryName, text: strings.TrimRight(entryText, "\n")})
	}
	return renderEntries(moduleKey, entries)
}

// removeEntry deletes the named entry, returning the updated body and the
// number of entries left. The caller drops the whole block when none remain.
func removeEntry(body, entryName string) (string, int) {
	entries := parseEntries(body)

	kept := entries[:0]
	for _, e := range entries {
		if e.name != entryName {
			kept = append(kept, e)
		}
	}
	if len(kept) == 0 {
		return "", 0
	}

	// The module key survives in the retained heading line.
	moduleKey := ""
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "### ") && !strings.HasPrefix(line, entryHeading) {
			moduleKey = strings.TrimSpace(strings.TrimPrefix(line, "### "))
			break
		}
	}
	return renderEntries(moduleKey, kept), len(kept)
}
