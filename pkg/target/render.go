package target

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/jingkaihe/skillet/pkg/module"
	"github.com/jingkaihe/skillet/pkg/osutil"
	"github.com/jingkaihe/skillet/pkg/section"
	"github.com/jingkaihe/skillet/pkg/types/install"
)

// writeArtifact writes a generated file, classifying filesystem failures as
// WriteDenied.
func writeArtifact(path string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return adapterErr(WriteDenied, path, err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return adapterErr(WriteDenied, path, err)
	}
	return nil
}

// removeArtifact deletes a generated file or directory. A missing artifact
// is not an error.
func removeArtifact(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return adapterErr(WriteDenied, path, err)
	}
	return nil
}

// copySkillDir copies a skill directory, SKILL.md and auxiliary files
// included, into dest.
func copySkillDir(srcDir, dest string) error {
	if _, err := os.Stat(srcDir); err != nil {
		return adapterErr(SourceInvalid, srcDir, err)
	}
	if err := os.RemoveAll(dest); err != nil {
		return adapterErr(WriteDenied, dest, err)
	}
	if err := osutil.CopyDir(srcDir, dest); err != nil {
		os.RemoveAll(dest)
		return adapterErr(WriteDenied, dest, err)
	}
	return nil
}

// splitFrontmatter separates a definition file into its YAML frontmatter
// mapping and body. Content without frontmatter yields an empty mapping.
func splitFrontmatter(content string) (map[string]any, string, error) {
	if !strings.HasPrefix(content, "---") {
		return map[string]any{}, content, nil
	}

	lines := strings.Split(content, "\n")
	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			end = i
			break
		}
	}
	if end == -1 {
		return nil, "", errors.New("unclosed frontmatter")
	}

	front := map[string]any{}
	if err := yaml.Unmarshal([]byte(strings.Join(lines[1:end], "\n")), &front); err != nil {
		return nil, "", errors.Wrap(err, "malformed frontmatter")
	}
	if front == nil {
		front = map[string]any{}
	}
	return front, strings.Join(lines[end+1:], "\n"), nil
}

// rebuildFrontmatter reassembles a definition file from a frontmatter
// mapping and body.
func rebuildFrontmatter(front map[string]any, body string) (string, error) {
	data, err := yaml.Marshal(front)
	if err != nil {
		return "", err
	}
	return "---\n" + strings.TrimRight(string(data), "\n") + "\n---\n" + body, nil
}

// mergedUpsert reads a shared document, upserts a module block through the
// section engine, and writes the result back atomically.
func mergedUpsert(path string, markers section.Markers, moduleKey, body string) error {
	doc, err := readDocument(path)
	if err != nil {
		return err
	}

	updated, err := section.Upsert(doc, markers, moduleKey, body)
	if err != nil {
		return adapterErr(LayoutConflict, path, err)
	}
	if updated == doc {
		return nil
	}
	if err := osutil.WriteFileAtomic(path, []byte(updated), 0o644); err != nil {
		return adapterErr(WriteDenied, path, err)
	}
	return nil
}

// mergedRemove removes a module block from a shared document. A missing
// document or section is a no-op.
func mergedRemove(path string, markers section.Markers, moduleKey string) error {
	doc, err := readDocument(path)
	if err != nil {
		return err
	}
	if doc == "" {
		return nil
	}

	updated, err := section.Remove(doc, markers, moduleKey)
	if err != nil {
		return adapterErr(LayoutConflict, path, err)
	}
	if updated == doc {
		return nil
	}
	if err := osutil.WriteFileAtomic(path, []byte(updated), 0o644); err != nil {
		return adapterErr(WriteDenied, path, err)
	}
	return nil
}

// mergedUpsertEntry upserts a single named entry inside a module's block,
// preserving the block's other entries. Used by merged-document adapters
// whose block aggregates one entry per skill.
func mergedUpsertEntry(path string, markers section.Markers, moduleKey, entryName, entryText string) error {
	doc, err := readDocument(path)
	if err != nil {
		return err
	}

	body, err := blockBody(doc, markers, moduleKey)
	if err != nil {
		return adapterErr(LayoutConflict, path, err)
	}

	updatedBody := upsertEntry(body, moduleKey, entryName, entryText)
	updated, err := section.Upsert(doc, markers, moduleKey, updatedBody)
	if err != nil {
		return adapterErr(LayoutConflict, path, err)
	}
	if updated == doc {
		return nil
	}
	if err := osutil.WriteFileAtomic(path, []byte(updated), 0o644); err != nil {
		return adapterErr(WriteDenied, path, err)
	}
	return nil
}

// mergedRemoveEntry removes a single named entry from a module's block,
// dropping the whole block when its last entry goes.
func mergedRemoveEntry(path string, markers section.Markers, moduleKey, entryName string) error {
	doc, err := readDocument(path)
	if err != nil {
		return err
	}
	if doc == "" {
		return nil
	}

	body, err := blockBody(doc, markers, moduleKey)
	if err != nil {
		return adapterErr(LayoutConflict, path, err)
	}
	if body == "" {
		return nil
	}

	updatedBody, remaining := removeEntry(body, entryName)
	var updated string
	if remaining == 0 {
		updated, err = section.Remove(doc, markers, moduleKey)
	} else {
		updated, err = section.Upsert(doc, markers, moduleKey, updatedBody)
	}
	if err != nil {
		return adapterErr(LayoutConflict, path, err)
	}
	if updated == doc {
		return nil
	}
	if err := osutil.WriteFileAtomic(path, []byte(updated), 0o644); err != nil {
		return adapterErr(WriteDenied, path, err)
	}
	return nil
}

// skillDirPointer is the path artifacts use to reference a skill's
// directory. Project-scope paths are made relative to the project root so
// generated documents stay portable across checkouts; paths outside the
// project (and all user-scope paths) stay absolute.
func skillDirPointer(skill *module.Skill, route Route) string {
	if route.Scope != install.ScopeProject {
		return skill.Directory
	}
	rel, err := filepath.Rel(route.Base(), skill.Directory)
	if err != nil || strings.HasPrefix(rel, "..") {
		return skill.Directory
	}
	return rel
}

func readDocument(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", adapterErr(WriteDenied, path, err)
	}
	return string(data), nil
}
