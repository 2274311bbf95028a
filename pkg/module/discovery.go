package module

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/parser"
	"gopkg.in/yaml.v3"
)

const (
	// SkillFileName is the definition file required inside each skill directory.
	SkillFileName = "SKILL.md"
	// InstructionsFileName is the optional module-level instructions document.
	InstructionsFileName = "INSTRUCTIONS.md"
	// MCPFileName is the optional MCP server declaration document.
	MCPFileName = "mcp.yaml"
	// ManifestPath is the module manifest location relative to the root.
	ManifestPath = ".skillet/module.yaml"

	skillsDir   = "skills"
	commandsDir = "commands"
	agentsDir   = "agents"
)

var moduleNameRe = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// DiscoveryError indicates the module at Root is unusable as a whole.
type DiscoveryError struct {
	Root   string
	Reason string
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("module at %s: %s", e.Root, e.Reason)
}

// ValidateName checks that a module name is a lowercase hyphen-separated
// token, rejecting path traversal and separator characters outright.
func ValidateName(name string) error {
	if name == "" {
		return errors.New("module name cannot be empty")
	}
	if strings.ContainsAny(name, "/\\") || name == "." || name == ".." {
		return errors.Errorf("invalid module name %q: path separators not allowed", name)
	}
	if !moduleNameRe.MatchString(name) {
		return errors.Errorf("invalid module name %q: expected lowercase hyphen-separated token", name)
	}
	return nil
}

// Discover loads a module from its content root. It is a pure read: the same
// directory state always yields the same module with component lists sorted
// lexicographically. Individual components missing their definition file or
// required header fields are excluded with a collected warning. Discover
// fails only when the resulting module has zero valid components.
func Discover(root string) (*Module, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, &DiscoveryError{Root: root, Reason: "not found"}
	}
	if !info.IsDir() {
		return nil, &DiscoveryError{Root: root, Reason: "not a directory"}
	}

	m := &Module{
		Name:    filepath.Base(root),
		Path:    root,
		Version: "0.1.0",
	}

	if manifest, err := readManifest(root); err != nil {
		m.Warnings = append(m.Warnings, fmt.Sprintf("manifest: %v", err))
	} else if manifest != nil {
		if manifest.Name != "" {
			m.Name = manifest.Name
		}
		if manifest.Version != "" {
			m.Version = manifest.Version
		}
		m.Description = manifest.Description
	}

	if err := ValidateName(m.Name); err != nil {
		return nil, &DiscoveryError{Root: root, Reason: err.Error()}
	}

	discoverSkills(m)
	discoverCommands(m)
	discoverAgents(m)
	discoverInstructions(m)
	discoverMCP(m)

	if !m.Valid() {
		return nil, &DiscoveryError{Root: root, Reason: "no valid skills, commands, agents, MCP entries or instructions"}
	}

	return m, nil
}

// ReadManifest loads the .skillet/module.yaml manifest under root. A
// missing manifest yields nil without error.
func ReadManifest(root string) (*Manifest, error) {
	return readManifest(root)
}

func readManifest(root string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(ManifestPath)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to read manifest")
	}

	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, errors.Wrap(err, "malformed manifest")
	}
	return &manifest, nil
}

func discoverSkills(m *Module) {
	dir := filepath.Join(m.Path, skillsDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	for _, entry := range sortedDirs(dir, entries) {
		skillDir := filepath.Join(dir, entry)
		skillFile := filepath.Join(skillDir, SkillFileName)

		front, body, err := parseFrontmatter(skillFile)
		if err != nil {
			m.Warnings = append(m.Warnings, fmt.Sprintf("skill %s: %v", entry, err))
			continue
		}
		if front.Description == "" {
			m.Warnings = append(m.Warnings, fmt.Sprintf("skill %s: missing required field 'description'", entry))
			continue
		}

		m.Skills = append(m.Skills, Skill{
			Name:        entry,
			Description: front.Description,
			Directory:   skillDir,
			Content:     body,
		})
	}
}

func discoverCommands(m *Module) {
	for _, c := range discoverDocuments(m, commandsDir, "command") {
		m.Commands = append(m.Commands, Command(c))
	}
}

func discoverAgents(m *Module) {
	for _, a := range discoverDocuments(m, agentsDir, "agent") {
		m.Agents = append(m.Agents, Agent(a))
	}
}

// document is the shared shape of single-file components.
type document struct {
	Name        string
	Description string
	Path        string
	Content     string
}

func discoverDocuments(m *Module, subdir, kind string) []document {
	dir := filepath.Join(m.Path, subdir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	var docs []document
	for _, name := range names {
		path := filepath.Join(dir, name)
		stem := strings.TrimSuffix(name, ".md")

		front, _, err := parseFrontmatter(path)
		if err != nil {
			m.Warnings = append(m.Warnings, fmt.Sprintf("%s %s: %v", kind, stem, err))
			continue
		}
		if front.Description == "" {
			m.Warnings = append(m.Warnings, fmt.Sprintf("%s %s: missing required field 'description'", kind, stem))
			continue
		}

		content, err := os.ReadFile(path)
		if err != nil {
			m.Warnings = append(m.Warnings, fmt.Sprintf("%s %s: %v", kind, stem, err))
			continue
		}

		docs = append(docs, document{
			Name:        stem,
			Description: front.Description,
			Path:        path,
			Content:     string(content),
		})
	}
	return docs
}

func discoverInstructions(m *Module) {
	content, err := os.ReadFile(filepath.Join(m.Path, InstructionsFileName))
	if err != nil {
		return
	}
	m.Instructions = string(content)
	m.HasInstructions = true
}

func discoverMCP(m *Module) {
	data, err := os.ReadFile(filepath.Join(m.Path, MCPFileName))
	if err != nil {
		return
	}

	var decl struct {
		Servers map[string]any `yaml:"servers"`
	}
	if err := yaml.Unmarshal(data, &decl); err != nil {
		m.Warnings = append(m.Warnings, fmt.Sprintf("mcp: malformed declaration: %v", err))
		return
	}

	names := make([]string, 0, len(decl.Servers))
	for name := range decl.Servers {
		names = append(names, name)
	}
	sort.Strings(names)
	m.MCPServers = names
}

// Frontmatter holds the required header fields of a definition file.
type Frontmatter struct {
	Name        string
	Description string
}

// parseFrontmatter reads a definition file and extracts its YAML frontmatter
// and body. A missing file or missing frontmatter is an error to be handled
// by the caller as a per-component warning.
func parseFrontmatter(path string) (Frontmatter, string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Frontmatter{}, "", errors.Errorf("missing %s", filepath.Base(path))
		}
		return Frontmatter{}, "", errors.Wrap(err, "failed to read definition file")
	}

	md := goldmark.New(
		goldmark.WithExtensions(meta.Meta),
	)

	var buf bytes.Buffer
	pctx := parser.NewContext()
	if err := md.Convert(content, &buf, parser.WithContext(pctx)); err != nil {
		return Frontmatter{}, "", errors.Wrap(err, "malformed header")
	}

	metaData := meta.Get(pctx)
	if metaData == nil {
		return Frontmatter{}, "", errors.New("missing frontmatter")
	}

	name, _ := metaData["name"].(string)
	description, _ := metaData["description"].(string)

	return Frontmatter{Name: name, Description: description}, extractBody(string(content)), nil
}

// extractBody removes YAML frontmatter and returns the document body.
func extractBody(content string) string {
	if !strings.HasPrefix(content, "---") {
		return content
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
		return content
	}
	return strings.TrimLeft(strings.Join(lines[end+1:], "\n"), "\n")
}

// sortedDirs returns the names of subdirectories in lexicographic order so
// directory iteration order never leaks into generated output.
func sortedDirs(dir string, entries []os.DirEntry) []string {
	var names []string
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		info, err := os.Stat(path)
		if err != nil || !info.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names
}
