// Package module provides the in-memory representation of a skillet module
// and its discovery from a content root. Modules are directory bundles laid
// out as skills/<name>/SKILL.md, commands/<name>.md, agents/<name>.md, with
// an optional mcp.yaml declaration file, an optional INSTRUCTIONS.md, and a
// .skillet/module.yaml manifest.
package module

// Skill represents a discovered skill with its metadata. The skill directory
// may carry auxiliary files that targets copy verbatim.
type Skill struct {
	Name        string // Directory stem, unique within the module
	Description string // Required description from frontmatter
	Directory   string // Full path to the skill directory
	Content     string // SKILL.md body without frontmatter
}

// Command represents a discovered user-invocable command.
type Command struct {
	Name        string // File stem, unique within the module
	Description string // Required description from frontmatter
	Path        string // Full path to the command file
	Content     string // Raw file content, frontmatter included
}

// Agent represents a discovered agent definition.
type Agent struct {
	Name        string // File stem, unique within the module
	Description string // Required description from frontmatter
	Path        string // Full path to the agent file
	Content     string // Raw file content, frontmatter included
}

// Module is a named, versioned bundle of content discovered from a
// directory tree. It is recreated wholesale on every rediscovery, never
// mutated in place.
type Module struct {
	Name        string
	Path        string
	Version     string
	Description string

	Skills   []Skill
	Commands []Command
	Agents   []Agent

	// Instructions holds the module-level INSTRUCTIONS.md body, empty when
	// the module ships none. HasInstructions distinguishes "no file" from an
	// intentionally empty one.
	Instructions    string
	HasInstructions bool

	// MCPServers lists MCP server names declared in mcp.yaml.
	MCPServers []string

	// Warnings collects per-component discovery problems that did not
	// invalidate the module as a whole.
	Warnings []string
}

// Valid reports whether the module declares at least one component of any
// kind. An empty module is rejected at discovery time.
func (m *Module) Valid() bool {
	return len(m.Skills) > 0 || len(m.Commands) > 0 || len(m.Agents) > 0 ||
		len(m.MCPServers) > 0 || m.HasInstructions
}

// SkillNames returns the sorted skill names.
func (m *Module) SkillNames() []string {
	names := make([]string, 0, len(m.Skills))
	for _, s := range m.Skills {
		names = append(names, s.Name)
	}
	return names
}

// CommandNames returns the sorted command names.
func (m *Module) CommandNames() []string {
	names := make([]string, 0, len(m.Commands))
	for _, c := range m.Commands {
		names = append(names, c.Name)
	}
	return names
}

// AgentNames returns the sorted agent names.
func (m *Module) AgentNames() []string {
	names := make([]string, 0, len(m.Agents))
	for _, a := range m.Agents {
		names = append(names, a.Name)
	}
	return names
}

// Skill returns the named skill, or nil.
func (m *Module) Skill(name string) *Skill {
	for i := range m.Skills {
		if m.Skills[i].Name == name {
			return &m.Skills[i]
		}
	}
	return nil
}

// Command returns the named command, or nil.
func (m *Module) Command(name string) *Command {
	for i := range m.Commands {
		if m.Commands[i].Name == name {
			return &m.Commands[i]
		}
	}
	return nil
}

// Agent returns the named agent, or nil.
func (m *Module) Agent(name string) *Agent {
	for i := range m.Agents {
		if m.Agents[i].Name == name {
			return &m.Agents[i]
		}
	}
	return nil
}

// Manifest is the .skillet/module.yaml file content.
type Manifest struct {
	Name        string `yaml:"name,omitempty"`
	Version     string `yaml:"version,omitempty"`
	Description string `yaml:"description,omitempty"`
}
