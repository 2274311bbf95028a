// Package target maps module components onto assistant-specific artifacts.
// Every assistant is an Adapter implementing the same render/remove
// capability set; the orchestrator is written once against this contract and
// never branches on a concrete adapter identity. Per-file adapters derive
// artifact names from the shared install.ArtifactName convention;
// merged-document adapters delegate marker handling to pkg/section.
package target

import (
	"fmt"
	"os"
	"sort"

	"github.com/pkg/errors"

	"github.com/jingkaihe/skillet/pkg/module"
	"github.com/jingkaihe/skillet/pkg/types/install"
)

// ErrorKind classifies a single-component render or remove failure.
type ErrorKind string

// Adapter error kinds.
const (
	// SourceInvalid means the component content was unreadable or unparsable.
	SourceInvalid ErrorKind = "source_invalid"
	// WriteDenied means the destination was unwritable.
	WriteDenied ErrorKind = "write_denied"
	// LayoutConflict means an expected shared-file structure is corrupted,
	// such as mismatched or duplicated markers.
	LayoutConflict ErrorKind = "layout_conflict"
)

// Error is a typed per-component adapter failure.
type Error struct {
	Kind ErrorKind
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func adapterErr(kind ErrorKind, path string, err error) *Error {
	return &Error{Kind: kind, Path: path, Err: err}
}

// ErrUnsupported reports that an adapter does not implement a capability for
// a component kind. Callers collect it as a warning, never a fatal failure.
var ErrUnsupported = errors.New("component kind not supported by this assistant")

// Route carries the scope-resolved path routing for a render or remove call.
// Scope determines where artifacts land; the concrete layout below the base
// directory is each adapter's own convention.
type Route struct {
	Scope       install.Scope
	ProjectPath string
	homeDir     string
}

// NewRoute resolves a route for the given scope. Project scope requires a
// project path.
func NewRoute(scope install.Scope, projectPath string) (Route, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return Route{}, errors.Wrap(err, "failed to get user home directory")
	}
	return NewRouteWithHome(scope, projectPath, homeDir)
}

// NewRouteWithHome is NewRoute with an explicit home directory, for tests.
func NewRouteWithHome(scope install.Scope, projectPath, homeDir string) (Route, error) {
	if err := scope.Validate(); err != nil {
		return Route{}, err
	}
	if scope == install.ScopeProject && projectPath == "" {
		return Route{}, errors.New("project path required for project scope")
	}
	if scope == install.ScopeUser {
		projectPath = ""
	}
	return Route{Scope: scope, ProjectPath: projectPath, homeDir: homeDir}, nil
}

// Base returns the directory assistant artifact paths are rooted at: the
// project directory for project scope, the home directory for user scope.
func (r Route) Base() string {
	if r.Scope == install.ScopeProject {
		return r.ProjectPath
	}
	return r.homeDir
}

// Adapter renders module components into one assistant's artifact shape and
// removes them again. Render operations return the artifact paths touched.
// Remove operations tolerate already-missing artifacts: drift is the
// caller's warning to report, not a reason to fail.
type Adapter interface {
	Name() string

	RenderSkill(skill *module.Skill, moduleName string, route Route) ([]string, error)
	RemoveSkill(skillName, moduleName string, route Route) error

	RenderCommand(cmd *module.Command, moduleName string, route Route) ([]string, error)
	RemoveCommand(commandName, moduleName string, route Route) error

	RenderAgent(agent *module.Agent, moduleName string, route Route) ([]string, error)
	RemoveAgent(agentName, moduleName string, route Route) error

	RenderInstructions(instructions, moduleName string, route Route) ([]string, error)
	RemoveInstructions(moduleName string, route Route) error
}

var adapters = map[string]Adapter{}

// Register adds an adapter to the global registry. Adapters register
// themselves from init.
func Register(a Adapter) {
	adapters[a.Name()] = a
}

// Get returns the adapter for an assistant name.
func Get(name string) (Adapter, error) {
	a, ok := adapters[name]
	if !ok {
		return nil, errors.Errorf("unknown assistant %q: supported assistants are %v", name, Names())
	}
	return a, nil
}

// Names returns the registered assistant names in sorted order.
func Names() []string {
	names := make([]string, 0, len(adapters))
	for name := range adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
