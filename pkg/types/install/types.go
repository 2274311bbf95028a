// Package install defines the shared vocabulary of skillet installations:
// scopes, component kinds, and the artifact naming convention applied
// uniformly across all target adapters.
package install

import "github.com/pkg/errors"

// Scope determines where a target routes generated artifacts.
type Scope string

// Supported scopes.
const (
	// ScopeUser targets a user-wide location such as the home directory.
	ScopeUser Scope = "user"
	// ScopeProject targets a single project directory.
	ScopeProject Scope = "project"
)

// Validate checks that the scope is one of the supported values.
func (s Scope) Validate() error {
	switch s {
	case ScopeUser, ScopeProject:
		return nil
	default:
		return errors.Errorf("unknown scope %q: expected %q or %q", s, ScopeUser, ScopeProject)
	}
}

// ComponentKind identifies a class of module content.
type ComponentKind string

// Component kinds.
const (
	KindSkill        ComponentKind = "skill"
	KindCommand      ComponentKind = "command"
	KindAgent        ComponentKind = "agent"
	KindInstructions ComponentKind = "instructions"
)

// ArtifactName returns the identifier for a generated artifact. Every
// per-file target derives file and directory names from it; merged-document
// targets key their module block on the module name alone.
func ArtifactName(moduleName, componentName string) string {
	return moduleName + "." + componentName
}
