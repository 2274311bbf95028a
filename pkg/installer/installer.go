// Package installer orchestrates installs, uninstalls and updates. It is
// written once against the target.Adapter contract and never branches on a
// concrete adapter identity: per-file and merged-document assistants go
// through the same render and remove calls.
package installer

import (
	"context"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/jingkaihe/skillet/pkg/logger"
	"github.com/jingkaihe/skillet/pkg/module"
	"github.com/jingkaihe/skillet/pkg/registry"
	"github.com/jingkaihe/skillet/pkg/store"
	"github.com/jingkaihe/skillet/pkg/target"
	"github.com/jingkaihe/skillet/pkg/types/install"
)

// ErrNoComponents is the fatal aggregate returned when every component of a
// module failed to render. A partial success is not an error; an empty one is.
var ErrNoComponents = errors.New("no components installed")

// State tracks a unit of work through its lifecycle.
type State string

const (
	StateRequested  State = "requested"
	StateResolving  State = "resolving"
	StateGenerating State = "generating"
	StateRecording  State = "recording"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// Request identifies one unit of install/uninstall work.
type Request struct {
	Module      string
	Assistant   string
	Scope       install.Scope
	ProjectPath string
}

// ComponentResult is the outcome of rendering or removing one component.
type ComponentResult struct {
	Kind  install.ComponentKind
	Name  string
	Paths []string
	Err   error
}

// Result summarizes a unit of work: which components were materialized,
// which failed, and any non-fatal warnings collected along the way.
type Result struct {
	Request Request
	State   State

	Installed []ComponentResult
	Failed    []ComponentResult
	Warnings  []string
}

// Partial reports whether the unit succeeded with some components failed.
func (r *Result) Partial() bool {
	return r.State == StateDone && len(r.Failed) > 0
}

type Installer struct {
	store *store.Store
	reg   *registry.Registry
}

func New(st *store.Store, reg *registry.Registry) *Installer {
	return &Installer{store: st, reg: reg}
}

// Install materializes a module's components for one assistant. Resolution
// failures are fatal with nothing written. During generation each component
// renders independently: one failure is collected and the rest proceed. The
// unit fails only when zero components succeed.
func (ins *Installer) Install(ctx context.Context, req Request) (*Result, error) {
	res := &Result{Request: req, State: StateRequested}
	log := logger.G(ctx).WithField("module", req.Module).WithField("assistant", req.Assistant)

	res.State = StateResolving
	m, err := ins.store.Resolve(req.Module)
	if err != nil {
		res.State = StateFailed
		return res, err
	}
	adapter, err := target.Get(req.Assistant)
	if err != nil {
		res.State = StateFailed
		return res, err
	}
	route, err := target.NewRoute(req.Scope, req.ProjectPath)
	if err != nil {
		res.State = StateFailed
		return res, err
	}

	// Project installs reference content relative to the project, so the
	// module is copied in and components are rediscovered from the copy.
	if req.Scope == install.ScopeProject {
		copyPath, err := ins.store.CopyToProject(m, req.ProjectPath)
		if err != nil {
			res.State = StateFailed
			return res, errors.Wrap(err, "failed to copy module into project")
		}
		m, err = module.Discover(copyPath)
		if err != nil {
			res.State = StateFailed
			return res, err
		}
		// Rediscovery reads the manifest again; the store name stays
		// authoritative so artifacts and registry records agree on one key.
		m.Name = req.Module
	}

	res.State = StateGenerating
	ins.render(m, adapter, route, res)

	if len(res.Installed) == 0 {
		res.State = StateFailed
		return res, ErrNoComponents
	}

	res.State = StateRecording
	if err := ins.record(req, res); err != nil {
		res.State = StateFailed
		return res, err
	}

	res.State = StateDone
	log.WithField("installed", len(res.Installed)).WithField("failed", len(res.Failed)).Debug("install complete")
	return res, nil
}

func (ins *Installer) render(m *module.Module, adapter target.Adapter, route target.Route, res *Result) {
	collect := func(kind install.ComponentKind, name string, paths []string, err error) {
		cr := ComponentResult{Kind: kind, Name: name, Paths: paths, Err: err}
		switch {
		case err == nil:
			res.Installed = append(res.Installed, cr)
		case errors.Is(err, target.ErrUnsupported):
			res.Warnings = append(res.Warnings, string(kind)+" "+name+": not supported by this assistant")
		default:
			res.Failed = append(res.Failed, cr)
		}
	}

	for i := range m.Skills {
		paths, err := adapter.RenderSkill(&m.Skills[i], m.Name, route)
		collect(install.KindSkill, m.Skills[i].Name, paths, err)
	}
	for i := range m.Commands {
		paths, err := adapter.RenderCommand(&m.Commands[i], m.Name, route)
		collect(install.KindCommand, m.Commands[i].Name, paths, err)
	}
	for i := range m.Agents {
		paths, err := adapter.RenderAgent(&m.Agents[i], m.Name, route)
		collect(install.KindAgent, m.Agents[i].Name, paths, err)
	}
	if m.HasInstructions {
		paths, err := adapter.RenderInstructions(m.Instructions, m.Name, route)
		collect(install.KindInstructions, "instructions", paths, err)
	}

	res.Warnings = append(res.Warnings, m.Warnings...)
}

// record replaces any prior registry entry for this unit, preserving
// unknown fields a newer skillet version may have written.
func (ins *Installer) record(req Request, res *Result) error {
	inst := registry.Installation{
		Module:      req.Module,
		Assistant:   req.Assistant,
		Scope:       req.Scope,
		ProjectPath: req.ProjectPath,
	}
	for _, cr := range res.Installed {
		switch cr.Kind {
		case install.KindSkill:
			inst.Skills = append(inst.Skills, cr.Name)
		case install.KindCommand:
			inst.Commands = append(inst.Commands, cr.Name)
		case install.KindAgent:
			inst.Agents = append(inst.Agents, cr.Name)
		case install.KindInstructions:
			inst.Instructions = true
		}
	}

	if prev, err := ins.reg.Find(inst.Key()); err == nil {
		inst.Extra = prev.Extra
	}
	return errors.Wrap(ins.reg.Record(inst), "failed to record installation")
}

// Uninstall removes every recorded component of an installation, then
// deletes the registry record regardless of individual removal outcomes.
// Removal failures never abort the unit: the registry must not keep pointing
// at an installation the user asked to remove. They are reported through
// Failed and Warnings so callers can distinguish a clean removal from a
// partial one.
func (ins *Installer) Uninstall(ctx context.Context, req Request) (*Result, error) {
	res := &Result{Request: req, State: StateResolving}

	key := registry.Key{Module: req.Module, Assistant: req.Assistant, Scope: req.Scope, ProjectPath: req.ProjectPath}
	inst, err := ins.reg.Find(key)
	if err != nil {
		res.State = StateFailed
		return res, err
	}
	adapter, err := target.Get(req.Assistant)
	if err != nil {
		res.State = StateFailed
		return res, err
	}
	route, err := target.NewRoute(req.Scope, req.ProjectPath)
	if err != nil {
		res.State = StateFailed
		return res, err
	}

	res.State = StateGenerating
	var removeErrs *multierror.Error
	remove := func(kind install.ComponentKind, name string, err error) {
		if err != nil && !errors.Is(err, target.ErrUnsupported) {
			removeErrs = multierror.Append(removeErrs, errors.Wrapf(err, "%s %s", kind, name))
			res.Failed = append(res.Failed, ComponentResult{Kind: kind, Name: name, Err: err})
			return
		}
		res.Installed = append(res.Installed, ComponentResult{Kind: kind, Name: name})
	}

	for _, name := range inst.Skills {
		remove(install.KindSkill, name, adapter.RemoveSkill(name, req.Module, route))
	}
	for _, name := range inst.Commands {
		remove(install.KindCommand, name, adapter.RemoveCommand(name, req.Module, route))
	}
	for _, name := range inst.Agents {
		remove(install.KindAgent, name, adapter.RemoveAgent(name, req.Module, route))
	}
	if inst.Instructions {
		remove(install.KindInstructions, "instructions", adapter.RemoveInstructions(req.Module, route))
	}

	if removeErrs != nil {
		for _, e := range removeErrs.Errors {
			res.Warnings = append(res.Warnings, e.Error())
		}
		logger.G(ctx).WithError(removeErrs).Warn("some artifacts could not be removed")
	}

	res.State = StateRecording
	if err := ins.reg.Delete(key); err != nil {
		res.State = StateFailed
		return res, errors.Wrap(err, "failed to delete installation record")
	}

	if req.Scope == install.ScopeProject && !ins.projectStillUses(req.Module, req.ProjectPath) {
		if err := ins.store.RemoveProjectCopy(req.Module, req.ProjectPath); err != nil {
			res.Warnings = append(res.Warnings, "failed to remove project module copy: "+err.Error())
		}
	}

	res.State = StateDone
	return res, nil
}

// projectStillUses reports whether any remaining installation in the same
// project references the module, keeping the project-local copy alive while
// another assistant still needs it.
func (ins *Installer) projectStillUses(moduleName, projectPath string) bool {
	for _, inst := range ins.reg.AllForModule(moduleName) {
		if inst.Scope == install.ScopeProject && inst.ProjectPath == projectPath {
			return true
		}
	}
	return false
}
