package installer

import (
	"context"

	"github.com/pkg/errors"

	"github.com/jingkaihe/skillet/pkg/logger"
	"github.com/jingkaihe/skillet/pkg/sources"
	"github.com/jingkaihe/skillet/pkg/target"
	"github.com/jingkaihe/skillet/pkg/types/install"
)

// Update refetches a module from its recorded source, then reconciles every
// installation of that module: components that vanished from the module are
// removed through the adapter before the current set is re-rendered, so no
// orphaned artifacts survive an author deleting a skill.
func (ins *Installer) Update(ctx context.Context, moduleName string) ([]*Result, error) {
	if _, err := ins.store.Resolve(moduleName); err != nil {
		return nil, err
	}
	fresh, err := sources.Update(ctx, ins.store.ModulePath(moduleName))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to update module %s", moduleName)
	}

	var results []*Result
	for _, inst := range ins.reg.AllForModule(moduleName) {
		req := Request{
			Module:      inst.Module,
			Assistant:   inst.Assistant,
			Scope:       inst.Scope,
			ProjectPath: inst.ProjectPath,
		}

		if err := ins.removeVanished(inst.Assistant, inst.Scope, inst.ProjectPath, moduleName,
			diff(inst.Skills, fresh.SkillNames()),
			diff(inst.Commands, fresh.CommandNames()),
			diff(inst.Agents, fresh.AgentNames()),
			inst.Instructions && !fresh.HasInstructions,
		); err != nil {
			results = append(results, &Result{Request: req, State: StateFailed})
			logger.G(ctx).WithError(err).WithField("module", moduleName).Error("failed to remove stale artifacts")
			continue
		}

		res, err := ins.Install(ctx, req)
		if err != nil {
			logger.G(ctx).WithError(err).WithField("module", moduleName).
				WithField("assistant", inst.Assistant).Error("reinstall failed during update")
		}
		results = append(results, res)
	}
	return results, nil
}

// UpdateAll updates every module named by at least one registry record.
func (ins *Installer) UpdateAll(ctx context.Context) (map[string][]*Result, error) {
	seen := map[string]bool{}
	all := map[string][]*Result{}
	for _, inst := range ins.reg.All() {
		if seen[inst.Module] {
			continue
		}
		seen[inst.Module] = true

		results, err := ins.Update(ctx, inst.Module)
		if err != nil {
			logger.G(ctx).WithError(err).WithField("module", inst.Module).Error("module update failed")
			all[inst.Module] = []*Result{{Request: Request{Module: inst.Module}, State: StateFailed}}
			continue
		}
		all[inst.Module] = results
	}
	return all, nil
}

func (ins *Installer) removeVanished(assistant string, scope install.Scope, projectPath, moduleName string,
	skills, commands, agents []string, instructions bool) error {
	adapter, err := target.Get(assistant)
	if err != nil {
		return err
	}
	route, err := target.NewRoute(scope, projectPath)
	if err != nil {
		return err
	}

	for _, name := range skills {
		if err := ignoreUnsupported(adapter.RemoveSkill(name, moduleName, route)); err != nil {
			return errors.Wrapf(err, "skill %s", name)
		}
	}
	for _, name := range commands {
		if err := ignoreUnsupported(adapter.RemoveCommand(name, moduleName, route)); err != nil {
			return errors.Wrapf(err, "command %s", name)
		}
	}
	for _, name := range agents {
		if err := ignoreUnsupported(adapter.RemoveAgent(name, moduleName, route)); err != nil {
			return errors.Wrapf(err, "agent %s", name)
		}
	}
	if instructions {
		if err := ignoreUnsupported(adapter.RemoveInstructions(moduleName, route)); err != nil {
			return errors.Wrap(err, "instructions")
		}
	}
	return nil
}

func ignoreUnsupported(err error) error {
	if errors.Is(err, target.ErrUnsupported) {
		return nil
	}
	return err
}

// diff returns the members of old not present in current.
func diff(old, current []string) []string {
	present := make(map[string]bool, len(current))
	for _, name := range current {
		present[name] = true
	}
	var gone []string
	for _, name := range old {
		if !present[name] {
			gone = append(gone, name)
		}
	}
	return gone
}
