package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillet/pkg/presenter"
	"github.com/jingkaihe/skillet/pkg/types/install"
)

var installedCmd = &cobra.Command{
	Use:   "installed",
	Short: "List recorded installations",
	Run: func(cmd *cobra.Command, args []string) {
		st, err := openStore()
		if err != nil {
			presenter.Error(err, "Failed to open module store")
			os.Exit(1)
		}
		reg, err := openRegistry(st)
		if err != nil {
			presenter.Error(err, "Failed to load installation registry")
			os.Exit(1)
		}

		installations := reg.All()
		if len(installations) == 0 {
			presenter.Info("Nothing installed. Use 'skillet install <module> -a <assistant>'")
			return
		}

		presenter.Section("Installations")
		for _, inst := range installations {
			location := string(inst.Scope)
			if inst.Scope == install.ScopeProject {
				location = fmt.Sprintf("%s (%s)", inst.Scope, inst.ProjectPath)
			}
			presenter.Info(fmt.Sprintf("%s -> %s [%s]", inst.Module, inst.Assistant, location))

			var parts []string
			if len(inst.Skills) > 0 {
				parts = append(parts, fmt.Sprintf("skills: %s", strings.Join(inst.Skills, ", ")))
			}
			if len(inst.Commands) > 0 {
				parts = append(parts, fmt.Sprintf("commands: %s", strings.Join(inst.Commands, ", ")))
			}
			if len(inst.Agents) > 0 {
				parts = append(parts, fmt.Sprintf("agents: %s", strings.Join(inst.Agents, ", ")))
			}
			if inst.Instructions {
				parts = append(parts, "instructions")
			}
			if len(parts) > 0 {
				presenter.Info("  " + strings.Join(parts, "; "))
			}
		}
	},
}
