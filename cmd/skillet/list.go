package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillet/pkg/presenter"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List modules in the local store",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		st, err := openStore()
		if err != nil {
			presenter.Error(err, "Failed to open module store")
			os.Exit(1)
		}

		modules, err := st.List(ctx)
		if err != nil {
			presenter.Error(err, "Failed to list modules")
			os.Exit(1)
		}
		if len(modules) == 0 {
			presenter.Info("No modules in the store. Add one with 'skillet add <source>'")
			return
		}

		presenter.Section("Modules")
		for _, m := range modules {
			line := fmt.Sprintf("%s %s", m.Name, m.Version)
			if m.Description != "" {
				line += " - " + m.Description
			}
			presenter.Info(line)
			presenter.Info(fmt.Sprintf("  skills: %d, commands: %d, agents: %d",
				len(m.Skills), len(m.Commands), len(m.Agents)))
		}
	},
}
