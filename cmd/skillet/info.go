package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillet/pkg/presenter"
	"github.com/jingkaihe/skillet/pkg/sources"
)

var infoCmd = &cobra.Command{
	Use:   "info [module]",
	Short: "Show details of a module in the local store",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		st, err := openStore()
		if err != nil {
			presenter.Error(err, "Failed to open module store")
			os.Exit(1)
		}

		m, err := st.Resolve(args[0])
		if err != nil {
			presenter.Error(err, "Failed to resolve module")
			os.Exit(1)
		}

		presenter.Section(m.Name)
		if m.Description != "" {
			presenter.Info(m.Description)
		}
		presenter.Info(fmt.Sprintf("Version: %s", m.Version))
		presenter.Info(fmt.Sprintf("Path: %s", m.Path))

		if info, err := sources.LoadInfo(m.Path); err == nil && info != nil {
			presenter.Info(fmt.Sprintf("Source: %s (%s)", info.Source, info.Type))
		}

		if len(m.Skills) > 0 {
			presenter.Section("Skills")
			for _, s := range m.Skills {
				presenter.Info(fmt.Sprintf("  %s - %s", s.Name, s.Description))
			}
		}
		if len(m.Commands) > 0 {
			presenter.Section("Commands")
			for _, c := range m.Commands {
				presenter.Info(fmt.Sprintf("  /%s - %s", c.Name, c.Description))
			}
		}
		if len(m.Agents) > 0 {
			presenter.Section("Agents")
			for _, a := range m.Agents {
				presenter.Info(fmt.Sprintf("  @%s - %s", a.Name, a.Description))
			}
		}
		if m.HasInstructions {
			presenter.Info("Includes module instructions")
		}
		if len(m.MCPServers) > 0 {
			presenter.Info("MCP servers: " + strings.Join(m.MCPServers, ", "))
		}
		for _, w := range m.Warnings {
			presenter.Warning(w)
		}
	},
}
