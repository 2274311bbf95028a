package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillet/pkg/presenter"
)

// AddConfig holds configuration for the add command
type AddConfig struct {
	Name string
}

// NewAddConfig creates a new AddConfig with default values
func NewAddConfig() *AddConfig {
	return &AddConfig{}
}

var addCmd = &cobra.Command{
	Use:   "add [source]",
	Short: "Add a module to the local store",
	Long: `Add a module to the local store from a source: a local directory,
a git repository URL, or a zip/tar archive (local path or URL).

Examples:
  skillet add ./my-module
  skillet add https://github.com/example/skills.git
  skillet add https://example.com/skills.zip --name my-skills`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		config := getAddConfigFromFlags(cmd)

		st, err := openStore()
		if err != nil {
			presenter.Error(err, "Failed to open module store")
			os.Exit(1)
		}

		m, err := st.Add(ctx, args[0], config.Name)
		if err != nil {
			presenter.Error(err, "Failed to add module")
			os.Exit(1)
		}

		for _, w := range m.Warnings {
			presenter.Warning(w)
		}
		presenter.Success(fmt.Sprintf("Module %q added", m.Name))
		presenter.Info(fmt.Sprintf("  Version: %s", m.Version))
		presenter.Info(fmt.Sprintf("  Skills: %d, Commands: %d, Agents: %d",
			len(m.Skills), len(m.Commands), len(m.Agents)))
		if len(m.Skills) > 0 {
			presenter.Info("Available skills:")
			for _, s := range m.Skills {
				presenter.Info(fmt.Sprintf("  - %s", s.Name))
			}
		}
		presenter.Info(fmt.Sprintf("Next: skillet install %s -a <assistant>", m.Name))
	},
}

func init() {
	addDefaults := NewAddConfig()
	addCmd.Flags().String("name", addDefaults.Name, "Override the module name derived from the source")
}

// getAddConfigFromFlags extracts add configuration from command flags
func getAddConfigFromFlags(cmd *cobra.Command) *AddConfig {
	config := NewAddConfig()
	if name, err := cmd.Flags().GetString("name"); err == nil {
		config.Name = name
	}
	return config
}
