package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillet/pkg/installer"
	"github.com/jingkaihe/skillet/pkg/presenter"
)

// RemoveConfig holds configuration for the remove command
type RemoveConfig struct {
	Force bool
}

// NewRemoveConfig creates a new RemoveConfig with default values
func NewRemoveConfig() *RemoveConfig {
	return &RemoveConfig{}
}

var removeCmd = &cobra.Command{
	Use:   "remove [module]",
	Short: "Remove a module from the local store",
	Long: `Remove a module from the local store. Any recorded installations of
the module are uninstalled from their assistants first.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		config := getRemoveConfigFromFlags(cmd)
		moduleName := args[0]

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

		installations := reg.AllForModule(moduleName)
		if !config.Force && !confirmRemoval(moduleName, len(installations)) {
			presenter.Info("Aborted")
			return
		}

		ins := installer.New(st, reg)
		partial := false
		for _, inst := range installations {
			res, err := ins.Uninstall(ctx, installer.Request{
				Module:      inst.Module,
				Assistant:   inst.Assistant,
				Scope:       inst.Scope,
				ProjectPath: inst.ProjectPath,
			})
			if err != nil {
				presenter.Error(err, fmt.Sprintf("Failed to uninstall from %s", inst.Assistant))
				os.Exit(1)
			}
			for _, w := range res.Warnings {
				presenter.Warning(w)
			}
			for _, cr := range res.Failed {
				presenter.Error(cr.Err, fmt.Sprintf("%s %s could not be removed", cr.Kind, cr.Name))
			}
			partial = partial || res.Partial()
			presenter.Info(fmt.Sprintf("Uninstalled from %s (%s)", inst.Assistant, inst.Scope))
		}

		if err := st.Remove(moduleName); err != nil {
			presenter.Error(err, "Failed to remove module")
			os.Exit(1)
		}
		presenter.Success(fmt.Sprintf("Module %q removed", moduleName))
		if partial {
			os.Exit(2)
		}
	},
}

func init() {
	removeDefaults := NewRemoveConfig()
	removeCmd.Flags().BoolP("force", "f", removeDefaults.Force, "Remove without confirmation")
}

// getRemoveConfigFromFlags extracts remove configuration from command flags
func getRemoveConfigFromFlags(cmd *cobra.Command) *RemoveConfig {
	config := NewRemoveConfig()
	if force, err := cmd.Flags().GetBool("force"); err == nil {
		config.Force = force
	}
	return config
}

func confirmRemoval(moduleName string, installations int) bool {
	prompt := fmt.Sprintf("Remove module %q", moduleName)
	if installations > 0 {
		prompt += fmt.Sprintf(" and uninstall it from %d assistant(s)", installations)
	}
	fmt.Printf("%s? [y/N] ", prompt)

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
