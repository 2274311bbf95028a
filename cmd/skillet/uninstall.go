package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillet/pkg/installer"
	"github.com/jingkaihe/skillet/pkg/presenter"
	"github.com/jingkaihe/skillet/pkg/types/install"
)

var uninstallCmd = &cobra.Command{
	Use:   "uninstall [module]",
	Short: "Uninstall a module's components from an assistant",
	Long: `Remove every component of a recorded installation from the chosen
assistant, then drop the installation record. Artifacts that are already
missing are reported as warnings, not failures.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		config, err := getInstallConfigFromFlags(cmd)
		if err != nil {
			presenter.Error(err, "Invalid flags")
			os.Exit(1)
		}

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

		ins := installer.New(st, reg)
		res, err := ins.Uninstall(ctx, installer.Request{
			Module:      args[0],
			Assistant:   config.Assistant,
			Scope:       install.Scope(config.Scope),
			ProjectPath: config.ProjectPath,
		})
		if err != nil {
			presenter.Error(err, "Uninstall failed")
			os.Exit(1)
		}

		for _, w := range res.Warnings {
			presenter.Warning(w)
		}
		for _, cr := range res.Failed {
			presenter.Error(cr.Err, fmt.Sprintf("%s %s could not be removed", cr.Kind, cr.Name))
		}
		presenter.Success(fmt.Sprintf("Uninstalled %q from %s", args[0], config.Assistant))
		if res.Partial() {
			os.Exit(2)
		}
	},
}

func init() {
	addInstallFlags(uninstallCmd.Flags())
	uninstallCmd.MarkFlagRequired("assistant")
}
