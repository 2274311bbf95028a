package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillet/pkg/installer"
	"github.com/jingkaihe/skillet/pkg/presenter"
)

var updateCmd = &cobra.Command{
	Use:   "update [module]",
	Short: "Update modules from their sources and reconcile installations",
	Long: `Refetch a module from its recorded source and reconcile every
installation of it: components removed from the module are removed from the
assistant, then the current component set is re-rendered. Without an
argument every installed module is updated.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

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

		var failed, partial bool
		if len(args) == 1 {
			results, err := ins.Update(ctx, args[0])
			if err != nil {
				presenter.Error(err, "Update failed")
				os.Exit(1)
			}
			failed, partial = reportUpdateResults(args[0], results)
		} else {
			all, err := ins.UpdateAll(ctx)
			if err != nil {
				presenter.Error(err, "Update failed")
				os.Exit(1)
			}
			for moduleName, results := range all {
				f, p := reportUpdateResults(moduleName, results)
				failed = failed || f
				partial = partial || p
			}
		}

		switch {
		case failed:
			os.Exit(1)
		case partial:
			os.Exit(2)
		}
	},
}

func reportUpdateResults(moduleName string, results []*installer.Result) (failed, partial bool) {
	if len(results) == 0 {
		presenter.Info(fmt.Sprintf("%s: updated, no installations to reconcile", moduleName))
		return false, false
	}
	for _, res := range results {
		if res == nil || res.State == installer.StateFailed {
			failed = true
			presenter.Warning(fmt.Sprintf("%s: update failed for one installation", moduleName))
			continue
		}
		if res.Partial() {
			partial = true
		}
		reportResult(res)
	}
	return failed, partial
}
