package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillet/pkg/market"
	"github.com/jingkaihe/skillet/pkg/presenter"
)

var marketCmd = &cobra.Command{
	Use:   "market",
	Short: "Manage marketplace catalogs",
	Long: `Manage marketplaces: named catalogs of installable modules. A
marketplace is added from a catalog URL (or local file) and cached locally;
its modules can then be browsed and added by repository.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var marketAddCmd = &cobra.Command{
	Use:   "add [name] [url]",
	Short: "Add a marketplace from a catalog URL",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		reg, err := openMarketRegistry()
		if err != nil {
			presenter.Error(err, "Failed to open marketplace registry")
			os.Exit(1)
		}

		m, err := reg.Add(cmd.Context(), args[0], args[1])
		if err != nil {
			presenter.Error(err, "Failed to add marketplace")
			os.Exit(1)
		}
		presenter.Success(fmt.Sprintf("Added marketplace %q with %d module(s)",
			m.Reference.Name, len(m.Catalog.Modules)))
	},
}

var marketListCmd = &cobra.Command{
	Use:   "list",
	Short: "List marketplaces and their modules",
	Run: func(cmd *cobra.Command, args []string) {
		reg, err := openMarketRegistry()
		if err != nil {
			presenter.Error(err, "Failed to open marketplace registry")
			os.Exit(1)
		}

		markets, err := reg.List()
		if err != nil {
			presenter.Error(err, "Failed to list marketplaces")
			os.Exit(1)
		}
		if len(markets) == 0 {
			presenter.Info("No marketplaces. Add one with 'skillet market add <name> <url>'")
			return
		}

		for _, m := range markets {
			presenter.Section(fmt.Sprintf("%s (%s)", m.Reference.Name, m.Reference.URL))
			if m.Catalog.Description != "" {
				presenter.Info(m.Catalog.Description)
			}
			for _, mod := range m.Catalog.Modules {
				line := fmt.Sprintf("  %s", mod.Name)
				if mod.Description != "" {
					line += " - " + mod.Description
				}
				presenter.Info(line)
				presenter.Info(fmt.Sprintf("    %s", mod.Repository))
			}
		}
	},
}

var marketRemoveCmd = &cobra.Command{
	Use:   "remove [name]",
	Short: "Remove a marketplace",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		reg, err := openMarketRegistry()
		if err != nil {
			presenter.Error(err, "Failed to open marketplace registry")
			os.Exit(1)
		}

		if err := reg.Remove(args[0]); err != nil {
			presenter.Error(err, "Failed to remove marketplace")
			os.Exit(1)
		}
		presenter.Success(fmt.Sprintf("Marketplace %q removed", args[0]))
	},
}

var marketUpdateCmd = &cobra.Command{
	Use:   "update [name]",
	Short: "Refresh a marketplace's catalog cache",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		reg, err := openMarketRegistry()
		if err != nil {
			presenter.Error(err, "Failed to open marketplace registry")
			os.Exit(1)
		}

		m, err := reg.Update(cmd.Context(), args[0])
		if err != nil {
			presenter.Error(err, "Failed to update marketplace")
			os.Exit(1)
		}
		presenter.Success(fmt.Sprintf("Marketplace %q updated: %d module(s)",
			m.Reference.Name, len(m.Catalog.Modules)))
	},
}

func init() {
	marketCmd.AddCommand(marketAddCmd)
	marketCmd.AddCommand(marketListCmd)
	marketCmd.AddCommand(marketRemoveCmd)
	marketCmd.AddCommand(marketUpdateCmd)
}

func openMarketRegistry() (*market.Registry, error) {
	st, err := openStore()
	if err != nil {
		return nil, err
	}
	return market.NewRegistry(st.MarketDir()), nil
}
