package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/jingkaihe/skillet/pkg/installer"
	"github.com/jingkaihe/skillet/pkg/presenter"
	"github.com/jingkaihe/skillet/pkg/target"
	"github.com/jingkaihe/skillet/pkg/types/install"
)

// InstallConfig holds configuration for the install command
type InstallConfig struct {
	Assistant   string
	Scope       string
	ProjectPath string
}

// NewInstallConfig creates a new InstallConfig with default values
func NewInstallConfig() *InstallConfig {
	return &InstallConfig{
		Scope: string(install.ScopeProject),
	}
}

var installCmd = &cobra.Command{
	Use:   "install [module]",
	Short: "Install a module's components for an assistant",
	Long: `Install a module's skills, commands, agents and instructions into
the artifact format of the chosen assistant.

Examples:
  skillet install my-skills -a claude-code
  skillet install my-skills -a cursor -s project -p ./repo
  skillet install my-skills -a gemini-cli -s user`,
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
		res, err := ins.Install(ctx, installer.Request{
			Module:      args[0],
			Assistant:   config.Assistant,
			Scope:       install.Scope(config.Scope),
			ProjectPath: config.ProjectPath,
		})
		if err != nil {
			presenter.Error(err, "Install failed")
			os.Exit(1)
		}

		reportResult(res)
		if res.Partial() {
			os.Exit(2)
		}
	},
}

func init() {
	addInstallFlags(installCmd.Flags())
	installCmd.MarkFlagRequired("assistant")
}

// addInstallFlags registers the assistant/scope/project-path flag set shared
// by install and uninstall.
func addInstallFlags(flags *pflag.FlagSet) {
	defaults := NewInstallConfig()
	flags.StringP("assistant", "a", defaults.Assistant,
		fmt.Sprintf("Target assistant (%s)", strings.Join(target.Names(), ", ")))
	flags.StringP("scope", "s", defaults.Scope, "Installation scope (user or project)")
	flags.StringP("project-path", "p", defaults.ProjectPath,
		"Project directory for project scope (default: current directory)")
}

// getInstallConfigFromFlags extracts install configuration from command flags
func getInstallConfigFromFlags(cmd *cobra.Command) (*InstallConfig, error) {
	config := NewInstallConfig()
	if assistant, err := cmd.Flags().GetString("assistant"); err == nil {
		config.Assistant = assistant
	}
	if scope, err := cmd.Flags().GetString("scope"); err == nil && scope != "" {
		config.Scope = scope
	}
	if projectPath, err := cmd.Flags().GetString("project-path"); err == nil {
		config.ProjectPath = projectPath
	}

	if err := install.Scope(config.Scope).Validate(); err != nil {
		return nil, err
	}
	if config.Scope == string(install.ScopeProject) {
		if config.ProjectPath == "" {
			config.ProjectPath = "."
		}
		abs, err := filepath.Abs(config.ProjectPath)
		if err != nil {
			return nil, errors.Wrap(err, "failed to resolve project path")
		}
		config.ProjectPath = abs
	} else {
		config.ProjectPath = ""
	}
	return config, nil
}

func reportResult(res *installer.Result) {
	for _, w := range res.Warnings {
		presenter.Warning(w)
	}
	for _, cr := range res.Installed {
		presenter.Success(fmt.Sprintf("%s %s", cr.Kind, cr.Name))
	}
	for _, cr := range res.Failed {
		presenter.Error(cr.Err, fmt.Sprintf("%s %s failed", cr.Kind, cr.Name))
	}

	if res.Partial() {
		presenter.Warning(fmt.Sprintf("Installed %d component(s), %d failed",
			len(res.Installed), len(res.Failed)))
		return
	}
	presenter.Success(fmt.Sprintf("Installed %d component(s) for %s",
		len(res.Installed), res.Request.Assistant))
}
