package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillet/pkg/presenter"
	"github.com/jingkaihe/skillet/pkg/scaffold"
)

// InitConfig holds configuration for the init command
type InitConfig struct {
	Description string
	SkillName   string
	NoSkill     bool
}

// NewInitConfig creates a new InitConfig with default values
func NewInitConfig() *InitConfig {
	return &InitConfig{}
}

var initCmd = &cobra.Command{
	Use:   "init [name]",
	Short: "Scaffold a new module",
	Long: `Create the skeleton of a new skillet module: the .skillet/module.yaml
manifest plus a starter skill. With NAME a fresh subdirectory is created;
without it the current directory becomes the module root.

Examples:
  skillet init                      # use the current directory's name
  skillet init my-skills            # create my-skills/
  skillet init -d "My custom skills"
  skillet init -s code-review      # name the starter skill
  skillet init --no-skill`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		config := getInitConfigFromFlags(cmd)

		opts := scaffold.Options{
			Description: config.Description,
			SkillName:   config.SkillName,
			NoSkill:     config.NoSkill,
		}
		if len(args) == 1 {
			opts.Name = args[0]
		}

		cwd, err := os.Getwd()
		if err != nil {
			presenter.Error(err, "Failed to get working directory")
			os.Exit(1)
		}

		res, err := scaffold.Init(cwd, opts)
		if err != nil {
			presenter.Error(err, "Failed to initialize module")
			os.Exit(1)
		}

		presenter.Success(fmt.Sprintf("Initialized module %q at %s", res.ModuleName, res.Dir))
		if res.SkillName != "" {
			presenter.Info(fmt.Sprintf("Next: edit skills/%s/SKILL.md, then run 'skillet add %s'",
				res.SkillName, res.Dir))
		} else {
			presenter.Info(fmt.Sprintf("Next: create skills/<name>/SKILL.md files, then run 'skillet add %s'", res.Dir))
		}
	},
}

func init() {
	initDefaults := NewInitConfig()
	initCmd.Flags().StringP("description", "d", initDefaults.Description, "Module description")
	initCmd.Flags().StringP("skill", "s", initDefaults.SkillName, "Name for the starter skill (default: module name)")
	initCmd.Flags().Bool("no-skill", initDefaults.NoSkill, "Do not create a starter skill")
}

// getInitConfigFromFlags extracts init configuration from command flags
func getInitConfigFromFlags(cmd *cobra.Command) *InitConfig {
	config := NewInitConfig()
	if description, err := cmd.Flags().GetString("description"); err == nil {
		config.Description = description
	}
	if skillName, err := cmd.Flags().GetString("skill"); err == nil {
		config.SkillName = skillName
	}
	if noSkill, err := cmd.Flags().GetBool("no-skill"); err == nil {
		config.NoSkill = noSkill
	}
	return config
}
