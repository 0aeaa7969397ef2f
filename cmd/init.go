package cmd

import (
	"github.com/spf13/cobra"

	"github.com/voiceline/voiceline/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize voiceline configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to configure voiceline and generates a .voiceline.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard(cfgFile)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
