package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/cf-pulse/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize cfpulse configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to pick an LLM provider and a Cloud Foundry target, and writes a .cfpulse.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard(cfgFile)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
