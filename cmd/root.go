package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ziadkadry99/cf-pulse/internal/config"
)

var (
	cfgFile string
	verbose bool
	logger  = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "cfpulse",
	Short: "Context-scoped command gateway for Cloud Foundry",
	Long: `cfpulse exposes a fixed catalog of Cloud Foundry operations to callers
and to language models. Every command runs against an explicit org/space
scope, either directly (cfpulse query, POST /api/commands/...), through a
conversational assistant with short-term memory (cfpulse chat, /api/chat),
or as MCP tools for AI agents (cfpulse serve).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLogger(verbose)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultFile, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
