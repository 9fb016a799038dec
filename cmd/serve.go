package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ziadkadry99/cf-pulse/internal/config"
	mcpserver "github.com/ziadkadry99/cf-pulse/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server for AI agent integration",
	Long: `Starts a Model Context Protocol (MCP) server on stdio. Every catalog
command is exposed as a tool that runs in the org/space given here.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("org", "", "organization (defaults to cf.default_org)")
	serveCmd.Flags().String("space", "", "space (defaults to cf.default_space)")
	serveCmd.Flags().Bool("audit", true, "record dispatches in the audit trail")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	org, _ := cmd.Flags().GetString("org")
	space, _ := cmd.Flags().GetString("space")
	withAudit, _ := cmd.Flags().GetBool("audit")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client, err := createPlatform(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("connecting to platform: %w", err)
	}

	var h *auditStoreHandle
	if withAudit {
		if h, err = openAudit(cfg); err != nil {
			return err
		}
		defer h.Close()
	}
	d, err := createDispatcher(cfg, client, h.Store())
	if err != nil {
		return err
	}

	s := scopeFlags(cfg, org, space)
	mcpserver.Version = Version

	logger.Info("mcp server starting on stdio",
		zap.String("scope", s.String()),
		zap.String("platform", string(cfg.Platform)),
	)
	if cfg.Platform == config.PlatformFake {
		fmt.Fprintln(os.Stderr, "cfpulse MCP server using the in-memory platform")
	}

	return mcpserver.NewServer(d, d.Catalog(), s, logger.Named("mcp")).Serve()
}
