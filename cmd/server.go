package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ziadkadry99/cf-pulse/internal/audit"
	"github.com/ziadkadry99/cf-pulse/internal/dashboard"
	"github.com/ziadkadry99/cf-pulse/internal/config"
	"github.com/ziadkadry99/cf-pulse/internal/server"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the HTTP gateway",
	Long: `Starts the cfpulse HTTP server with the direct query API, the chat API
(when an LLM provider is configured) and the audit trail.`,
	RunE: runServer,
}

func init() {
	serverCmd.Flags().Int("port", 0, "listen port (defaults to the configured port)")
	serverCmd.Flags().Duration("request-timeout", 0, "per-request timeout (0 disables)")
	rootCmd.AddCommand(serverCmd)
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	port := cfg.Port
	if p, _ := cmd.Flags().GetInt("port"); p > 0 {
		port = p
	}
	timeout, _ := cmd.Flags().GetDuration("request-timeout")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := createPlatform(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connecting to platform: %w", err)
	}

	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	auditStore := audit.NewStore(database)
	d, err := createDispatcher(cfg, client, auditStore)
	if err != nil {
		return err
	}

	// Chat is optional: the query surface still works without an LLM key.
	mem := createMemory(cfg, database)
	orchestrator, err := createOrchestrator(cfg, d, mem)
	if err != nil {
		logger.Warn("chat disabled", zap.Error(err))
		mem = nil
	}

	srv := server.New(server.Config{
		Port:           port,
		AllowAll:       true,
		RequestTimeout: timeout,
	}, server.Deps{
		Dispatcher: d,
		Chat:       orchestrator,
		Audit:      auditStore,
		Dashboard:  dashboard.New(d.Catalog(), auditStore, mem),
	}, logger.Named("server"))

	go func() {
		<-ctx.Done()
		fmt.Fprintln(os.Stderr, "\nShutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", zap.Error(err))
		}
	}()

	fmt.Fprintf(os.Stderr, "cfpulse server %s starting on port %d\n", Version, port)
	fmt.Fprintf(os.Stderr, "  Platform: %s\n", cfg.Platform)
	fmt.Fprintf(os.Stderr, "  Console: http://localhost:%d/\n", port)
	fmt.Fprintf(os.Stderr, "  Database: %s\n", database.Path())
	if orchestrator != nil {
		fmt.Fprintf(os.Stderr, "  Chat: %s/%s\n", cfg.Provider, cfg.Model)
	}
	if cfg.Platform == config.PlatformFake {
		fmt.Fprintln(os.Stderr, "  Using the in-memory platform")
	}

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
