package cmd

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/oauth2"

	"github.com/ziadkadry99/cf-pulse/internal/audit"
	"github.com/ziadkadry99/cf-pulse/internal/auth"
	"github.com/ziadkadry99/cf-pulse/internal/catalog"
	"github.com/ziadkadry99/cf-pulse/internal/chat"
	"github.com/ziadkadry99/cf-pulse/internal/config"
	"github.com/ziadkadry99/cf-pulse/internal/db"
	"github.com/ziadkadry99/cf-pulse/internal/gateway"
	"github.com/ziadkadry99/cf-pulse/internal/llm"
	"github.com/ziadkadry99/cf-pulse/internal/memory"
	"github.com/ziadkadry99/cf-pulse/internal/platform"
	"github.com/ziadkadry99/cf-pulse/internal/platform/cf"
	"github.com/ziadkadry99/cf-pulse/internal/platform/fake"
	"github.com/ziadkadry99/cf-pulse/internal/scope"
)

// newLogger builds a console logger on stderr. Stdout stays free for
// command output and the MCP stdio transport.
func newLogger(debug bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	zc.Encoding = "console"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.OutputPaths = []string{"stderr"}
	zc.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	if debug {
		zc.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return zc.Build()
}

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `cfpulse init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

// createPlatform returns the configured platform collaborator.
func createPlatform(ctx context.Context, cfg *config.Config) (platform.Client, error) {
	if cfg.Platform == config.PlatformFake {
		org, space := cfg.CF.DefaultOrg, cfg.CF.DefaultSpace
		if org == "" {
			org, space = "acme", "dev"
		}
		p := fake.New(org, space)
		fake.Seed(p)
		logger.Info("using in-memory platform", zap.Stringer("platform", p))
		return p, nil
	}

	if err := cfg.ValidatePlatform(); err != nil {
		return nil, err
	}
	uaa := auth.UAAConfig{
		APIURL:            cfg.CF.APIURL,
		ClientID:          cfg.CF.ClientID,
		SkipTLSValidation: cfg.CF.SkipTLSValidation,
	}
	ts, err := auth.Session(ctx, uaa, cfg.CF.Username, cfg.CF.Password)
	if err != nil {
		return nil, err
	}
	httpClient := oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, uaa.HTTPClient()), ts)

	return cf.New(cf.Config{
		APIURL:       cfg.CF.APIURL,
		DefaultOrg:   cfg.CF.DefaultOrg,
		DefaultSpace: cfg.CF.DefaultSpace,
	}, httpClient, logger.Named("cf")), nil
}

// createDispatcher wires the catalog, platform and optional audit trail.
func createDispatcher(cfg *config.Config, client platform.Client, auditStore *audit.Store) (*gateway.Dispatcher, error) {
	opts := []gateway.Option{
		gateway.WithLogger(logger.Named("gateway")),
		gateway.WithPushConfig(gateway.PushConfig{
			Buildpack:    cfg.CF.Buildpack,
			RuntimeEnv:   cfg.CF.RuntimeEnvVar,
			RuntimeValue: cfg.CF.RuntimeEnvValue,
		}),
	}
	if auditStore != nil {
		opts = append(opts, gateway.WithRecorder(audit.NewRecorder(auditStore, logger.Named("audit"))))
	}
	return gateway.New(catalog.Default(), client, opts...)
}

// openDatabase opens the SQLite file under data_dir.
func openDatabase(cfg *config.Config) (*db.DB, error) {
	database, err := db.Open(cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return database, nil
}

// createMemory returns the configured conversation store.
func createMemory(cfg *config.Config, database *db.DB) memory.Store {
	if cfg.MemoryBackend == config.MemorySQLite && database != nil {
		return memory.NewSQLiteStore(database, cfg.MemoryWindow)
	}
	return memory.NewInMemory(cfg.MemoryWindow)
}

// createLLMProviderFromConfig creates an LLM provider based on config settings.
func createLLMProviderFromConfig(cfg *config.Config) (llm.Provider, error) {
	p, err := llm.NewProvider(string(cfg.Provider), cfg.Model)
	if err != nil {
		return nil, err
	}
	return llm.NewRateLimitedProvider(p, cfg.RequestsPerMinute), nil
}

// createOrchestrator builds the chat orchestrator over d.
func createOrchestrator(cfg *config.Config, d *gateway.Dispatcher, store memory.Store) (*chat.Orchestrator, error) {
	provider, err := createLLMProviderFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating LLM provider: %w", err)
	}
	return chat.New(provider, d, d.Catalog(), store,
		chat.WithModel(cfg.Model),
		chat.WithMaxToolRounds(cfg.MaxToolRounds),
		chat.WithLogger(logger.Named("chat")),
	), nil
}

// scopeFlags resolves --org/--space, falling back to the configured target.
func scopeFlags(cfg *config.Config, org, space string) scope.Scope {
	return scope.Resolve(org, space).WithDefaults(cfg.CF.DefaultOrg, cfg.CF.DefaultSpace)
}

// parseArgFlags turns repeated key=value flags into command arguments,
// layered over an optional JSON object.
func parseArgFlags(pairs []string, rawJSON string) (catalog.Args, error) {
	args, err := catalog.ParseArgs(rawJSON)
	if err != nil {
		return nil, err
	}
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --arg %q: expected key=value", pair)
		}
		args[k] = v
	}
	return args, nil
}
