package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

const envPrefix = "CFPULSE_"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (CFPULSE_*). A double underscore nests:
// CFPULSE_CF__API_URL sets cf.api_url.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if cfg.CF.Password == "" {
		cfg.CF.Password = os.Getenv("CF_PASSWORD")
	}
	if k.String("model") == "" {
		cfg.Model = ModelFor(cfg.Provider, cfg.Quality)
	}

	return cfg, nil
}

// envKey maps CFPULSE_CF__API_URL to cf.api_url.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Save writes the configuration to the given YAML file path. The CF
// password is never written; it belongs in CF_PASSWORD.
func (c *Config) Save(path string) error {
	out := *c
	out.CF.Password = ""
	data, err := yamlv3.Marshal(&out)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validProviders = map[ProviderType]bool{
	ProviderAnthropic:  true,
	ProviderOpenAI:     true,
	ProviderOpenRouter: true,
	ProviderOllama:     true,
}

var validQualityTiers = map[QualityTier]bool{
	QualityLite:   true,
	QualityNormal: true,
	QualityMax:    true,
}

var validBackends = map[MemoryBackend]bool{
	MemoryInProcess: true,
	MemorySQLite:    true,
}

var validPlatforms = map[PlatformType]bool{
	PlatformCF:   true,
	PlatformFake: true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	if !validProviders[c.Provider] {
		return fmt.Errorf("invalid provider %q: must be one of anthropic, openai, openrouter, ollama", c.Provider)
	}

	if c.Model == "" {
		return fmt.Errorf("model is required")
	}

	if c.Quality != "" && !validQualityTiers[c.Quality] {
		return fmt.Errorf("invalid quality %q: must be one of lite, normal, max", c.Quality)
	}

	if c.MaxToolRounds <= 0 {
		return fmt.Errorf("max_tool_rounds must be positive")
	}

	if c.RequestsPerMinute < 0 {
		return fmt.Errorf("requests_per_minute must be non-negative")
	}

	if c.MemoryWindow <= 0 {
		return fmt.Errorf("memory_window must be positive")
	}

	if !validBackends[c.MemoryBackend] {
		return fmt.Errorf("invalid memory_backend %q: must be memory or sqlite", c.MemoryBackend)
	}

	if c.MemoryBackend == MemorySQLite && c.DataDir == "" {
		return fmt.Errorf("data_dir is required for the sqlite memory backend")
	}

	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}

	if c.Platform != "" && !validPlatforms[c.Platform] {
		return fmt.Errorf("invalid platform %q: must be cf or fake", c.Platform)
	}

	return nil
}

// ValidatePlatform checks the settings needed to reach a real CF API. The
// password may come from CF_PASSWORD or a cached login, so it is not checked.
func (c *Config) ValidatePlatform() error {
	if c.Platform == PlatformFake {
		return nil
	}
	if c.CF.APIURL == "" {
		return fmt.Errorf("cf.api_url is required (set CFPULSE_CF__API_URL or run cfpulse init)")
	}
	if c.CF.Username == "" {
		return fmt.Errorf("cf.username is required")
	}
	return nil
}

// APIKeyEnvVar returns the conventional environment variable name for
// the API key of the given provider.
func APIKeyEnvVar(provider ProviderType) string {
	switch provider {
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderOpenRouter:
		return "OPENROUTER_API_KEY"
	default:
		return ""
	}
}
