package config

import "path/filepath"

// DefaultFile is the config file looked up in the working directory.
const DefaultFile = ".cfpulse.yml"

// qualityPresets maps each provider+quality combination to its model.
var qualityPresets = map[ProviderType]map[QualityTier]string{
	ProviderAnthropic: {
		QualityLite:   "claude-haiku-4-5-20251001",
		QualityNormal: "claude-sonnet-4-5-20250929",
		QualityMax:    "claude-opus-4-6",
	},
	ProviderOpenAI: {
		QualityLite:   "gpt-4.1-mini",
		QualityNormal: "gpt-4.1",
		QualityMax:    "gpt-4o",
	},
	ProviderOpenRouter: {
		QualityLite:   "openai/gpt-4.1-mini",
		QualityNormal: "anthropic/claude-sonnet-4.5",
		QualityMax:    "anthropic/claude-opus-4.6",
	},
	ProviderOllama: {
		QualityLite:   "llama3.1",
		QualityNormal: "llama3.1",
		QualityMax:    "llama3.1:70b",
	},
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider:          ProviderOpenAI,
		Model:             "gpt-4.1",
		Quality:           QualityNormal,
		MaxToolRounds:     8,
		RequestsPerMinute: 0,
		MemoryWindow:      10,
		MemoryBackend:     MemoryInProcess,
		DataDir:           ".cfpulse",
		Port:              8080,
		Platform:          PlatformCF,
		CF: CFConfig{
			ClientID:        "cf",
			RuntimeEnvVar:   "JBP_CONFIG_OPEN_JDK_JRE",
			RuntimeEnvValue: "{ jre: { version: 17.+ } }",
			Buildpack:       "java_buildpack_offline",
		},
	}
}

// ModelFor returns the preset model for the given provider and tier.
// Returns the normal tier of the provider, or the OpenAI normal model,
// if the combination is not found.
func ModelFor(provider ProviderType, tier QualityTier) string {
	tiers, ok := qualityPresets[provider]
	if !ok {
		return qualityPresets[ProviderOpenAI][QualityNormal]
	}
	if m, ok := tiers[tier]; ok {
		return m
	}
	return tiers[QualityNormal]
}

// DatabasePath is the SQLite file used for audit and persistent memory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "cfpulse.db")
}
