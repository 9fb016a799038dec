package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard, saves the result to
// path and returns it.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to cfpulse! Let's connect to your Cloud Foundry foundation.")
	fmt.Println()

	cfg := DefaultConfig()
	if existing, err := Load(path); err == nil {
		cfg = existing
	}

	// 1. Provider selection.
	providerPrompt := promptui.Select{
		Label: "Select LLM provider",
		Items: []string{"openai", "anthropic", "openrouter", "ollama"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	cfg.Provider = ProviderType(providerStr)

	// 2. Quality tier picks the suggested model.
	qualityPrompt := promptui.Select{
		Label: "Select quality tier",
		Items: []string{
			"lite   - fast & cheap",
			"normal - balanced",
			"max    - most capable",
		},
	}
	qualityIdx, _, err := qualityPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("quality selection: %w", err)
	}
	tiers := []QualityTier{QualityLite, QualityNormal, QualityMax}
	cfg.Quality = tiers[qualityIdx]

	modelPrompt := promptui.Prompt{
		Label:   "Model",
		Default: ModelFor(cfg.Provider, cfg.Quality),
	}
	if cfg.Model, err = modelPrompt.Run(); err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}

	// 3. Cloud Foundry connection.
	apiPrompt := promptui.Prompt{
		Label:    "Cloud Foundry API URL",
		Default:  cfg.CF.APIURL,
		Validate: validateAPIURL,
	}
	apiURL, err := apiPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("api url: %w", err)
	}
	cfg.CF.APIURL = strings.TrimRight(strings.TrimSpace(apiURL), "/")

	userPrompt := promptui.Prompt{Label: "Cloud Foundry username", Default: cfg.CF.Username}
	if cfg.CF.Username, err = userPrompt.Run(); err != nil {
		return nil, fmt.Errorf("username: %w", err)
	}

	// 4. Default scope for the MCP server and CLI.
	orgPrompt := promptui.Prompt{Label: "Default org (optional)", Default: cfg.CF.DefaultOrg}
	if cfg.CF.DefaultOrg, err = orgPrompt.Run(); err != nil {
		return nil, fmt.Errorf("default org: %w", err)
	}
	spacePrompt := promptui.Prompt{Label: "Default space (optional)", Default: cfg.CF.DefaultSpace}
	if cfg.CF.DefaultSpace, err = spacePrompt.Run(); err != nil {
		return nil, fmt.Errorf("default space: %w", err)
	}

	// 5. Conversation memory.
	memoryPrompt := promptui.Select{
		Label: "Conversation memory",
		Items: []string{string(MemoryInProcess), string(MemorySQLite)},
	}
	_, backend, err := memoryPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("memory backend: %w", err)
	}
	cfg.MemoryBackend = MemoryBackend(backend)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	for _, note := range missingSecrets(cfg) {
		fmt.Printf("\nNote: Set %s in your environment before running cfpulse.\n", note)
	}

	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

// validateAPIURL accepts empty input or an absolute http(s) URL.
func validateAPIURL(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil {
		return err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("expected an http(s) URL such as https://api.sys.example.com")
	}
	return nil
}

// missingSecrets lists the environment variables cfg needs but which are unset.
func missingSecrets(cfg *Config) []string {
	var missing []string
	if envVar := APIKeyEnvVar(cfg.Provider); envVar != "" && os.Getenv(envVar) == "" {
		missing = append(missing, envVar)
	}
	if cfg.CF.APIURL != "" && os.Getenv("CF_PASSWORD") == "" {
		missing = append(missing, "CF_PASSWORD")
	}
	return missing
}
