package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
)

// CFCredentials caches a UAA token for one Cloud Foundry API.
type CFCredentials struct {
	APIURL       string `json:"api_url"`
	Username     string `json:"username,omitempty"`
	TokenURL     string `json:"token_url,omitempty"`
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenExpiry  string `json:"token_expiry,omitempty"`
}

// Token rebuilds the cached oauth2 token.
func (c *CFCredentials) Token() *oauth2.Token {
	expiry, _ := time.Parse(time.RFC3339, c.TokenExpiry)
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		Expiry:       expiry,
		TokenType:    "Bearer",
	}
}

// APIKeyCredentials stores an API key for a provider.
type APIKeyCredentials struct {
	APIKey string `json:"api_key,omitempty"`
}

// Credentials holds stored credentials for all providers.
type Credentials struct {
	CF         *CFCredentials     `json:"cf,omitempty"`
	Anthropic  *APIKeyCredentials `json:"anthropic,omitempty"`
	OpenAI     *APIKeyCredentials `json:"openai,omitempty"`
	OpenRouter *APIKeyCredentials `json:"openrouter,omitempty"`
}

// CredentialPath returns the path to the credentials file
// (~/.cfpulse/credentials.json, or $CFPULSE_CREDENTIALS when set).
func CredentialPath() (string, error) {
	if p := os.Getenv("CFPULSE_CREDENTIALS"); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".cfpulse", "credentials.json"), nil
}

// Load reads the credentials file.
// Returns empty credentials if the file doesn't exist.
func Load() (*Credentials, error) {
	path, err := CredentialPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Credentials{}, nil
		}
		return nil, fmt.Errorf("reading credentials: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("parsing credentials: %w", err)
	}
	return &creds, nil
}

// Save writes the credentials file with restricted permissions.
func Save(creds *Credentials) error {
	path, err := CredentialPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating credentials directory: %w", err)
	}

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling credentials: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	return nil
}

// envKeys maps providers to their API key environment variables.
var envKeys = map[string]string{
	"anthropic":  "ANTHROPIC_API_KEY",
	"openai":     "OPENAI_API_KEY",
	"openrouter": "OPENROUTER_API_KEY",
}

// EnvVar returns the environment variable holding provider's API key.
func EnvVar(provider string) string { return envKeys[provider] }

// GetAPIKey returns the API key for the given provider.
// It checks the environment variable first, then falls back to stored credentials.
func GetAPIKey(provider string) string {
	if key := os.Getenv(envKeys[provider]); envKeys[provider] != "" && key != "" {
		return key
	}

	creds, err := Load()
	if err != nil {
		return ""
	}

	var stored *APIKeyCredentials
	switch provider {
	case "anthropic":
		stored = creds.Anthropic
	case "openai":
		stored = creds.OpenAI
	case "openrouter":
		stored = creds.OpenRouter
	}
	if stored == nil {
		return ""
	}
	return stored.APIKey
}

// StoredCF returns the cached token for apiURL, or nil.
func StoredCF(apiURL string) *CFCredentials {
	creds, err := Load()
	if err != nil || creds.CF == nil || creds.CF.APIURL != apiURL || creds.CF.RefreshToken == "" {
		return nil
	}
	return creds.CF
}

// SaveCF replaces the cached CF token.
func SaveCF(cf *CFCredentials) error {
	creds, err := Load()
	if err != nil {
		return err
	}
	creds.CF = cf
	return Save(creds)
}
