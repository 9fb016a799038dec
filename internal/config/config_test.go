package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Provider != ProviderOpenAI {
		t.Errorf("expected default provider %q, got %q", ProviderOpenAI, cfg.Provider)
	}
	if cfg.MaxToolRounds != 8 {
		t.Errorf("expected default max_tool_rounds 8, got %d", cfg.MaxToolRounds)
	}
	if cfg.MemoryWindow != 10 {
		t.Errorf("expected default memory_window 10, got %d", cfg.MemoryWindow)
	}
	if cfg.CF.ClientID != "cf" {
		t.Errorf("expected default client id %q, got %q", "cf", cfg.CF.ClientID)
	}
	if cfg.CF.RuntimeEnvVar != "JBP_CONFIG_OPEN_JDK_JRE" || cfg.CF.RuntimeEnvValue != "{ jre: { version: 17.+ } }" {
		t.Errorf("unexpected runtime env default %q=%q", cfg.CF.RuntimeEnvVar, cfg.CF.RuntimeEnvValue)
	}
	if cfg.CF.Buildpack != "java_buildpack_offline" {
		t.Errorf("expected default buildpack, got %q", cfg.CF.Buildpack)
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.cfpulse.yml")

	original := DefaultConfig()
	original.Provider = ProviderAnthropic
	original.Model = "claude-sonnet-4-5-20250929"
	original.MemoryBackend = MemorySQLite
	original.MemoryWindow = 6
	original.CF.APIURL = "https://api.sys.example.com"
	original.CF.Username = "admin"
	original.CF.DefaultOrg = "acme"
	original.CF.DefaultSpace = "dev"

	if err := original.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Provider != original.Provider {
		t.Errorf("provider: got %q, want %q", loaded.Provider, original.Provider)
	}
	if loaded.Model != original.Model {
		t.Errorf("model: got %q, want %q", loaded.Model, original.Model)
	}
	if loaded.MemoryBackend != MemorySQLite {
		t.Errorf("memory_backend: got %q", loaded.MemoryBackend)
	}
	if loaded.MemoryWindow != 6 {
		t.Errorf("memory_window: got %d, want 6", loaded.MemoryWindow)
	}
	if loaded.CF != original.CF {
		t.Errorf("cf: got %+v, want %+v", loaded.CF, original.CF)
	}
}

func TestSaveOmitsPassword(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yml")
	cfg := DefaultConfig()
	cfg.CF.Password = "hunter2"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "hunter2") {
		t.Errorf("password written to disk:\n%s", data)
	}
	if cfg.CF.Password != "hunter2" {
		t.Error("Save must not modify the receiver")
	}
}

func TestLoadMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nonexistent.yml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load should not fail for missing file: %v", err)
	}
	if cfg.Provider != ProviderOpenAI {
		t.Errorf("expected default provider, got %q", cfg.Provider)
	}
}

func TestLoadModelFollowsProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yml")
	if err := os.WriteFile(path, []byte("provider: anthropic\nquality: lite\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Model != "claude-haiku-4-5-20251001" {
		t.Errorf("model = %q, want the anthropic lite preset", cfg.Model)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.yml")
	if err := DefaultConfig().Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	t.Setenv("CFPULSE_PROVIDER", "ollama")
	t.Setenv("CFPULSE_MEMORY_WINDOW", "4")
	t.Setenv("CFPULSE_CF__API_URL", "https://api.example.org")
	t.Setenv("CFPULSE_CF__DEFAULT_SPACE", "prod")

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Provider != ProviderOllama {
		t.Errorf("provider: got %q, want %q", loaded.Provider, ProviderOllama)
	}
	if loaded.MemoryWindow != 4 {
		t.Errorf("memory_window: got %d, want 4", loaded.MemoryWindow)
	}
	if loaded.CF.APIURL != "https://api.example.org" {
		t.Errorf("cf.api_url: got %q", loaded.CF.APIURL)
	}
	if loaded.CF.DefaultSpace != "prod" {
		t.Errorf("cf.default_space: got %q", loaded.CF.DefaultSpace)
	}
}

func TestLoadPasswordFromEnv(t *testing.T) {
	t.Setenv("CF_PASSWORD", "s3cret")
	cfg, err := Load(filepath.Join(t.TempDir(), "none.yml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.CF.Password != "s3cret" {
		t.Errorf("password = %q, want value of CF_PASSWORD", cfg.CF.Password)
	}

	t.Setenv("CFPULSE_CF__PASSWORD", "explicit")
	cfg, err = Load(filepath.Join(t.TempDir(), "none.yml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.CF.Password != "explicit" {
		t.Errorf("password = %q, want CFPULSE_CF__PASSWORD to win", cfg.CF.Password)
	}
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"CFPULSE_PROVIDER":                "provider",
		"CFPULSE_MAX_TOOL_ROUNDS":         "max_tool_rounds",
		"CFPULSE_CF__API_URL":             "cf.api_url",
		"CFPULSE_CF__SKIP_TLS_VALIDATION": "cf.skip_tls_validation",
	}
	for in, want := range tests {
		if got := envKey(in); got != want {
			t.Errorf("envKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"sqlite backend", func(c *Config) { c.MemoryBackend = MemorySQLite }, false},
		{"fake platform", func(c *Config) { c.Platform = PlatformFake }, false},
		{"unknown provider", func(c *Config) { c.Provider = "invalid" }, true},
		{"empty provider", func(c *Config) { c.Provider = "" }, true},
		{"empty model", func(c *Config) { c.Model = "" }, true},
		{"unknown quality", func(c *Config) { c.Quality = "ultra" }, true},
		{"zero window", func(c *Config) { c.MemoryWindow = 0 }, true},
		{"negative window", func(c *Config) { c.MemoryWindow = -3 }, true},
		{"negative rpm", func(c *Config) { c.RequestsPerMinute = -1 }, true},
		{"zero tool rounds", func(c *Config) { c.MaxToolRounds = 0 }, true},
		{"unknown backend", func(c *Config) { c.MemoryBackend = "redis" }, true},
		{"sqlite without data dir", func(c *Config) { c.MemoryBackend = MemorySQLite; c.DataDir = "" }, true},
		{"bad port", func(c *Config) { c.Port = 70000 }, true},
		{"unknown platform", func(c *Config) { c.Platform = "k8s" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidatePlatform(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.ValidatePlatform(); err == nil {
		t.Error("expected error without api url")
	}
	cfg.CF.APIURL = "https://api.example.org"
	if err := cfg.ValidatePlatform(); err == nil {
		t.Error("expected error without username")
	}
	cfg.CF.Username = "admin"
	if err := cfg.ValidatePlatform(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	fake := DefaultConfig()
	fake.Platform = PlatformFake
	if err := fake.ValidatePlatform(); err != nil {
		t.Errorf("fake platform needs no credentials, got %v", err)
	}
}

func TestModelFor(t *testing.T) {
	if m := ModelFor(ProviderAnthropic, QualityLite); m != "claude-haiku-4-5-20251001" {
		t.Errorf("expected haiku model, got %q", m)
	}
	if m := ModelFor(ProviderOllama, "unknown"); m != "llama3.1" {
		t.Errorf("expected provider normal tier, got %q", m)
	}
	if m := ModelFor("unknown", QualityLite); m != "gpt-4.1" {
		t.Errorf("expected fallback to gpt-4.1, got %q", m)
	}
}

func TestAPIKeyEnvVar(t *testing.T) {
	tests := []struct {
		provider ProviderType
		want     string
	}{
		{ProviderAnthropic, "ANTHROPIC_API_KEY"},
		{ProviderOpenAI, "OPENAI_API_KEY"},
		{ProviderOpenRouter, "OPENROUTER_API_KEY"},
		{ProviderOllama, ""},
	}
	for _, tt := range tests {
		got := APIKeyEnvVar(tt.provider)
		if got != tt.want {
			t.Errorf("APIKeyEnvVar(%q) = %q, want %q", tt.provider, got, tt.want)
		}
	}
}

func TestValidateAPIURL(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"", false},
		{"https://api.sys.example.com", false},
		{"http://localhost:9022", false},
		{"api.sys.example.com", true},
		{"ftp://api.example.com", true},
	}
	for _, tt := range tests {
		if err := validateAPIURL(tt.in); (err != nil) != tt.wantErr {
			t.Errorf("validateAPIURL(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
	}
}

func TestMissingSecrets(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("CF_PASSWORD", "")
	cfg := DefaultConfig()
	cfg.CF.APIURL = "https://api.example.org"

	got := missingSecrets(cfg)
	if len(got) != 2 || got[0] != "OPENAI_API_KEY" || got[1] != "CF_PASSWORD" {
		t.Errorf("missingSecrets = %v", got)
	}

	t.Setenv("OPENAI_API_KEY", "k")
	t.Setenv("CF_PASSWORD", "p")
	if got := missingSecrets(cfg); len(got) != 0 {
		t.Errorf("missingSecrets = %v, want none", got)
	}
}
