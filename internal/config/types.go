package config

// QualityTier selects the default model for a provider.
type QualityTier string

const (
	QualityLite   QualityTier = "lite"
	QualityNormal QualityTier = "normal"
	QualityMax    QualityTier = "max"
)

// ProviderType identifies an LLM provider.
type ProviderType string

const (
	ProviderAnthropic  ProviderType = "anthropic"
	ProviderOpenAI     ProviderType = "openai"
	ProviderOpenRouter ProviderType = "openrouter"
	ProviderOllama     ProviderType = "ollama"
)

// MemoryBackend selects where conversation turns are kept.
type MemoryBackend string

const (
	MemoryInProcess MemoryBackend = "memory"
	MemorySQLite    MemoryBackend = "sqlite"
)

// PlatformType selects the platform collaborator the gateway talks to.
type PlatformType string

const (
	PlatformCF   PlatformType = "cf"
	PlatformFake PlatformType = "fake"
)

// Config is the top-level cfpulse configuration, corresponding to .cfpulse.yml.
type Config struct {
	Provider          ProviderType  `yaml:"provider" koanf:"provider"`
	Model             string        `yaml:"model" koanf:"model"`
	Quality           QualityTier   `yaml:"quality" koanf:"quality"`
	MaxToolRounds     int           `yaml:"max_tool_rounds" koanf:"max_tool_rounds"`
	RequestsPerMinute int           `yaml:"requests_per_minute" koanf:"requests_per_minute"`
	MemoryWindow      int           `yaml:"memory_window" koanf:"memory_window"`
	MemoryBackend     MemoryBackend `yaml:"memory_backend" koanf:"memory_backend"`
	DataDir           string        `yaml:"data_dir" koanf:"data_dir"`
	Port              int           `yaml:"port" koanf:"port"`
	Platform          PlatformType  `yaml:"platform" koanf:"platform"`
	CF                CFConfig      `yaml:"cf" koanf:"cf"`
}

// CFConfig holds the Cloud Foundry connection and push settings.
type CFConfig struct {
	APIURL            string `yaml:"api_url" koanf:"api_url"`
	Username          string `yaml:"username" koanf:"username"`
	Password          string `yaml:"password,omitempty" koanf:"password"`
	ClientID          string `yaml:"client_id" koanf:"client_id"`
	SkipTLSValidation bool   `yaml:"skip_tls_validation" koanf:"skip_tls_validation"`
	DefaultOrg        string `yaml:"default_org" koanf:"default_org"`
	DefaultSpace      string `yaml:"default_space" koanf:"default_space"`
	RuntimeEnvVar     string `yaml:"runtime_env_var" koanf:"runtime_env_var"`
	RuntimeEnvValue   string `yaml:"runtime_env_value" koanf:"runtime_env_value"`
	Buildpack         string `yaml:"buildpack" koanf:"buildpack"`
}
