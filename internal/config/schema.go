// Package config loads the engine configuration from the global and
// project YAML files, with environment variables taking precedence for
// credentials.
package config

// Config is the full engine configuration.
type Config struct {
	Version string `yaml:"version" mapstructure:"version"`

	// Store configuration
	Store StoreConfig `yaml:"store" mapstructure:"store"`

	// Embedding backend configuration
	Embedding EmbeddingConfig `yaml:"embedding" mapstructure:"embedding"`

	// Execution oracle configuration
	Exec ExecConfig `yaml:"exec" mapstructure:"exec"`

	// Rerank (smart-select) configuration
	Rerank RerankConfig `yaml:"rerank" mapstructure:"rerank"`

	// Remote hub / sync configuration
	Hub HubConfig `yaml:"hub" mapstructure:"hub"`

	// Retention policy configuration
	Retention RetentionConfig `yaml:"retention" mapstructure:"retention"`

	// Security policy configuration
	Security SecurityConfig `yaml:"security" mapstructure:"security"`
}

// StoreConfig configures the catalog store file and write coordination.
type StoreConfig struct {
	Path               string `yaml:"path" mapstructure:"path"`
	LockTimeoutSeconds int    `yaml:"lock_timeout_seconds" mapstructure:"lock_timeout_seconds"`
}

// EmbeddingConfig selects and configures the embedding backend.
type EmbeddingConfig struct {
	// Provider is "openai" or "ollama".
	Provider string `yaml:"provider" mapstructure:"provider"`
	Model    string `yaml:"model" mapstructure:"model"`

	OpenAIAPIKey  string `yaml:"openai_api_key" mapstructure:"openai_api_key"`
	OllamaBaseURL string `yaml:"ollama_base_url" mapstructure:"ollama_base_url"`
}

// ExecConfig configures the remote test execution service.
type ExecConfig struct {
	URL    string `yaml:"url" mapstructure:"url"`
	APIKey string `yaml:"api_key" mapstructure:"api_key"`
}

// RerankConfig configures local execution of rerank prompts.
type RerankConfig struct {
	Enabled       bool   `yaml:"enabled" mapstructure:"enabled"`
	OllamaBaseURL string `yaml:"ollama_base_url" mapstructure:"ollama_base_url"`
	Model         string `yaml:"model" mapstructure:"model"`
}

// HubConfig configures the remote mediated dataset.
type HubConfig struct {
	URL    string `yaml:"url" mapstructure:"url"`
	APIKey string `yaml:"api_key" mapstructure:"api_key"`
}

// RetentionConfig configures the usage-decay reaper.
type RetentionConfig struct {
	Enabled       bool    `yaml:"enabled" mapstructure:"enabled"`
	Threshold     float64 `yaml:"threshold" mapstructure:"threshold"`
	GraceDays     int     `yaml:"grace_days" mapstructure:"grace_days"`
	IntervalHours int     `yaml:"interval_hours" mapstructure:"interval_hours"`
}

// SecurityConfig points at an optional policy override file.
type SecurityConfig struct {
	PolicyPath string `yaml:"policy_path" mapstructure:"policy_path"`
}
