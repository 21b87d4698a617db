package config

import (
	"os"
	"path/filepath"
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Version: "1",
		Store: StoreConfig{
			Path:               filepath.Join(home, ".logichive", "logichive.db"),
			LockTimeoutSeconds: 10,
		},
		Embedding: EmbeddingConfig{
			Provider:      "ollama",
			OllamaBaseURL: "http://localhost:11434",
		},
		Exec: ExecConfig{
			URL: "http://localhost:8000",
		},
		Rerank: RerankConfig{
			Enabled:       true,
			OllamaBaseURL: "http://localhost:11434",
		},
		Retention: RetentionConfig{
			Enabled:       true,
			Threshold:     0.5,
			GraceDays:     14,
			IntervalHours: 24,
		},
	}
}
