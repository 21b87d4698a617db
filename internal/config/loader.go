package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Load loads and merges configuration from global and project sources.
// The project config overrides the global one; credential environment
// variables override both.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	if home, err := os.UserHomeDir(); err == nil {
		globalPath := filepath.Join(home, ".logichive", "config.yaml")
		if err := loadFile(globalPath, cfg); err != nil && !os.IsNotExist(err) {
			return nil, err
		}
	}

	if cwd, err := os.Getwd(); err == nil {
		projectPath := filepath.Join(cwd, ".logichive", "config.yaml")
		if err := loadFile(projectPath, cfg); err != nil && !os.IsNotExist(err) {
			return nil, err
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return err
	}

	return v.Unmarshal(cfg)
}

// applyEnv overlays credential environment variables so secrets never
// need to live in a config file.
func applyEnv(cfg *Config) {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.Embedding.OpenAIAPIKey = key
	}
	if key := os.Getenv("LOGICHIVE_EXEC_API_KEY"); key != "" {
		cfg.Exec.APIKey = key
	}
	if key := os.Getenv("LOGICHIVE_HUB_API_KEY"); key != "" {
		cfg.Hub.APIKey = key
	}
	if url := os.Getenv("LOGICHIVE_HUB_URL"); url != "" {
		cfg.Hub.URL = url
	}
}

// GlobalConfigPath returns the path to the global config file.
func GlobalConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".logichive", "config.yaml")
}

// ProjectConfigPath returns the path to the project config file.
func ProjectConfigPath() string {
	cwd, _ := os.Getwd()
	return filepath.Join(cwd, ".logichive", "config.yaml")
}
