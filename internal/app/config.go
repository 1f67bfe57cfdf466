package app

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	BaseURL        string        `yaml:"base_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	DefaultCity    string        `yaml:"default_city"`
	LogFile        string        `yaml:"log_file"`
}

func DefaultConfig() Config {
	return Config{
		BaseURL:        "http://localhost:9000",
		RequestTimeout: 30 * time.Second,
	}
}

// LoadConfig reads the YAML config at path, falling back to defaults when the
// file is missing. A .env in the working directory and CLIMAVIZ_* environment
// variables override file values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = DefaultConfigPath()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return cfg, err
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	// Optional .env, same lookup the backend tooling uses.
	_ = godotenv.Load()

	if v := os.Getenv("CLIMAVIZ_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("CLIMAVIZ_LOG_FILE"); v != "" {
		cfg.LogFile = v
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:9000"
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	return cfg, nil
}

func SaveConfig(cfg Config, path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}
	if path == "" {
		return errors.New("no path provided for config")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func DefaultConfigPath() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(base, "climaviz", "config.yml")
}
