package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Port      int    `yaml:"port"`
	DataDir   string `yaml:"data_dir"`
	ModelPath string `yaml:"model_path"`
	LogLevel  string `yaml:"log_level"`
	Headless  bool   `yaml:"headless"`
	Version   string `yaml:"-"`
}

// Load reads config from a YAML file, then .env and environment overrides,
// then fills defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg(".env file not found, relying on actual environment variables")
	}

	// Environment variable overrides
	if v := os.Getenv("ROA_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("ROA_PORT: %w", err)
		}
		cfg.Port = port
	}
	if v := os.Getenv("ROA_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("ROA_MODEL_PATH"); v != "" {
		cfg.ModelPath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("ROA_HEADLESS"); v != "" {
		cfg.Headless = v == "true" || v == "1" || v == "yes"
	}

	// Defaults
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "./data"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	return cfg, nil
}

// Validate checks the values main cannot recover from
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be within 1-65535, got %d", c.Port)
	}
	if c.ModelPath == "" {
		return fmt.Errorf("model_path is required (a model directory or bundle file)")
	}
	return nil
}
