package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ROA_PORT", "")
	t.Setenv("ROA_MODEL_PATH", "")
	t.Setenv("LOG_LEVEL", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", cfg.Port)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Expected default log level 'info', got '%s'", cfg.LogLevel)
	}
	if err := cfg.Validate(); err == nil {
		t.Error("Expected validation to require a model path")
	}
}

func TestLoadYAMLWithEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlData := "port: 9090\nmodel_path: /models/roa\nlog_level: debug\n"
	if err := os.WriteFile(path, []byte(yamlData), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	t.Setenv("ROA_PORT", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("ROA_MODEL_PATH", "/override/bundle.db")
	t.Setenv("ROA_HEADLESS", "true")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Port)
	}
	if cfg.ModelPath != "/override/bundle.db" {
		t.Errorf("Expected env to override model path, got '%s'", cfg.ModelPath)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("Expected log level 'debug', got '%s'", cfg.LogLevel)
	}
	if !cfg.Headless {
		t.Error("Expected headless from environment")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected valid config, got %v", err)
	}
}

func TestLoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	os.WriteFile(path, []byte("port: [not a number"), 0644)

	if _, err := Load(path); err == nil {
		t.Error("Expected invalid YAML to fail")
	}

	t.Setenv("ROA_PORT", "eighty")
	if _, err := Load(""); err == nil {
		t.Error("Expected non-numeric ROA_PORT to fail")
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	settingsDirOverride = t.TempDir()
	defer func() { settingsDirOverride = "" }()

	s, err := LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	if s.ModelPackPath != "" {
		t.Errorf("Expected empty settings, got %+v", s)
	}

	s.ModelPackPath = "/packs/2025q1"
	if err := SaveSettings(s); err != nil {
		t.Fatalf("SaveSettings failed: %v", err)
	}

	loaded, err := LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	if loaded.ModelPackPath != "/packs/2025q1" {
		t.Errorf("Expected saved path, got '%s'", loaded.ModelPackPath)
	}
}
