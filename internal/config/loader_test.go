package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wayfarer.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  host: 0.0.0.0
  port: 8080
redis:
  enabled: true
  addr: redis.internal:6379
model:
  model: gpt-4o
  temperature: 0.7
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" || cfg.Server.Port != 8080 {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if !cfg.Redis.Enabled || cfg.Redis.Addr != "redis.internal:6379" {
		t.Errorf("Redis = %+v", cfg.Redis)
	}
	if cfg.Model.Model != "gpt-4o" || cfg.Model.Temperature != 0.7 {
		t.Errorf("Model = %+v", cfg.Model)
	}
	// Unset fields still get defaults
	if cfg.Model.MaxTokens != 1000 || cfg.Events.BufferSize != 1024 {
		t.Errorf("defaults not applied: MaxTokens=%d BufferSize=%d", cfg.Model.MaxTokens, cfg.Events.BufferSize)
	}
}

func TestLoadExpandsEnvTemplates(t *testing.T) {
	t.Setenv("WAYFARER_TEST_KEY", "sk-from-env")

	path := writeConfig(t, `
model:
  api_key: ${WAYFARER_TEST_KEY}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Model.APIKey != "sk-from-env" {
		t.Errorf("APIKey = %q, want the expanded env value", cfg.Model.APIKey)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for a missing file")
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := writeConfig(t, "server: [not a mapping")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 3000 {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Redis.Enabled {
		t.Error("Redis enabled by default")
	}
	if cfg.Redis.Addr != "127.0.0.1:6379" {
		t.Errorf("Redis.Addr = %q", cfg.Redis.Addr)
	}
	if cfg.Model.Model != "gpt-4o-mini" {
		t.Errorf("Model.Model = %q", cfg.Model.Model)
	}
}
