package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 4600 {
		t.Errorf("expected default port 4600, got %d", cfg.Server.Port)
	}
	if cfg.Catalog.SchemaVersion != "v1" {
		t.Errorf("expected schema version v1, got %q", cfg.Catalog.SchemaVersion)
	}
	if cfg.LLM.Provider != "local" {
		t.Errorf("expected local llm provider, got %q", cfg.LLM.Provider)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jobpilot.yaml")
	content := `server:
  port: 9100
catalog:
  schema-version: v2
  endpoints:
    community: https://example.org/listing.json
llm:
  provider: stub
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("expected port 9100, got %d", cfg.Server.Port)
	}
	if cfg.Catalog.SchemaVersion != "v2" {
		t.Errorf("expected schema version v2, got %q", cfg.Catalog.SchemaVersion)
	}
	if got := cfg.Catalog.Endpoints["community"]; got != "https://example.org/listing.json" {
		t.Errorf("unexpected community endpoint %q", got)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("JOBPILOT_SERVER_PORT", "7001")
	t.Setenv("JOBPILOT_LLM_PROVIDER", "stub")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 7001 {
		t.Errorf("expected env override port 7001, got %d", cfg.Server.Port)
	}
	if cfg.LLM.Provider != "stub" {
		t.Errorf("expected env override provider stub, got %q", cfg.LLM.Provider)
	}
}

func TestLoadGeminiRequiresKey(t *testing.T) {
	t.Setenv("JOBPILOT_LLM_PROVIDER", "gemini")

	if _, err := Load(""); err == nil {
		t.Fatal("expected error when gemini provider has no API key")
	}
}
