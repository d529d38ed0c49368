package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/okofler/jobpilot/internal/config"
	"github.com/okofler/jobpilot/internal/llm"
)

func TestReadPostingFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "posting.txt")
	if err := os.WriteFile(path, []byte("AUFGABEN:\n- Rechnungen verbuchen\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	text, err := readPosting([]string{path})
	if err != nil {
		t.Fatalf("readPosting: %v", err)
	}
	if text == "" {
		t.Fatal("expected file content")
	}
}

func TestReadPostingMissingFile(t *testing.T) {
	if _, err := readPosting([]string{"/nonexistent/posting.txt"}); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestBuildProviders(t *testing.T) {
	cfg := config.Config{}
	cfg.Catalog.Endpoints = map[string]string{
		"community": "http://example.test/community.json",
		"official":  "http://example.test/official.json",
		"curated":   "http://example.test/agents.yaml",
		"awesome":   "http://example.test/readme",
		"bogus":     "http://example.test/ignored",
	}
	cfg.Catalog.FetchTimeout = "not-a-duration"

	list := buildProviders(cfg, zap.NewNop())
	if len(list) != 4 {
		t.Fatalf("expected 4 providers, got %d", len(list))
	}
	want := []string{"community", "official", "curated", "awesome"}
	for i, p := range list {
		if p.Key() != want[i] {
			t.Errorf("provider[%d] = %s, want %s", i, p.Key(), want[i])
		}
	}
}

func TestBuildProvidersEmpty(t *testing.T) {
	if list := buildProviders(config.Config{}, zap.NewNop()); len(list) != 0 {
		t.Errorf("expected no providers, got %d", len(list))
	}
}

func TestBuildEngine(t *testing.T) {
	log := zap.NewNop()

	cfg := config.Config{}
	cfg.LLM.Provider = "local"
	cfg.LLM.BaseURL = "http://localhost:11434"
	if _, ok := buildEngine(context.Background(), cfg, log).(*llm.Local); !ok {
		t.Error("local provider should yield *llm.Local")
	}

	cfg.LLM.Provider = "gemini"
	cfg.LLM.GeminiAPIKey = ""
	if _, ok := buildEngine(context.Background(), cfg, log).(llm.Disabled); !ok {
		t.Error("gemini without key should fall back to Disabled")
	}

	cfg.LLM.Provider = "none"
	if _, ok := buildEngine(context.Background(), cfg, log).(llm.Disabled); !ok {
		t.Error("unknown provider should yield Disabled")
	}
}
