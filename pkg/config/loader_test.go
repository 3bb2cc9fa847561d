package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestInitialize_DefaultsOnlyWhenNoOverlayFiles(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Initialize(context.Background(), dir)
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Errorf("Server.Addr = %q, want :8080", cfg.Server.Addr)
	}
	if cfg.Queue.Workers != 8 {
		t.Errorf("Queue.Workers = %d, want 8", cfg.Queue.Workers)
	}
	if cfg.Defaults.MaxIterations != 20 {
		t.Errorf("Defaults.MaxIterations = %d, want 20", cfg.Defaults.MaxIterations)
	}
	if cfg.Defaults.AlertMasking == nil || cfg.Defaults.AlertMasking.PatternGroup != "security" {
		t.Error("AlertMasking should default to the security pattern group")
	}
	// Built-in LLM providers and tool domains are always present.
	if !cfg.LLMProviderRegistry.Has("anthropic") {
		t.Error("expected built-in anthropic provider")
	}
	if !cfg.ToolDomainRegistry.Has("aws") {
		t.Error("expected built-in aws tool domain")
	}
}

func TestInitialize_YAMLOverlayMergesWithBuiltins(t *testing.T) {
	dir := t.TempDir()
	auroraYAML := `
server:
  addr: ":9090"
defaults:
  max_iterations: 5
tool_domains:
  custom:
    disabled: false
`
	if err := os.WriteFile(filepath.Join(dir, "aurora.yaml"), []byte(auroraYAML), 0o644); err != nil {
		t.Fatalf("write aurora.yaml: %v", err)
	}

	cfg, err := Initialize(context.Background(), dir)
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	if cfg.Server.Addr != ":9090" {
		t.Errorf("Server.Addr = %q, want :9090 (from overlay)", cfg.Server.Addr)
	}
	if cfg.Defaults.MaxIterations != 5 {
		t.Errorf("Defaults.MaxIterations = %d, want 5 (from overlay)", cfg.Defaults.MaxIterations)
	}
	if !cfg.ToolDomainRegistry.Has("custom") {
		t.Error("expected user-defined custom tool domain to merge in")
	}
	if !cfg.ToolDomainRegistry.Has("aws") {
		t.Error("built-in aws tool domain should survive the merge")
	}
}

func TestInitialize_InvalidYAMLFails(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "aurora.yaml"), []byte("not: [valid yaml"), 0o644); err != nil {
		t.Fatalf("write aurora.yaml: %v", err)
	}

	if _, err := Initialize(context.Background(), dir); err == nil {
		t.Error("Initialize() should fail on malformed YAML")
	}
}

func TestInitialize_EnvVarExpansionInOverlay(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("AURORA_TEST_ADDR", ":7070")
	auroraYAML := `
server:
  addr: "${AURORA_TEST_ADDR}"
`
	if err := os.WriteFile(filepath.Join(dir, "aurora.yaml"), []byte(auroraYAML), 0o644); err != nil {
		t.Fatalf("write aurora.yaml: %v", err)
	}

	cfg, err := Initialize(context.Background(), dir)
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if cfg.Server.Addr != ":7070" {
		t.Errorf("Server.Addr = %q, want :7070 (expanded from env)", cfg.Server.Addr)
	}
}
