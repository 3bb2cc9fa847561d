package modelregistry

import (
	"strings"
	"testing"

	"github.com/codeready-toolchain/tarsy-aurora/pkg/config"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	t.Setenv("TEST_ANTHROPIC_KEY", "sk-ant-test")
	cfg := config.NewLLMProviderRegistry(map[string]*config.LLMProviderConfig{
		"anthropic":  {Type: "anthropic", APIKeyEnv: "TEST_ANTHROPIC_KEY"},
		"openai":     {Type: "openai", APIKeyEnv: "TEST_OPENAI_KEY_UNSET"},
		"openrouter": {Type: "openrouter", APIKeyEnv: "TEST_OPENROUTER_KEY_UNSET"},
	})
	return New(cfg)
}

func TestSelect_DirectModeUsesCanonicalPrefix(t *testing.T) {
	r := testRegistry(t)
	p, native, err := r.Select("anthropic/claude-sonnet-4-5", "direct")
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if p.Name() != "anthropic" {
		t.Errorf("provider = %q, want anthropic", p.Name())
	}
	if native != "claude-sonnet-4-5-20250929" {
		t.Errorf("native = %q", native)
	}
}

func TestSelect_MissingCredentialsNamesEnvVar(t *testing.T) {
	r := testRegistry(t)
	_, _, err := r.Select("openai/gpt-4o", "direct")
	if err == nil {
		t.Fatal("expected error for unavailable openai provider")
	}
	if !strings.Contains(err.Error(), "openai") || !strings.Contains(err.Error(), "TEST_OPENAI_KEY_UNSET") {
		t.Errorf("error does not name the missing env var: %v", err)
	}
}

func TestSelect_OpenRouterModeRequiresOpenRouterAvailable(t *testing.T) {
	r := testRegistry(t)
	_, _, err := r.Select("anthropic/claude-sonnet-4-5", "openrouter")
	if err == nil {
		t.Fatal("expected error: openrouter unavailable and direct must not be used as fallback")
	}
}

func TestSelect_NoSilentFallbackToGateway(t *testing.T) {
	r := testRegistry(t)
	// Requesting a provider with no credentials in "direct" mode must
	// fail outright, never silently route through openrouter even
	// though openrouter is configured (albeit also unavailable here).
	_, _, err := r.Select("openai/gpt-4o", "auto")
	if err == nil {
		t.Fatal("expected failure, not a silent gateway fallback")
	}
}

func TestNameTranslator_AliasResolvesToSameNative(t *testing.T) {
	nt := NewNameTranslator()
	a := nt.NativeName("anthropic/claude-sonnet-4-5", "anthropic")
	b := nt.NativeName("anthropic/claude-sonnet-4.5", "anthropic")
	if a != b {
		t.Errorf("alias native names differ: %q vs %q", a, b)
	}
}

func TestNameTranslator_UnknownNamePassesThrough(t *testing.T) {
	nt := NewNameTranslator()
	got := nt.NativeName("anthropic/some-future-model", "anthropic")
	if got != "anthropic/some-future-model" {
		t.Errorf("NativeName() = %q, want pass-through of unknown model", got)
	}
}
