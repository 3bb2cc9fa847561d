package config

import "testing"

func TestMergeToolDomains_UserOverridesBuiltin(t *testing.T) {
	builtin := map[string]ToolDomainConfig{
		"aws": {DataMasking: &MaskingConfig{Enabled: true, PatternGroups: []string{"cloud"}}},
		"k8s": {DataMasking: &MaskingConfig{Enabled: true, PatternGroups: []string{"kubernetes"}}},
	}
	user := map[string]ToolDomainConfig{
		"aws": {Disabled: true},
	}

	merged := mergeToolDomains(builtin, user)

	if !merged["aws"].Disabled {
		t.Error("user override should disable aws domain")
	}
	if merged["k8s"] == nil || merged["k8s"].DataMasking == nil {
		t.Error("builtin k8s domain should survive merge untouched")
	}
}

func TestMergeToolDomains_AddsNewUserDomain(t *testing.T) {
	builtin := map[string]ToolDomainConfig{"aws": {}}
	user := map[string]ToolDomainConfig{"custom": {Disabled: false}}

	merged := mergeToolDomains(builtin, user)

	if len(merged) != 2 {
		t.Fatalf("merged has %d entries, want 2", len(merged))
	}
	if _, ok := merged["custom"]; !ok {
		t.Error("user-only domain should be present in merge result")
	}
}

func TestMergeLLMProviders_UserOverridesBuiltin(t *testing.T) {
	builtin := map[string]LLMProviderConfig{
		"anthropic": {Type: "anthropic", APIKeyEnv: "ANTHROPIC_API_KEY", DefaultModel: "claude-sonnet-4-5"},
	}
	user := map[string]LLMProviderConfig{
		"anthropic": {Type: "anthropic", APIKeyEnv: "ANTHROPIC_API_KEY", DefaultModel: "claude-opus-4"},
	}

	merged := mergeLLMProviders(builtin, user)

	if merged["anthropic"].DefaultModel != "claude-opus-4" {
		t.Errorf("DefaultModel = %q, want claude-opus-4 (user override)", merged["anthropic"].DefaultModel)
	}
}
