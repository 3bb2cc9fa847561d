package config

import "testing"

func TestGetBuiltinConfig_Singleton(t *testing.T) {
	a := GetBuiltinConfig()
	b := GetBuiltinConfig()
	if a != b {
		t.Error("GetBuiltinConfig() should return the same instance each call")
	}
}

func TestGetBuiltinConfig_HasAllMaskingPatterns(t *testing.T) {
	cfg := GetBuiltinConfig()
	if len(cfg.MaskingPatterns) != 15 {
		t.Errorf("MaskingPatterns has %d entries, want 15", len(cfg.MaskingPatterns))
	}

	for _, name := range []string{
		"api_key", "password", "certificate", "certificate_authority_data", "token",
		"email", "ssh_key", "base64_secret", "base64_short", "private_key", "secret_key",
		"aws_access_key", "aws_secret_key", "github_token", "slack_token",
	} {
		if _, ok := cfg.MaskingPatterns[name]; !ok {
			t.Errorf("missing built-in masking pattern %q", name)
		}
	}
}

func TestGetBuiltinConfig_PatternGroupsReferenceKnownPatterns(t *testing.T) {
	cfg := GetBuiltinConfig()
	for group, names := range cfg.PatternGroups {
		for _, name := range names {
			_, isPattern := cfg.MaskingPatterns[name]
			isCodeMasker := false
			for _, cm := range cfg.CodeMaskers {
				if cm == name {
					isCodeMasker = true
				}
			}
			if !isPattern && !isCodeMasker {
				t.Errorf("pattern group %q references unknown pattern/masker %q", group, name)
			}
		}
	}
}

func TestGetBuiltinConfig_ToolDomainsCoverCatalog(t *testing.T) {
	cfg := GetBuiltinConfig()
	for _, domain := range []string{"aws", "k8s", "bitbucket", "iac", "pipeline", "tailscale"} {
		if _, ok := cfg.ToolDomains[domain]; !ok {
			t.Errorf("missing built-in tool domain %q", domain)
		}
	}
}
