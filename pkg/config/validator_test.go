package config

import (
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Defaults: (&Defaults{}).WithDefaults(),
		ToolDomainRegistry: NewToolDomainRegistry(map[string]*ToolDomainConfig{
			"aws": {DataMasking: &MaskingConfig{Enabled: true, PatternGroups: []string{"cloud"}}},
		}),
		LLMProviderRegistry: NewLLMProviderRegistry(map[string]*LLMProviderConfig{
			"anthropic": {Type: "anthropic", APIKeyEnv: "ANTHROPIC_API_KEY"},
		}),
		Server: &ServerConfig{Addr: ":8080"},
		Queue:  &QueueConfig{Workers: 8, QueueSize: 256},
		Slack:  &SlackConfig{},
		Runbooks: &RunbookConfig{
			CacheTTL:       1 * time.Minute,
			AllowedDomains: []string{"github.com"},
		},
	}
}

func TestValidate_ValidConfigPasses(t *testing.T) {
	if err := Validate(validConfig()); err != nil {
		t.Errorf("Validate() on a well-formed config returned error: %v", err)
	}
}

func TestValidate_RejectsNoLLMProviders(t *testing.T) {
	cfg := validConfig()
	cfg.LLMProviderRegistry = NewLLMProviderRegistry(nil)

	if err := Validate(cfg); err == nil {
		t.Error("Validate() should reject a config with zero LLM providers")
	}
}

func TestValidate_RejectsLLMProviderMissingAPIKeyEnv(t *testing.T) {
	cfg := validConfig()
	cfg.LLMProviderRegistry = NewLLMProviderRegistry(map[string]*LLMProviderConfig{
		"broken": {Type: "anthropic"},
	})

	if err := Validate(cfg); err == nil {
		t.Error("Validate() should reject a provider missing api_key_env")
	}
}

func TestValidate_RejectsUnknownPatternGroup(t *testing.T) {
	cfg := validConfig()
	cfg.ToolDomainRegistry = NewToolDomainRegistry(map[string]*ToolDomainConfig{
		"aws": {DataMasking: &MaskingConfig{Enabled: true, PatternGroups: []string{"nonexistent"}}},
	})

	if err := Validate(cfg); err == nil {
		t.Error("Validate() should reject a tool domain referencing an unknown pattern group")
	}
}

func TestValidate_RejectsBadQueueWorkerCount(t *testing.T) {
	cfg := validConfig()
	cfg.Queue = &QueueConfig{Workers: 0, QueueSize: 256}

	if err := Validate(cfg); err == nil {
		t.Error("Validate() should reject workers < 1")
	}
}

func TestValidate_RejectsMissingServerAddr(t *testing.T) {
	cfg := validConfig()
	cfg.Server = &ServerConfig{}

	if err := Validate(cfg); err == nil {
		t.Error("Validate() should reject an empty server.addr")
	}
}

func TestValidate_RejectsEnabledSlackMissingTokenEnv(t *testing.T) {
	cfg := validConfig()
	cfg.Slack = &SlackConfig{Enabled: true}

	if err := Validate(cfg); err == nil {
		t.Error("Validate() should reject enabled Slack config missing token_env/signing_secret_env")
	}
}

func TestValidate_AllowsDisabledSlackWithoutCreds(t *testing.T) {
	cfg := validConfig()
	cfg.Slack = &SlackConfig{Enabled: false}

	if err := Validate(cfg); err != nil {
		t.Errorf("Validate() rejected a disabled Slack config: %v", err)
	}
}

func TestValidate_RejectsNonPositiveRunbookCacheTTL(t *testing.T) {
	cfg := validConfig()
	cfg.Runbooks = &RunbookConfig{CacheTTL: 0}

	if err := Validate(cfg); err == nil {
		t.Error("Validate() should reject a non-positive runbooks.cache_ttl")
	}
}
