package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

// AuroraYAMLConfig represents the top-level aurora.yaml file structure.
type AuroraYAMLConfig struct {
	ToolDomains map[string]ToolDomainConfig `yaml:"tool_domains"`
	Defaults    *Defaults                   `yaml:"defaults"`
	Server      *ServerConfig               `yaml:"server"`
	Queue       *QueueConfig                `yaml:"queue"`
	Secrets     *SecretsConfig              `yaml:"secrets"`
	Slack       *SlackConfig                `yaml:"slack"`
	Runbooks    *RunbookYAMLConfig          `yaml:"runbooks"`
}

// RunbookYAMLConfig is the on-disk shape of the runbooks section; CacheTTL is
// a duration string (e.g. "5m") parsed into RunbookConfig.CacheTTL.
type RunbookYAMLConfig struct {
	RepoURL        string   `yaml:"repo_url,omitempty"`
	CacheTTL       string   `yaml:"cache_ttl,omitempty"`
	AllowedDomains []string `yaml:"allowed_domains,omitempty"`
}

// LLMProvidersYAMLConfig represents the llm-providers.yaml file structure.
type LLMProvidersYAMLConfig struct {
	LLMProviders map[string]LLMProviderConfig `yaml:"llm_providers"`
}

// Initialize loads, merges, validates and returns ready-to-use
// configuration: load the overlay file, merge it with the built-in
// defaults, apply field defaults, validate, and return.
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("initializing configuration")

	// .env is loaded first so ${VAR} expansion below can see it, matching
	// startup ordering (godotenv before config load).
	envPath := filepath.Join(configDir, ".env")
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", envPath, err)
		}
	}

	cfg, err := load(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	stats := cfg.Stats()
	log.Info("configuration initialized",
		"tool_domains", stats.ToolDomains,
		"llm_providers", stats.LLMProviders)

	return cfg, nil
}

func load(_ context.Context, configDir string) (*Config, error) {
	l := &configLoader{configDir: configDir}

	aurora, err := l.loadAuroraYAML()
	if err != nil {
		return nil, NewLoadError("aurora.yaml", err)
	}

	llmProviders, err := l.loadLLMProvidersYAML()
	if err != nil {
		return nil, NewLoadError("llm-providers.yaml", err)
	}

	builtin := GetBuiltinConfig()

	toolDomains := mergeToolDomains(builtin.ToolDomains, aurora.ToolDomains)
	llmProvidersMerged := mergeLLMProviders(builtin.LLMProviders, llmProviders)

	toolDomainRegistry := NewToolDomainRegistry(toolDomains)
	llmProviderRegistry := NewLLMProviderRegistry(llmProvidersMerged)

	defaults := aurora.Defaults.WithDefaults()
	if defaults.AlertMasking == nil {
		defaults.AlertMasking = &AlertMaskingDefaults{Enabled: true, PatternGroup: "security"}
	}

	server := aurora.Server
	if server == nil {
		server = &ServerConfig{Addr: ":8080"}
	}
	if server.Addr == "" {
		server.Addr = ":8080"
	}

	queue := aurora.Queue
	if queue == nil {
		queue = &QueueConfig{}
	}
	if queue.Workers == 0 {
		queue.Workers = 8
	}
	if queue.QueueSize == 0 {
		queue.QueueSize = 256
	}
	if queue.RCAGraceSeconds == 0 {
		queue.RCAGraceSeconds = 5
	}

	secrets := aurora.Secrets
	if secrets == nil {
		secrets = &SecretsConfig{}
	}
	if secrets.CacheTTLSeconds == 0 {
		secrets.CacheTTLSeconds = 300
	}

	slackCfg := aurora.Slack
	if slackCfg == nil {
		slackCfg = &SlackConfig{}
	}

	runbooks := resolveRunbooksConfig(aurora.Runbooks)

	return &Config{
		configDir:           configDir,
		Defaults:            defaults,
		ToolDomainRegistry:  toolDomainRegistry,
		LLMProviderRegistry: llmProviderRegistry,
		Server:              server,
		Queue:               queue,
		Secrets:             secrets,
		Slack:               slackCfg,
		Runbooks:            runbooks,
	}, nil
}

// resolveRunbooksConfig applies defaults and parses the duration string.
func resolveRunbooksConfig(rb *RunbookYAMLConfig) *RunbookConfig {
	cfg := &RunbookConfig{
		CacheTTL:       1 * time.Minute,
		AllowedDomains: []string{"github.com", "raw.githubusercontent.com"},
	}
	if rb == nil {
		return cfg
	}

	if rb.RepoURL != "" {
		cfg.RepoURL = rb.RepoURL
	}
	if rb.CacheTTL != "" {
		if d, err := time.ParseDuration(rb.CacheTTL); err == nil {
			cfg.CacheTTL = d
		} else {
			slog.Warn("invalid runbooks.cache_ttl, using default",
				"value", rb.CacheTTL, "default", cfg.CacheTTL)
		}
	}
	if len(rb.AllowedDomains) > 0 {
		cfg.AllowedDomains = rb.AllowedDomains
	}

	return cfg
}

type configLoader struct {
	configDir string
}

func (l *configLoader) loadYAML(filename string, target any) error {
	path := filepath.Join(l.configDir, filename)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Absence of the optional overlay file is not an error; built-ins
			// and flag/env defaults carry the system — never limp on with
			// zero values, but also never require a file that only exists
			// to be empty.
			return nil
		}
		return err
	}

	data = ExpandEnv(data)

	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return nil
}

func (l *configLoader) loadAuroraYAML() (*AuroraYAMLConfig, error) {
	cfg := &AuroraYAMLConfig{ToolDomains: make(map[string]ToolDomainConfig)}
	if err := l.loadYAML("aurora.yaml", cfg); err != nil {
		return nil, err
	}
	if cfg.ToolDomains == nil {
		cfg.ToolDomains = make(map[string]ToolDomainConfig)
	}
	return cfg, nil
}

func (l *configLoader) loadLLMProvidersYAML() (map[string]LLMProviderConfig, error) {
	cfg := &LLMProvidersYAMLConfig{LLMProviders: make(map[string]LLMProviderConfig)}
	if err := l.loadYAML("llm-providers.yaml", cfg); err != nil {
		return nil, err
	}
	if cfg.LLMProviders == nil {
		cfg.LLMProviders = make(map[string]LLMProviderConfig)
	}
	return cfg.LLMProviders, nil
}
