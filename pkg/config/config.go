package config

import "time"

// Config is the umbrella configuration object returned by Initialize and
// threaded through the application.
type Config struct {
	configDir string

	Defaults *Defaults

	ToolDomainRegistry  *ToolDomainRegistry
	LLMProviderRegistry *LLMProviderRegistry

	Server   *ServerConfig
	Queue    *QueueConfig
	Secrets  *SecretsConfig
	Slack    *SlackConfig
	Runbooks *RunbookConfig
}

// RunbookConfig holds resolved runbook-repository configuration.
type RunbookConfig struct {
	RepoURL        string        // GitHub repo URL for listing runbooks (empty = disabled)
	CacheTTL       time.Duration // Cache duration (default: 1m)
	AllowedDomains []string      // Allowed URL domains (default: github.com, raw.githubusercontent.com)
}

// ServerConfig configures the HTTP/WebSocket listener.
type ServerConfig struct {
	Addr             string   `yaml:"addr,omitempty"`
	AllowedWSOrigins []string `yaml:"allowed_ws_origins,omitempty"`
}

// QueueConfig configures the background worker pool (pkg/queue).
type QueueConfig struct {
	Workers   int `yaml:"workers,omitempty" validate:"omitempty,min=1"`
	QueueSize int `yaml:"queue_size,omitempty" validate:"omitempty,min=1"`

	// RCAGraceSeconds is the delay between an incident-creation event and
	// its delayed RCA trigger task, giving a follow-up custom-field event
	// (e.g. a runbook link) time to arrive first.
	RCAGraceSeconds int `yaml:"rca_grace_seconds,omitempty" validate:"omitempty,min=0"`
}

// SecretsConfig configures the secret store client (pkg/secrets).
type SecretsConfig struct {
	CacheTTLSeconds int `yaml:"cache_ttl_seconds,omitempty" validate:"omitempty,min=1"`
}

// SlackConfig configures the Slack integration (pkg/slack).
type SlackConfig struct {
	Enabled      bool   `yaml:"enabled"`
	TokenEnv     string `yaml:"token_env,omitempty"`
	SigningEnv   string `yaml:"signing_secret_env,omitempty"`
	Channel      string `yaml:"channel,omitempty"`
	DashboardURL string `yaml:"dashboard_url,omitempty"`
}

// ConfigStats summarizes loaded configuration for startup logging.
type ConfigStats struct {
	ToolDomains  int
	LLMProviders int
}

// Stats returns configuration counts for logging/monitoring.
func (c *Config) Stats() ConfigStats {
	return ConfigStats{
		ToolDomains:  len(c.ToolDomainRegistry.GetAll()),
		LLMProviders: len(c.LLMProviderRegistry.GetAll()),
	}
}

// ConfigDir returns the directory configuration was loaded from.
func (c *Config) ConfigDir() string { return c.configDir }

// GetToolDomain is a convenience wrapper around ToolDomainRegistry.Get.
func (c *Config) GetToolDomain(domain string) (*ToolDomainConfig, error) {
	return c.ToolDomainRegistry.Get(domain)
}

// GetLLMProvider is a convenience wrapper around LLMProviderRegistry.Get.
func (c *Config) GetLLMProvider(name string) (*LLMProviderConfig, error) {
	return c.LLMProviderRegistry.Get(name)
}
