package config

import (
	"fmt"
	"net/url"
)

// Validator validates loaded configuration comprehensively, failing
// startup loudly rather than limping on with zero values.
type Validator struct {
	cfg *Config
}

// NewValidator creates a validator for the given configuration.
func NewValidator(cfg *Config) *Validator {
	return &Validator{cfg: cfg}
}

// Validate runs every check and stops at the first failure.
func Validate(cfg *Config) error {
	return NewValidator(cfg).ValidateAll()
}

// ValidateAll performs comprehensive validation, fail-fast.
func (v *Validator) ValidateAll() error {
	if err := v.validateQueue(); err != nil {
		return fmt.Errorf("queue validation failed: %w", err)
	}
	if err := v.validateLLMProviders(); err != nil {
		return fmt.Errorf("LLM provider validation failed: %w", err)
	}
	if err := v.validateToolDomains(); err != nil {
		return fmt.Errorf("tool domain validation failed: %w", err)
	}
	if err := v.validateDefaults(); err != nil {
		return fmt.Errorf("defaults validation failed: %w", err)
	}
	if err := v.validateServer(); err != nil {
		return fmt.Errorf("server validation failed: %w", err)
	}
	if err := v.validateSlack(); err != nil {
		return fmt.Errorf("slack validation failed: %w", err)
	}
	if err := v.validateRunbooks(); err != nil {
		return fmt.Errorf("runbooks validation failed: %w", err)
	}
	return nil
}

func (v *Validator) validateQueue() error {
	q := v.cfg.Queue
	if q == nil {
		return fmt.Errorf("queue configuration is nil")
	}
	if q.Workers < 1 || q.Workers > 256 {
		return fmt.Errorf("workers must be between 1 and 256, got %d", q.Workers)
	}
	if q.QueueSize < 1 {
		return fmt.Errorf("queue_size must be at least 1, got %d", q.QueueSize)
	}
	return nil
}

func (v *Validator) validateLLMProviders() error {
	providers := v.cfg.LLMProviderRegistry.GetAll()
	if len(providers) == 0 {
		return fmt.Errorf("%w: at least one llm_provider must be configured", ErrMissingRequiredField)
	}
	for name, p := range providers {
		if p.Type == "" {
			return NewValidationError("llm_provider", name, "type", ErrMissingRequiredField)
		}
		if p.APIKeyEnv == "" {
			return NewValidationError("llm_provider", name, "api_key_env", ErrMissingRequiredField)
		}
	}
	return nil
}

func (v *Validator) validateToolDomains() error {
	for name, d := range v.cfg.ToolDomainRegistry.GetAll() {
		if d.DataMasking == nil {
			continue
		}
		for _, group := range d.DataMasking.PatternGroups {
			if _, ok := GetBuiltinConfig().PatternGroups[group]; !ok {
				return NewValidationError("tool_domain", name, "data_masking.pattern_groups",
					fmt.Errorf("%w: unknown pattern group %q", ErrInvalidValue, group))
			}
		}
	}
	return nil
}

func (v *Validator) validateDefaults() error {
	d := v.cfg.Defaults
	if d == nil {
		return fmt.Errorf("defaults configuration is nil")
	}
	if d.MaxIterations < 1 {
		return fmt.Errorf("max_iterations must be at least 1, got %d", d.MaxIterations)
	}
	if d.MaxHumanMessageTokens < 1 {
		return fmt.Errorf("max_human_message_tokens must be at least 1, got %d", d.MaxHumanMessageTokens)
	}
	if d.TurnTimeoutSeconds < 1 {
		return fmt.Errorf("turn_timeout_seconds must be at least 1, got %d", d.TurnTimeoutSeconds)
	}
	return nil
}

func (v *Validator) validateServer() error {
	if v.cfg.Server == nil || v.cfg.Server.Addr == "" {
		return fmt.Errorf("%w: server.addr", ErrMissingRequiredField)
	}
	return nil
}

func (v *Validator) validateSlack() error {
	s := v.cfg.Slack
	if s == nil || !s.Enabled {
		return nil
	}
	if s.TokenEnv == "" {
		return NewValidationError("slack", "config", "token_env", ErrMissingRequiredField)
	}
	if s.SigningEnv == "" {
		return NewValidationError("slack", "config", "signing_secret_env", ErrMissingRequiredField)
	}
	return nil
}

func (v *Validator) validateRunbooks() error {
	rb := v.cfg.Runbooks
	if rb == nil {
		return nil
	}
	if rb.CacheTTL <= 0 {
		return fmt.Errorf("runbooks.cache_ttl must be positive, got %v", rb.CacheTTL)
	}
	if rb.RepoURL != "" {
		if _, err := url.Parse(rb.RepoURL); err != nil {
			return fmt.Errorf("runbooks.repo_url is not a valid URL: %w", err)
		}
	}
	for i, domain := range rb.AllowedDomains {
		if domain == "" {
			return fmt.Errorf("runbooks.allowed_domains[%d] must not be empty", i)
		}
	}
	return nil
}
