package config

import (
	"fmt"
	"sync"
)

// LLMProviderConfig defines one chat model provider's configuration,
// trimmed to what the model provider registry (pkg/modelregistry) needs
// for provider/mode selection.
type LLMProviderConfig struct {
	// Type identifies the wire protocol family: anthropic, openai-compatible.
	Type string `yaml:"type" validate:"required"`

	// APIKeyEnv names the environment variable holding the credential.
	// ProviderUnavailable errors name this variable back to the operator.
	APIKeyEnv string `yaml:"api_key_env" validate:"required"`

	// BaseURL overrides the default endpoint (used for openrouter mode,
	// which layers an OpenAI-compatible client over a different host).
	BaseURL string `yaml:"base_url,omitempty"`

	// DefaultModel is used when a turn does not name one explicitly.
	DefaultModel string `yaml:"default_model,omitempty"`

	// MaxRetries / TimeoutSeconds bound every call made through this provider.
	MaxRetries     int `yaml:"max_retries,omitempty" validate:"omitempty,min=0"`
	TimeoutSeconds int `yaml:"timeout_seconds,omitempty" validate:"omitempty,min=1"`
}

// LLMProviderRegistry stores LLM provider configuration with thread-safe access.
type LLMProviderRegistry struct {
	providers map[string]*LLMProviderConfig
	mu        sync.RWMutex
}

// NewLLMProviderRegistry creates a registry from a loaded provider map.
func NewLLMProviderRegistry(providers map[string]*LLMProviderConfig) *LLMProviderRegistry {
	copied := make(map[string]*LLMProviderConfig, len(providers))
	for k, v := range providers {
		copied[k] = v
	}
	return &LLMProviderRegistry{providers: copied}
}

// Get retrieves a provider's configuration by name.
func (r *LLMProviderRegistry) Get(name string) (*LLMProviderConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	provider, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLLMProviderNotFound, name)
	}
	return provider, nil
}

// GetAll returns a copy of every configured provider.
func (r *LLMProviderRegistry) GetAll() map[string]*LLMProviderConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]*LLMProviderConfig, len(r.providers))
	for k, v := range r.providers {
		result[k] = v
	}
	return result
}

// Has reports whether a provider is configured.
func (r *LLMProviderRegistry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.providers[name]
	return ok
}
