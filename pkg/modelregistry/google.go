package modelregistry

import (
	"context"
	"fmt"
	"os"

	"github.com/codeready-toolchain/tarsy-aurora/pkg/config"
)

// googleProvider is a stub: SPEC_FULL.md lists google among supported
// vendors but no example repo in the corpus carries a Gemini SDK
// dependency, so availability/selection is fully implemented (it
// participates correctly in §4.2's no-silent-fallback rule) while
// CreateChatModel returns ProviderUnavailable until a concrete SDK is
// wired in. See DESIGN.md for the justification.
type googleProvider struct {
	key    string
	apiKey string
	cfg    *config.LLMProviderConfig
}

func newGoogleProvider(key string, cfg *config.LLMProviderConfig) *googleProvider {
	return &googleProvider{key: key, apiKey: os.Getenv(cfg.APIKeyEnv), cfg: cfg}
}

func (p *googleProvider) Name() string { return p.key }

func (p *googleProvider) IsAvailable() bool { return p.apiKey != "" }

func (p *googleProvider) SupportsModel(canonical string) bool { return true }

func (p *googleProvider) CreateChatModel(ctx context.Context, model string, temperature float64, opts ...Option) (ChatModel, error) {
	if !p.IsAvailable() {
		return nil, fmt.Errorf("modelregistry: google provider unavailable; set %s", p.cfg.APIKeyEnv)
	}
	return nil, fmt.Errorf("modelregistry: google provider has no wired chat-model client yet")
}
