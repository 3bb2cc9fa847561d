// Package modelregistry implements the Model Provider Registry
// (SPEC_FULL.md §4.2): a uniform chat-model abstraction over multiple
// upstream vendors with per-vendor native name mapping, credential
// availability checks, and direct/openrouter mode selection.
package modelregistry

import (
	"context"
	"fmt"
	"strings"

	"github.com/codeready-toolchain/tarsy-aurora/pkg/config"
)

// StreamChunk is one increment of a streamed model response. Thinking
// blocks are surfaced separately from user-visible text so the agent
// loop can route them to incident thoughts without polluting the
// token stream (§4.1 step 1).
type StreamChunk struct {
	Text       string
	Thinking   string
	ToolCalls  []ToolCallDelta
	FinishReason string // "", "tool_calls", "stop"
	Err        error
}

// ToolCallDelta is a possibly-fragmentary tool-call chunk as it
// streams off the wire; see pkg/agentloop's ToolCallBuilder for how
// these are accumulated into finalized calls.
type ToolCallDelta struct {
	Index        int
	ID           string
	Name         string
	ArgsFragment string
}

// Message is the minimal chat message shape every provider adapter
// translates to/from its native SDK types.
type Message struct {
	Role       string // system, user, assistant, tool
	Content    string
	ToolCallID string
	ToolCalls  []ToolCallDelta
}

// ToolSpec describes one entry of the tool catalog in the
// provider-agnostic shape every vendor SDK is asked to translate.
type ToolSpec struct {
	Name        string
	Description string
	Schema      map[string]any // JSON schema for arguments
}

// ChatModel is a configured, invocable handle to one model on one
// provider, returned by CreateChatModel.
type ChatModel interface {
	// Stream invokes the model and returns a channel of StreamChunk,
	// closed when the turn's terminal finish reason is reached or the
	// context is cancelled.
	Stream(ctx context.Context, messages []Message, tools []ToolSpec) (<-chan StreamChunk, error)
}

// Provider is one upstream vendor (openrouter, openai, anthropic, google, ...).
type Provider interface {
	Name() string
	IsAvailable() bool
	SupportsModel(canonical string) bool
	CreateChatModel(ctx context.Context, model string, temperature float64, opts ...Option) (ChatModel, error)
}

// Option configures a CreateChatModel call.
type Option func(*modelOptions)

type modelOptions struct {
	timeoutSeconds int
	maxRetries     int
	enableReasoning bool
}

// WithTimeoutSeconds bounds a single model call.
func WithTimeoutSeconds(s int) Option { return func(o *modelOptions) { o.timeoutSeconds = s } }

// WithMaxRetries sets the provider SDK's retry count.
func WithMaxRetries(n int) Option { return func(o *modelOptions) { o.maxRetries = n } }

// WithReasoning enables thinking-mode for providers/models that support it.
func WithReasoning(enabled bool) Option { return func(o *modelOptions) { o.enableReasoning = enabled } }

func resolveOptions(opts []Option) modelOptions {
	o := modelOptions{timeoutSeconds: 60, maxRetries: 2}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// Registry holds one Provider instance per configured upstream vendor,
// plus the canonical↔native name translation table.
type Registry struct {
	providers map[string]Provider
	names     *NameTranslator
}

// New builds a Registry from the resolved LLM provider configuration,
// constructing one Provider adapter per entry whose Type is recognized.
func New(cfg *config.LLMProviderRegistry) *Registry {
	r := &Registry{providers: make(map[string]Provider), names: NewNameTranslator()}
	if cfg == nil {
		return r
	}
	for key, p := range cfg.GetAll() {
		switch p.Type {
		case "anthropic":
			r.providers[key] = newAnthropicProvider(key, p)
		case "openai":
			r.providers[key] = newOpenAIProvider(key, p, false)
		case "openrouter":
			r.providers[key] = newOpenAIProvider(key, p, true)
		case "google":
			r.providers[key] = newGoogleProvider(key, p)
		}
	}
	return r
}

// NewWithProviders builds a Registry directly from a pre-built
// provider map, bypassing config resolution. Used by tests that need
// to inject a fake Provider.
func NewWithProviders(providers map[string]Provider) *Registry {
	return &Registry{providers: providers, names: NewNameTranslator()}
}

// Provider returns the named provider, if configured.
func (r *Registry) Provider(name string) (Provider, bool) {
	p, ok := r.providers[name]
	return p, ok
}

// Select implements §4.2's Selection rule:
//   - mode == "openrouter": use the openrouter gateway if available, else fail.
//   - mode ∈ {"direct","auto"}: derive the provider from the canonical
//     prefix ("anthropic/…" → anthropic); require it available; never
//     silently fall back to a gateway provider.
func (r *Registry) Select(model, mode string) (Provider, string, error) {
	switch mode {
	case "openrouter":
		p, ok := r.providers["openrouter"]
		if !ok || !p.IsAvailable() {
			return nil, "", fmt.Errorf("modelregistry: openrouter mode requested but openrouter provider is unavailable")
		}
		return p, r.names.NativeName(model, "openrouter"), nil

	case "direct", "auto", "":
		providerName := providerPrefix(model)
		if providerName == "" {
			return nil, "", fmt.Errorf("modelregistry: cannot determine provider for model %q", model)
		}
		p, ok := r.providers[providerName]
		if !ok {
			return nil, "", fmt.Errorf("modelregistry: unknown provider %q for model %q", providerName, model)
		}
		if !p.IsAvailable() {
			return nil, "", fmt.Errorf("modelregistry: provider %q credentials missing; set %s", providerName, envVarHint(providerName))
		}
		return p, r.names.NativeName(model, providerName), nil

	default:
		return nil, "", fmt.Errorf("modelregistry: unknown provider_mode %q", mode)
	}
}

// CreateChatModel resolves a provider via Select and returns a
// configured ChatModel handle.
func (r *Registry) CreateChatModel(ctx context.Context, model, mode string, temperature float64, opts ...Option) (ChatModel, error) {
	p, native, err := r.Select(model, mode)
	if err != nil {
		return nil, err
	}
	return p.CreateChatModel(ctx, native, temperature, opts...)
}

func providerPrefix(canonical string) string {
	idx := strings.Index(canonical, "/")
	if idx <= 0 {
		return ""
	}
	return canonical[:idx]
}

func envVarHint(providerName string) string {
	switch providerName {
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	case "openai":
		return "OPENAI_API_KEY"
	case "google":
		return "GOOGLE_API_KEY"
	case "openrouter":
		return "OPENROUTER_API_KEY"
	default:
		return strings.ToUpper(providerName) + "_API_KEY"
	}
}
