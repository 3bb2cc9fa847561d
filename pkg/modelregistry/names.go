package modelregistry

import "strings"

// NameTranslator maps canonical "provider/model" identifiers (e.g.
// "anthropic/claude-sonnet-4-5") to the native model name a vendor SDK
// expects, plus aliases — a hyphen/dot variant of the same canonical
// name resolves to the same native name.
type NameTranslator struct {
	// native[provider][canonical] = native name
	native map[string]map[string]string
	// aliasOf[alias] = canonical
	aliasOf map[string]string
}

// NewNameTranslator seeds the translator with the catalog of models
// the registry's built-in providers are expected to serve.
func NewNameTranslator() *NameTranslator {
	t := &NameTranslator{
		native:  make(map[string]map[string]string),
		aliasOf: make(map[string]string),
	}

	t.register("anthropic", "anthropic/claude-sonnet-4-5", "claude-sonnet-4-5-20250929",
		"anthropic/claude-sonnet-4.5", "anthropic/claude-4-sonnet")
	t.register("anthropic", "anthropic/claude-opus-4", "claude-opus-4-20250514",
		"anthropic/claude-4-opus")
	t.register("openai", "openai/gpt-4o", "gpt-4o", "openai/gpt4o")
	t.register("openai", "openai/gpt-4o-mini", "gpt-4o-mini")
	t.register("openrouter", "openrouter/anthropic/claude-sonnet-4-5", "anthropic/claude-sonnet-4.5")
	t.register("google", "google/gemini-2.0-flash", "gemini-2.0-flash",
		"google/gemini-2-flash")

	return t
}

func (t *NameTranslator) register(provider, canonical, native string, aliases ...string) {
	if t.native[provider] == nil {
		t.native[provider] = make(map[string]string)
	}
	t.native[provider][canonical] = native
	for _, a := range aliases {
		t.aliasOf[normalizeAlias(a)] = canonical
	}
	t.aliasOf[normalizeAlias(canonical)] = canonical
}

func normalizeAlias(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NativeName returns the native identifier for canonical on provider,
// resolving aliases first. Unknown names pass through unchanged —
// operators may reference a model the translator has no entry for.
func (t *NameTranslator) NativeName(canonical, provider string) string {
	if c, ok := t.aliasOf[normalizeAlias(canonical)]; ok {
		canonical = c
	}
	// Strip a leading "<provider>/" prefix if present so pass-through
	// names for unregistered models still forward the bare model id.
	stripped := canonical
	if idx := strings.Index(canonical, "/"); idx > 0 && canonical[:idx] == provider {
		stripped = canonical[idx+1:]
	}
	if byProvider, ok := t.native[provider]; ok {
		if native, ok := byProvider[canonical]; ok {
			return native
		}
	}
	return stripped
}
