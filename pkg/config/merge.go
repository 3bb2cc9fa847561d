package config

// mergeToolDomains merges built-in and user-defined tool domain configurations.
// User-defined domains override built-in domains with the same name.
func mergeToolDomains(builtin map[string]ToolDomainConfig, user map[string]ToolDomainConfig) map[string]*ToolDomainConfig {
	result := make(map[string]*ToolDomainConfig, len(builtin)+len(user))

	for name, domain := range builtin {
		domainCopy := domain
		result[name] = &domainCopy
	}
	for name, domain := range user {
		domainCopy := domain
		result[name] = &domainCopy
	}

	return result
}

// mergeLLMProviders merges built-in and user-defined LLM provider configurations.
// User-defined providers override built-in providers with the same name.
func mergeLLMProviders(builtin map[string]LLMProviderConfig, user map[string]LLMProviderConfig) map[string]*LLMProviderConfig {
	result := make(map[string]*LLMProviderConfig, len(builtin)+len(user))

	for name, provider := range builtin {
		providerCopy := provider
		result[name] = &providerCopy
	}
	for name, provider := range user {
		providerCopy := provider
		result[name] = &providerCopy
	}

	return result
}
