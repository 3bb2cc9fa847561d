package config

import "sync"

// BuiltinConfig holds built-in configuration data: default tool domains,
// default LLM providers, and the masking pattern catalog. Mirrors the
// BuiltinConfig (pkg/config/builtin.go).
type BuiltinConfig struct {
	ToolDomains     map[string]ToolDomainConfig
	LLMProviders    map[string]LLMProviderConfig
	MaskingPatterns map[string]MaskingPattern
	PatternGroups   map[string][]string
	CodeMaskers     []string
	DefaultRunbook  string
}

var (
	builtinConfig     *BuiltinConfig
	builtinConfigOnce sync.Once
)

// GetBuiltinConfig returns the singleton built-in configuration.
func GetBuiltinConfig() *BuiltinConfig {
	builtinConfigOnce.Do(initBuiltinConfig)
	return builtinConfig
}

func initBuiltinConfig() {
	builtinConfig = &BuiltinConfig{
		ToolDomains:     initBuiltinToolDomains(),
		LLMProviders:    initBuiltinLLMProviders(),
		MaskingPatterns: initBuiltinMaskingPatterns(),
		PatternGroups:   initBuiltinPatternGroups(),
		CodeMaskers:     initBuiltinCodeMaskers(),
		DefaultRunbook:  defaultRunbookContent,
	}
}

func initBuiltinToolDomains() map[string]ToolDomainConfig {
	return map[string]ToolDomainConfig{
		"aws": {
			DataMasking: &MaskingConfig{Enabled: true, PatternGroups: []string{"cloud"}},
		},
		"k8s": {
			DataMasking: &MaskingConfig{Enabled: true, PatternGroups: []string{"kubernetes"}},
		},
		"bitbucket": {
			DataMasking: &MaskingConfig{Enabled: true, PatternGroups: []string{"secrets"}},
		},
		"iac": {
			DataMasking: &MaskingConfig{Enabled: true, PatternGroups: []string{"security"}},
		},
		"pipeline": {
			DataMasking: &MaskingConfig{Enabled: true, PatternGroups: []string{"basic"}},
		},
		"tailscale": {
			DataMasking: &MaskingConfig{Enabled: true, PatternGroups: []string{"basic"}},
		},
	}
}

func initBuiltinLLMProviders() map[string]LLMProviderConfig {
	return map[string]LLMProviderConfig{
		"anthropic": {
			Type:           "anthropic",
			APIKeyEnv:      "ANTHROPIC_API_KEY",
			DefaultModel:   "claude-sonnet-4-5",
			MaxRetries:     2,
			TimeoutSeconds: 120,
		},
		"openai": {
			Type:           "openai",
			APIKeyEnv:      "OPENAI_API_KEY",
			DefaultModel:   "gpt-4o",
			MaxRetries:     2,
			TimeoutSeconds: 120,
		},
		"openrouter": {
			Type:           "openai",
			APIKeyEnv:      "OPENROUTER_API_KEY",
			BaseURL:        "https://openrouter.ai/api/v1",
			DefaultModel:   "anthropic/claude-sonnet-4.5",
			MaxRetries:     2,
			TimeoutSeconds: 120,
		},
		"google": {
			Type:           "google",
			APIKeyEnv:      "GOOGLE_API_KEY",
			DefaultModel:   "gemini-2.0-flash",
			MaxRetries:     2,
			TimeoutSeconds: 120,
		},
	}
}

// initBuiltinMaskingPatterns is the default set of secret-masking
// regexes applied to tool output before it reaches a model or the UI.
func initBuiltinMaskingPatterns() map[string]MaskingPattern {
	return map[string]MaskingPattern{
		"api_key": {
			Pattern:     `(?i)(?:api[_-]?key|apikey|key)["']?\s*[:=]\s*["']?([A-Za-z0-9_\-]{20,})["']?`,
			Replacement: `"api_key": "[MASKED_API_KEY]"`,
			Description: "API keys",
		},
		"password": {
			Pattern:     `(?i)(?:password|pwd|pass)["']?\s*[:=]\s*["']?([^"'\s\n]{6,})["']?`,
			Replacement: `"password": "[MASKED_PASSWORD]"`,
			Description: "Passwords",
		},
		"certificate": {
			Pattern:     `(?s)-----BEGIN [A-Z ]+-----.*?-----END [A-Z ]+-----`,
			Replacement: `[MASKED_CERTIFICATE]`,
			Description: "SSL/TLS certificates",
		},
		"certificate_authority_data": {
			Pattern:     `(?i)certificate-authority-data:\s*([A-Za-z0-9+/]{20,}={0,2})`,
			Replacement: `certificate-authority-data: [MASKED_CA_CERTIFICATE]`,
			Description: "K8s CA data",
		},
		"token": {
			Pattern:     `(?i)(?:token|bearer|jwt)["']?\s*[:=]\s*["']?([A-Za-z0-9_\-.]{20,})["']?`,
			Replacement: `"token": "[MASKED_TOKEN]"`,
			Description: "Access tokens",
		},
		"email": {
			Pattern:     `\b[A-Za-z0-9._%+-]+@[A-Za-z0-9]+(?:[.-][A-Za-z0-9]+)*\.[A-Za-z]{2,63}\b`,
			Replacement: `[MASKED_EMAIL]`,
			Description: "Email addresses",
		},
		"ssh_key": {
			Pattern:     `ssh-(?:rsa|dss|ed25519|ecdsa)\s+[A-Za-z0-9+/=]+`,
			Replacement: `[MASKED_SSH_KEY]`,
			Description: "SSH public keys",
		},
		"base64_secret": {
			Pattern:     `\b([A-Za-z0-9+/]{20,}={0,2})\b`,
			Replacement: `[MASKED_BASE64_VALUE]`,
			Description: "Base64 values (20+ chars)",
		},
		"base64_short": {
			Pattern:     `:\s+([A-Za-z0-9+/]{4,19}={0,2})(?:\s|$)`,
			Replacement: `: [MASKED_SHORT_BASE64]`,
			Description: "Short base64 values",
		},
		"private_key": {
			Pattern:     `(?i)(?:private[_-]?key)["']?\s*[:=]\s*["']?([A-Za-z0-9_\-.]{20,})["']?`,
			Replacement: `"private_key": "[MASKED_PRIVATE_KEY]"`,
			Description: "Private keys",
		},
		"secret_key": {
			Pattern:     `(?i)(?:secret[_-]?key)["']?\s*[:=]\s*["']?([A-Za-z0-9_\-.]{20,})["']?`,
			Replacement: `"secret_key": "[MASKED_SECRET_KEY]"`,
			Description: "Secret keys",
		},
		"aws_access_key": {
			Pattern:     `(?i)(?:aws[_-]?access[_-]?key[_-]?id)["']?\s*[:=]\s*["']?(AKIA[A-Z0-9]{16})["']?`,
			Replacement: `"aws_access_key_id": "[MASKED_AWS_KEY]"`,
			Description: "AWS access keys",
		},
		"aws_secret_key": {
			Pattern:     `(?i)(?:aws[_-]?secret[_-]?access[_-]?key)["']?\s*[:=]\s*["']?([A-Za-z0-9/+=]{40})["']?`,
			Replacement: `"aws_secret_access_key": "[MASKED_AWS_SECRET]"`,
			Description: "AWS secret keys",
		},
		"github_token": {
			Pattern:     `(?i)(?:github[_-]?token|gh[ps]_[A-Za-z0-9_]{36,255})`,
			Replacement: `[MASKED_GITHUB_TOKEN]`,
			Description: "GitHub tokens",
		},
		"slack_token": {
			Pattern:     `(?i)xox[baprs]-[A-Za-z0-9-]{10,72}`,
			Replacement: `[MASKED_SLACK_TOKEN]`,
			Description: "Slack tokens",
		},
	}
}

// initBuiltinPatternGroups groups masking patterns into named bundles
// a deployment can select by name instead of listing every pattern.
func initBuiltinPatternGroups() map[string][]string {
	return map[string][]string{
		"basic":      {"api_key", "password"},
		"secrets":    {"api_key", "password", "token", "private_key", "secret_key"},
		"security":   {"api_key", "password", "token", "certificate", "certificate_authority_data", "email", "ssh_key"},
		"kubernetes": {"kubernetes_secret", "api_key", "password", "certificate_authority_data"},
		"cloud":      {"aws_access_key", "aws_secret_key", "api_key", "token"},
		"all": {
			"base64_secret", "base64_short", "api_key", "password", "certificate", "certificate_authority_data",
			"email", "token", "ssh_key", "private_key", "secret_key", "aws_access_key",
			"aws_secret_key", "github_token", "slack_token",
		},
	}
}

// initBuiltinCodeMaskers names the structural (non-regex) maskers registered
// in pkg/masking/service.go.
func initBuiltinCodeMaskers() []string {
	return []string{"kubernetes_secret"}
}

const defaultRunbookContent = `# Generic Troubleshooting Guide

## Investigation Steps

1. Analyze the alert - review alert data and identify the affected system/service.
2. Gather context - use tools to check current state and recent changes.
3. Identify root cause - investigate potential causes based on alert type.
4. Assess impact - determine scope and severity.
5. Recommend actions - suggest safe investigation or remediation steps.

## Guidelines

- Verify information before suggesting changes.
- Consider dependencies and potential side effects.
- Document findings and actions taken.
- Focus on understanding the problem before proposing solutions.
`
