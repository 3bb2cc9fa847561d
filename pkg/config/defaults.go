package config

// Defaults holds system-wide default values applied when a more specific
// configuration does not override them.
type Defaults struct {
	// LLMProvider is used when a turn does not name a provider/mode.
	LLMProvider string `yaml:"llm_provider,omitempty"`

	// MaxIterations bounds the agent loop before a forced conclusion (spec.md §4.1).
	MaxIterations int `yaml:"max_iterations,omitempty" validate:"omitempty,min=1"`

	// MaxHumanMessageTokens is the pre-call validation ceiling (spec.md §4.1, S5).
	MaxHumanMessageTokens int `yaml:"max_human_message_tokens,omitempty" validate:"omitempty,min=1"`

	// TurnTimeoutSeconds is the per-turn ceiling (spec.md §4.1, default 30 min).
	TurnTimeoutSeconds int `yaml:"turn_timeout_seconds,omitempty" validate:"omitempty,min=1"`

	// ConfirmationPollSeconds / ConfirmationPollIntervalMillis govern the
	// bounded wait for in-flight tool calls during cancellation (spec.md §4.1).
	ConfirmationPollSeconds        int `yaml:"confirmation_poll_seconds,omitempty" validate:"omitempty,min=1"`
	ConfirmationPollIntervalMillis int `yaml:"confirmation_poll_interval_millis,omitempty" validate:"omitempty,min=1"`

	// RCAGracePeriodSeconds delays the RCA trigger to let a metadata-merge
	// event (e.g. a runbook link) arrive first (spec.md §4.6).
	RCAGracePeriodSeconds int `yaml:"rca_grace_period_seconds,omitempty" validate:"omitempty,min=0"`

	// CorrelationWindowMinutes bounds how far back the correlator searches
	// for candidate incidents (spec.md §4.5).
	CorrelationWindowMinutes int `yaml:"correlation_window_minutes,omitempty" validate:"omitempty,min=1"`

	// HeartbeatIntervalSeconds governs the RCA runner's liveness ticker
	// (default 30s).
	HeartbeatIntervalSeconds int `yaml:"heartbeat_interval_seconds,omitempty" validate:"omitempty,min=1"`

	// AlertMasking controls masking applied to raw alert payloads before storage.
	AlertMasking *AlertMaskingDefaults `yaml:"alert_masking,omitempty"`
}

// WithDefaults fills zero-valued fields with their documented literal
// defaults, so an omitted field in an overlay is a deliberate choice
// rather than an accidental zero value reaching the rest of the system.
func (d *Defaults) WithDefaults() *Defaults {
	if d == nil {
		d = &Defaults{}
	}
	if d.MaxIterations == 0 {
		d.MaxIterations = 20
	}
	if d.MaxHumanMessageTokens == 0 {
		d.MaxHumanMessageTokens = 20000
	}
	if d.TurnTimeoutSeconds == 0 {
		d.TurnTimeoutSeconds = 30 * 60
	}
	if d.ConfirmationPollSeconds == 0 {
		d.ConfirmationPollSeconds = 30
	}
	if d.ConfirmationPollIntervalMillis == 0 {
		d.ConfirmationPollIntervalMillis = 500
	}
	if d.RCAGracePeriodSeconds == 0 {
		d.RCAGracePeriodSeconds = 5
	}
	if d.CorrelationWindowMinutes == 0 {
		d.CorrelationWindowMinutes = 30
	}
	if d.HeartbeatIntervalSeconds == 0 {
		d.HeartbeatIntervalSeconds = 30
	}
	return d
}
