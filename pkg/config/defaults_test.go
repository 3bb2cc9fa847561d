package config

import "testing"

func TestDefaults_WithDefaults_FillsZeroValues(t *testing.T) {
	d := (&Defaults{}).WithDefaults()

	if d.MaxIterations != 20 {
		t.Errorf("MaxIterations = %d, want 20", d.MaxIterations)
	}
	if d.MaxHumanMessageTokens != 20000 {
		t.Errorf("MaxHumanMessageTokens = %d, want 20000", d.MaxHumanMessageTokens)
	}
	if d.TurnTimeoutSeconds != 1800 {
		t.Errorf("TurnTimeoutSeconds = %d, want 1800", d.TurnTimeoutSeconds)
	}
	if d.ConfirmationPollSeconds != 30 {
		t.Errorf("ConfirmationPollSeconds = %d, want 30", d.ConfirmationPollSeconds)
	}
	if d.ConfirmationPollIntervalMillis != 500 {
		t.Errorf("ConfirmationPollIntervalMillis = %d, want 500", d.ConfirmationPollIntervalMillis)
	}
	if d.RCAGracePeriodSeconds != 5 {
		t.Errorf("RCAGracePeriodSeconds = %d, want 5", d.RCAGracePeriodSeconds)
	}
	if d.CorrelationWindowMinutes != 30 {
		t.Errorf("CorrelationWindowMinutes = %d, want 30", d.CorrelationWindowMinutes)
	}
	if d.HeartbeatIntervalSeconds != 30 {
		t.Errorf("HeartbeatIntervalSeconds = %d, want 30", d.HeartbeatIntervalSeconds)
	}
}

func TestDefaults_WithDefaults_PreservesSetValues(t *testing.T) {
	d := (&Defaults{MaxIterations: 5, LLMProvider: "anthropic"}).WithDefaults()

	if d.MaxIterations != 5 {
		t.Errorf("MaxIterations = %d, want 5 (explicit value preserved)", d.MaxIterations)
	}
	if d.LLMProvider != "anthropic" {
		t.Errorf("LLMProvider = %q, want anthropic", d.LLMProvider)
	}
}

func TestDefaults_WithDefaults_NilReceiver(t *testing.T) {
	var d *Defaults
	result := d.WithDefaults()

	if result == nil {
		t.Fatal("WithDefaults() on nil receiver returned nil")
	}
	if result.MaxIterations != 20 {
		t.Errorf("MaxIterations = %d, want 20", result.MaxIterations)
	}
}
