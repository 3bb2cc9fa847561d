package config

import (
	"errors"
	"testing"
)

func TestToolDomainRegistry_GetAndHas(t *testing.T) {
	registry := NewToolDomainRegistry(map[string]*ToolDomainConfig{
		"aws": {DataMasking: &MaskingConfig{Enabled: true, PatternGroups: []string{"cloud"}}},
	})

	if !registry.Has("aws") {
		t.Error("Has(aws) = false, want true")
	}
	if registry.Has("k8s") {
		t.Error("Has(k8s) = true, want false")
	}

	cfg, err := registry.Get("aws")
	if err != nil {
		t.Fatalf("Get(aws) error = %v", err)
	}
	if !cfg.DataMasking.Enabled {
		t.Error("expected aws domain masking enabled")
	}

	_, err = registry.Get("nonexistent")
	if !errors.Is(err, ErrToolDomainNotFound) {
		t.Errorf("Get(nonexistent) error = %v, want ErrToolDomainNotFound", err)
	}
}

func TestToolDomainRegistry_NilMap(t *testing.T) {
	registry := NewToolDomainRegistry(nil)

	if registry.Has("aws") {
		t.Error("Has on empty registry should be false")
	}
	if all := registry.GetAll(); len(all) != 0 {
		t.Errorf("GetAll() = %d entries, want 0", len(all))
	}
}

func TestToolDomainRegistry_GetAllReturnsCopy(t *testing.T) {
	registry := NewToolDomainRegistry(map[string]*ToolDomainConfig{
		"aws": {Disabled: false},
	})

	all := registry.GetAll()
	all["k8s"] = &ToolDomainConfig{Disabled: true}

	if registry.Has("k8s") {
		t.Error("mutating GetAll() result should not affect the registry")
	}
}
