package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 3010 {
		t.Errorf("Port = %d, want 3010", cfg.Port)
	}
	if cfg.OfficeBaseDomain != "office.xyz" {
		t.Errorf("OfficeBaseDomain = %q, want office.xyz", cfg.OfficeBaseDomain)
	}
	if cfg.RegistrySyncIntervalMs != 60000 {
		t.Errorf("RegistrySyncIntervalMs = %d, want 60000", cfg.RegistrySyncIntervalMs)
	}
}

func TestFirstNonEmptyEnvPrefersEarlierName(t *testing.T) {
	t.Setenv("REGISTRY_SERVICE_URL", "")
	t.Setenv("REGISTRY_SERVICE_ORIGIN", "https://origin.example")
	t.Setenv("REGISTRY_API_URL", "https://api.example")

	got := firstNonEmptyEnv(registryServiceURLNames...)
	if got != "https://origin.example" {
		t.Errorf("firstNonEmptyEnv = %q, want https://origin.example", got)
	}
}

func TestLoadResolvesOfficeIDChain(t *testing.T) {
	t.Setenv("REGISTRY_OFFICE_ID", "")
	t.Setenv("OFFICE_ID", "office-42")
	t.Setenv("SKYOFFICE_OFFICE_ID", "office-ignored")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.OfficeID != "office-42" {
		t.Errorf("OfficeID = %q, want office-42", cfg.OfficeID)
	}
}
