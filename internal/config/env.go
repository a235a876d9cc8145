// Package config resolves the presence orchestrator's environment-driven
// settings, including the several alias chains that have accumulated
// over time for a few legacy environment variable names.
package config

import (
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config holds every setting that has a single canonical environment
// variable name. Settings with alias chains (registry URL/token, the
// presence-secret tiers, the office-id chain) are resolved separately by
// firstNonEmptyEnv and are not struct fields here, since env.Parse has no
// notion of "try these names in order".
type Config struct {
	Port                   int    `env:"PORT" envDefault:"3010"`
	RegistrySyncIntervalMs int    `env:"REGISTRY_SYNC_INTERVAL_MS" envDefault:"60000"`
	OfficeBaseDomain       string `env:"OFFICE_BASE_DOMAIN" envDefault:"office.xyz"`
	DefaultAgentVoiceID    string `env:"DEFAULT_AGENT_VOICE_ID" envDefault:"agent_4901k6k9xg9qf4paratx1d9rkmwx"`
	ChatBridgeURL          string `env:"CHAT_BRIDGE_URL" envDefault:"http://localhost:3020"`
	AWSRegion              string `env:"AWS_REGION"`
	DataDir                string `env:"DATA_DIR" envDefault:"."`
	TileMapPath            string `env:"TILE_MAP_PATH"`
	GridSidecarPath        string `env:"GRID_SIDECAR_PATH"`

	// Resolved separately, see Load.
	RegistryServiceURL   string
	RegistryServiceToken string
	OfficeID             string
}

// registryServiceURLNames lists, in priority order, the environment
// variable names that have carried the Registry base URL over time.
var registryServiceURLNames = []string{
	"REGISTRY_SERVICE_URL",
	"REGISTRY_SERVICE_ORIGIN",
	"REGISTRY_SERVICE_BASE_URL",
	"REGISTRY_API_URL",
}

var registryServiceTokenNames = []string{
	"REGISTRY_SERVICE_TOKEN",
	"REGISTRY_API_TOKEN",
}

var officeIDNames = []string{
	"REGISTRY_OFFICE_ID",
	"OFFICE_ID",
	"SKYOFFICE_OFFICE_ID",
}

// PresenceSecretNames lists, in priority order, the static environment
// variable names that may carry the HMAC presence-signing secret (§4.C
// tier 1). Exported because the secret resolver reads these directly
// rather than through Config.
var PresenceSecretNames = []string{
	"SKYOFFICE_PRESENCE_SHARED_SECRET",
	"SKYOFFICE_PRESENCE_SECRET",
	"PRESENCE_SHARED_SECRET",
	"SHARED_SECRET",
}

// Load parses the environment into a Config, applying every alias chain
// above. Parse failures on the scalar fields never abort
// startup: env.Parse only fails on malformed non-string fields, and a
// malformed int here is treated as operator error worth surfacing, not a
// reason to crash, so the caller logs it and Load still returns usable
// defaults for everything else.
func Load() (Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}

	cfg.RegistryServiceURL = firstNonEmptyEnv(registryServiceURLNames...)
	cfg.RegistryServiceToken = firstNonEmptyEnv(registryServiceTokenNames...)
	cfg.OfficeID = firstNonEmptyEnv(officeIDNames...)

	return cfg, nil
}

// firstNonEmptyEnv returns the value of the first name, in order, whose
// environment variable is set to a non-empty (after trimming) value.
func firstNonEmptyEnv(names ...string) string {
	for _, name := range names {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v
		}
	}
	return ""
}
