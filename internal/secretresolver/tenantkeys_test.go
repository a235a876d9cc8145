package secretresolver

import (
	"testing"

	"skyoffice-presence/server/internal/registryclient"
)

func TestSelectSkyofficeKeyMatchesCaseInsensitively(t *testing.T) {
	keys := []registryclient.TenantKey{
		{KeyType: "shared:other-service"},
		{KeyType: "Shared:SkyOffice-Server", SecretsPath: "/secrets/skyoffice"},
	}
	key, ok := selectSkyofficeKey(keys)
	if !ok {
		t.Fatal("expected a matching key")
	}
	if key.SecretsPath != "/secrets/skyoffice" {
		t.Errorf("SecretsPath = %q, want /secrets/skyoffice", key.SecretsPath)
	}
}

func TestSecretsPathForFallsBackToMetadataPaths(t *testing.T) {
	key := registryclient.TenantKey{
		Metadata: map[string]any{"paths": []any{"/secrets/first", "/secrets/second"}},
	}
	path, ok := secretsPathFor(key)
	if !ok || path != "/secrets/first" {
		t.Fatalf("secretsPathFor = (%q, %v), want (/secrets/first, true)", path, ok)
	}
}

func TestParseSecretBlobPrefersJSONSharedSecretField(t *testing.T) {
	secret, err := parseSecretBlob([]byte(`{"sharedSecret":"abc123"}`))
	if err != nil {
		t.Fatalf("parseSecretBlob: %v", err)
	}
	if string(secret) != "abc123" {
		t.Errorf("secret = %q, want abc123", secret)
	}
}

func TestParseSecretBlobParsesKeyValueLines(t *testing.T) {
	secret, err := parseSecretBlob([]byte("OTHER=ignored\nSHARED_SECRET=xyz789\n"))
	if err != nil {
		t.Fatalf("parseSecretBlob: %v", err)
	}
	if string(secret) != "xyz789" {
		t.Errorf("secret = %q, want xyz789", secret)
	}
}

func TestParseSecretBlobFallsBackToRawBytes(t *testing.T) {
	secret, err := parseSecretBlob([]byte("  raw-secret-value  "))
	if err != nil {
		t.Fatalf("parseSecretBlob: %v", err)
	}
	if string(secret) != "raw-secret-value" {
		t.Errorf("secret = %q, want raw-secret-value", secret)
	}
}
