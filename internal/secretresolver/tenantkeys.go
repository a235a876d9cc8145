package secretresolver

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"skyoffice-presence/server/internal/registryclient"
)

const sharedSkyofficeServerKeyType = "shared:skyoffice-server"

// selectSkyofficeKey picks the tenant key this server uses to sign and
// verify presence tokens: the one whose keyType lowercases to
// "shared:skyoffice-server". It returns false if none matches.
func selectSkyofficeKey(keys []registryclient.TenantKey) (registryclient.TenantKey, bool) {
	for _, k := range keys {
		if strings.ToLower(k.KeyType) == sharedSkyofficeServerKeyType {
			return k, true
		}
	}
	return registryclient.TenantKey{}, false
}

// secretsPathFor resolves the path to fetch from the secret store: the
// key's own secretsPath field, falling back to the first entry of its
// metadata.paths array.
func secretsPathFor(key registryclient.TenantKey) (string, bool) {
	if key.SecretsPath != "" {
		return key.SecretsPath, true
	}
	rawPaths, ok := key.Metadata["paths"]
	if !ok {
		return "", false
	}
	paths, ok := rawPaths.([]any)
	if !ok || len(paths) == 0 {
		return "", false
	}
	first, ok := paths[0].(string)
	if !ok || first == "" {
		return "", false
	}
	return first, true
}

// secretBlobKeys is the ordered list of field/env-var names parseSecretBlob
// recognises, most specific first, across both the JSON-object and
// KEY=VALUE-line blob forms.
var secretBlobKeys = []string{
	"SKYOFFICE_PRESENCE_SHARED_SECRET",
	"SKYOFFICE_PRESENCE_SECRET",
	"PRESENCE_SHARED_SECRET",
	"SHARED_SECRET",
	"SECRET",
	"sharedSecret",
	"shared_secret",
	"secret",
	"value",
}

// parseSecretBlob extracts the signing secret from an opaque secret
// store blob. It tries, in order: a JSON object keyed by any of
// secretBlobKeys; a KEY=VALUE line format (# starts a comment) keyed by
// any of secretBlobKeys; and finally the raw, trimmed bytes.
func parseSecretBlob(data []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("secretresolver: empty secret blob")
	}

	if trimmed[0] == '{' {
		var obj map[string]any
		if err := json.Unmarshal(trimmed, &obj); err == nil {
			for _, key := range secretBlobKeys {
				if v, ok := obj[key].(string); ok && v != "" {
					return []byte(v), nil
				}
			}
		}
	}

	scanner := bufio.NewScanner(bytes.NewReader(trimmed))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		eq := strings.IndexByte(line, '=')
		if eq < 0 {
			continue
		}
		key := strings.TrimSpace(line[:eq])
		for _, want := range secretBlobKeys {
			if key != want {
				continue
			}
			if v := strings.TrimSpace(line[eq+1:]); v != "" {
				return []byte(v), nil
			}
		}
	}

	return trimmed, nil
}
