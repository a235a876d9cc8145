// Package registryclient is a thin typed client for the external
// Registry service: office/agent listing and patching,
// tenant-key lookup, and per-agent presence credential requests.
//
// GET and PATCH failures are logged and swallowed rather than returned as
// errors: reconciliation and telemetry are advisory and eventually
// consistent, and a flaky Registry must never crash this process.
package registryclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"skyoffice-presence/server/internal/logging"
	"skyoffice-presence/server/internal/model"
)

const requestTimeout = 5 * time.Second

// Client talks to the Registry over HTTP.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	log        logging.Publisher
}

// New constructs a Client. token may be empty, in which case requests
// carry no Authorization header.
func New(baseURL, token string, log logging.Publisher) *Client {
	if log == nil {
		log = logging.NopPublisher{}
	}
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: requestTimeout},
		log:        log,
	}
}

func (c *Client) logWarn(message string, extra map[string]any) {
	c.log.Publish(logging.Event{
		Time:     time.Now(),
		Severity: logging.SeverityWarn,
		Category: logging.CategoryRegistry,
		Message:  message,
		Extra:    extra,
	})
}

// do issues an HTTP request against the Registry, decoding a JSON
// response body into out when status is 2xx. It never returns an error
// to the caller for transport/HTTP failures on GET/PATCH verbs — those
// are logged and the caller receives ok=false instead.
func (c *Client) do(ctx context.Context, method, path string, body any, out any) bool {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			c.logWarn("failed to encode registry request body", map[string]any{"path": path, "error": err.Error()})
			return false
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		c.logWarn("failed to build registry request", map[string]any{"path": path, "error": err.Error()})
		return false
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("X-Registry-Service-Token", c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logWarn("registry request failed", map[string]any{"path": path, "error": err.Error()})
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logWarn("registry request returned a non-2xx status", map[string]any{"path": path, "status": resp.StatusCode})
		return false
	}

	if out == nil {
		return true
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.logWarn("failed to decode registry response", map[string]any{"path": path, "error": err.Error()})
		return false
	}
	return true
}

// ListOffices fetches every office the Registry currently declares. On
// failure it returns an empty slice, per the swallow policy above.
func (c *Client) ListOffices(ctx context.Context) []model.Office {
	var offices []model.Office
	if !c.do(ctx, http.MethodGet, "/offices", nil, &offices) {
		return nil
	}
	return offices
}

// ListAgents fetches every agent belonging to officeID.
func (c *Client) ListAgents(ctx context.Context, officeID string) []model.Agent {
	var agents []model.Agent
	if !c.do(ctx, http.MethodGet, fmt.Sprintf("/offices/%s/agents", officeID), nil, &agents) {
		return nil
	}
	return agents
}

// PatchAgent patches an agent's lastSeenAt and metadata.
func (c *Client) PatchAgent(ctx context.Context, officeID, agentID string, lastSeenAt time.Time, metadata model.Metadata) {
	body := map[string]any{
		"lastSeenAt": lastSeenAt.UTC().Format(time.RFC3339),
		"metadata":   metadata,
	}
	c.do(ctx, http.MethodPatch, fmt.Sprintf("/offices/%s/agents/%s", officeID, agentID), body, nil)
}

// PatchOffice patches an office's linked SkyOffice world (room) id.
func (c *Client) PatchOffice(ctx context.Context, officeID, skyofficeWorldID string) {
	body := map[string]any{"skyofficeWorldId": skyofficeWorldID}
	c.do(ctx, http.MethodPatch, fmt.Sprintf("/offices/%s", officeID), body, nil)
}

// TenantKey is one entry returned by the tenant-keys endpoint.
type TenantKey struct {
	KeyType     string         `json:"keyType"`
	SecretsPath string         `json:"secretsPath,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// TenantKeys fetches the tenant keys declared for officeID.
func (c *Client) TenantKeys(ctx context.Context, officeID string) []TenantKey {
	var keys []TenantKey
	if !c.do(ctx, http.MethodGet, fmt.Sprintf("/offices/%s/tenant-keys", officeID), nil, &keys) {
		return nil
	}
	return keys
}

// credentialResponse is the shape of a presence-credential response; the
// Registry has used both casings over time.
type credentialResponse struct {
	SharedSecret      string `json:"sharedSecret"`
	SharedSecretSnake string `json:"shared_secret"`
}

func (r credentialResponse) value() string {
	if r.SharedSecret != "" {
		return r.SharedSecret
	}
	return r.SharedSecretSnake
}

// RequestCredential asks the Registry to mint a presence-signing secret
// for (officeID, agentID). It returns ("", false) on any failure —
// credential lookups return null rather than propagating an error.
func (c *Client) RequestCredential(ctx context.Context, officeID, agentID string) (string, bool) {
	var resp credentialResponse
	path := fmt.Sprintf("/offices/%s/presence/agents/%s/credential", officeID, agentID)
	if !c.do(ctx, http.MethodPost, path, nil, &resp) {
		return "", false
	}
	value := resp.value()
	return value, value != ""
}
