// Package authtoken verifies the manager tokens NPC clients present at
// handshake: a compact three-segment header.payload.signature format,
// HMAC-SHA256 signed, checked in constant time. The package never issues
// tokens — only verifies them.
package authtoken

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// FailureKind identifies why verification failed.
type FailureKind string

const (
	FailureInvalidFormat          FailureKind = "InvalidFormat"
	FailureInvalidSegmentEncoding FailureKind = "InvalidSegmentEncoding"
	FailureInvalidSignature       FailureKind = "InvalidSignature"
	FailureTokenExpired           FailureKind = "TokenExpired"
	FailureSecretMissing          FailureKind = "SecretMissing"
)

// VerifyError carries the failure kind alongside a human-readable reason,
// the shape the room handshake turns into a 403 response.
type VerifyError struct {
	Kind   FailureKind
	Reason string
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func fail(kind FailureKind, reason string) *VerifyError {
	return &VerifyError{Kind: kind, Reason: reason}
}

// ManagerTokenPayload is the decoded payload segment. Recognised fields
// are typed; anything else in the JSON object is preserved in Extra.
type ManagerTokenPayload struct {
	AgentID       string `json:"agentId,omitempty"`
	Namespace     string `json:"namespace,omitempty"`
	NamespaceSlug string `json:"namespaceSlug,omitempty"`
	OfficeID      string `json:"officeId,omitempty"`
	Exp           *int64 `json:"exp,omitempty"`
	Iat           *int64 `json:"iat,omitempty"`
	Jti           string `json:"jti,omitempty"`
	Extra         map[string]any `json:"-"`
}

// EffectiveNamespace returns namespace, falling back to namespaceSlug,
// since either field may carry the intended namespace.
func (p ManagerTokenPayload) EffectiveNamespace() string {
	if p.Namespace != "" {
		return p.Namespace
	}
	return p.NamespaceSlug
}

var segmentPattern = regexp.MustCompile(`^[A-Za-z0-9\-_]+$`)

// Verify checks a compact token "h.b.s" against secret, as of nowSeconds
// (a Unix timestamp), and returns its decoded payload on success.
func Verify(token string, secret []byte, nowSeconds int64) (*ManagerTokenPayload, error) {
	if len(secret) == 0 {
		return nil, fail(FailureSecretMissing, "no secret available to verify token")
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, fail(FailureInvalidFormat, "token must have exactly three dot-separated segments")
	}
	header, body, sig := parts[0], parts[1], parts[2]
	for _, seg := range []string{header, body, sig} {
		if seg == "" || !segmentPattern.MatchString(seg) {
			return nil, fail(FailureInvalidFormat, "segment is empty or contains non-base64url characters")
		}
	}

	signed := header + "." + body
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(signed))
	expected := mac.Sum(nil)

	actual, err := decodeSegment(sig)
	if err != nil {
		return nil, fail(FailureInvalidSegmentEncoding, "signature segment is not valid base64url")
	}

	if len(expected) != len(actual) {
		return nil, fail(FailureInvalidSignature, "signature length mismatch")
	}
	if subtle.ConstantTimeCompare(expected, actual) != 1 {
		return nil, fail(FailureInvalidSignature, "signature does not match")
	}

	rawBody, err := decodeSegment(body)
	if err != nil {
		return nil, fail(FailureInvalidSegmentEncoding, "payload segment is not valid base64url")
	}

	payload, err := decodePayload(rawBody)
	if err != nil {
		return nil, fail(FailureInvalidFormat, fmt.Sprintf("payload is not valid JSON: %v", err))
	}

	if payload.Exp != nil && nowSeconds > *payload.Exp {
		return nil, fail(FailureTokenExpired, "token exp has passed")
	}

	return payload, nil
}

// decodeSegment reverses the base64url encoding of a token segment,
// tolerating stripped padding.
func decodeSegment(seg string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(seg)
}

// Sign encodes and signs a payload the same way a well-formed manager
// token is constructed. It is exported only for use by the issuer this
// system does not itself contain; production code in this module never
// calls it, it exists for tests and for downstream signers that share
// this package's wire format.
func Sign(payload ManagerTokenPayload, secret []byte) (string, error) {
	header := encodeSegment([]byte(`{"alg":"HS256","typ":"MTK"}`))
	body, err := encodePayload(payload)
	if err != nil {
		return "", err
	}
	signed := header + "." + body
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(signed))
	sig := encodeSegment(mac.Sum(nil))
	return signed + "." + sig, nil
}

func encodeSegment(raw []byte) string {
	return base64.RawURLEncoding.EncodeToString(raw)
}

func decodePayload(raw []byte) (*ManagerTokenPayload, error) {
	var extra map[string]any
	if err := json.Unmarshal(raw, &extra); err != nil {
		return nil, err
	}
	var payload ManagerTokenPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	for _, known := range []string{"agentId", "namespace", "namespaceSlug", "officeId", "exp", "iat", "jti"} {
		delete(extra, known)
	}
	if len(extra) > 0 {
		payload.Extra = extra
	}
	return &payload, nil
}

func encodePayload(payload ManagerTokenPayload) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	if len(payload.Extra) > 0 {
		var merged map[string]any
		if err := json.Unmarshal(data, &merged); err != nil {
			return "", err
		}
		for k, v := range payload.Extra {
			merged[k] = v
		}
		data, err = json.Marshal(merged)
		if err != nil {
			return "", err
		}
	}
	return encodeSegment(data), nil
}
