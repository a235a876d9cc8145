package authtoken

import (
	"strings"
	"testing"
	"time"
)

func TestVerifyRoundTripsAWellFormedToken(t *testing.T) {
	secret := []byte("top-secret")
	exp := time.Now().Add(time.Hour).Unix()
	payload := ManagerTokenPayload{
		AgentID:   "agent.one",
		Namespace: "alpha",
		OfficeID:  "office-1",
		Exp:       &exp,
	}

	token, err := Sign(payload, secret)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	got, err := Verify(token, secret, time.Now().Unix())
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}

	if got.AgentID != payload.AgentID || got.Namespace != payload.Namespace || got.OfficeID != payload.OfficeID {
		t.Errorf("round-tripped payload = %+v, want %+v", got, payload)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := Sign(ManagerTokenPayload{AgentID: "a"}, []byte("correct"))
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	_, err = Verify(token, []byte("wrong"), time.Now().Unix())
	if err == nil {
		t.Fatal("expected verification to fail with the wrong secret")
	}
	if kind := err.(*VerifyError).Kind; kind != FailureInvalidSignature {
		t.Errorf("Kind = %s, want InvalidSignature", kind)
	}
}

func TestVerifyRejectsTamperedSegment(t *testing.T) {
	secret := []byte("s3cr3t")
	token, err := Sign(ManagerTokenPayload{AgentID: "a"}, secret)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	parts := strings.Split(token, ".")
	parts[1] = parts[1] + "x"
	tampered := strings.Join(parts, ".")

	_, err = Verify(tampered, secret, time.Now().Unix())
	if err == nil {
		t.Fatal("expected verification to fail on a tampered payload segment")
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	secret := []byte("s3cr3t")
	exp := time.Now().Add(-time.Hour).Unix()
	token, err := Sign(ManagerTokenPayload{AgentID: "a", Exp: &exp}, secret)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	_, err = Verify(token, secret, time.Now().Unix())
	if err == nil {
		t.Fatal("expected an expired token to fail verification")
	}
	if kind := err.(*VerifyError).Kind; kind != FailureTokenExpired {
		t.Errorf("Kind = %s, want TokenExpired", kind)
	}
}

func TestVerifyRejectsMalformedFormat(t *testing.T) {
	_, err := Verify("not-a-token", []byte("s"), time.Now().Unix())
	if err == nil {
		t.Fatal("expected malformed token to fail")
	}
	if kind := err.(*VerifyError).Kind; kind != FailureInvalidFormat {
		t.Errorf("Kind = %s, want InvalidFormat", kind)
	}
}

func TestVerifyRejectsMissingSecret(t *testing.T) {
	token, err := Sign(ManagerTokenPayload{AgentID: "a"}, []byte("s"))
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	_, err = Verify(token, nil, time.Now().Unix())
	if err == nil {
		t.Fatal("expected verification to fail with no secret")
	}
	if kind := err.(*VerifyError).Kind; kind != FailureSecretMissing {
		t.Errorf("Kind = %s, want SecretMissing", kind)
	}
}
