package slack

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func sign(secret, ts, body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("v0:%s:%s", ts, body)))
	return "v0=" + hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature_Valid(t *testing.T) {
	secret := "shh"
	body := []byte(`{"type":"event_callback"}`)
	now := time.Unix(1700000000, 0)
	ts := fmt.Sprintf("%d", now.Unix())

	h := http.Header{}
	h.Set("X-Slack-Request-Timestamp", ts)
	h.Set("X-Slack-Signature", sign(secret, ts, string(body)))

	if err := VerifySignature(secret, h, body, now); err != nil {
		t.Fatalf("expected valid signature, got %v", err)
	}
}

func TestVerifySignature_RejectsWrongSecret(t *testing.T) {
	body := []byte(`{}`)
	now := time.Unix(1700000000, 0)
	ts := fmt.Sprintf("%d", now.Unix())

	h := http.Header{}
	h.Set("X-Slack-Request-Timestamp", ts)
	h.Set("X-Slack-Signature", sign("other-secret", ts, string(body)))

	if err := VerifySignature("shh", h, body, now); err == nil {
		t.Fatal("expected signature mismatch error")
	}
}

func TestVerifySignature_RejectsStaleTimestamp(t *testing.T) {
	secret := "shh"
	body := []byte(`{}`)
	reqTime := time.Unix(1700000000, 0)
	now := reqTime.Add(10 * time.Minute)
	ts := fmt.Sprintf("%d", reqTime.Unix())

	h := http.Header{}
	h.Set("X-Slack-Request-Timestamp", ts)
	h.Set("X-Slack-Signature", sign(secret, ts, string(body)))

	if err := VerifySignature(secret, h, body, now); err == nil {
		t.Fatal("expected stale-timestamp rejection")
	}
}

func TestVerifySignature_RejectsMissingHeaders(t *testing.T) {
	if err := VerifySignature("shh", http.Header{}, []byte(`{}`), time.Now()); err == nil {
		t.Fatal("expected missing-header rejection")
	}
}

func TestNormalizeText_CollapsesWhitespaceAndCase(t *testing.T) {
	a := normalizeText("  Hello   WORLD \n foo")
	b := normalizeText("hello world foo")
	if a != b {
		t.Fatalf("expected normalized forms to match, got %q vs %q", a, b)
	}
}
