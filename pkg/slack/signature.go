package slack

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// maxRequestAge bounds how stale an inbound request's timestamp may be
// before it is rejected as a possible replay, per Slack's documented
// signing-secret verification scheme.
const maxRequestAge = 5 * time.Minute

// VerifySignature validates an inbound Slack request against its
// X-Slack-Signature and X-Slack-Request-Timestamp headers using the
// "v0:<timestamp>:<body>" HMAC-SHA256 scheme, rejecting requests whose
// timestamp is more than maxRequestAge away from now to guard against
// replay.
func VerifySignature(signingSecret string, header http.Header, body []byte, now time.Time) error {
	if signingSecret == "" {
		return fmt.Errorf("slack: no signing secret configured")
	}

	tsHeader := header.Get("X-Slack-Request-Timestamp")
	if tsHeader == "" {
		return fmt.Errorf("slack: missing X-Slack-Request-Timestamp header")
	}
	tsSec, err := strconv.ParseInt(tsHeader, 10, 64)
	if err != nil {
		return fmt.Errorf("slack: invalid timestamp header: %w", err)
	}
	reqTime := time.Unix(tsSec, 0)
	if age := now.Sub(reqTime); age > maxRequestAge || age < -maxRequestAge {
		return fmt.Errorf("slack: request timestamp %s outside allowed window", reqTime)
	}

	sigHeader := header.Get("X-Slack-Signature")
	if sigHeader == "" {
		return fmt.Errorf("slack: missing X-Slack-Signature header")
	}

	base := fmt.Sprintf("v0:%s:%s", tsHeader, body)
	mac := hmac.New(sha256.New, []byte(signingSecret))
	mac.Write([]byte(base))
	expected := "v0=" + hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(strings.TrimSpace(sigHeader)), []byte(expected)) {
		return fmt.Errorf("slack: signature mismatch")
	}
	return nil
}
