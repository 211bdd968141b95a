package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"testing"
	"time"
)

func signToken(t *testing.T, secret string, payload []byte, ts int64) string {
	t.Helper()
	timestamp := strconv.FormatInt(ts, 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp + "."))
	mac.Write(payload)
	inner := fmt.Sprintf("t=%s,v2=%s", timestamp, hex.EncodeToString(mac.Sum(nil)))
	return base64.StdEncoding.EncodeToString([]byte(inner))
}

func TestVerifySignature(t *testing.T) {
	t.Parallel()

	const secret = "whsec_test"
	payload := []byte(`{"event_name":"job.created","id":42}`)
	now := time.Now().Unix()
	good := signToken(t, secret, payload, now)

	tests := []struct {
		name    string
		payload []byte
		token   string
		secret  string
		maxAge  time.Duration
		want    bool
	}{
		{"valid", payload, good, secret, 0, true},
		{"valid with fresh timestamp", payload, good, secret, time.Hour, true},
		{"empty token", payload, "", secret, 0, false},
		{"empty secret", payload, good, "", 0, false},
		{"wrong secret", payload, good, "whsec_other", 0, false},
		{"tampered payload", []byte(`{"event_name":"job.created","id":43}`), good, secret, 0, false},
		{"not base64", payload, "t=1,v2=zz", secret, 0, false},
		{"missing v2 part", payload, base64.StdEncoding.EncodeToString([]byte("t=123")), secret, 0, false},
		{"swapped prefixes", payload, base64.StdEncoding.EncodeToString([]byte("v2=abcd,t=123")), secret, 0, false},
		{"empty timestamp", payload, base64.StdEncoding.EncodeToString([]byte("t=,v2=abcd")), secret, 0, false},
		{"non-hex digest", payload, base64.StdEncoding.EncodeToString([]byte("t=123,v2=zzzz")), secret, 0, false},
		{"stale timestamp", payload, signToken(t, secret, payload, now-3600), secret, 5 * time.Minute, false},
		{"stale but freshness disabled", payload, signToken(t, secret, payload, now-3600), secret, 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := VerifySignature(tc.payload, tc.token, tc.secret, tc.maxAge); got != tc.want {
				t.Fatalf("VerifySignature() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestVerifySignatureBitFlips(t *testing.T) {
	t.Parallel()

	const secret = "whsec_test"
	payload := []byte(`{"id":1}`)
	good := signToken(t, secret, payload, time.Now().Unix())

	decoded, err := base64.StdEncoding.DecodeString(good)
	if err != nil {
		t.Fatalf("decode token: %v", err)
	}
	// Flip each hex digit of the digest; every variant must be rejected.
	for i := len(decoded) - 8; i < len(decoded); i++ {
		mutated := append([]byte(nil), decoded...)
		if mutated[i] == 'a' {
			mutated[i] = 'b'
		} else {
			mutated[i] = 'a'
		}
		token := base64.StdEncoding.EncodeToString(mutated)
		if VerifySignature(payload, token, secret, 0) {
			t.Fatalf("mutated token at byte %d accepted", i)
		}
	}
}

func TestSignatureFromHeaders(t *testing.T) {
	t.Parallel()

	h := http.Header{}
	if got := SignatureFromHeaders(h, nil); got != "" {
		t.Fatalf("empty headers: got %q", got)
	}

	h.Set("Signature", "fallback")
	if got := SignatureFromHeaders(h, nil); got != "fallback" {
		t.Fatalf("fallback header: got %q", got)
	}

	// The canonical header outranks later names.
	h.Set("X-Teamtailor-Signature", "primary")
	if got := SignatureFromHeaders(h, nil); got != "primary" {
		t.Fatalf("primary header: got %q", got)
	}

	h.Set("Custom-Sig", "custom")
	if got := SignatureFromHeaders(h, []string{"Custom-Sig"}); got != "custom" {
		t.Fatalf("custom header list: got %q", got)
	}

	h.Set("Padded", "  spaced  ")
	if got := SignatureFromHeaders(h, []string{"Padded"}); got != "spaced" {
		t.Fatalf("trimmed header: got %q", got)
	}
}
