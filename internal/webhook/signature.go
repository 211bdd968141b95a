package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultSignatureHeaders is the ordered list of header names checked for the
// signature token. The sender has shipped the token under several names over
// time; first present wins.
var DefaultSignatureHeaders = []string{
	"X-Teamtailor-Signature",
	"Teamtailor-Signature",
	"TT-Signature",
	"Signature",
}

// SignatureFromHeaders returns the first signature token found, scanning
// headers in order. Empty string means no signature was sent.
func SignatureFromHeaders(h http.Header, names []string) string {
	if len(names) == 0 {
		names = DefaultSignatureHeaders
	}
	for _, name := range names {
		if v := strings.TrimSpace(h.Get(name)); v != "" {
			return v
		}
	}
	return ""
}

// VerifySignature checks a v2 signature token against the raw request body.
//
// The token is base64("t=<unixSeconds>,v2=<hexDigest>") where
// hexDigest = hex(HMAC-SHA256(secret, "<unixSeconds>." + payload)).
//
// Any malformed input fails closed: missing token, bad base64, wrong part
// count, missing prefixes, or a non-hex digest all return false. The digest
// comparison is constant-time.
//
// maxAge > 0 additionally rejects tokens whose embedded timestamp is older
// than the window (or unparseable). maxAge == 0 disables the freshness check.
func VerifySignature(payload []byte, token, secret string, maxAge time.Duration) bool {
	if token == "" || secret == "" {
		return false
	}

	decoded, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return false
	}

	// "t=<timestamp>,v2=<hex>"
	parts := strings.Split(string(decoded), ",")
	if len(parts) != 2 {
		return false
	}
	tsPart, sigPart := parts[0], parts[1]
	if !strings.HasPrefix(tsPart, "t=") || !strings.HasPrefix(sigPart, "v2=") {
		return false
	}
	timestamp := tsPart[len("t="):]
	provided := sigPart[len("v2="):]
	if timestamp == "" || provided == "" {
		return false
	}

	providedRaw, err := hex.DecodeString(provided)
	if err != nil {
		return false
	}

	if maxAge > 0 {
		sec, err := strconv.ParseInt(timestamp, 10, 64)
		if err != nil {
			return false
		}
		if time.Since(time.Unix(sec, 0)) > maxAge {
			return false
		}
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := mac.Sum(nil)

	return hmac.Equal(expected, providedRaw)
}
