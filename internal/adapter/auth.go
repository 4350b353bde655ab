package adapter

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ErrUnauthorized is returned when an inbound request fails authentication.
var ErrUnauthorized = errors.New("adapter: unauthorized")

const hmacScheme = "HMAC "

// StreamTimestampHeader carries the unix time signed by a stream handshake.
const StreamTimestampHeader = "X-Bot-Timestamp"

// Stream handshakes signed further than this from the server clock are rejected.
const maxStreamSkew = 5 * time.Minute

// authenticate checks the Authorization header against the configured inbound secret.
// With no secret configured every request is accepted (local development, emulator).
func (a *Adapter) authenticate(authHeader string, body []byte) error {
	if a.cfg.InboundSecret == "" {
		return nil
	}
	if !strings.HasPrefix(authHeader, hmacScheme) {
		return fmt.Errorf("%w: missing HMAC authorization", ErrUnauthorized)
	}
	ok, err := verifyHMAC(body, a.cfg.InboundSecret, strings.TrimPrefix(authHeader, hmacScheme))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if !ok {
		return fmt.Errorf("%w: signature mismatch", ErrUnauthorized)
	}
	return nil
}

// verifyHMAC checks a base64 HMAC-SHA256 signature of body, keyed with the
// base64-decoded secret (the Teams outgoing webhook scheme).
func verifyHMAC(body []byte, secret, signature string) (bool, error) {
	if signature == "" {
		return false, nil
	}
	key, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return false, fmt.Errorf("inbound secret is not base64: %w", err)
	}
	expected, err := base64.StdEncoding.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return false, nil
	}

	mac := hmac.New(sha256.New, key)
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), expected), nil
}

// ComputeSignature returns the Authorization header value for body, for clients and tests.
func ComputeSignature(body []byte, secret string) (string, error) {
	key, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return "", fmt.Errorf("adapter: secret is not base64: %w", err)
	}
	mac := hmac.New(sha256.New, key)
	mac.Write(body)
	return hmacScheme + base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// authenticateStream checks a websocket handshake. The signature covers the
// StreamTimestampHeader value, so a captured header only replays within
// maxStreamSkew. Frames on an accepted socket are not signed.
func (a *Adapter) authenticateStream(r *http.Request) error {
	if a.cfg.InboundSecret == "" {
		return nil
	}
	ts := r.Header.Get(StreamTimestampHeader)
	sec, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: missing or invalid %s", ErrUnauthorized, StreamTimestampHeader)
	}
	if skew := time.Since(time.Unix(sec, 0)); skew > maxStreamSkew || skew < -maxStreamSkew {
		return fmt.Errorf("%w: stream timestamp outside %s", ErrUnauthorized, maxStreamSkew)
	}
	return a.authenticate(r.Header.Get("Authorization"), []byte(ts))
}

// SignStream sets the handshake headers for a websocket stream signed at t.
func SignStream(h http.Header, secret string, t time.Time) error {
	ts := strconv.FormatInt(t.Unix(), 10)
	sig, err := ComputeSignature([]byte(ts), secret)
	if err != nil {
		return err
	}
	h.Set(StreamTimestampHeader, ts)
	h.Set("Authorization", sig)
	return nil
}
