package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidToken is returned when a download token is malformed or
	// its signature does not verify.
	ErrInvalidToken = errors.New("storage: invalid download token")

	// ErrTokenExpired is returned when a download token is past its expiry.
	ErrTokenExpired = errors.New("storage: download token expired")
)

// SignedURLSigner issues and verifies HMAC-signed download tokens so that
// generated files can be fetched without an authenticated session.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
}

func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl}
}

// Generate returns an opaque token binding the job id and file path until
// the expiry time.
func (s *SignedURLSigner) Generate(jobID, relPath string) (string, time.Time, error) {
	if jobID == "" || relPath == "" {
		return "", time.Time{}, fmt.Errorf("storage: job id and path are required")
	}

	expiresAt := time.Now().Add(s.ttl)
	payload := strings.Join([]string{jobID, relPath, strconv.FormatInt(expiresAt.Unix(), 10)}, "|")
	encoded := base64.RawURLEncoding.EncodeToString([]byte(payload))

	token := encoded + "." + s.sign(encoded)
	return token, expiresAt, nil
}

// Parse verifies a token and returns its claims. Expired tokens are
// rejected unless allowExpired is set, which lets handlers distinguish
// a stale link from a forged one.
func (s *SignedURLSigner) Parse(token string, allowExpired bool) (string, string, time.Time, error) {
	encoded, sig, found := strings.Cut(token, ".")
	if !found || encoded == "" || sig == "" {
		return "", "", time.Time{}, ErrInvalidToken
	}

	if !hmac.Equal([]byte(sig), []byte(s.sign(encoded))) {
		return "", "", time.Time{}, ErrInvalidToken
	}

	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", "", time.Time{}, ErrInvalidToken
	}

	parts := strings.Split(string(raw), "|")
	if len(parts) != 3 {
		return "", "", time.Time{}, ErrInvalidToken
	}

	unix, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return "", "", time.Time{}, ErrInvalidToken
	}
	expiresAt := time.Unix(unix, 0)

	if !allowExpired && time.Now().After(expiresAt) {
		return "", "", time.Time{}, ErrTokenExpired
	}

	return parts[0], parts[1], expiresAt, nil
}

func (s *SignedURLSigner) sign(payload string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
