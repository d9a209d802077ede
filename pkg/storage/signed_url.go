package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Purpose scopes a signed token to one operation.
type Purpose string

const (
	PurposeUpload   Purpose = "upload"
	PurposeDownload Purpose = "download"
)

var (
	// ErrTokenInvalid covers malformed tokens, bad signatures and purpose mismatches.
	ErrTokenInvalid = errors.New("invalid storage token")
	// ErrTokenExpired is returned for well-formed tokens past their expiry.
	ErrTokenExpired = errors.New("storage token expired")
)

// Signer issues and verifies HMAC tokens that stand in for pre-signed URLs.
type Signer struct {
	secret []byte
	ttls   map[Purpose]time.Duration
	now    func() time.Time
}

// NewSigner constructs a signer with per-purpose lifetimes.
func NewSigner(secret string, uploadTTL, downloadTTL time.Duration) *Signer {
	if uploadTTL <= 0 {
		uploadTTL = 15 * time.Minute
	}
	if downloadTTL <= 0 {
		downloadTTL = 30 * time.Minute
	}
	return &Signer{
		secret: []byte(secret),
		ttls:   map[Purpose]time.Duration{PurposeUpload: uploadTTL, PurposeDownload: downloadTTL},
		now:    time.Now,
	}
}

// Sign returns a token granting purpose on storageID until the returned expiry.
func (s *Signer) Sign(purpose Purpose, storageID string) (string, time.Time, error) {
	ttl, ok := s.ttls[purpose]
	if !ok {
		return "", time.Time{}, fmt.Errorf("unknown purpose %q", purpose)
	}
	if storageID == "" {
		return "", time.Time{}, fmt.Errorf("storageID required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(ttl).Truncate(time.Second)
	payload := strings.Join([]string{string(purpose), storageID, strconv.FormatInt(expiresAt.Unix(), 10)}, "|")
	encoded := base64.RawURLEncoding.EncodeToString([]byte(payload))
	return encoded + "." + s.mac(encoded), expiresAt, nil
}

// Verify checks token against purpose and returns the storage ID it grants.
func (s *Signer) Verify(token string, purpose Purpose) (string, time.Time, error) {
	encoded, signature, found := strings.Cut(token, ".")
	if !found || len(s.secret) == 0 {
		return "", time.Time{}, ErrTokenInvalid
	}
	if !hmac.Equal([]byte(s.mac(encoded)), []byte(signature)) {
		return "", time.Time{}, ErrTokenInvalid
	}
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", time.Time{}, ErrTokenInvalid
	}
	parts := strings.Split(string(raw), "|")
	if len(parts) != 3 || Purpose(parts[0]) != purpose {
		return "", time.Time{}, ErrTokenInvalid
	}
	exp, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return "", time.Time{}, ErrTokenInvalid
	}
	expiresAt := time.Unix(exp, 0)
	if s.now().After(expiresAt) {
		return "", time.Time{}, ErrTokenExpired
	}
	return parts[1], expiresAt, nil
}

func (s *Signer) mac(encoded string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(encoded))
	return hex.EncodeToString(mac.Sum(nil))
}
