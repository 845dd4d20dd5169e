package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"time"
)

// refreshEntropy is the number of random bytes behind a refresh token.
const refreshEntropy = 32

// Refresh is a freshly minted refresh token. Raw goes back to the client
// exactly once; only Hash is ever written to storage.
type Refresh struct {
	Raw       string
	Hash      string
	ExpiresAt time.Time
}

// NewRefresh generates an opaque URL-safe refresh token expiring at now+ttl.
func NewRefresh(ttl time.Duration, now time.Time) (Refresh, error) {
	buf := make([]byte, refreshEntropy)
	if _, err := rand.Read(buf); err != nil {
		return Refresh{}, err
	}
	raw := base64.RawURLEncoding.EncodeToString(buf)
	return Refresh{
		Raw:       raw,
		Hash:      HashRefreshRaw(raw),
		ExpiresAt: now.Add(ttl).UTC(),
	}, nil
}

// HashRefreshRaw returns the SHA-256 hex digest of a raw refresh token.
// Storing only the hash keeps a leaked database from minting sessions.
func HashRefreshRaw(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
