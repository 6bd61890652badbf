package apikey

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
	"time"
)

// Plaintext keys look like "ff_3f9c...": a fixed prefix followed by 64 hex
// characters. Only the SHA-256 digest of the full string is stored; the
// first prefixLen characters are kept for display in key listings.
const (
	keyPrefix    = "ff_"
	keyRandBytes = 32
	prefixLen    = 12
)

// Key is the stored representation of an API key. Secret holds the
// plaintext only on the Create and Rotate responses and is never persisted.
type Key struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Prefix     string     `json:"prefix"`
	Secret     string     `json:"secret,omitempty"`
	Hash       string     `json:"-"`
	LastUsedAt *time.Time `json:"lastUsedAt,omitempty"`
	RevokedAt  *time.Time `json:"revokedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// Revoked reports whether the key has been withdrawn.
func (k Key) Revoked() bool {
	return k.RevokedAt != nil
}

// Generate produces a new plaintext key, its display prefix, and its
// storage hash.
func Generate() (secret, prefix, hash string, err error) {
	buf := make([]byte, keyRandBytes)
	if _, err = rand.Read(buf); err != nil {
		return "", "", "", err
	}
	secret = keyPrefix + hex.EncodeToString(buf)
	return secret, secret[:prefixLen], HashSecret(secret), nil
}

// HashSecret returns the hex SHA-256 digest stored in place of the
// plaintext key.
func HashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// ValidFormat reports whether a presented token is shaped like a key this
// service could have issued. It filters garbage before any store lookup.
func ValidFormat(secret string) bool {
	if !strings.HasPrefix(secret, keyPrefix) {
		return false
	}
	body := strings.TrimPrefix(secret, keyPrefix)
	if len(body) != keyRandBytes*2 {
		return false
	}
	_, err := hex.DecodeString(body)
	return err == nil
}

func hashesEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
