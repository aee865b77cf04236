package cryptox

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	// MinBcryptCost is the lowest work factor we accept.
	MinBcryptCost = 10
	// DefaultBcryptCost is used when no cost is configured.
	DefaultBcryptCost = 12
)

// BcryptHasher hashes secrets with bcrypt. The secret is first run through
// HMAC-SHA256 keyed with the pepper, which also keeps every input under
// bcrypt's 72 byte limit.
type BcryptHasher struct {
	Cost   int
	Pepper []byte
}

// NewBcryptHasher returns a bcrypt hasher. A zero cost selects DefaultBcryptCost.
func NewBcryptHasher(cost int, pepper []byte) (*BcryptHasher, error) {
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	if cost < MinBcryptCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", cost, MinBcryptCost, bcrypt.MaxCost)
	}
	return &BcryptHasher{Cost: cost, Pepper: pepper}, nil
}

func (h *BcryptHasher) Hash(secret string) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}
	out, err := bcrypt.GenerateFromPassword(h.prehash(secret), h.Cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash secret: %w", err)
	}
	return string(out), nil
}

func (h *BcryptHasher) Verify(secret, hash string) bool {
	if secret == "" || !h.Owns(hash) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), h.prehash(secret)) == nil
}

// Owns reports whether hash looks like a bcrypt modular-crypt string.
func (h *BcryptHasher) Owns(hash string) bool {
	return strings.HasPrefix(hash, "$2a$") ||
		strings.HasPrefix(hash, "$2b$") ||
		strings.HasPrefix(hash, "$2y$")
}

func (h *BcryptHasher) prehash(secret string) []byte {
	mac := hmac.New(sha256.New, h.Pepper)
	mac.Write([]byte(secret))
	sum := mac.Sum(nil)

	out := make([]byte, base64.RawStdEncoding.EncodedLen(len(sum)))
	base64.RawStdEncoding.Encode(out, sum)
	return out
}
