// Package cryptoxtest provides a fast, insecure Hasher for unit tests.
package cryptoxtest

import (
	"crypto/subtle"
	"strings"

	"github.com/aussiebroadwan/vault/pkg/cryptox"
)

const prefix = "stub$"

// Hasher stores secrets reversibly. Never use it outside tests.
type Hasher struct{}

func (Hasher) Hash(secret string) (string, error) {
	if secret == "" {
		return "", cryptox.ErrEmptySecret
	}
	return prefix + secret, nil
}

func (Hasher) Verify(secret, hash string) bool {
	if secret == "" || !strings.HasPrefix(hash, prefix) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(prefix+secret), []byte(hash)) == 1
}
