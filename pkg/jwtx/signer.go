package jwtx

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLength is the shortest HMAC secret accepted (256 bits).
const MinSecretLength = 32

// Signer mints tokens. The vault itself only verifies, signing exists for
// operator tooling and tests.
type Signer interface {
	Sign(Claims) (string, error)
}

// HS256Signer signs with a shared HMAC secret.
type HS256Signer struct {
	secret []byte
}

func NewHS256Signer(secret []byte) (*HS256Signer, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("jwtx: secret must be at least %d bytes", MinSecretLength)
	}
	return &HS256Signer{secret: secret}, nil
}

func (s *HS256Signer) Sign(c Claims) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	out, err := tok.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("jwtx: failed to sign token: %w", err)
	}
	return out, nil
}
