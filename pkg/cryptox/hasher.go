package cryptox

import (
	"errors"
	"fmt"
	"strings"
)

// Supported hashing algorithms for NewHasher.
const (
	AlgorithmBcrypt   = "bcrypt"
	AlgorithmArgon2id = "argon2id"
)

// ErrEmptySecret is returned when asked to hash an empty secret.
var ErrEmptySecret = errors.New("cryptox: empty secret")

// Hasher is a slow, salted one-way hash for user secrets (passwords, PINs,
// patterns, security answers, reset tokens).
//
// Verify never fails loudly: an empty secret or a malformed hash is simply
// not a match.
type Hasher interface {
	Hash(secret string) (string, error)
	Verify(secret, hash string) bool
}

// Scheme is a Hasher that can recognise its own encoded hashes.
type Scheme interface {
	Hasher
	Owns(hash string) bool
}

// MultiHasher hashes new secrets with Primary and verifies stored hashes with
// whichever scheme produced them, so switching algorithms does not strand
// existing credentials.
type MultiHasher struct {
	Primary   Scheme
	Fallbacks []Scheme
}

// NewHasher builds the production hasher for the configured algorithm. The
// other algorithm stays available for verification.
func NewHasher(algorithm string, bcryptCost int, pepper []byte) (*MultiHasher, error) {
	bc, err := NewBcryptHasher(bcryptCost, pepper)
	if err != nil {
		return nil, err
	}
	ar := NewArgon2Hasher(pepper)

	switch strings.ToLower(algorithm) {
	case "", AlgorithmBcrypt:
		return &MultiHasher{Primary: bc, Fallbacks: []Scheme{ar}}, nil
	case AlgorithmArgon2id:
		return &MultiHasher{Primary: ar, Fallbacks: []Scheme{bc}}, nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm %q", algorithm)
	}
}

func (m *MultiHasher) Hash(secret string) (string, error) {
	return m.Primary.Hash(secret)
}

func (m *MultiHasher) Verify(secret, hash string) bool {
	if m.Primary.Owns(hash) {
		return m.Primary.Verify(secret, hash)
	}
	for _, s := range m.Fallbacks {
		if s.Owns(hash) {
			return s.Verify(secret, hash)
		}
	}
	return false
}
