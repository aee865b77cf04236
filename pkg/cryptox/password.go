package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters.
const (
	memory      = 19 * 1024 // Memory usage in KiB (19 MiB)
	iterations  = 2
	parallelism = 1
	keyLength   = 32
	saltLength  = 16
)

var errMalformedPHC = errors.New("cryptox: malformed argon2id hash")

// Argon2Hasher produces PHC-format Argon2id strings:
//
//	$argon2id$v=19$m=<mem>,t=<iters>,p=<par>$<salt>$<hash>
type Argon2Hasher struct {
	Pepper []byte
}

func NewArgon2Hasher(pepper []byte) *Argon2Hasher {
	return &Argon2Hasher{Pepper: pepper}
}

func (h *Argon2Hasher) Hash(secret string) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	sum := argon2.IDKey(h.peppered(secret), salt, iterations, memory, parallelism, keyLength)

	return fmt.Sprintf(
		"$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		memory,
		iterations,
		parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(sum),
	), nil
}

func (h *Argon2Hasher) Verify(secret, encoded string) bool {
	if secret == "" {
		return false
	}
	p, err := parsePHC(encoded)
	if err != nil {
		return false
	}

	computed := argon2.IDKey(
		h.peppered(secret),
		p.salt,
		p.iterations,
		p.memory,
		p.parallelism,
		uint32(len(p.hash)), // #nosec G115 - bounded by decode above
	)
	return subtle.ConstantTimeCompare(computed, p.hash) == 1
}

func (h *Argon2Hasher) Owns(hash string) bool {
	return strings.HasPrefix(hash, "$argon2id$")
}

func (h *Argon2Hasher) peppered(secret string) []byte {
	b := make([]byte, 0, len(secret)+len(h.Pepper))
	b = append(b, secret...)
	return append(b, h.Pepper...)
}

type phcParams struct {
	memory      uint32
	iterations  uint32
	parallelism uint8
	salt        []byte
	hash        []byte
}

// parsePHC splits ["", "argon2id", "v=19", "m=X,t=Y,p=Z", salt, hash].
func parsePHC(encoded string) (phcParams, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" || parts[2] != "v=19" {
		return phcParams{}, errMalformedPHC
	}

	var p phcParams
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.iterations, &p.parallelism); err != nil {
		return phcParams{}, errMalformedPHC
	}
	if p.iterations == 0 || p.parallelism == 0 {
		return phcParams{}, errMalformedPHC
	}

	var err error
	if p.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return phcParams{}, errMalformedPHC
	}
	if p.hash, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil || len(p.hash) == 0 {
		return phcParams{}, errMalformedPHC
	}
	return p, nil
}
