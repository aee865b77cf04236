package domain

import (
	"bytes"
	"time"
)

// SecurityQuestionCount is the exact number of questions a user must set.
const SecurityQuestionCount = 3

// SecurityConfig is the per-user record of authentication factors.
//
// Primary holds the single enabled unlock method (or MethodNone). Hashes for
// the primary methods are kept after the method is disabled so it can be
// re-enabled without presenting the secret again.
type SecurityConfig struct {
	ID     string
	UserID string

	Primary      Method
	PasswordHash string
	PINHash      string
	PatternHash  string

	BiometricEnabled     bool
	BiometricCredentials []BiometricCredential
	Challenge            *Challenge // in-flight WebAuthn ceremony (nullable)

	SecurityQuestions          []SecurityQuestion
	SecurityQuestionsUpdatedAt *time.Time

	Reset *ResetToken // outstanding reset (nullable)

	LastVerifiedAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time

	// Version increases by one on every write and guards read-modify-write
	// cycles against lost updates.
	Version int64
}

// BiometricCredential is a registered WebAuthn public key credential.
type BiometricCredential struct {
	ID              []byte          `json:"id"`
	PublicKey       []byte          `json:"public_key"`
	AttestationType string          `json:"attestation_type,omitempty"`
	Transports      []string        `json:"transports,omitempty"`
	AAGUID          []byte          `json:"aaguid,omitempty"`
	Counter         uint32          `json:"counter"`
	Flags           CredentialFlags `json:"flags"`
	CreatedAt       time.Time       `json:"created_at"`
	LastUsedAt      *time.Time      `json:"last_used_at,omitempty"`
}

// CredentialFlags mirror the authenticator data flags captured at registration.
type CredentialFlags struct {
	UserPresent    bool `json:"user_present"`
	UserVerified   bool `json:"user_verified"`
	BackupEligible bool `json:"backup_eligible"`
	BackupState    bool `json:"backup_state"`
}

type ChallengeKind string

const (
	ChallengeRegistration   ChallengeKind = "registration"
	ChallengeAuthentication ChallengeKind = "authentication"
)

// Challenge is the single-use nonce of a WebAuthn ceremony. Session carries the
// ceremony state needed to finish it and is opaque to everything but the
// ceremony implementation.
type Challenge struct {
	Kind      ChallengeKind
	Value     string
	Session   []byte
	ExpiresAt time.Time
}

// Expired reports whether the ceremony window has closed at now.
func (c *Challenge) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

type SecurityQuestion struct {
	Question   string `json:"question"`
	AnswerHash string `json:"answer_hash"`
}

// ResetToken is the hashed, single-use token of an in-flight reset.
type ResetToken struct {
	Hash      string
	Method    Method
	ExpiresAt time.Time
}

// Active reports whether the token can still be consumed at now.
func (t *ResetToken) Active(now time.Time) bool {
	return t != nil && now.Before(t.ExpiresAt)
}

// PrimaryEnabled reports whether m is the enabled primary method.
func (c *SecurityConfig) PrimaryEnabled(m Method) bool {
	return m.IsPrimary() && c.Primary == m
}

// HashFor returns the stored hash for a primary method, or "".
func (c *SecurityConfig) HashFor(m Method) string {
	switch m {
	case MethodPassword:
		return c.PasswordHash
	case MethodPIN:
		return c.PINHash
	case MethodPattern:
		return c.PatternHash
	}
	return ""
}

// SetHash replaces the stored hash for a primary method.
func (c *SecurityConfig) SetHash(m Method, hash string) {
	switch m {
	case MethodPassword:
		c.PasswordHash = hash
	case MethodPIN:
		c.PINHash = hash
	case MethodPattern:
		c.PatternHash = hash
	}
}

// DisableBiometric turns biometric off and forgets every registered
// credential together with any ceremony in flight.
func (c *SecurityConfig) DisableBiometric() {
	c.BiometricEnabled = false
	c.BiometricCredentials = nil
	c.Challenge = nil
}

// CredentialIndex returns the position of the credential with the given ID.
func (c *SecurityConfig) CredentialIndex(id []byte) (int, bool) {
	for i := range c.BiometricCredentials {
		if bytes.Equal(c.BiometricCredentials[i].ID, id) {
			return i, true
		}
	}
	return -1, false
}

// RecentlyVerified reports whether the last successful verification happened
// less than window before now.
func (c *SecurityConfig) RecentlyVerified(now time.Time, window time.Duration) bool {
	if c.LastVerifiedAt == nil {
		return false
	}
	return now.Sub(*c.LastVerifiedAt) < window
}
