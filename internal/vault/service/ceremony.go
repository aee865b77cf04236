package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/vault/internal/vault/domain"
	"github.com/aussiebroadwan/vault/internal/vault/store"
	"github.com/aussiebroadwan/vault/pkg/slogx"
)

// DefaultCeremonyTimeout bounds how long a begun ceremony can be completed.
const DefaultCeremonyTimeout = 5 * time.Minute

// CeremonyUser is the WebAuthn view of a vault user.
type CeremonyUser struct {
	UserID string
	// Handle is the opaque WebAuthn user handle, the config ID. It stays
	// under the 64-byte limit whatever the subject looks like.
	Handle      string
	Credentials []domain.BiometricCredential
}

// CeremonyStart is the outcome of beginning a ceremony.
type CeremonyStart struct {
	// Options are sent to the browser as-is.
	Options json.RawMessage
	// Challenge is the nonce embedded in Options.
	Challenge string
	// Session is whatever the ceremony needs back to finish.
	Session []byte
}

// Assertion is a verified authentication response.
type Assertion struct {
	CredentialID []byte
	Counter      uint32
}

// Ceremony performs the WebAuthn cryptography. It never touches storage.
//
// FinishLogin returns ErrCredentialNotFound for a credential that is not one
// of user.Credentials. It does not judge the signature counter.
type Ceremony interface {
	BeginRegistration(user CeremonyUser) (CeremonyStart, error)
	FinishRegistration(user CeremonyUser, session, response []byte) (domain.BiometricCredential, error)
	BeginLogin(user CeremonyUser) (CeremonyStart, error)
	FinishLogin(user CeremonyUser, session, response []byte) (Assertion, error)
}

// CeremonyService coordinates WebAuthn registration and authentication using
// the single challenge slot of the user's config. Beginning a ceremony
// replaces any unfinished one; finishing always clears the slot.
type CeremonyService struct {
	Store    store.Store
	Ceremony Ceremony
	Timeout  time.Duration
	Clock    Clock
}

func (s *CeremonyService) timeout() time.Duration {
	if s.Timeout > 0 {
		return s.Timeout
	}
	return DefaultCeremonyTimeout
}

func ceremonyUser(cfg *domain.SecurityConfig) CeremonyUser {
	return CeremonyUser{UserID: cfg.UserID, Handle: cfg.ID, Credentials: cfg.BiometricCredentials}
}

// BeginRegistration returns creation options that exclude the user's existing
// credentials.
func (s *CeremonyService) BeginRegistration(ctx context.Context, userID string) (json.RawMessage, error) {
	var options json.RawMessage
	_, err := mutate(ctx, s.Store, s.Clock, userID, func(cfg *domain.SecurityConfig) error {
		start, err := s.Ceremony.BeginRegistration(ceremonyUser(cfg))
		if err != nil {
			return fmt.Errorf("failed to begin registration: %w", err)
		}
		cfg.Challenge = s.challenge(domain.ChallengeRegistration, start)
		options = start.Options
		return nil
	})
	if err != nil {
		return nil, err
	}

	slogx.FromContext(ctx).Debug("webauthn registration begun", "user_id", userID)
	return options, nil
}

// CompleteRegistration verifies an attestation against the pending challenge
// and stores the new credential.
func (s *CeremonyService) CompleteRegistration(ctx context.Context, userID string, response []byte) error {
	log := slogx.FromContext(ctx)

	_, err := mutate(ctx, s.Store, s.Clock, userID, func(cfg *domain.SecurityConfig) error {
		ch, err := s.takeChallenge(cfg, domain.ChallengeRegistration)
		if err != nil {
			return err
		}

		cred, err := s.Ceremony.FinishRegistration(ceremonyUser(cfg), ch.Session, response)
		if err != nil {
			return persistAnyway(fmt.Errorf("%w: %w", ErrRegistrationFailed, err))
		}
		if _, dup := cfg.CredentialIndex(cred.ID); dup {
			return persistAnyway(fmt.Errorf("%w: credential already registered", ErrRegistrationFailed))
		}

		cred.Counter = 0
		cred.CreatedAt = s.Clock.now()
		cfg.BiometricCredentials = append(cfg.BiometricCredentials, cred)
		cfg.BiometricEnabled = true
		return nil
	})
	if err != nil {
		log.Warn("webauthn registration rejected", "user_id", userID, "err", err)
		return err
	}

	log.Info("webauthn credential registered", "user_id", userID)
	return nil
}

// BeginAuthentication returns request options listing the user's credentials.
func (s *CeremonyService) BeginAuthentication(ctx context.Context, userID string) (json.RawMessage, error) {
	var options json.RawMessage
	_, err := mutate(ctx, s.Store, s.Clock, userID, func(cfg *domain.SecurityConfig) error {
		if !cfg.BiometricEnabled || len(cfg.BiometricCredentials) == 0 {
			return ErrNotConfigured
		}
		start, err := s.Ceremony.BeginLogin(ceremonyUser(cfg))
		if err != nil {
			return fmt.Errorf("failed to begin authentication: %w", err)
		}
		cfg.Challenge = s.challenge(domain.ChallengeAuthentication, start)
		options = start.Options
		return nil
	})
	if err != nil {
		return nil, err
	}

	slogx.FromContext(ctx).Debug("webauthn authentication begun", "user_id", userID)
	return options, nil
}

// CompleteAuthentication verifies an assertion and advances the credential's
// signature counter. The counter must strictly increase.
func (s *CeremonyService) CompleteAuthentication(ctx context.Context, userID string, response []byte) error {
	_, err := mutate(ctx, s.Store, s.Clock, userID, func(cfg *domain.SecurityConfig) error {
		ch, err := s.takeChallenge(cfg, domain.ChallengeAuthentication)
		if err != nil {
			return err
		}

		assertion, err := s.Ceremony.FinishLogin(ceremonyUser(cfg), ch.Session, response)
		if errors.Is(err, ErrCredentialNotFound) {
			return persistAnyway(err)
		}
		if err != nil {
			return persistAnyway(fmt.Errorf("%w: %w", ErrChallengeMismatchOrStale, err))
		}

		i, ok := cfg.CredentialIndex(assertion.CredentialID)
		if !ok {
			return persistAnyway(ErrCredentialNotFound)
		}
		cred := &cfg.BiometricCredentials[i]
		if assertion.Counter <= cred.Counter {
			return persistAnyway(ErrReplayDetected)
		}

		now := s.Clock.now()
		cred.Counter = assertion.Counter
		cred.LastUsedAt = &now
		return nil
	})
	if err != nil {
		level := slogx.FromContext(ctx).Warn
		if errors.Is(err, ErrServiceUnavailable) {
			level = slogx.FromContext(ctx).Error
		}
		level("webauthn authentication rejected", "user_id", userID, "err", err)
	}
	return err
}

func (s *CeremonyService) challenge(kind domain.ChallengeKind, start CeremonyStart) *domain.Challenge {
	return &domain.Challenge{
		Kind:      kind,
		Value:     start.Challenge,
		Session:   start.Session,
		ExpiresAt: s.Clock.now().Add(s.timeout()),
	}
}

// takeChallenge consumes the pending challenge. A missing one aborts without
// a write; a wrong-kind or expired one is cleared and rejected.
func (s *CeremonyService) takeChallenge(cfg *domain.SecurityConfig, kind domain.ChallengeKind) (*domain.Challenge, error) {
	ch := cfg.Challenge
	if ch == nil {
		return nil, ErrChallengeMismatchOrStale
	}
	cfg.Challenge = nil

	if ch.Kind != kind || ch.Expired(s.Clock.now()) {
		return nil, persistAnyway(ErrChallengeMismatchOrStale)
	}
	return ch, nil
}
