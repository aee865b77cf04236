// Package passkey runs WebAuthn ceremonies for platform authenticators with
// github.com/go-webauthn/webauthn. It holds no state; sessions travel through
// the caller as opaque bytes.
package passkey

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/vault/internal/vault/domain"
	"github.com/aussiebroadwan/vault/internal/vault/service"
	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
)

var ErrInvalidConfig = errors.New("passkey: invalid relying party configuration")

// Config describes the relying party.
type Config struct {
	RPID          string
	RPDisplayName string
	RPOrigins     []string
	Timeout       time.Duration
}

func (c Config) validate() error {
	var missing []string
	if strings.TrimSpace(c.RPID) == "" {
		missing = append(missing, "rp id")
	}
	if strings.TrimSpace(c.RPDisplayName) == "" {
		missing = append(missing, "rp display name")
	}
	if len(c.RPOrigins) == 0 {
		missing = append(missing, "origins")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidConfig, strings.Join(missing, ", "))
	}
	return nil
}

// Ceremony implements service.Ceremony.
type Ceremony struct {
	wa *webauthn.WebAuthn
}

var _ service.Ceremony = (*Ceremony)(nil)

// NewCeremony validates cfg and builds the relying party.
func NewCeremony(cfg Config) (*Ceremony, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = service.DefaultCeremonyTimeout
	}

	timeout := webauthn.TimeoutConfig{Enforce: true, Timeout: cfg.Timeout, TimeoutUVD: cfg.Timeout}
	wa, err := webauthn.New(&webauthn.Config{
		RPID:          cfg.RPID,
		RPDisplayName: cfg.RPDisplayName,
		RPOrigins:     cfg.RPOrigins,
		Timeouts: webauthn.TimeoutsConfig{
			Login:        timeout,
			Registration: timeout,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return &Ceremony{wa: wa}, nil
}

func (c *Ceremony) BeginRegistration(u service.CeremonyUser) (service.CeremonyStart, error) {
	wu := newUser(u)

	exclusions := make([]protocol.CredentialDescriptor, 0, len(wu.creds))
	for _, cred := range wu.creds {
		exclusions = append(exclusions, cred.Descriptor())
	}

	creation, session, err := c.wa.BeginRegistration(wu,
		webauthn.WithExclusions(exclusions),
		webauthn.WithAuthenticatorSelection(protocol.AuthenticatorSelection{
			AuthenticatorAttachment: protocol.Platform,
			ResidentKey:             protocol.ResidentKeyRequirementPreferred,
			UserVerification:        protocol.VerificationRequired,
		}),
	)
	if err != nil {
		return service.CeremonyStart{}, fmt.Errorf("failed to begin registration: %w", err)
	}
	return start(creation, session)
}

func (c *Ceremony) FinishRegistration(u service.CeremonyUser, rawSession, response []byte) (domain.BiometricCredential, error) {
	session, err := decodeSession(rawSession)
	if err != nil {
		return domain.BiometricCredential{}, err
	}

	parsed, err := protocol.ParseCredentialCreationResponseBody(bytes.NewReader(response))
	if err != nil {
		return domain.BiometricCredential{}, fmt.Errorf("failed to parse attestation: %w", err)
	}

	cred, err := c.wa.CreateCredential(newUser(u), session, parsed)
	if err != nil {
		return domain.BiometricCredential{}, fmt.Errorf("failed to verify attestation: %w", err)
	}
	return fromLibrary(cred), nil
}

func (c *Ceremony) BeginLogin(u service.CeremonyUser) (service.CeremonyStart, error) {
	assertion, session, err := c.wa.BeginLogin(newUser(u),
		webauthn.WithUserVerification(protocol.VerificationRequired),
	)
	if err != nil {
		return service.CeremonyStart{}, fmt.Errorf("failed to begin login: %w", err)
	}
	return start(assertion, session)
}

// FinishLogin verifies the assertion. The signature counter is reported, not
// judged.
func (c *Ceremony) FinishLogin(u service.CeremonyUser, rawSession, response []byte) (service.Assertion, error) {
	session, err := decodeSession(rawSession)
	if err != nil {
		return service.Assertion{}, err
	}

	parsed, err := protocol.ParseCredentialRequestResponseBody(bytes.NewReader(response))
	if err != nil {
		return service.Assertion{}, fmt.Errorf("failed to parse assertion: %w", err)
	}

	known := false
	for _, cred := range u.Credentials {
		if bytes.Equal(cred.ID, parsed.RawID) {
			known = true
			break
		}
	}
	if !known {
		return service.Assertion{}, service.ErrCredentialNotFound
	}

	cred, err := c.wa.ValidateLogin(newUser(u), session, parsed)
	if err != nil {
		return service.Assertion{}, fmt.Errorf("failed to verify assertion: %w", err)
	}

	return service.Assertion{
		CredentialID: cred.ID,
		Counter:      parsed.Response.AuthenticatorData.Counter,
	}, nil
}

func start(options any, session *webauthn.SessionData) (service.CeremonyStart, error) {
	opts, err := json.Marshal(options)
	if err != nil {
		return service.CeremonyStart{}, fmt.Errorf("failed to encode options: %w", err)
	}
	raw, err := json.Marshal(session)
	if err != nil {
		return service.CeremonyStart{}, fmt.Errorf("failed to encode session: %w", err)
	}
	return service.CeremonyStart{Options: opts, Challenge: session.Challenge, Session: raw}, nil
}

func decodeSession(raw []byte) (webauthn.SessionData, error) {
	var session webauthn.SessionData
	if len(raw) == 0 {
		return session, errors.New("empty ceremony session")
	}
	if err := json.Unmarshal(raw, &session); err != nil {
		return session, fmt.Errorf("failed to decode session: %w", err)
	}
	return session, nil
}
