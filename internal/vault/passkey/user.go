package passkey

import (
	"github.com/aussiebroadwan/vault/internal/vault/domain"
	"github.com/aussiebroadwan/vault/internal/vault/service"
	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
)

// user adapts a vault user to webauthn.User. The authenticator only ever
// sees the config handle, never the account subject.
type user struct {
	handle string
	creds  []webauthn.Credential
}

func newUser(u service.CeremonyUser) *user {
	creds := make([]webauthn.Credential, 0, len(u.Credentials))
	for _, c := range u.Credentials {
		creds = append(creds, toLibrary(c))
	}
	return &user{handle: u.Handle, creds: creds}
}

func (u *user) WebAuthnID() []byte                         { return []byte(u.handle) }
func (u *user) WebAuthnName() string                       { return u.handle }
func (u *user) WebAuthnDisplayName() string                { return u.handle }
func (u *user) WebAuthnCredentials() []webauthn.Credential { return u.creds }

func toLibrary(c domain.BiometricCredential) webauthn.Credential {
	transports := make([]protocol.AuthenticatorTransport, 0, len(c.Transports))
	for _, t := range c.Transports {
		transports = append(transports, protocol.AuthenticatorTransport(t))
	}
	return webauthn.Credential{
		ID:              c.ID,
		PublicKey:       c.PublicKey,
		AttestationType: c.AttestationType,
		Transport:       transports,
		Flags: webauthn.CredentialFlags{
			UserPresent:    c.Flags.UserPresent,
			UserVerified:   c.Flags.UserVerified,
			BackupEligible: c.Flags.BackupEligible,
			BackupState:    c.Flags.BackupState,
		},
		Authenticator: webauthn.Authenticator{
			AAGUID:    c.AAGUID,
			SignCount: c.Counter,
		},
	}
}

func fromLibrary(c *webauthn.Credential) domain.BiometricCredential {
	transports := make([]string, 0, len(c.Transport))
	for _, t := range c.Transport {
		transports = append(transports, string(t))
	}
	return domain.BiometricCredential{
		ID:              c.ID,
		PublicKey:       c.PublicKey,
		AttestationType: c.AttestationType,
		Transports:      transports,
		AAGUID:          c.Authenticator.AAGUID,
		Counter:         c.Authenticator.SignCount,
		Flags: domain.CredentialFlags{
			UserPresent:    c.Flags.UserPresent,
			UserVerified:   c.Flags.UserVerified,
			BackupEligible: c.Flags.BackupEligible,
			BackupState:    c.Flags.BackupState,
		},
	}
}
