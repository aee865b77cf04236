package passkey

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/vault/internal/vault/domain"
	"github.com/aussiebroadwan/vault/internal/vault/service"
	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/stretchr/testify/require"
)

func newTestCeremony(t *testing.T) *Ceremony {
	t.Helper()
	c, err := NewCeremony(Config{
		RPID:          "vault.example",
		RPDisplayName: "Vault",
		RPOrigins:     []string{"https://vault.example"},
		Timeout:       time.Minute,
	})
	require.NoError(t, err)
	return c
}

const testHandle = "01J9ZK6Q3MXV7R8N2B4C5D6E7F"

func registeredUser() service.CeremonyUser {
	return service.CeremonyUser{
		UserID: "user-1",
		Handle: testHandle,
		Credentials: []domain.BiometricCredential{{
			ID:         []byte("cred-1"),
			PublicKey:  []byte("cose"),
			Transports: []string{"internal", "hybrid"},
			Counter:    4,
			Flags:      domain.CredentialFlags{UserPresent: true, UserVerified: true},
		}},
	}
}

func TestNewCeremonyValidatesConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing rp id", Config{RPDisplayName: "Vault", RPOrigins: []string{"https://vault.example"}}},
		{"missing name", Config{RPID: "vault.example", RPOrigins: []string{"https://vault.example"}}},
		{"missing origins", Config{RPID: "vault.example", RPDisplayName: "Vault"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCeremony(tt.cfg)
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestBeginRegistration_HandleHidesSubject(t *testing.T) {
	c := newTestCeremony(t)
	u := registeredUser()
	u.UserID = "https://idp.example/users/" + strings.Repeat("a", 120)

	start, err := c.BeginRegistration(u)
	require.NoError(t, err)

	var session webauthn.SessionData
	require.NoError(t, json.Unmarshal(start.Session, &session))
	require.Equal(t, []byte(testHandle), session.UserID)
	require.LessOrEqual(t, len(session.UserID), 64)
	require.NotContains(t, string(start.Options), "idp.example")
	require.Contains(t, string(start.Options), base64.RawURLEncoding.EncodeToString([]byte(testHandle)))
}

func TestBeginRegistration(t *testing.T) {
	c := newTestCeremony(t)

	start, err := c.BeginRegistration(registeredUser())
	require.NoError(t, err)
	require.NotEmpty(t, start.Challenge)

	var creation protocol.CredentialCreation
	require.NoError(t, json.Unmarshal(start.Options, &creation))
	opts := creation.Response
	require.Equal(t, "vault.example", opts.RelyingParty.ID)
	require.Equal(t, start.Challenge, opts.Challenge.String())
	require.Len(t, opts.CredentialExcludeList, 1)
	require.Equal(t, []byte("cred-1"), []byte(opts.CredentialExcludeList[0].CredentialID))
	require.NotNil(t, opts.AuthenticatorSelection)
	require.Equal(t, protocol.Platform, opts.AuthenticatorSelection.AuthenticatorAttachment)
	require.Equal(t, protocol.VerificationRequired, opts.AuthenticatorSelection.UserVerification)

	var session webauthn.SessionData
	require.NoError(t, json.Unmarshal(start.Session, &session))
	require.Equal(t, start.Challenge, session.Challenge)
	require.Equal(t, []byte(testHandle), session.UserID)
}

func TestBeginLogin(t *testing.T) {
	c := newTestCeremony(t)

	start, err := c.BeginLogin(registeredUser())
	require.NoError(t, err)

	var assertion protocol.CredentialAssertion
	require.NoError(t, json.Unmarshal(start.Options, &assertion))
	require.Len(t, assertion.Response.AllowedCredentials, 1)
	require.Equal(t, []byte("cred-1"), []byte(assertion.Response.AllowedCredentials[0].CredentialID))
	require.Equal(t, protocol.VerificationRequired, assertion.Response.UserVerification)

	session, err := decodeSession(start.Session)
	require.NoError(t, err)
	require.Equal(t, [][]byte{[]byte("cred-1")}, session.AllowedCredentialIDs)
}

// assertionBody builds a structurally valid, unsigned assertion.
func assertionBody(t *testing.T, credID []byte, challenge string, counter uint32) []byte {
	t.Helper()
	b64 := base64.RawURLEncoding.EncodeToString

	clientData, err := json.Marshal(map[string]string{
		"type":      "webauthn.get",
		"challenge": challenge,
		"origin":    "https://vault.example",
	})
	require.NoError(t, err)

	rpHash := sha256.Sum256([]byte("vault.example"))
	authData := append(rpHash[:], 0x05)
	authData = binary.BigEndian.AppendUint32(authData, counter)

	body, err := json.Marshal(map[string]any{
		"id":    b64(credID),
		"rawId": b64(credID),
		"type":  "public-key",
		"response": map[string]string{
			"clientDataJSON":    b64(clientData),
			"authenticatorData": b64(authData),
			"signature":         b64([]byte("not-a-signature")),
		},
	})
	require.NoError(t, err)
	return body
}

func TestFinishLoginUnknownCredential(t *testing.T) {
	c := newTestCeremony(t)
	u := registeredUser()

	start, err := c.BeginLogin(u)
	require.NoError(t, err)

	_, err = c.FinishLogin(u, start.Session, assertionBody(t, []byte("cred-9"), start.Challenge, 5))
	require.ErrorIs(t, err, service.ErrCredentialNotFound)
}

func TestFinishLoginBadSignature(t *testing.T) {
	c := newTestCeremony(t)
	u := registeredUser()

	start, err := c.BeginLogin(u)
	require.NoError(t, err)

	_, err = c.FinishLogin(u, start.Session, assertionBody(t, []byte("cred-1"), start.Challenge, 5))
	require.Error(t, err)
	require.NotErrorIs(t, err, service.ErrCredentialNotFound)
}

func TestFinishRejectsGarbage(t *testing.T) {
	c := newTestCeremony(t)
	u := registeredUser()

	start, err := c.BeginRegistration(u)
	require.NoError(t, err)

	_, err = c.FinishRegistration(u, start.Session, []byte(`{"id":"x"}`))
	require.Error(t, err)

	_, err = c.FinishRegistration(u, nil, []byte(`{}`))
	require.Error(t, err)

	_, err = c.FinishLogin(u, []byte("{"), assertionBody(t, []byte("cred-1"), "abc", 1))
	require.Error(t, err)
}

func TestCredentialConversion(t *testing.T) {
	in := registeredUser().Credentials[0]
	in.AAGUID = []byte("0123456789abcdef")
	in.AttestationType = "none"
	in.Flags.BackupEligible = true

	lib := toLibrary(in)
	require.Equal(t, in.ID, lib.ID)
	require.Equal(t, uint32(4), lib.Authenticator.SignCount)
	require.True(t, lib.Flags.BackupEligible)
	require.Equal(t, []protocol.AuthenticatorTransport{protocol.Internal, protocol.Hybrid}, lib.Transport)

	out := fromLibrary(&lib)
	require.Equal(t, in.ID, out.ID)
	require.Equal(t, in.PublicKey, out.PublicKey)
	require.Equal(t, in.AAGUID, out.AAGUID)
	require.Equal(t, in.Transports, out.Transports)
	require.Equal(t, in.Flags, out.Flags)
	require.Equal(t, in.Counter, out.Counter)
}
