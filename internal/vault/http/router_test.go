package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aussiebroadwan/vault/internal/vault/domain"
	"github.com/aussiebroadwan/vault/internal/vault/service"
	"github.com/aussiebroadwan/vault/internal/vault/store/drivers/sqlite"
	"github.com/aussiebroadwan/vault/pkg/cryptox/cryptoxtest"
	"github.com/aussiebroadwan/vault/pkg/jwtx"
	"github.com/aussiebroadwan/vault/pkg/mailer"
	"github.com/aussiebroadwan/vault/pkg/vaultsdk"
	"github.com/stretchr/testify/require"
)

const (
	testSecret = "0123456789abcdef0123456789abcdef"
	testIssuer = "vault-test"
)

type stubMailer struct {
	sent []mailer.Message
}

func (m *stubMailer) Send(_ context.Context, msg mailer.Message) error {
	m.sent = append(m.sent, msg)
	return nil
}

func (m *stubMailer) Check(context.Context) error { return nil }

// stubCeremony hands out fixed options and rejects every response.
type stubCeremony struct{}

func (stubCeremony) BeginRegistration(service.CeremonyUser) (service.CeremonyStart, error) {
	return service.CeremonyStart{
		Options:   json.RawMessage(`{"publicKey":{"challenge":"reg"}}`),
		Challenge: "reg",
		Session:   []byte("reg"),
	}, nil
}

func (stubCeremony) FinishRegistration(service.CeremonyUser, []byte, []byte) (domain.BiometricCredential, error) {
	return domain.BiometricCredential{}, errors.New("attestation rejected")
}

func (stubCeremony) BeginLogin(service.CeremonyUser) (service.CeremonyStart, error) {
	return service.CeremonyStart{Options: json.RawMessage(`{}`), Challenge: "auth", Session: []byte("auth")}, nil
}

func (stubCeremony) FinishLogin(service.CeremonyUser, []byte, []byte) (service.Assertion, error) {
	return service.Assertion{}, service.ErrCredentialNotFound
}

type downPinger struct{}

func (downPinger) Ping(context.Context) error { return errors.New("connection refused") }

type testServer struct {
	router *Router
	signer *jwtx.HS256Signer
	mail   *stubMailer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	signer, err := jwtx.NewHS256Signer([]byte(testSecret))
	require.NoError(t, err)
	verifier, err := jwtx.NewHS256Verifier([]byte(testSecret), testIssuer, time.Minute)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mail := &stubMailer{}
	hasher := cryptoxtest.Hasher{}

	security := &service.SecurityService{Store: st, Hasher: hasher}
	ceremonies := &service.CeremonyService{Store: st, Ceremony: stubCeremony{}}

	r := NewRouter(verifier, "test", st, logger, nil)
	r.MailChecker = mail
	r.SecurityService = security
	r.CeremonyService = ceremonies
	r.VerificationService = &service.VerificationService{Security: security, Ceremonies: ceremonies}
	r.ResetService = &service.ResetService{Store: st, Hasher: hasher, Mailer: mail}
	r.ApplyRoutes()

	return &testServer{router: r, signer: signer, mail: mail}
}

func (s *testServer) token(t *testing.T, subject, role string) string {
	t.Helper()
	claims := jwtx.NewAccessClaims(subject, role, testIssuer, time.Minute, time.Now()).WithEmail(subject + "@example.com")
	tok, err := s.signer.Sign(claims)
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body vaultsdk.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestRouter_RequiresToken(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/v1/security/config", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, vaultsdk.ErrorCodeInvalidToken, errorCode(t, rec))

	rec = s.do(t, http.MethodGet, "/v1/security/config", "not-a-jwt", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_ConfigLifecycle(t *testing.T) {
	s := newTestServer(t)
	tok := s.token(t, "user-1", "")

	rec := s.do(t, http.MethodGet, "/v1/security/config", tok, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, vaultsdk.ErrorCodeSetupRequired, errorCode(t, rec))

	rec = s.do(t, http.MethodPost, "/v1/security/config", tok, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/security/config", tok, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, vaultsdk.ErrorCodeAlreadyExists, errorCode(t, rec))

	rec = s.do(t, http.MethodPut, "/v1/security/methods/pin", tok, vaultsdk.SetMethodRequest{Enabled: true, Secret: "1234"})
	require.Equal(t, http.StatusOK, rec.Code)

	var view vaultsdk.SecurityConfigView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.Equal(t, "user-1", view.UserID)
	require.True(t, view.PINEnabled)
	require.True(t, view.HasPIN)
	require.False(t, view.PasswordEnabled)
	require.Equal(t, "pin", view.PrimaryMethod)
	require.NotContains(t, rec.Body.String(), "stub$", "hashes must never leave the service")
}

func TestRouter_SetMethodValidation(t *testing.T) {
	s := newTestServer(t)
	tok := s.token(t, "user-1", "")
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/v1/security/config", tok, nil).Code)

	rec := s.do(t, http.MethodPut, "/v1/security/methods/fingerprint", tok, vaultsdk.SetMethodRequest{Enabled: true})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPut, "/v1/security/methods/pin", tok, vaultsdk.SetMethodRequest{Enabled: true, Secret: "12"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, vaultsdk.ErrorCodeInvalidRequest, errorCode(t, rec))
}

func TestRouter_VerifyRejectionsLookAlike(t *testing.T) {
	s := newTestServer(t)
	tok := s.token(t, "user-1", "")
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/v1/security/config", tok, nil).Code)
	require.Equal(t, http.StatusOK,
		s.do(t, http.MethodPut, "/v1/security/methods/password", tok, vaultsdk.SetMethodRequest{Enabled: true, Secret: "hunter22"}).Code)

	wrong := s.do(t, http.MethodPost, "/v1/security/verify", tok, vaultsdk.VerifyRequest{Method: "password", Value: "nope"})
	disabled := s.do(t, http.MethodPost, "/v1/security/verify", tok, vaultsdk.VerifyRequest{Method: "pin", Value: "1234"})

	require.Equal(t, http.StatusUnauthorized, wrong.Code)
	require.Equal(t, wrong.Code, disabled.Code)
	require.JSONEq(t, wrong.Body.String(), disabled.Body.String())

	rec := s.do(t, http.MethodPost, "/v1/security/verify", tok, vaultsdk.VerifyRequest{Method: "password", Value: "hunter22"})
	require.Equal(t, http.StatusOK, rec.Code)
	var ok vaultsdk.VerifyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ok))
	require.True(t, ok.Verified)

	rec = s.do(t, http.MethodGet, "/v1/security/freshness", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var fresh vaultsdk.FreshnessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fresh))
	require.True(t, fresh.RecentlyVerified)
	require.Equal(t, int64(service.DefaultFreshnessWindow/time.Second), fresh.WindowSeconds)
}

func TestRouter_VerifyWithoutConfigIsGeneric(t *testing.T) {
	s := newTestServer(t)
	tok := s.token(t, "nobody", "")

	rec := s.do(t, http.MethodPost, "/v1/security/verify", tok, vaultsdk.VerifyRequest{Method: "password", Value: "x"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, vaultsdk.ErrorCodeInvalidCredential, errorCode(t, rec))

	rec = s.do(t, http.MethodPost, "/v1/security/verify", tok, vaultsdk.VerifyRequest{Method: "none"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_ResetCooldown(t *testing.T) {
	s := newTestServer(t)
	tok := s.token(t, "user-1", "")
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/v1/security/config", tok, nil).Code)

	req := vaultsdk.ResetRequest{Email: "user-1@example.com", Method: "password"}

	rec := s.do(t, http.MethodPost, "/v1/security/reset/request", tok, req)
	require.Equal(t, http.StatusAccepted, rec.Code)
	var msg vaultsdk.MessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msg))
	require.Equal(t, service.ResetRequestedMessage, msg.Message)
	require.Len(t, s.mail.sent, 1)
	require.Equal(t, "user-1@example.com", s.mail.sent[0].To)

	rec = s.do(t, http.MethodPost, "/v1/security/reset/request", tok, req)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, vaultsdk.ErrorCodeCooldownActive, errorCode(t, rec))
	require.Equal(t, "3600", rec.Header().Get("Retry-After"))
	require.Len(t, s.mail.sent, 1)

	token := s.mail.sent[0].Data["token"]
	require.NotEmpty(t, token)

	rec = s.do(t, http.MethodPost, "/v1/security/reset/consume", tok,
		vaultsdk.ResetConsumeRequest{Token: token, Method: "password", NewValue: "correct horse"})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/security/reset/consume", tok,
		vaultsdk.ResetConsumeRequest{Token: token, Method: "password", NewValue: "correct horse"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, vaultsdk.ErrorCodeInvalidOrExpired, errorCode(t, rec))
}

func TestRouter_ResetUnknownUserLooksAccepted(t *testing.T) {
	s := newTestServer(t)
	tok := s.token(t, "ghost", "")

	rec := s.do(t, http.MethodPost, "/v1/security/reset/request", tok,
		vaultsdk.ResetRequest{Email: "ghost@example.com", Method: "pin"})
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Empty(t, s.mail.sent)
}

func TestRouter_ResetIgnoresForeignAddress(t *testing.T) {
	s := newTestServer(t)
	tok := s.token(t, "user-1", "")
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/v1/security/config", tok, nil).Code)

	rec := s.do(t, http.MethodPost, "/v1/security/reset/request", tok,
		vaultsdk.ResetRequest{Email: "someone-else@example.net", Method: "password"})
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Empty(t, s.mail.sent)

	// No token was stored, so no cooldown either.
	rec = s.do(t, http.MethodPost, "/v1/security/reset/request", tok,
		vaultsdk.ResetRequest{Email: "user-1@example.com", Method: "password"})
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, s.mail.sent, 1)
	require.Equal(t, "user-1@example.com", s.mail.sent[0].To)
}

func TestRouter_WebAuthn(t *testing.T) {
	s := newTestServer(t)
	tok := s.token(t, "user-1", "")
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/v1/security/config", tok, nil).Code)

	rec := s.do(t, http.MethodPost, "/v1/security/webauthn/authenticate/begin", tok, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, vaultsdk.ErrorCodeNotConfigured, errorCode(t, rec))

	rec = s.do(t, http.MethodPost, "/v1/security/webauthn/register/begin", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"challenge":"reg"`)

	rec = s.do(t, http.MethodPost, "/v1/security/webauthn/register/finish", tok, map[string]string{"id": "x"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, vaultsdk.ErrorCodeRegistrationFailed, errorCode(t, rec))

	// The failed attempt spent the challenge.
	rec = s.do(t, http.MethodPost, "/v1/security/webauthn/register/finish", tok, map[string]string{"id": "x"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_AdminRequiresRole(t *testing.T) {
	s := newTestServer(t)
	owner := s.token(t, "user-1", "")
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/v1/security/config", owner, nil).Code)

	rec := s.do(t, http.MethodGet, "/v1/admin/security/user-1", owner, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, vaultsdk.ErrorCodeInsufficientRole, errorCode(t, rec))

	operator := s.token(t, "ops", "readonly")
	rec = s.do(t, http.MethodGet, "/v1/admin/security/user-1", operator, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/v1/admin/security/user-2", operator, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_Health(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/livez", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var live vaultsdk.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &live))
	require.Equal(t, "ok", live.Status)
	require.Equal(t, "test", live.Version)
	require.Nil(t, live.Checks)

	s.router.Lockout = downPinger{}
	s.router.Mux = http.NewServeMux()
	s.router.ApplyRoutes()

	rec = s.do(t, http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, "a lockout outage does not take the service out of rotation")
	var ready vaultsdk.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ready))
	require.Equal(t, "ok", ready.Status)
	require.NotNil(t, ready.Checks)
	require.Equal(t, "ok", ready.Checks.Database)
	require.Contains(t, ready.Checks.Lockout, "connection refused")
}
