package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/vault/internal/vault/domain"
	"github.com/aussiebroadwan/vault/internal/vault/store/drivers/sqlite"
	"github.com/aussiebroadwan/vault/pkg/cryptox/cryptoxtest"
	"github.com/aussiebroadwan/vault/pkg/mailer"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (m *fakeMailer) Send(_ context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *fakeMailer) last(t *testing.T) mailer.Message {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent, "no mail sent")
	return m.sent[len(m.sent)-1]
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// fakeResponse is the JSON the fake ceremony accepts as an attestation or
// assertion.
type fakeResponse struct {
	ID      string `json:"id"`
	Counter uint32 `json:"counter"`
	Bad     bool   `json:"bad"`
}

func response(t *testing.T, r fakeResponse) []byte {
	t.Helper()
	b, err := json.Marshal(r)
	require.NoError(t, err)
	return b
}

var errBadSignature = errors.New("signature did not verify")

// fakeCeremony skips the cryptography but checks that the session handed out
// by Begin* comes back to Finish*.
type fakeCeremony struct {
	mu       sync.Mutex
	n        int
	excluded [][]byte
	handle   string
}

func (f *fakeCeremony) start(prefix string) CeremonyStart {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.n++
	ch := prefix + "-" + string(rune('a'+f.n))
	return CeremonyStart{
		Options:   json.RawMessage(`{"challenge":"` + ch + `"}`),
		Challenge: ch,
		Session:   []byte("session:" + ch),
	}
}

func (f *fakeCeremony) BeginRegistration(user CeremonyUser) (CeremonyStart, error) {
	f.mu.Lock()
	f.excluded = nil
	f.handle = user.Handle
	for _, c := range user.Credentials {
		f.excluded = append(f.excluded, c.ID)
	}
	f.mu.Unlock()
	return f.start("reg"), nil
}

func (f *fakeCeremony) FinishRegistration(_ CeremonyUser, session, raw []byte) (domain.BiometricCredential, error) {
	var r fakeResponse
	if err := json.Unmarshal(raw, &r); err != nil {
		return domain.BiometricCredential{}, err
	}
	if r.Bad || len(session) == 0 {
		return domain.BiometricCredential{}, errBadSignature
	}
	return domain.BiometricCredential{
		ID:         []byte(r.ID),
		PublicKey:  []byte("pk-" + r.ID),
		Counter:    r.Counter,
		Transports: []string{"internal"},
	}, nil
}

func (f *fakeCeremony) BeginLogin(CeremonyUser) (CeremonyStart, error) {
	return f.start("auth"), nil
}

func (f *fakeCeremony) FinishLogin(user CeremonyUser, session, raw []byte) (Assertion, error) {
	var r fakeResponse
	if err := json.Unmarshal(raw, &r); err != nil {
		return Assertion{}, err
	}
	known := false
	for _, c := range user.Credentials {
		if string(c.ID) == r.ID {
			known = true
		}
	}
	if !known {
		return Assertion{}, ErrCredentialNotFound
	}
	if r.Bad || len(session) == 0 {
		return Assertion{}, errBadSignature
	}
	return Assertion{CredentialID: []byte(r.ID), Counter: r.Counter}, nil
}

type fakeLimiter struct {
	mu        sync.Mutex
	threshold int
	attempts  map[string]int
	err       error
}

func newFakeLimiter(threshold int) *fakeLimiter {
	return &fakeLimiter{threshold: threshold, attempts: map[string]int{}}
}

func (l *fakeLimiter) Begin(_ context.Context, userID string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return 0, l.err
	}
	l.attempts[userID]++
	return l.threshold - l.attempts[userID], nil
}

func (l *fakeLimiter) Refund(_ context.Context, userID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	if l.attempts[userID] > 0 {
		l.attempts[userID]--
	}
	return nil
}

func (l *fakeLimiter) Reset(_ context.Context, userID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.attempts, userID)
	return nil
}

func (l *fakeLimiter) count(userID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.attempts[userID]
}

type env struct {
	store      *sqlite.Store
	clock      *fakeClock
	mail       *fakeMailer
	ceremony   *fakeCeremony
	limiter    *fakeLimiter
	security   *SecurityService
	ceremonies *CeremonyService
	verify     *VerificationService
	reset      *ResetService
}

func newEnv(t *testing.T) *env {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	e := &env{
		store:    st,
		clock:    &fakeClock{now: t0},
		mail:     &fakeMailer{},
		ceremony: &fakeCeremony{},
		limiter:  newFakeLimiter(5),
	}
	clock := Clock(e.clock.Now)
	hasher := cryptoxtest.Hasher{}

	e.security = &SecurityService{Store: st, Hasher: hasher, Clock: clock}
	e.ceremonies = &CeremonyService{Store: st, Ceremony: e.ceremony, Clock: clock}
	e.verify = &VerificationService{Security: e.security, Ceremonies: e.ceremonies, Limiter: e.limiter}
	e.reset = &ResetService{Store: st, Hasher: hasher, Mailer: e.mail, Clock: clock}
	return e
}

// newUser creates a config for userID and returns it.
func (e *env) newUser(t *testing.T, userID string) domain.SecurityConfig {
	t.Helper()
	cfg, err := e.security.CreateDefault(context.Background(), userID)
	require.NoError(t, err)
	return cfg
}

func (e *env) get(t *testing.T, userID string) domain.SecurityConfig {
	t.Helper()
	cfg, err := e.security.Get(context.Background(), userID)
	require.NoError(t, err)
	return cfg
}

func enabledPrimaries(cfg domain.SecurityConfig) int {
	n := 0
	for _, m := range domain.PrimaryMethods {
		if cfg.PrimaryEnabled(m) {
			n++
		}
	}
	return n
}
