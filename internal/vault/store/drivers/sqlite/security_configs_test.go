package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/vault/internal/vault/domain"
	"github.com/aussiebroadwan/vault/internal/vault/store"
	"github.com/aussiebroadwan/vault/internal/vault/store/drivers/sqlite"
	"github.com/aussiebroadwan/vault/pkg/idx"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) *sqlite.Store {
	t.Helper()
	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func newConfig(userID string, now time.Time) domain.SecurityConfig {
	return domain.SecurityConfig{
		ID:        idx.New().String(),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
}

var baseTime = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

func TestCreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := setupStore(t).SecurityConfigs()

	require.NoError(t, repo.Create(ctx, newConfig("user-1", baseTime)))

	got, err := repo.GetByUserID(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, "user-1", got.UserID)
	require.Equal(t, domain.MethodNone, got.Primary)
	require.Equal(t, int64(1), got.Version)
	require.True(t, got.CreatedAt.Equal(baseTime))
	require.Nil(t, got.Challenge)
	require.Nil(t, got.Reset)
	require.Nil(t, got.LastVerifiedAt)
	require.Empty(t, got.BiometricCredentials)
}

func TestCreateDuplicate(t *testing.T) {
	ctx := context.Background()
	repo := setupStore(t).SecurityConfigs()

	require.NoError(t, repo.Create(ctx, newConfig("user-1", baseTime)))
	err := repo.Create(ctx, newConfig("user-1", baseTime))
	require.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestGetMissing(t *testing.T) {
	_, err := setupStore(t).SecurityConfigs().GetByUserID(context.Background(), "nobody")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdateRoundTripsEveryField(t *testing.T) {
	ctx := context.Background()
	repo := setupStore(t).SecurityConfigs()
	require.NoError(t, repo.Create(ctx, newConfig("user-1", baseTime)))

	cfg, err := repo.GetByUserID(ctx, "user-1")
	require.NoError(t, err)

	verified := baseTime.Add(time.Minute)
	cfg.Primary = domain.MethodPIN
	cfg.PINHash = "pin-hash"
	cfg.PasswordHash = "old-password-hash"
	cfg.BiometricEnabled = true
	cfg.BiometricCredentials = []domain.BiometricCredential{{
		ID:         []byte("cred-1"),
		PublicKey:  []byte("pk"),
		Transports: []string{"internal"},
		Counter:    7,
		Flags:      domain.CredentialFlags{UserPresent: true, UserVerified: true},
		CreatedAt:  baseTime,
	}}
	cfg.Challenge = &domain.Challenge{
		Kind:      domain.ChallengeAuthentication,
		Value:     "nonce",
		Session:   []byte(`{"challenge":"nonce"}`),
		ExpiresAt: baseTime.Add(5 * time.Minute),
	}
	cfg.SecurityQuestions = []domain.SecurityQuestion{
		{Question: "a", AnswerHash: "1"},
		{Question: "b", AnswerHash: "2"},
		{Question: "c", AnswerHash: "3"},
	}
	cfg.SecurityQuestionsUpdatedAt = &verified
	cfg.Reset = &domain.ResetToken{Hash: "reset", Method: domain.MethodPassword, ExpiresAt: baseTime.Add(time.Hour)}
	cfg.LastVerifiedAt = &verified
	cfg.UpdatedAt = verified

	require.NoError(t, repo.Update(ctx, cfg))

	got, err := repo.GetByUserID(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, cfg.Version+1, got.Version)
	require.Equal(t, domain.MethodPIN, got.Primary)
	require.Equal(t, "pin-hash", got.PINHash)
	require.Equal(t, "old-password-hash", got.PasswordHash)
	require.Empty(t, got.PatternHash)
	require.True(t, got.BiometricEnabled)
	require.Len(t, got.BiometricCredentials, 1)
	require.Equal(t, []byte("cred-1"), got.BiometricCredentials[0].ID)
	require.Equal(t, uint32(7), got.BiometricCredentials[0].Counter)
	require.True(t, got.BiometricCredentials[0].Flags.UserVerified)
	require.NotNil(t, got.Challenge)
	require.Equal(t, domain.ChallengeAuthentication, got.Challenge.Kind)
	require.Equal(t, cfg.Challenge.Session, got.Challenge.Session)
	require.True(t, got.Challenge.ExpiresAt.Equal(cfg.Challenge.ExpiresAt))
	require.Len(t, got.SecurityQuestions, 3)
	require.NotNil(t, got.Reset)
	require.Equal(t, domain.MethodPassword, got.Reset.Method)
	require.True(t, got.LastVerifiedAt.Equal(verified))
}

func TestUpdateStaleVersion(t *testing.T) {
	ctx := context.Background()
	repo := setupStore(t).SecurityConfigs()
	require.NoError(t, repo.Create(ctx, newConfig("user-1", baseTime)))

	first, err := repo.GetByUserID(ctx, "user-1")
	require.NoError(t, err)
	second := first

	first.Primary = domain.MethodPassword
	first.PasswordHash = "a"
	require.NoError(t, repo.Update(ctx, first))

	// second still carries the version both copies were read at.
	second.Primary = domain.MethodPIN
	second.PINHash = "b"
	require.ErrorIs(t, repo.Update(ctx, second), store.ErrConflict)

	got, err := repo.GetByUserID(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, domain.MethodPassword, got.Primary)
}

func TestUpdateMissing(t *testing.T) {
	err := setupStore(t).SecurityConfigs().Update(context.Background(), newConfig("ghost", baseTime))
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestTouchVerified(t *testing.T) {
	ctx := context.Background()
	repo := setupStore(t).SecurityConfigs()
	require.NoError(t, repo.Create(ctx, newConfig("user-1", baseTime)))

	at := baseTime.Add(2 * time.Hour)
	require.NoError(t, repo.TouchVerified(ctx, "user-1", at))

	got, err := repo.GetByUserID(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, got.LastVerifiedAt)
	require.True(t, got.LastVerifiedAt.Equal(at))
	require.Equal(t, int64(2), got.Version)

	require.ErrorIs(t, repo.TouchVerified(ctx, "ghost", at), store.ErrNotFound)
}

func TestClearExpired(t *testing.T) {
	ctx := context.Background()
	repo := setupStore(t).SecurityConfigs()

	for _, id := range []string{"expired", "live"} {
		require.NoError(t, repo.Create(ctx, newConfig(id, baseTime)))
	}

	set := func(userID string, expires time.Time) {
		cfg, err := repo.GetByUserID(ctx, userID)
		require.NoError(t, err)
		cfg.Reset = &domain.ResetToken{Hash: "h", Method: domain.MethodPIN, ExpiresAt: expires}
		cfg.Challenge = &domain.Challenge{Kind: domain.ChallengeRegistration, Value: "c", ExpiresAt: expires}
		require.NoError(t, repo.Update(ctx, cfg))
	}
	set("expired", baseTime.Add(-time.Minute))
	set("live", baseTime.Add(time.Hour))

	n, err := repo.ClearExpiredResetTokens(ctx, baseTime)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	n, err = repo.ClearExpiredChallenges(ctx, baseTime)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	expired, err := repo.GetByUserID(ctx, "expired")
	require.NoError(t, err)
	require.Nil(t, expired.Reset)
	require.Nil(t, expired.Challenge)

	live, err := repo.GetByUserID(ctx, "live")
	require.NoError(t, err)
	require.NotNil(t, live.Reset)
	require.NotNil(t, live.Challenge)
}

func TestPing(t *testing.T) {
	require.NoError(t, setupStore(t).Ping(context.Background()))
}
