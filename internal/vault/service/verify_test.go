package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/vault/internal/vault/domain"
	"github.com/aussiebroadwan/vault/pkg/cryptox/cryptoxtest"
	"github.com/stretchr/testify/require"
)

func TestVerifyPINThenPasswordScenario(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.newUser(t, "user-1")

	_, err := e.security.SetMethod(ctx, "user-1", domain.MethodPIN, MethodChange{Enabled: true, Secret: "1234"})
	require.NoError(t, err)

	require.NoError(t, e.verify.Verify(ctx, "user-1", domain.MethodPIN, Presented{Value: "1234"}))
	cfg := e.get(t, "user-1")
	require.NotNil(t, cfg.LastVerifiedAt)
	require.Equal(t, t0, *cfg.LastVerifiedAt)

	fresh, err := e.security.IsRecentlyVerified(ctx, "user-1", 10800*time.Second)
	require.NoError(t, err)
	require.True(t, fresh)

	_, err = e.security.SetMethod(ctx, "user-1", domain.MethodPassword, MethodChange{Enabled: true, Secret: "hunter2"})
	require.NoError(t, err)
	cfg = e.get(t, "user-1")
	require.False(t, cfg.PrimaryEnabled(domain.MethodPIN))
	require.NotEmpty(t, cfg.PINHash)

	// The retained PIN hash still matches but the method is off.
	err = e.verify.Verify(ctx, "user-1", domain.MethodPIN, Presented{Value: "1234"})
	require.ErrorIs(t, err, ErrInvalidCredential)
	require.ErrorIs(t, err, ErrMethodNotConfigured)

	require.NoError(t, e.verify.Verify(ctx, "user-1", domain.MethodPassword, Presented{Value: "hunter2"}))
}

func TestVerifyRejections(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.newUser(t, "user-1")
	_, err := e.security.SetMethod(ctx, "user-1", domain.MethodPattern, MethodChange{Enabled: true, Secret: "0-4-8-5"})
	require.NoError(t, err)

	err = e.verify.Verify(ctx, "user-1", domain.MethodPattern, Presented{Value: "0-4-8-6"})
	require.ErrorIs(t, err, ErrInvalidCredential)

	err = e.verify.Verify(ctx, "user-1", domain.MethodPassword, Presented{Value: "anything"})
	require.ErrorIs(t, err, ErrMethodNotConfigured)

	err = e.verify.Verify(ctx, "user-1", domain.MethodBiometric, Presented{})
	require.ErrorIs(t, err, ErrInvalidCredential)

	err = e.verify.Verify(ctx, "ghost", domain.MethodPIN, Presented{Value: "1234"})
	require.ErrorIs(t, err, ErrConfigNotFound)

	// Failures leave no trace on the config.
	require.Nil(t, e.get(t, "user-1").LastVerifiedAt)
}

func TestVerifySecurityAnswer(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.newUser(t, "user-1")

	err := e.verify.VerifySecurityAnswer(ctx, "user-1", "Pet?", "Rex")
	require.ErrorIs(t, err, ErrMethodNotConfigured)

	require.NoError(t, e.security.SetSecurityQuestions(ctx, "user-1", []QuestionAnswer{
		{"Pet?", "Rex"}, {"Pet?", "Fido"}, {"City?", "Wagga Wagga"},
	}))

	require.NoError(t, e.verify.VerifySecurityAnswer(ctx, "user-1", "Pet?", "fido"))
	require.NoError(t, e.verify.VerifySecurityAnswer(ctx, "user-1", "Pet?", " REX "))
	require.NoError(t, e.verify.VerifySecurityAnswer(ctx, "user-1", "City?", "wagga   wagga"))

	require.ErrorIs(t, e.verify.VerifySecurityAnswer(ctx, "user-1", "Pet?", "Wagga Wagga"), ErrInvalidCredential)
	require.ErrorIs(t, e.verify.VerifySecurityAnswer(ctx, "user-1", "Car?", "Rex"), ErrInvalidCredential)
}

func TestVerifyLockout(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.newUser(t, "user-1")
	_, err := e.security.SetMethod(ctx, "user-1", domain.MethodPIN, MethodChange{Enabled: true, Secret: "4321"})
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		err := e.verify.Verify(ctx, "user-1", domain.MethodPIN, Presented{Value: "0000"})
		require.ErrorIs(t, err, ErrInvalidCredential, "attempt %d", i)
	}

	// A success before the threshold clears the count.
	require.NoError(t, e.verify.Verify(ctx, "user-1", domain.MethodPIN, Presented{Value: "4321"}))
	for i := 0; i < 4; i++ {
		require.ErrorIs(t, e.verify.Verify(ctx, "user-1", domain.MethodPIN, Presented{Value: "0000"}), ErrInvalidCredential)
	}

	err = e.verify.Verify(ctx, "user-1", domain.MethodPIN, Presented{Value: "0000"})
	require.ErrorIs(t, err, ErrTooManyAttempts)

	// Locked out even with the right PIN.
	err = e.verify.Verify(ctx, "user-1", domain.MethodPIN, Presented{Value: "4321"})
	require.ErrorIs(t, err, ErrTooManyAttempts)
}

func TestVerifyLimiterUnavailable(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.newUser(t, "user-1")
	_, err := e.security.SetMethod(ctx, "user-1", domain.MethodPIN, MethodChange{Enabled: true, Secret: "4321"})
	require.NoError(t, err)

	e.limiter.err = errors.New("redis down")

	require.NoError(t, e.verify.Verify(ctx, "user-1", domain.MethodPIN, Presented{Value: "4321"}))
	require.ErrorIs(t, e.verify.Verify(ctx, "user-1", domain.MethodPIN, Presented{Value: "1111"}), ErrInvalidCredential)
}

func TestVerifyBiometric(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.newUser(t, "user-1")

	_, err := e.ceremonies.BeginRegistration(ctx, "user-1")
	require.NoError(t, err)
	require.NoError(t, e.ceremonies.CompleteRegistration(ctx, "user-1", response(t, fakeResponse{ID: "cred-1"})))

	_, err = e.ceremonies.BeginAuthentication(ctx, "user-1")
	require.NoError(t, err)
	err = e.verify.Verify(ctx, "user-1", domain.MethodBiometric, Presented{
		Assertion: response(t, fakeResponse{ID: "cred-1", Counter: 7}),
	})
	require.NoError(t, err)

	cfg := e.get(t, "user-1")
	require.NotNil(t, cfg.LastVerifiedAt)
	require.Equal(t, uint32(7), cfg.BiometricCredentials[0].Counter)
}

func TestVerifyAbandonedRequestIsNotAFailure(t *testing.T) {
	e := newEnv(t)
	e.newUser(t, "user-1")
	_, err := e.security.SetMethod(context.Background(), "user-1", domain.MethodPIN, MethodChange{Enabled: true, Secret: "1234"})
	require.NoError(t, err)
	cfg := e.get(t, "user-1")

	gone, cancel := context.WithCancel(context.Background())
	cancel()

	err = matchPrimary(gone, cryptoxtest.Hasher{}, &cfg, domain.MethodPIN, "1234")
	require.ErrorIs(t, err, ErrServiceUnavailable)
	require.ErrorIs(t, err, context.Canceled)
	require.NoError(t, matchPrimary(context.Background(), cryptoxtest.Hasher{}, &cfg, domain.MethodPIN, "1234"))

	err = e.verify.Verify(gone, "user-1", domain.MethodPIN, Presented{Value: "0000"})
	require.ErrorIs(t, err, ErrServiceUnavailable)
	require.Zero(t, e.limiter.count("user-1"))
}

func TestVerifyConcurrentGuessesStopAtThreshold(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.newUser(t, "user-1")
	_, err := e.security.SetMethod(ctx, "user-1", domain.MethodPIN, MethodChange{Enabled: true, Secret: "4321"})
	require.NoError(t, err)

	const guesses = 12
	var (
		wg   sync.WaitGroup
		errs = make([]error, guesses)
	)
	for i := range guesses {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = e.verify.Verify(ctx, "user-1", domain.MethodPIN, Presented{Value: fmt.Sprintf("%04d", i)})
		}()
	}
	wg.Wait()

	judged := 0
	for _, err := range errs {
		switch {
		case errors.Is(err, ErrInvalidCredential):
			judged++
		default:
			require.ErrorIs(t, err, ErrTooManyAttempts)
		}
	}
	// Threshold 5: four rejections, the fifth locks, the rest never reach the hash.
	require.Equal(t, 4, judged)
	require.Equal(t, guesses, e.limiter.count("user-1"))

	require.ErrorIs(t, e.verify.Verify(ctx, "user-1", domain.MethodPIN, Presented{Value: "4321"}), ErrTooManyAttempts)
}
