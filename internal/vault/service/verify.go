package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/aussiebroadwan/vault/internal/vault/domain"
	"github.com/aussiebroadwan/vault/internal/vault/store"
	"github.com/aussiebroadwan/vault/pkg/cryptox"
	"github.com/aussiebroadwan/vault/pkg/slogx"
)

// Verification states, logged at debug level.
const (
	stateReceived         = "received"
	stateMethodDispatched = "method_dispatched"
	stateMatched          = "matched"
	stateRejected         = "rejected"
	stateError            = "error"
)

// AttemptLimiter locks a user out after repeated failed verifications. An
// attempt is counted before it is checked.
type AttemptLimiter interface {
	// Begin counts an attempt and returns how many more the window allows
	// after it; negative means this one is refused.
	Begin(ctx context.Context, userID string) (remaining int, err error)
	// Refund uncounts an attempt that was never judged.
	Refund(ctx context.Context, userID string) error
	// Reset clears the count after a success.
	Reset(ctx context.Context, userID string) error
}

// VerificationService authenticates a presented credential of any method and
// refreshes the user's verification timestamp on success.
type VerificationService struct {
	Security   *SecurityService
	Ceremonies *CeremonyService
	Limiter    AttemptLimiter // optional
}

// Presented is the credential being checked. Value carries the password, pin
// or pattern, Question/Answer a security answer and Assertion the raw
// WebAuthn assertion JSON.
type Presented struct {
	Value     string
	Question  string
	Answer    string
	Assertion json.RawMessage
}

// Verify checks the presented credential for method.
//
// Any mismatch returns an error matching ErrInvalidCredential, except
// biometric failures which keep their ceremony error (ErrReplayDetected,
// ErrChallengeMismatchOrStale, ...). A user without a config gets
// ErrConfigNotFound. Callers must not reveal which branch failed.
func (s *VerificationService) Verify(ctx context.Context, userID string, method domain.Method, p Presented) error {
	log := slogx.FromContext(ctx).With("user_id", userID, "method", method)
	log.Debug("verification", "state", stateReceived)

	remaining, counted := s.beginAttempt(ctx, userID)
	if counted && remaining < 0 {
		log.Debug("verification", "state", stateRejected, "err", ErrTooManyAttempts)
		return ErrTooManyAttempts
	}

	err := s.dispatch(ctx, userID, method, p)
	switch {
	case err == nil:
		if err := s.Security.TouchVerified(ctx, userID); err != nil {
			log.Debug("verification", "state", stateError, "err", err)
			return err
		}
		s.resetFailures(ctx, userID)
		log.Debug("verification", "state", stateMatched)
		return nil

	case errors.Is(err, ErrServiceUnavailable):
		log.Debug("verification", "state", stateError, "err", err)
		if counted {
			s.refundAttempt(ctx, userID)
		}
		return err

	default:
		log.Debug("verification", "state", stateRejected, "err", err)
		if counted && remaining == 0 {
			log.Warn("user locked out after repeated failures")
			return ErrTooManyAttempts
		}
		return err
	}
}

// VerifySecurityAnswer is Verify for the security-question method.
func (s *VerificationService) VerifySecurityAnswer(ctx context.Context, userID, question, answer string) error {
	return s.Verify(ctx, userID, domain.MethodSecurityQuestion, Presented{Question: question, Answer: answer})
}

func (s *VerificationService) dispatch(ctx context.Context, userID string, method domain.Method, p Presented) error {
	log := slogx.FromContext(ctx)
	log.Debug("verification", "state", stateMethodDispatched, "user_id", userID, "method", method)

	if method == domain.MethodBiometric {
		if len(p.Assertion) == 0 {
			return ErrInvalidCredential
		}
		return s.Ceremonies.CompleteAuthentication(ctx, userID, p.Assertion)
	}

	cfg, err := s.Security.Store.SecurityConfigs().GetByUserID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrConfigNotFound
	}
	if err != nil {
		return unavailable(err)
	}

	switch {
	case method.IsPrimary():
		return matchPrimary(ctx, s.Security.Hasher, &cfg, method, p.Value)
	case method == domain.MethodSecurityQuestion:
		return matchAnswer(ctx, s.Security.Hasher, &cfg, p.Question, p.Answer)
	}
	return ErrInvalidCredential
}

// matchPrimary succeeds only when method is the enabled primary method and
// the hash verifies. A retained hash of a disabled method never matches.
// A caller that gave up before its hash ran is unavailable, not rejected.
func matchPrimary(ctx context.Context, h cryptox.Hasher, cfg *domain.SecurityConfig, method domain.Method, value string) error {
	hash := cfg.HashFor(method)
	if !cfg.PrimaryEnabled(method) || hash == "" {
		return ErrMethodNotConfigured
	}
	ok, err := cryptox.VerifyContext(ctx, h, value, hash)
	if err != nil {
		return unavailable(err)
	}
	if !ok {
		return ErrInvalidCredential
	}
	return nil
}

// matchAnswer accepts the answer if any question with the same text verifies.
func matchAnswer(ctx context.Context, h cryptox.Hasher, cfg *domain.SecurityConfig, question, answer string) error {
	if len(cfg.SecurityQuestions) == 0 {
		return ErrMethodNotConfigured
	}

	question = strings.TrimSpace(question)
	answer = normaliseAnswer(answer)
	for _, q := range cfg.SecurityQuestions {
		if q.Question != question {
			continue
		}
		ok, err := cryptox.VerifyContext(ctx, h, answer, q.AnswerHash)
		if err != nil {
			return unavailable(err)
		}
		if ok {
			return nil
		}
	}
	return ErrInvalidCredential
}

// beginAttempt counts the attempt. counted is false when there is no limiter
// or it is unreachable; verification then fails open.
func (s *VerificationService) beginAttempt(ctx context.Context, userID string) (remaining int, counted bool) {
	if s.Limiter == nil {
		return 0, false
	}
	remaining, err := s.Limiter.Begin(ctx, userID)
	if err != nil {
		slogx.FromContext(ctx).Warn("lockout check unavailable, allowing attempt", "err", err)
		return 0, false
	}
	return remaining, true
}

// refundAttempt runs even when the caller has gone away.
func (s *VerificationService) refundAttempt(ctx context.Context, userID string) {
	if err := s.Limiter.Refund(context.WithoutCancel(ctx), userID); err != nil {
		slogx.FromContext(ctx).Warn("failed to refund verification attempt", "err", err)
	}
}

func (s *VerificationService) resetFailures(ctx context.Context, userID string) {
	if s.Limiter == nil {
		return
	}
	if err := s.Limiter.Reset(ctx, userID); err != nil {
		slogx.FromContext(ctx).Warn("failed to reset verification failures", "err", err)
	}
}
