package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"

	"github.com/aussiebroadwan/vault/internal/vault/domain"
	"github.com/aussiebroadwan/vault/internal/vault/store"
	"github.com/aussiebroadwan/vault/pkg/cryptox"
	"github.com/aussiebroadwan/vault/pkg/idx"
	"github.com/aussiebroadwan/vault/pkg/slogx"
)

// DefaultFreshnessWindow is how long a successful verification counts as recent.
const DefaultFreshnessWindow = 3 * time.Hour

const (
	minPINLength     = 4
	maxPINLength     = 12
	minPatternLength = 4
	maxSecretLength  = 1024
)

// SecurityService owns the per-user security config and the exclusivity of
// the primary unlock methods.
type SecurityService struct {
	Store           store.Store
	Hasher          cryptox.Hasher
	FreshnessWindow time.Duration
	Clock           Clock
}

// MethodChange enables or disables a method. Secret is only read when
// enabling a primary method; leave it empty to re-enable a retained hash.
type MethodChange struct {
	Enabled bool
	Secret  string
}

// QuestionAnswer is a plaintext security question and its answer.
type QuestionAnswer struct {
	Question string
	Answer   string
}

// CreateDefault inserts an empty config for userID.
func (s *SecurityService) CreateDefault(ctx context.Context, userID string) (domain.SecurityConfig, error) {
	if strings.TrimSpace(userID) == "" {
		return domain.SecurityConfig{}, validationError("user id is required")
	}

	now := s.Clock.now()
	cfg := domain.SecurityConfig{
		ID:        idx.NewAt(now).String(),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}

	err := s.Store.SecurityConfigs().Create(ctx, cfg)
	if errors.Is(err, store.ErrAlreadyExists) {
		return domain.SecurityConfig{}, ErrAlreadyExists
	}
	if err != nil {
		return domain.SecurityConfig{}, unavailable(err)
	}

	slogx.FromContext(ctx).Info("security config created", "user_id", userID)
	return cfg, nil
}

// Get returns the user's config, or ErrSetupRequired if there is none.
func (s *SecurityService) Get(ctx context.Context, userID string) (domain.SecurityConfig, error) {
	cfg, err := s.Store.SecurityConfigs().GetByUserID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.SecurityConfig{}, ErrSetupRequired
	}
	if err != nil {
		return domain.SecurityConfig{}, unavailable(err)
	}
	return cfg, nil
}

// SetMethod enables or disables a single method.
//
// Enabling password, pin or pattern disables the other two. Disabling one of
// them keeps its hash. Disabling biometric forgets every registered
// credential. Security questions can only be cleared here; use
// SetSecurityQuestions to set them.
func (s *SecurityService) SetMethod(
	ctx context.Context,
	userID string,
	method domain.Method,
	change MethodChange,
) (domain.SecurityConfig, error) {
	var (
		hash string
		err  error
	)
	if method.IsPrimary() && change.Enabled && change.Secret != "" {
		if err := validateSecret(method, change.Secret); err != nil {
			return domain.SecurityConfig{}, err
		}
		if hash, err = cryptox.HashContext(ctx, s.Hasher, change.Secret); err != nil {
			return domain.SecurityConfig{}, err
		}
	}
	if method == domain.MethodSecurityQuestion && change.Enabled {
		return domain.SecurityConfig{}, validationError("security questions are set with their answers")
	}

	cfg, err := mutate(ctx, s.Store, s.Clock, userID, func(cfg *domain.SecurityConfig) error {
		switch {
		case method.IsPrimary() && change.Enabled:
			return enablePrimary(cfg, method, hash)

		case method.IsPrimary():
			if cfg.Primary == method {
				cfg.Primary = domain.MethodNone
			}

		case method == domain.MethodBiometric && change.Enabled:
			cfg.BiometricEnabled = true

		case method == domain.MethodBiometric:
			cfg.DisableBiometric()

		case method == domain.MethodSecurityQuestion:
			cfg.SecurityQuestions = nil
			now := s.Clock.now()
			cfg.SecurityQuestionsUpdatedAt = &now

		default:
			return validationError("unknown method")
		}
		return nil
	})
	if err != nil {
		return domain.SecurityConfig{}, err
	}

	slogx.FromContext(ctx).Info("security method changed",
		"user_id", userID,
		"method", method,
		"enabled", change.Enabled,
	)
	return cfg, nil
}

// enablePrimary makes m the single enabled primary method. An empty hash
// re-enables the retained one.
func enablePrimary(cfg *domain.SecurityConfig, m domain.Method, hash string) error {
	if hash != "" {
		cfg.SetHash(m, hash)
	}
	if cfg.HashFor(m) == "" {
		return validationError("a secret is required to enable " + m.String())
	}
	cfg.Primary = m
	return nil
}

// TouchVerified records a successful verification at the current time.
func (s *SecurityService) TouchVerified(ctx context.Context, userID string) error {
	err := s.Store.SecurityConfigs().TouchVerified(ctx, userID, s.Clock.now())
	if errors.Is(err, store.ErrNotFound) {
		return ErrConfigNotFound
	}
	if err != nil {
		return unavailable(err)
	}
	return nil
}

// IsRecentlyVerified reports whether the user verified less than window ago.
// A zero window uses FreshnessWindow. Users without a config are never fresh.
func (s *SecurityService) IsRecentlyVerified(ctx context.Context, userID string, window time.Duration) (bool, error) {
	if window <= 0 {
		window = s.freshnessWindow()
	}

	cfg, err := s.Store.SecurityConfigs().GetByUserID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, unavailable(err)
	}
	return cfg.RecentlyVerified(s.Clock.now(), window), nil
}

func (s *SecurityService) freshnessWindow() time.Duration {
	if s.FreshnessWindow > 0 {
		return s.FreshnessWindow
	}
	return DefaultFreshnessWindow
}

// SetSecurityQuestions replaces the user's questions. Exactly three are
// required; answers are normalised before hashing.
func (s *SecurityService) SetSecurityQuestions(ctx context.Context, userID string, qas []QuestionAnswer) error {
	if len(qas) != domain.SecurityQuestionCount {
		return validationError("exactly 3 security questions are required")
	}

	questions := make([]domain.SecurityQuestion, 0, len(qas))
	for _, qa := range qas {
		q := strings.TrimSpace(qa.Question)
		a := normaliseAnswer(qa.Answer)
		if q == "" || a == "" {
			return validationError("questions and answers must not be empty")
		}
		hash, err := cryptox.HashContext(ctx, s.Hasher, a)
		if err != nil {
			return err
		}
		questions = append(questions, domain.SecurityQuestion{Question: q, AnswerHash: hash})
	}

	_, err := mutate(ctx, s.Store, s.Clock, userID, func(cfg *domain.SecurityConfig) error {
		now := s.Clock.now()
		cfg.SecurityQuestions = questions
		cfg.SecurityQuestionsUpdatedAt = &now
		return nil
	})
	if err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("security questions updated", "user_id", userID)
	return nil
}

// normaliseAnswer trims and case-folds so "Rex " and "rex" match.
func normaliseAnswer(a string) string {
	return strings.ToLower(strings.Join(strings.Fields(a), " "))
}

func validateSecret(m domain.Method, secret string) error {
	if secret == "" {
		return validationError(m.String() + " must not be empty")
	}
	if len(secret) > maxSecretLength {
		return validationError(m.String() + " is too long")
	}

	switch m {
	case domain.MethodPIN:
		if len(secret) < minPINLength || len(secret) > maxPINLength {
			return validationError("pin must be 4 to 12 digits")
		}
		for _, r := range secret {
			if !unicode.IsDigit(r) || r > unicode.MaxASCII {
				return validationError("pin must contain only digits")
			}
		}
	case domain.MethodPattern:
		if len(secret) < minPatternLength {
			return validationError("pattern must connect at least 4 points")
		}
	}
	return nil
}
