package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/aussiebroadwan/vault/internal/vault/domain"
	"github.com/aussiebroadwan/vault/internal/vault/store"
	"github.com/aussiebroadwan/vault/pkg/cryptox"
	"github.com/aussiebroadwan/vault/pkg/mailer"
	"github.com/aussiebroadwan/vault/pkg/slogx"
)

const (
	// DefaultResetTTL is how long a reset token stays valid. A new one cannot
	// be requested while the previous one is live.
	DefaultResetTTL = time.Hour

	// ResetRequestedMessage is returned for every accepted reset request,
	// whether or not the account exists.
	ResetRequestedMessage = "If the account exists, a reset code has been sent."

	resetMailKind = "vault.mail.reset"
)

// ResetService issues and redeems single-use reset tokens for the primary
// unlock methods.
type ResetService struct {
	Store  store.Store
	Hasher cryptox.Hasher
	Mailer mailer.Sender
	TTL    time.Duration
	Clock  Clock
}

func (s *ResetService) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return DefaultResetTTL
}

// ResetRequest asks for a reset code for Method.
type ResetRequest struct {
	UserID string
	// AccountEmail is the address the access token vouches for. Codes are
	// mailed nowhere else.
	AccountEmail string
	// Email is the address the caller typed; it must name the account.
	Email  string
	Method domain.Method
}

// RequestReset mails a reset token for req.Method to the account address.
// Unknown users, accounts without an address and a typed address that does
// not match all get the same answer and nothing is issued. A live token
// yields a *CooldownError.
func (s *ResetService) RequestReset(ctx context.Context, req ResetRequest) (string, error) {
	log := slogx.FromContext(ctx)
	userID, method := req.UserID, req.Method

	if !method.IsPrimary() {
		return "", validationError("only password, pin or pattern can be reset")
	}
	typed, err := mail.ParseAddress(req.Email)
	if err != nil {
		return "", validationError("a valid email address is required")
	}
	account, err := mail.ParseAddress(req.AccountEmail)
	if err != nil {
		log.Warn("reset requested without an account email", "user_id", userID)
		return ResetRequestedMessage, nil
	}
	if !strings.EqualFold(typed.Address, account.Address) {
		log.Warn("reset requested for an address that is not the account's", "user_id", userID)
		return ResetRequestedMessage, nil
	}

	var token, hash string
	_, err = mutate(ctx, s.Store, s.Clock, userID, func(cfg *domain.SecurityConfig) error {
		now := s.Clock.now()
		if cfg.Reset.Active(now) {
			return &CooldownError{Remaining: cfg.Reset.ExpiresAt.Sub(now)}
		}

		var err error
		if token == "" {
			if token, err = cryptox.NewResetToken(); err != nil {
				return fmt.Errorf("failed to generate reset token: %w", err)
			}
			if hash, err = cryptox.HashContext(ctx, s.Hasher, token); err != nil {
				return fmt.Errorf("failed to hash reset token: %w", err)
			}
		}
		cfg.Reset = &domain.ResetToken{Hash: hash, Method: method, ExpiresAt: now.Add(s.ttl())}
		return nil
	})
	switch {
	case errors.Is(err, ErrConfigNotFound):
		log.Info("reset requested for unconfigured user", "user_id", userID)
		return ResetRequestedMessage, nil
	case err != nil:
		return "", err
	}

	msg := mailer.Message{
		To:      account.Address,
		Subject: "Your vault reset code",
		Body: fmt.Sprintf(
			"Use this code to reset your %s:\n\n%s\n\nIt expires in %d minutes. If you did not ask for this, ignore this email.\n",
			method, token, int(s.ttl().Minutes()),
		),
		Kind: resetMailKind,
		Data: map[string]string{"method": method.String(), "token": token},
	}
	if err := s.Mailer.Send(ctx, msg); err != nil {
		log.Error("failed to deliver reset token", "user_id", userID, "err", err)
		s.withdraw(ctx, userID, hash)
		return "", fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}

	log.Info("reset token issued", "user_id", userID, "method", method)
	return ResetRequestedMessage, nil
}

// withdraw removes an undelivered token so the user is not stuck in cooldown.
func (s *ResetService) withdraw(ctx context.Context, userID, hash string) {
	_, err := mutate(ctx, s.Store, s.Clock, userID, func(cfg *domain.SecurityConfig) error {
		if cfg.Reset == nil || cfg.Reset.Hash != hash {
			return errNothingToWithdraw
		}
		cfg.Reset = nil
		return nil
	})
	if err != nil && !errors.Is(err, errNothingToWithdraw) {
		slogx.FromContext(ctx).Error("failed to withdraw undelivered reset token", "user_id", userID, "err", err)
	}
}

var errNothingToWithdraw = errors.New("reset token already gone")

// ConsumeReset redeems token, stores newValue as the secret for method and
// makes method the enabled primary method. The token works once.
func (s *ResetService) ConsumeReset(ctx context.Context, userID, token string, method domain.Method, newValue string) error {
	if !method.IsPrimary() {
		return validationError("only password, pin or pattern can be reset")
	}
	if err := validateSecret(method, newValue); err != nil {
		return err
	}
	if token == "" {
		return ErrInvalidOrExpired
	}

	_, err := mutate(ctx, s.Store, s.Clock, userID, func(cfg *domain.SecurityConfig) error {
		r := cfg.Reset
		if !r.Active(s.Clock.now()) || r.Method != method {
			return ErrInvalidOrExpired
		}
		ok, err := cryptox.VerifyContext(ctx, s.Hasher, token, r.Hash)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInvalidOrExpired
		}

		hash, err := cryptox.HashContext(ctx, s.Hasher, newValue)
		if err != nil {
			return err
		}
		if err := enablePrimary(cfg, method, hash); err != nil {
			return err
		}
		cfg.Reset = nil
		return nil
	})
	if errors.Is(err, ErrConfigNotFound) {
		return ErrInvalidOrExpired
	}
	if err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("reset token consumed", "user_id", userID, "method", method)
	return nil
}
