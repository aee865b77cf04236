package service

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound = errors.New("not found")

	// ErrConfigNotFound means the user has no security config yet.
	ErrConfigNotFound = fmt.Errorf("%w: security config", ErrNotFound)

	// ErrSetupRequired is what Get reports for a user who never configured
	// security. It matches ErrConfigNotFound.
	ErrSetupRequired = fmt.Errorf("%w: security setup required", ErrConfigNotFound)

	ErrCredentialNotFound = fmt.Errorf("%w: biometric credential", ErrNotFound)

	ErrAlreadyExists = errors.New("security config already exists")

	// ErrInvalidCredential is the only rejection callers should surface.
	ErrInvalidCredential   = errors.New("invalid credential")
	ErrMethodNotConfigured = fmt.Errorf("%w: method not configured", ErrInvalidCredential)

	// ErrNotConfigured means biometric is disabled or has no credentials.
	ErrNotConfigured = errors.New("biometric authentication not configured")

	ErrInvalidOrExpired         = errors.New("reset token invalid or expired")
	ErrCooldownActive           = errors.New("reset cooldown active")
	ErrReplayDetected           = errors.New("authenticator counter did not advance")
	ErrChallengeMismatchOrStale = errors.New("challenge missing, mismatched or stale")
	ErrRegistrationFailed       = errors.New("biometric registration failed")
	ErrDeliveryFailed           = errors.New("reset delivery failed")
	ErrValidation               = errors.New("validation failed")
	ErrServiceUnavailable       = errors.New("service unavailable")
	ErrTooManyAttempts          = errors.New("too many failed attempts")
)

// CooldownError carries how long until a new reset may be requested.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%s: retry in %d minute(s)", ErrCooldownActive, e.Minutes())
}

func (e *CooldownError) Is(target error) bool { return target == ErrCooldownActive }

// Minutes rounds the remaining time up to whole minutes.
func (e *CooldownError) Minutes() int {
	m := int(e.Remaining / time.Minute)
	if e.Remaining%time.Minute > 0 {
		m++
	}
	return m
}

func validationError(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
}
