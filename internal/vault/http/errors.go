package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/aussiebroadwan/vault/internal/vault/service"
	"github.com/aussiebroadwan/vault/pkg/httpx"
	"github.com/aussiebroadwan/vault/pkg/slogx"
	"github.com/aussiebroadwan/vault/pkg/vaultsdk"
)

var (
	errInvalidCredential = &httpx.APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        vaultsdk.ErrorCodeInvalidCredential,
		Description: "the presented credential could not be verified",
	}
	errSetupRequired = &httpx.APIError{
		StatusCode:  http.StatusNotFound,
		Code:        vaultsdk.ErrorCodeSetupRequired,
		Description: "security has not been set up for this user",
	}
	errNotFound = &httpx.APIError{
		StatusCode:  http.StatusNotFound,
		Code:        vaultsdk.ErrorCodeNotFound,
		Description: "not found",
	}
	errAlreadyExists = &httpx.APIError{
		StatusCode:  http.StatusConflict,
		Code:        vaultsdk.ErrorCodeAlreadyExists,
		Description: "a security configuration already exists for this user",
	}
	errNotConfigured = &httpx.APIError{
		StatusCode:  http.StatusConflict,
		Code:        vaultsdk.ErrorCodeNotConfigured,
		Description: "biometric authentication is not set up",
	}
	errRegistrationFailed = &httpx.APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        vaultsdk.ErrorCodeRegistrationFailed,
		Description: "the passkey could not be registered, start again",
	}
	errInvalidOrExpired = &httpx.APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        vaultsdk.ErrorCodeInvalidOrExpired,
		Description: "the reset code is invalid or has expired",
	}
	errCooldown = &httpx.APIError{
		StatusCode: http.StatusTooManyRequests,
		Code:       vaultsdk.ErrorCodeCooldownActive,
	}
	errTooManyAttempts = &httpx.APIError{
		StatusCode:  http.StatusTooManyRequests,
		Code:        vaultsdk.ErrorCodeTooManyAttempts,
		Description: "too many failed attempts, try again later",
	}
	errDeliveryFailed = &httpx.APIError{
		StatusCode:  http.StatusBadGateway,
		Code:        vaultsdk.ErrorCodeDeliveryFailed,
		Description: "the reset code could not be sent, try again",
	}
)

// writeError maps a service error to its response.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	log := slogx.FromContext(r.Context())

	var cooldown *service.CooldownError
	switch {
	case errors.As(err, &cooldown):
		w.Header().Set("Retry-After", strconv.Itoa(cooldown.Minutes()*60))
		errCooldown.WithDescription("a reset code was sent recently, retry in " + strconv.Itoa(cooldown.Minutes()) + " minute(s)").Write(w)
	case errors.Is(err, service.ErrValidation):
		httpx.ErrBadRequest.WithDescription(err.Error()).Write(w)
	case errors.Is(err, service.ErrTooManyAttempts):
		errTooManyAttempts.Write(w)
	case errors.Is(err, service.ErrServiceUnavailable):
		log.Error("service unavailable", "err", err)
		httpx.ErrUnavailable.Write(w)
	case errors.Is(err, service.ErrConfigNotFound):
		errSetupRequired.Write(w)
	case errors.Is(err, service.ErrNotFound):
		errNotFound.Write(w)
	case errors.Is(err, service.ErrAlreadyExists):
		errAlreadyExists.Write(w)
	case errors.Is(err, service.ErrNotConfigured):
		errNotConfigured.Write(w)
	case errors.Is(err, service.ErrRegistrationFailed), errors.Is(err, service.ErrChallengeMismatchOrStale):
		errRegistrationFailed.Write(w)
	case errors.Is(err, service.ErrInvalidOrExpired):
		errInvalidOrExpired.Write(w)
	case errors.Is(err, service.ErrDeliveryFailed):
		errDeliveryFailed.Write(w)
	case errors.Is(err, service.ErrInvalidCredential):
		errInvalidCredential.Write(w)
	default:
		log.Error("unhandled service error", "err", err)
		httpx.ErrServerError.Write(w)
	}
}

// writeVerifyError answers a failed verification. Every rejection looks the
// same to the caller whatever the branch that failed.
func writeVerifyError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrTooManyAttempts),
		errors.Is(err, service.ErrServiceUnavailable):
		writeError(w, r, err)
	default:
		errInvalidCredential.Write(w)
	}
}
