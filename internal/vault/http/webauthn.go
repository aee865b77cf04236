package http

import (
	"net/http"

	"github.com/aussiebroadwan/vault/internal/vault/domain"
	"github.com/aussiebroadwan/vault/internal/vault/service"
	"github.com/aussiebroadwan/vault/pkg/httpx"
	"github.com/aussiebroadwan/vault/pkg/vaultsdk"
)

// WebAuthnHandler serves passkey registration and authentication.
type WebAuthnHandler struct {
	CeremonyService     *service.CeremonyService
	VerificationService *service.VerificationService
}

// HandleBeginRegistration handles POST /v1/security/webauthn/register/begin
//
//	@Summary		Begin passkey registration
//	@Description	Returns PublicKeyCredentialCreationOptions for a platform authenticator. Replaces any unfinished ceremony.
//	@Tags			WebAuthn
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	vaultsdk.CeremonyOptions	"Creation options"
//	@Failure		401	{object}	vaultsdk.ErrorResponse		"Invalid or missing access token"
//	@Failure		404	{object}	vaultsdk.ErrorResponse		"Security has not been set up"
//	@Router			/v1/security/webauthn/register/begin [post].
func (h *WebAuthnHandler) HandleBeginRegistration(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	options, err := h.CeremonyService.BeginRegistration(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, vaultsdk.CeremonyOptions{Options: options})
}

// HandleFinishRegistration handles POST /v1/security/webauthn/register/finish
//
//	@Summary		Finish passkey registration
//	@Description	Verifies the attestation against the pending challenge and stores the passkey. The challenge is spent either way.
//	@Tags			WebAuthn
//	@Security		BearerAuth
//	@Accept			json
//	@Success		204	"Passkey registered"
//	@Failure		400	{object}	vaultsdk.ErrorResponse	"Attestation rejected or no pending challenge"
//	@Failure		401	{object}	vaultsdk.ErrorResponse	"Invalid or missing access token"
//	@Router			/v1/security/webauthn/register/finish [post].
func (h *WebAuthnHandler) HandleFinishRegistration(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	raw, ok := readBody(w, r)
	if !ok {
		return
	}

	if err := h.CeremonyService.CompleteRegistration(r.Context(), userID, raw); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}

// HandleBeginAuthentication handles POST /v1/security/webauthn/authenticate/begin
//
//	@Summary		Begin passkey authentication
//	@Description	Returns PublicKeyCredentialRequestOptions listing the user's passkeys.
//	@Tags			WebAuthn
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	vaultsdk.CeremonyOptions	"Request options"
//	@Failure		401	{object}	vaultsdk.ErrorResponse		"Invalid or missing access token"
//	@Failure		409	{object}	vaultsdk.ErrorResponse		"Biometric not set up"
//	@Router			/v1/security/webauthn/authenticate/begin [post].
func (h *WebAuthnHandler) HandleBeginAuthentication(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	options, err := h.CeremonyService.BeginAuthentication(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, vaultsdk.CeremonyOptions{Options: options})
}

// HandleFinishAuthentication handles POST /v1/security/webauthn/authenticate/finish
//
//	@Summary		Finish passkey authentication
//	@Description	Verifies the assertion, enforces a strictly increasing signature counter and marks the user as recently verified.
//	@Tags			WebAuthn
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Success		200	{object}	vaultsdk.VerifyResponse	"Verified"
//	@Failure		401	{object}	vaultsdk.ErrorResponse	"Assertion rejected"
//	@Failure		429	{object}	vaultsdk.ErrorResponse	"Too many failed attempts"
//	@Router			/v1/security/webauthn/authenticate/finish [post].
func (h *WebAuthnHandler) HandleFinishAuthentication(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	raw, ok := readBody(w, r)
	if !ok {
		return
	}

	err := h.VerificationService.Verify(r.Context(), userID, domain.MethodBiometric, service.Presented{Assertion: raw})
	if err != nil {
		writeVerifyError(w, r, err)
		return
	}
	writeVerified(w)
}
