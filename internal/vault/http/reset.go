package http

import (
	"net/http"

	"github.com/aussiebroadwan/vault/internal/vault/domain"
	"github.com/aussiebroadwan/vault/internal/vault/service"
	"github.com/aussiebroadwan/vault/pkg/httpx"
	"github.com/aussiebroadwan/vault/pkg/vaultsdk"
)

// ResetHandler serves the reset code flow.
type ResetHandler struct {
	ResetService *service.ResetService
}

// HandleRequest handles POST /v1/security/reset/request
//
//	@Summary		Request a reset code
//	@Description	Emails a single-use reset code for password, pin or pattern to the email claim of the access token. The typed email must match it.
//	@Description	The answer is the same whether or not security was set up or the address matched.
//	@Description	While a code is live further requests are refused with a Retry-After header.
//	@Tags			Reset
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		vaultsdk.ResetRequest		true	"Email and method"
//	@Success		202		{object}	vaultsdk.MessageResponse	"Generic confirmation"
//	@Failure		400		{object}	vaultsdk.ErrorResponse		"Invalid email or method"
//	@Failure		429		{object}	vaultsdk.ErrorResponse		"A code was sent recently"
//	@Failure		502		{object}	vaultsdk.ErrorResponse		"Email could not be sent"
//	@Router			/v1/security/reset/request [post].
func (h *ResetHandler) HandleRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req vaultsdk.ResetRequest
	if !decodeBody(w, r, &req) {
		return
	}
	method, err := domain.ParseMethod(req.Method)
	if err != nil {
		httpx.ErrBadRequest.WithDescription("unknown method").Write(w)
		return
	}

	claims, _ := httpx.ClaimsFromContext(r.Context())
	msg, err := h.ResetService.RequestReset(r.Context(), service.ResetRequest{
		UserID:       userID,
		AccountEmail: claims.Email,
		Email:        req.Email,
		Method:       method,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusAccepted, vaultsdk.MessageResponse{Message: msg})
}

// HandleConsume handles POST /v1/security/reset/consume
//
//	@Summary		Redeem a reset code
//	@Description	Sets a new secret for the method the code was issued for and makes it the enabled unlock method.
//	@Tags			Reset
//	@Security		BearerAuth
//	@Accept			json
//	@Param			request	body	vaultsdk.ResetConsumeRequest	true	"Code and new secret"
//	@Success		204		"Secret replaced"
//	@Failure		400		{object}	vaultsdk.ErrorResponse	"Invalid or expired code, or invalid secret"
//	@Router			/v1/security/reset/consume [post].
func (h *ResetHandler) HandleConsume(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req vaultsdk.ResetConsumeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	method, err := domain.ParseMethod(req.Method)
	if err != nil {
		httpx.ErrBadRequest.WithDescription("unknown method").Write(w)
		return
	}

	if err := h.ResetService.ConsumeReset(r.Context(), userID, req.Token, method, req.NewValue); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}
