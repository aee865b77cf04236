package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/vault/internal/vault/domain"
	"github.com/aussiebroadwan/vault/internal/vault/service"
	"github.com/aussiebroadwan/vault/pkg/httpx"
	"github.com/aussiebroadwan/vault/pkg/vaultsdk"
)

// VerifyHandler serves credential verification.
type VerifyHandler struct {
	VerificationService *service.VerificationService
}

// HandleVerify handles POST /v1/security/verify
//
//	@Summary		Verify a credential
//	@Description	Checks a password, pin, pattern, security answer or WebAuthn assertion and marks the user as recently verified.
//	@Description	Every rejection returns the same invalid_credential error.
//	@Tags			Verification
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		vaultsdk.VerifyRequest	true	"Presented credential"
//	@Success		200		{object}	vaultsdk.VerifyResponse	"Verified"
//	@Failure		400		{object}	vaultsdk.ErrorResponse	"Malformed request"
//	@Failure		401		{object}	vaultsdk.ErrorResponse	"Credential rejected"
//	@Failure		429		{object}	vaultsdk.ErrorResponse	"Too many failed attempts"
//	@Failure		503		{object}	vaultsdk.ErrorResponse	"Storage unavailable"
//	@Router			/v1/security/verify [post].
func (h *VerifyHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req vaultsdk.VerifyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	method, err := domain.ParseMethod(req.Method)
	if err != nil || method == domain.MethodNone {
		httpx.ErrBadRequest.WithDescription("unknown method").Write(w)
		return
	}

	err = h.VerificationService.Verify(r.Context(), userID, method, service.Presented{
		Value:     req.Value,
		Question:  req.Question,
		Answer:    req.Answer,
		Assertion: req.Assertion,
	})
	if err != nil {
		writeVerifyError(w, r, err)
		return
	}
	writeVerified(w)
}

// HandleVerifyAnswer handles POST /v1/security/questions/verify
//
//	@Summary		Verify a security answer
//	@Description	Succeeds if any stored question with the same text has a matching answer.
//	@Tags			Verification
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		vaultsdk.VerifyAnswerRequest	true	"Question and answer"
//	@Success		200		{object}	vaultsdk.VerifyResponse			"Verified"
//	@Failure		401		{object}	vaultsdk.ErrorResponse			"Answer rejected"
//	@Failure		429		{object}	vaultsdk.ErrorResponse			"Too many failed attempts"
//	@Router			/v1/security/questions/verify [post].
func (h *VerifyHandler) HandleVerifyAnswer(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req vaultsdk.VerifyAnswerRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.VerificationService.VerifySecurityAnswer(r.Context(), userID, req.Question, req.Answer); err != nil {
		writeVerifyError(w, r, err)
		return
	}
	writeVerified(w)
}

func writeVerified(w http.ResponseWriter) {
	httpx.WriteJSON(w, http.StatusOK, vaultsdk.VerifyResponse{
		Verified:   true,
		VerifiedAt: time.Now().UTC(),
	})
}
