package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/aussiebroadwan/vault/internal/vault/domain"
	"github.com/aussiebroadwan/vault/internal/vault/service"
	"github.com/aussiebroadwan/vault/pkg/httpx"
	"github.com/aussiebroadwan/vault/pkg/slogx"
	"github.com/aussiebroadwan/vault/pkg/vaultsdk"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 64 << 10

// SecurityHandler serves the security configuration endpoints.
type SecurityHandler struct {
	SecurityService *service.SecurityService
}

// HandleCreate handles POST /v1/security/config
//
//	@Summary		Create security configuration
//	@Description	Creates an empty security configuration for the authenticated user.
//	@Tags			Security
//	@Security		BearerAuth
//	@Produce		json
//	@Success		201	{object}	vaultsdk.SecurityConfigView	"Created configuration"
//	@Failure		401	{object}	vaultsdk.ErrorResponse		"Invalid or missing access token"
//	@Failure		409	{object}	vaultsdk.ErrorResponse		"Configuration already exists"
//	@Failure		503	{object}	vaultsdk.ErrorResponse		"Storage unavailable"
//	@Router			/v1/security/config [post].
func (h *SecurityHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	cfg, err := h.SecurityService.CreateDefault(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toView(cfg))
}

// HandleGet handles GET /v1/security/config
//
//	@Summary		Get security configuration
//	@Description	Returns the redacted security configuration of the authenticated user.
//	@Tags			Security
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	vaultsdk.SecurityConfigView	"Configuration"
//	@Failure		401	{object}	vaultsdk.ErrorResponse		"Invalid or missing access token"
//	@Failure		404	{object}	vaultsdk.ErrorResponse		"Security has not been set up"
//	@Failure		503	{object}	vaultsdk.ErrorResponse		"Storage unavailable"
//	@Router			/v1/security/config [get].
func (h *SecurityHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	cfg, err := h.SecurityService.Get(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toView(cfg))
}

// HandleAdminGet handles GET /v1/admin/security/{userId}
//
//	@Summary		Get a user's security configuration
//	@Description	Returns the redacted security configuration of any user. Requires an operator role.
//	@Tags			Admin
//	@Security		BearerAuth
//	@Produce		json
//	@Param			userId	path		string						true	"User ID"
//	@Success		200		{object}	vaultsdk.SecurityConfigView	"Configuration"
//	@Failure		401		{object}	vaultsdk.ErrorResponse		"Invalid or missing access token"
//	@Failure		403		{object}	vaultsdk.ErrorResponse		"Role not permitted"
//	@Failure		404		{object}	vaultsdk.ErrorResponse		"Security has not been set up"
//	@Router			/v1/admin/security/{userId} [get].
func (h *SecurityHandler) HandleAdminGet(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.SecurityService.Get(r.Context(), r.PathValue("userId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toView(cfg))
}

// HandleSetMethod handles PUT /v1/security/methods/{method}
//
//	@Summary		Enable or disable an unlock method
//	@Description	Enabling password, pin or pattern disables the other two. Omit the secret to re-enable a method whose secret was kept.
//	@Description	Disabling biometric removes every registered passkey.
//	@Tags			Security
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			method	path		string						true	"password, pin, pattern, biometric or security-question"
//	@Param			request	body		vaultsdk.SetMethodRequest	true	"Change"
//	@Success		200		{object}	vaultsdk.SecurityConfigView	"Updated configuration"
//	@Failure		400		{object}	vaultsdk.ErrorResponse		"Invalid method or secret"
//	@Failure		401		{object}	vaultsdk.ErrorResponse		"Invalid or missing access token"
//	@Failure		404		{object}	vaultsdk.ErrorResponse		"Security has not been set up"
//	@Router			/v1/security/methods/{method} [put].
func (h *SecurityHandler) HandleSetMethod(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	method, err := domain.ParseMethod(r.PathValue("method"))
	if err != nil {
		httpx.ErrBadRequest.WithDescription("unknown method").Write(w)
		return
	}

	var req vaultsdk.SetMethodRequest
	if !decodeBody(w, r, &req) {
		return
	}

	cfg, err := h.SecurityService.SetMethod(r.Context(), userID, method, service.MethodChange{
		Enabled: req.Enabled,
		Secret:  req.Secret,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toView(cfg))
}

// HandleFreshness handles GET /v1/security/freshness
//
//	@Summary		Check recent verification
//	@Description	Reports whether the user verified within the window. The default window is three hours.
//	@Tags			Security
//	@Security		BearerAuth
//	@Produce		json
//	@Param			window	query		int							false	"Window in seconds"
//	@Success		200		{object}	vaultsdk.FreshnessResponse	"Freshness"
//	@Failure		400		{object}	vaultsdk.ErrorResponse		"Invalid window"
//	@Failure		401		{object}	vaultsdk.ErrorResponse		"Invalid or missing access token"
//	@Router			/v1/security/freshness [get].
func (h *SecurityHandler) HandleFreshness(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var window time.Duration
	if raw := r.URL.Query().Get("window"); raw != "" {
		secs, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || secs <= 0 {
			httpx.ErrBadRequest.WithDescription("window must be a positive number of seconds").Write(w)
			return
		}
		window = time.Duration(secs) * time.Second
	}
	if window <= 0 {
		window = h.SecurityService.FreshnessWindow
		if window <= 0 {
			window = service.DefaultFreshnessWindow
		}
	}

	fresh, err := h.SecurityService.IsRecentlyVerified(r.Context(), userID, window)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, vaultsdk.FreshnessResponse{
		RecentlyVerified: fresh,
		WindowSeconds:    int64(window / time.Second),
	})
}

// HandleSetQuestions handles PUT /v1/security/questions
//
//	@Summary		Set security questions
//	@Description	Replaces the security questions. Exactly three questions with answers are required.
//	@Tags			Security
//	@Security		BearerAuth
//	@Accept			json
//	@Param			request	body	vaultsdk.SetSecurityQuestionsRequest	true	"Questions"
//	@Success		204		"Questions saved"
//	@Failure		400		{object}	vaultsdk.ErrorResponse	"Wrong number of questions or empty answers"
//	@Failure		401		{object}	vaultsdk.ErrorResponse	"Invalid or missing access token"
//	@Failure		404		{object}	vaultsdk.ErrorResponse	"Security has not been set up"
//	@Router			/v1/security/questions [put].
func (h *SecurityHandler) HandleSetQuestions(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req vaultsdk.SetSecurityQuestionsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	qas := make([]service.QuestionAnswer, 0, len(req.Questions))
	for _, q := range req.Questions {
		qas = append(qas, service.QuestionAnswer{Question: q.Question, Answer: q.Answer})
	}

	if err := h.SecurityService.SetSecurityQuestions(r.Context(), userID, qas); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}

// requireUser returns the token subject or writes 401.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := httpx.UserIDFromContext(r.Context())
	if userID == "" {
		httpx.ErrUnauthorized.Write(w)
		return "", false
	}
	return userID, true
}

// decodeBody decodes a JSON body into v or writes 400.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		slogx.FromContext(r.Context()).Warn("failed to parse request", "err", err)
		httpx.ErrBadRequest.WithDescription("invalid JSON body").Write(w)
		return false
	}
	return true
}

// readBody returns the raw body or writes 400.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	var raw json.RawMessage
	if !decodeBody(w, r, &raw) {
		return nil, false
	}
	return raw, true
}
