package vaultsdk

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// CreateSecurityConfig creates an empty security configuration.
func (s *Session) CreateSecurityConfig(ctx context.Context) (*SecurityConfigView, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/security/config", nil)
	if err != nil {
		return nil, err
	}

	var view SecurityConfigView
	if err := decodeJSON(resp, &view, http.StatusCreated); err != nil {
		return nil, err
	}
	return &view, nil
}

// GetSecurityConfig returns the caller's configuration. A user who never set
// one up gets ErrorCodeSetupRequired.
func (s *Session) GetSecurityConfig(ctx context.Context) (*SecurityConfigView, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/security/config", nil)
	if err != nil {
		return nil, err
	}

	var view SecurityConfigView
	if err := decodeJSON(resp, &view, http.StatusOK); err != nil {
		return nil, err
	}
	return &view, nil
}

// SetMethod enables or disables a method.
func (s *Session) SetMethod(ctx context.Context, method string, req SetMethodRequest) (*SecurityConfigView, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPut, "/v1/security/methods/"+url.PathEscape(method), req)
	if err != nil {
		return nil, err
	}

	var view SecurityConfigView
	if err := decodeJSON(resp, &view, http.StatusOK); err != nil {
		return nil, err
	}
	return &view, nil
}

// Verify presents a credential. Every rejection is ErrorCodeInvalidCredential.
func (s *Session) Verify(ctx context.Context, req VerifyRequest) (*VerifyResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/security/verify", req)
	if err != nil {
		return nil, err
	}

	var out VerifyResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// IsRecentlyVerified reports whether the user verified within window. A zero
// window uses the server default.
func (s *Session) IsRecentlyVerified(ctx context.Context, window time.Duration) (*FreshnessResponse, error) {
	path := "/v1/security/freshness"
	if window > 0 {
		path += "?window=" + strconv.FormatInt(int64(window/time.Second), 10)
	}

	resp, err := s.doAuthRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var out FreshnessResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetSecurityQuestions replaces the security questions.
func (s *Session) SetSecurityQuestions(ctx context.Context, questions []QuestionAnswer) error {
	resp, err := s.doAuthRequest(ctx, http.MethodPut, "/v1/security/questions", SetSecurityQuestionsRequest{Questions: questions})
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// VerifySecurityAnswer checks one security answer.
func (s *Session) VerifySecurityAnswer(ctx context.Context, question, answer string) (*VerifyResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/security/questions/verify", VerifyAnswerRequest{Question: question, Answer: answer})
	if err != nil {
		return nil, err
	}

	var out VerifyResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetUserSecurityConfig is the admin view of another user's configuration.
func (s *Session) GetUserSecurityConfig(ctx context.Context, userID string) (*SecurityConfigView, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/admin/security/"+url.PathEscape(userID), nil)
	if err != nil {
		return nil, err
	}

	var view SecurityConfigView
	if err := decodeJSON(resp, &view, http.StatusOK); err != nil {
		return nil, err
	}
	return &view, nil
}
