package vaultsdk

import (
	"context"
	"net/http"
)

// RequestReset asks for a reset code to be emailed. The message is the same
// whether or not the account exists. A second request while a code is live
// fails with ErrorCodeCooldownActive and RetryAfter set.
func (s *Session) RequestReset(ctx context.Context, email, method string) (*MessageResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/security/reset/request", ResetRequest{Email: email, Method: method})
	if err != nil {
		return nil, err
	}

	var out MessageResponse
	if err := decodeJSON(resp, &out, http.StatusAccepted); err != nil {
		return nil, err
	}
	return &out, nil
}

// ConsumeReset redeems a reset code and makes method the enabled primary
// method with newValue as its secret.
func (s *Session) ConsumeReset(ctx context.Context, token, method, newValue string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/security/reset/consume", ResetConsumeRequest{
		Token:    token,
		Method:   method,
		NewValue: newValue,
	})
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}
