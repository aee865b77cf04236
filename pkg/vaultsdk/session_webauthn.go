package vaultsdk

import (
	"context"
	"encoding/json"
	"net/http"
)

// BeginRegistration returns PublicKeyCredentialCreationOptions.
func (s *Session) BeginRegistration(ctx context.Context) (json.RawMessage, error) {
	return s.ceremonyOptions(ctx, "/v1/security/webauthn/register/begin")
}

// FinishRegistration submits the authenticator's attestation response.
func (s *Session) FinishRegistration(ctx context.Context, attestation json.RawMessage) error {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/security/webauthn/register/finish", attestation)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// BeginAuthentication returns PublicKeyCredentialRequestOptions.
func (s *Session) BeginAuthentication(ctx context.Context) (json.RawMessage, error) {
	return s.ceremonyOptions(ctx, "/v1/security/webauthn/authenticate/begin")
}

// FinishAuthentication submits the authenticator's assertion response.
func (s *Session) FinishAuthentication(ctx context.Context, assertion json.RawMessage) (*VerifyResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/security/webauthn/authenticate/finish", assertion)
	if err != nil {
		return nil, err
	}

	var out VerifyResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Session) ceremonyOptions(ctx context.Context, path string) (json.RawMessage, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, path, nil)
	if err != nil {
		return nil, err
	}

	var out CeremonyOptions
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out.Options, nil
}
