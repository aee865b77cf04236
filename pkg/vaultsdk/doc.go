// Package vaultsdk is a Go client for the vault security service.
//
// Unauthenticated calls (health probes) live on Client. Everything under
// /v1/security acts on the user named by the bearer token, so those calls
// live on Session:
//
//	client := vaultsdk.NewClient("http://localhost:8080")
//	session := client.WithToken(accessToken)
//
//	if _, err := session.CreateSecurityConfig(ctx); err != nil && !vaultsdk.IsCode(err, vaultsdk.ErrorCodeAlreadyExists) {
//		return err
//	}
//	if _, err := session.SetMethod(ctx, "pin", vaultsdk.SetMethodRequest{Enabled: true, Secret: "1234"}); err != nil {
//		return err
//	}
//	if err := session.Verify(ctx, vaultsdk.VerifyRequest{Method: "pin", Value: "1234"}); err != nil {
//		// every rejection is ErrorCodeInvalidCredential
//		return err
//	}
//
// Errors returned for non-2xx responses are *APIError values carrying the
// HTTP status, the error code and, for 429 responses, the Retry-After delay.
package vaultsdk
