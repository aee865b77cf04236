package httpx

import (
	"encoding/json"
	"net/http"
)

// WriteJSON writes v as JSON with no-cache headers.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// NoCache sets the Cache-Control and Pragma headers to prevent caching.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

// APIError is the JSON error body returned by every endpoint.
type APIError struct {
	StatusCode  int    `json:"-"`
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *APIError) Error() string { return e.Code + ": " + e.Description }

// Write sends the error as JSON.
func (e *APIError) Write(w http.ResponseWriter) {
	WriteJSON(w, e.StatusCode, e)
}

// WithDescription returns a copy with a different description.
func (e *APIError) WithDescription(desc string) *APIError {
	c := *e
	c.Description = desc
	return &c
}

var (
	ErrBadRequest = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        "invalid_request",
		Description: "the request is malformed or missing required parameters",
	}
	ErrUnauthorized = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        "invalid_token",
		Description: "the access token is missing, expired or invalid",
	}
	ErrForbidden = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        "insufficient_role",
		Description: "the caller's role does not permit this operation",
	}
	ErrRateLimited = &APIError{
		StatusCode:  http.StatusTooManyRequests,
		Code:        "rate_limit_exceeded",
		Description: "Too many requests. Please try again later.",
	}
	ErrServerError = &APIError{
		StatusCode:  http.StatusInternalServerError,
		Code:        "server_error",
		Description: "the server encountered an unexpected condition",
	}
	ErrUnavailable = &APIError{
		StatusCode:  http.StatusServiceUnavailable,
		Code:        "service_unavailable",
		Description: "the service is temporarily unavailable, try again later",
	}
)
