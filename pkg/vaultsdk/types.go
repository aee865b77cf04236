package vaultsdk

import (
	"encoding/json"
	"time"
)

// ============================================================================
// Errors
// ============================================================================

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	// Error is a machine readable code, e.g. "invalid_credential"
	Error string `json:"error"`

	// ErrorDescription is a human readable description
	ErrorDescription string `json:"error_description"`
}

// ============================================================================
// Security configuration
// ============================================================================

// SecurityConfigView is the redacted security configuration. Hashes,
// challenges and public keys are never exposed.
type SecurityConfigView struct {
	UserID string `json:"user_id"`

	// PrimaryMethod is "password", "pin", "pattern" or "" when none is enabled
	PrimaryMethod string `json:"primary_method"`

	PasswordEnabled bool `json:"password_enabled"`
	PINEnabled      bool `json:"pin_enabled"`
	PatternEnabled  bool `json:"pattern_enabled"`

	// HasPassword etc. report a retained secret even when the method is disabled
	HasPassword bool `json:"has_password"`
	HasPIN      bool `json:"has_pin"`
	HasPattern  bool `json:"has_pattern"`

	BiometricEnabled     bool             `json:"biometric_enabled"`
	BiometricCredentials []CredentialView `json:"biometric_credentials"`

	SecurityQuestions          []string   `json:"security_questions"`
	SecurityQuestionsUpdatedAt *time.Time `json:"security_questions_updated_at,omitempty"`

	ResetPending   bool       `json:"reset_pending"`
	LastVerifiedAt *time.Time `json:"last_verified_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// CredentialView describes a registered passkey.
type CredentialView struct {
	// ID is the base64url credential ID
	ID         string     `json:"id"`
	Transports []string   `json:"transports,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

// SetMethodRequest enables or disables a method. Secret is only read when
// enabling password, pin or pattern; omit it to re-enable the retained one.
type SetMethodRequest struct {
	Enabled bool   `json:"enabled"`
	Secret  string `json:"secret,omitempty"`
}

// VerifyRequest presents a credential for one method.
type VerifyRequest struct {
	// Method is one of "password", "pin", "pattern", "biometric", "security-question"
	Method string `json:"method"`

	// Value is the password, pin or pattern
	Value string `json:"value,omitempty"`

	Question string `json:"question,omitempty"`
	Answer   string `json:"answer,omitempty"`

	// Assertion is the raw WebAuthn assertion for "biometric"
	Assertion json.RawMessage `json:"assertion,omitempty"`
}

// FreshnessResponse reports whether the user verified recently.
type FreshnessResponse struct {
	RecentlyVerified bool `json:"recently_verified"`
	// WindowSeconds is the window that was applied
	WindowSeconds int64 `json:"window_seconds"`
}

// QuestionAnswer is one security question with its plaintext answer.
type QuestionAnswer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// SetSecurityQuestionsRequest replaces the security questions. Exactly three.
type SetSecurityQuestionsRequest struct {
	Questions []QuestionAnswer `json:"questions"`
}

// VerifyAnswerRequest checks a single security answer.
type VerifyAnswerRequest struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// VerifyResponse is returned by successful verifications.
type VerifyResponse struct {
	Verified   bool      `json:"verified"`
	VerifiedAt time.Time `json:"verified_at"`
}

// ============================================================================
// Reset
// ============================================================================

// ResetRequest asks for a reset code for one primary method.
type ResetRequest struct {
	Email  string `json:"email"`
	Method string `json:"method"`
}

// ResetConsumeRequest redeems a reset code and sets a new secret.
type ResetConsumeRequest struct {
	Token    string `json:"token"`
	Method   string `json:"method"`
	NewValue string `json:"new_value"`
}

// MessageResponse carries a user facing message.
type MessageResponse struct {
	Message string `json:"message"`
}

// ============================================================================
// WebAuthn
// ============================================================================

// CeremonyOptions wraps the options to pass to navigator.credentials.create
// or navigator.credentials.get.
type CeremonyOptions struct {
	Options json.RawMessage `json:"options"`
}

// ============================================================================
// Health
// ============================================================================

// HealthResponse is returned by /livez and /readyz.
type HealthResponse struct {
	// Status is "ok" or "degraded"
	Status string `json:"status"`

	// Uptime is the service uptime, e.g. "1h23m45s"
	Uptime string `json:"uptime,omitempty"`

	Version string `json:"version,omitempty"`

	// Checks is only set by /readyz
	Checks *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks is the status of each dependency.
type HealthChecks struct {
	Database string `json:"database"`
	Mailer   string `json:"mailer"`
	Lockout  string `json:"lockout,omitempty"`
}
