package authsdk

import (
	"time"

	"github.com/google/uuid"
)

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	// Error is a machine readable code such as "invalid_token".
	Error string `json:"error"`

	// ErrorDescription is a human readable explanation.
	ErrorDescription string `json:"error_description,omitempty"`
}

// RegisterRequest creates an account.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterResponse carries the id of the new account.
type RegisterResponse struct {
	ID uuid.UUID `json:"id"`
}

// LoginRequest authenticates with email and password.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// User is the public view of an account. It never includes credentials.
type User struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
}

// RefreshEnvelope wraps a signed refresh token with its metadata. Only
// RefreshToken is checked by the server; the rest is informational.
type RefreshEnvelope struct {
	RefreshToken string    `json:"refresh_token"`
	IssuedAt     time.Time `json:"issued_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	Issuer       string    `json:"jwt_iss"`
	Audience     string    `json:"jwt_aud"`
	Revoked      bool      `json:"revoked"`
}

// LoginResponse is returned by a successful login. The refresh envelope is
// also set as an HttpOnly cookie for browser clients.
type LoginResponse struct {
	User        User            `json:"user"`
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type"`
	ExpiresIn   int             `json:"expires_in"`
	Refresh     RefreshEnvelope `json:"refresh"`
}

// RefreshRequest presents a refresh envelope for rotation. It may be
// omitted when the refresh cookie is sent instead.
type RefreshRequest struct {
	Refresh RefreshEnvelope `json:"refresh"`
}

// RefreshResponse carries the rotated pair.
type RefreshResponse struct {
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type"`
	ExpiresIn   int             `json:"expires_in"`
	Refresh     RefreshEnvelope `json:"refresh"`
}

// LogoutRequest optionally names the refresh envelope to revoke.
type LogoutRequest struct {
	Refresh *RefreshEnvelope `json:"refresh,omitempty"`
}

// HealthResponse is returned by /livez and /readyz (readyz adds Checks).
type HealthResponse struct {
	// Status is "ok" or "degraded".
	Status string `json:"status"`

	// Uptime is the service uptime, e.g. "1h23m45s".
	Uptime string `json:"uptime,omitempty"`

	Version string `json:"version,omitempty"`

	Checks *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports the state of each dependency.
type HealthChecks struct {
	Database string `json:"database"`
	Denylist string `json:"denylist,omitempty"`
}
