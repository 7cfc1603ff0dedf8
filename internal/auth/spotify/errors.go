package spotify

import (
	"errors"
	"fmt"
	"net/http"
)

// OAuthError is the {error, error_description} body returned by the accounts service.
type OAuthError struct {
	// Code is the OAuth error code.
	Code string `json:"error"`
	// Description is a human-readable description of the error.
	Description string `json:"error_description,omitempty"`
	// StatusCode is the HTTP status code associated with the error.
	StatusCode int `json:"-"`
}

// Error returns a string representation of the OAuth error.
func (e *OAuthError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("OAuth error %s: %s", e.Code, e.Description)
	}
	return fmt.Sprintf("OAuth error: %s", e.Code)
}

// TokenExchangeError reports that the token endpoint rejected an authorization code
// or answered with a body that could not be parsed.
type TokenExchangeError struct {
	StatusCode int
	// OAuth is set when the response carried a decodable error body.
	OAuth *OAuthError
	Err   error
}

func (e *TokenExchangeError) Error() string {
	return describeTokenError("token exchange", e.StatusCode, e.OAuth, e.Err)
}

func (e *TokenExchangeError) Unwrap() error {
	if e.OAuth != nil {
		return e.OAuth
	}
	return e.Err
}

// TokenRefreshError reports that the token endpoint rejected a refresh token
// or answered with a body that could not be parsed.
type TokenRefreshError struct {
	StatusCode int
	OAuth      *OAuthError
	Err        error
}

func (e *TokenRefreshError) Error() string {
	return describeTokenError("token refresh", e.StatusCode, e.OAuth, e.Err)
}

func (e *TokenRefreshError) Unwrap() error {
	if e.OAuth != nil {
		return e.OAuth
	}
	return e.Err
}

func describeTokenError(op string, status int, oauthErr *OAuthError, cause error) string {
	switch {
	case oauthErr != nil:
		return fmt.Sprintf("%s failed with status %d: %v", op, status, oauthErr)
	case cause != nil:
		return fmt.Sprintf("%s failed with status %d: %v", op, status, cause)
	default:
		return fmt.Sprintf("%s failed with status %d", op, status)
	}
}

// AuthenticationError represents failures of the local callback machinery.
type AuthenticationError struct {
	// Type is the type of authentication error.
	Type string `json:"type"`
	// Message is a human-readable message describing the error.
	Message string `json:"message"`
	// Code is the HTTP status code associated with the error.
	Code int `json:"code"`
	// Cause is the underlying error that caused this authentication error.
	Cause error `json:"-"`
}

// Error returns a string representation of the authentication error.
func (e *AuthenticationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Is matches authentication errors by type so wrapped copies satisfy errors.Is.
func (e *AuthenticationError) Is(target error) bool {
	t, ok := target.(*AuthenticationError)
	return ok && t.Type == e.Type
}

func (e *AuthenticationError) Unwrap() error { return e.Cause }

var (
	// ErrServerStartFailed represents an error when starting the OAuth callback server fails.
	ErrServerStartFailed = &AuthenticationError{
		Type:    "server_start_failed",
		Message: "Failed to start OAuth callback server",
		Code:    http.StatusInternalServerError,
	}

	// ErrPortInUse represents an error when the OAuth callback port is already in use.
	ErrPortInUse = &AuthenticationError{
		Type:    "port_in_use",
		Message: "OAuth callback port is already in use",
		Code:    13,
	}

	// ErrBrowserOpenFailed represents an error when the system browser cannot be launched.
	ErrBrowserOpenFailed = &AuthenticationError{
		Type:    "browser_open_failed",
		Message: "Failed to open the system browser",
		Code:    http.StatusInternalServerError,
	}
)

// NewAuthenticationError creates a new authentication error with a cause based on a base error.
func NewAuthenticationError(baseErr *AuthenticationError, cause error) *AuthenticationError {
	return &AuthenticationError{
		Type:    baseErr.Type,
		Message: baseErr.Message,
		Code:    baseErr.Code,
		Cause:   cause,
	}
}

// IsOAuthError checks if an error is an OAuth error.
func IsOAuthError(err error) bool {
	var oAuthError *OAuthError
	return errors.As(err, &oAuthError)
}
