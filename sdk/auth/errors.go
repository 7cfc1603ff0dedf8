package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Ericcccccccccc/MusicAlarm/internal/auth/spotify"
)

var (
	// ErrNotAuthenticated means no usable access or refresh token exists; Authenticate is required.
	ErrNotAuthenticated = errors.New("musicalarm auth: not authenticated")
	// ErrAuthenticationFailed matches every *AuthenticationFailedError.
	ErrAuthenticationFailed = errors.New("musicalarm auth: authentication failed")
	// ErrTokenRefreshFailed means the provider rejected the refresh token; stored credentials were cleared.
	ErrTokenRefreshFailed = errors.New("musicalarm auth: token refresh rejected")
	// ErrUserCancelled is returned by user agents when the user dismisses the login surface.
	ErrUserCancelled = errors.New("musicalarm auth: user cancelled")
)

// FailureReason classifies a failed authorization flow.
type FailureReason string

const (
	ReasonUserCancelled   FailureReason = "user_cancelled"
	ReasonRedirectInvalid FailureReason = "redirect_invalid"
	ReasonProviderDenied  FailureReason = "provider_denied"
)

// AuthorizationError is the terminal failure of an AuthorizationFlow session.
type AuthorizationError struct {
	Reason FailureReason
	// Detail carries the provider error code or the validation failure.
	Detail string
}

func (e *AuthorizationError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("authorization %s", e.Reason)
	}
	return fmt.Sprintf("authorization %s: %s", e.Reason, e.Detail)
}

// Is lets errors.Is(err, ErrUserCancelled) match a cancelled flow.
func (e *AuthorizationError) Is(target error) bool {
	return target == ErrUserCancelled && e.Reason == ReasonUserCancelled
}

// AuthenticationFailedError wraps the cause of a failed interactive login.
type AuthenticationFailedError struct {
	// Stage is one of setup, authorization, exchange or persist.
	Stage string
	Err   error
}

func (e *AuthenticationFailedError) Error() string {
	return fmt.Sprintf("authentication failed during %s: %v", e.Stage, e.Err)
}

func (e *AuthenticationFailedError) Unwrap() error { return e.Err }

func (e *AuthenticationFailedError) Is(target error) bool { return target == ErrAuthenticationFailed }

// Cancelled reports whether the failure was a benign user cancellation.
func (e *AuthenticationFailedError) Cancelled() bool { return errors.Is(e.Err, ErrUserCancelled) }

// PartialPersistenceError reports that TokenStore.Save wrote some but not all keys.
type PartialPersistenceError struct {
	Written []string
	Failed  []string
	Err     error
}

func (e *PartialPersistenceError) Error() string {
	return fmt.Sprintf("token store: partial save (written: %s; failed: %s): %v",
		strings.Join(e.Written, ","), strings.Join(e.Failed, ","), e.Err)
}

func (e *PartialPersistenceError) Unwrap() error { return e.Err }

// GetUserFriendlyMessage returns a message suitable for the terminal. Cancellation
// is worded so it does not read as a failure.
func GetUserFriendlyMessage(err error) string {
	if err == nil {
		return ""
	}
	var authzErr *AuthorizationError
	var serverErr *spotify.AuthenticationError
	var oauthErr *spotify.OAuthError
	var partial *PartialPersistenceError
	switch {
	case errors.Is(err, ErrUserCancelled):
		return "Spotify login was cancelled. Nothing was changed."
	case errors.Is(err, ErrTokenRefreshFailed):
		return "Your Spotify session has expired or was revoked. Please log in again."
	case errors.Is(err, ErrNotAuthenticated):
		return "You are not logged in to Spotify. Run with -login first."
	case errors.As(err, &authzErr):
		switch authzErr.Reason {
		case ReasonProviderDenied:
			if authzErr.Detail == "access_denied" {
				return "Spotify access was denied. Approve the requested permissions to continue."
			}
			return fmt.Sprintf("Spotify refused the login: %s", authzErr.Detail)
		default:
			return "The login redirect did not come from the registered callback. Please try again."
		}
	case errors.As(err, &serverErr):
		switch serverErr.Type {
		case spotify.ErrPortInUse.Type:
			return "The login callback port is already in use. Close the other application or change spotify.callback-port."
		case spotify.ErrBrowserOpenFailed.Type:
			return "Could not open your browser automatically. Please copy and paste the URL manually."
		default:
			return "Could not start the login callback server. Please try again."
		}
	case errors.As(err, &oauthErr):
		switch oauthErr.Code {
		case "invalid_grant":
			return "The authorization code was rejected. Please log in again."
		case "invalid_client":
			return "The Spotify client id is not valid. Check spotify.client-id."
		default:
			return fmt.Sprintf("Spotify login failed: %s", oauthErr.Code)
		}
	case errors.As(err, &partial):
		return "Your credentials could not be saved. Please log in again."
	case errors.Is(err, ErrAuthenticationFailed):
		return "Spotify login failed. Please try again."
	default:
		return "An unexpected error occurred. Please try again."
	}
}
