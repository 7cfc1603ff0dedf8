package cmd

import (
	"errors"
	"fmt"

	"github.com/Ericcccccccccc/MusicAlarm/internal/runtime/executor"
	sdkAuth "github.com/Ericcccccccccc/MusicAlarm/sdk/auth"
)

// friendlyMessage turns an error from any command into a terminal message.
func friendlyMessage(err error) string {
	var statusErr *executor.StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.Kind {
		case executor.KindUnauthorized:
			if errors.Is(err, sdkAuth.ErrTokenRefreshFailed) || errors.Is(err, sdkAuth.ErrNotAuthenticated) {
				return sdkAuth.GetUserFriendlyMessage(err)
			}
			return "Spotify rejected the session. Please log in again with -login."
		case executor.KindRateLimited:
			if statusErr.RetryAfter > 0 {
				return fmt.Sprintf("Spotify is rate limiting requests. Try again in %s.", statusErr.RetryAfter)
			}
			return "Spotify is rate limiting requests. Try again shortly."
		case executor.KindNotFound:
			return "Spotify could not find that item."
		case executor.KindBadRequest:
			return fmt.Sprintf("Spotify rejected the request: %s", statusErr.Message)
		case executor.KindServerError:
			return "Spotify is having trouble right now. Try again later."
		case executor.KindInvalidResponse:
			return "Spotify returned a response that could not be read."
		default:
			return fmt.Sprintf("Could not reach Spotify: %v", err)
		}
	}
	return sdkAuth.GetUserFriendlyMessage(err)
}
