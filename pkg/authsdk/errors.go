package authsdk

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNonJSONResponse reports a response whose content type is not JSON.
	// The body is never parsed in that case; this is a transport-level
	// failure and is not retried.
	ErrNonJSONResponse = errors.New("authsdk: server returned a non-JSON response")

	// ErrSessionExpired reports that an authenticated call came back
	// unauthorized. By the time a caller sees this the session store and
	// request cache have been cleared and the challenge machine reset; the
	// user must authenticate again.
	ErrSessionExpired = errors.New("authsdk: session expired")

	// ErrNotAuthenticated reports an operation that needs a full token while
	// the store holds none.
	ErrNotAuthenticated = errors.New("authsdk: not authenticated")

	// ErrNoPendingChallenge reports a two-factor submission with no challenge
	// in flight.
	ErrNoPendingChallenge = errors.New("authsdk: no pending two-factor challenge")

	// ErrTemporaryTokenMisuse reports an attempt to attach a temporary token
	// to anything other than the 2FA verification endpoint. This is a
	// programming error, not a server condition.
	ErrTemporaryTokenMisuse = errors.New("authsdk: temporary token attached outside verify-2fa")

	// ErrInvalidTransition reports a challenge state transition the protocol
	// does not allow.
	ErrInvalidTransition = errors.New("authsdk: invalid challenge transition")
)

// APIError is a server-reported failure: the request reached the API and was
// rejected with a JSON error body.
type APIError struct {
	// StatusCode is the HTTP status the server answered with
	StatusCode int

	// Message is the server's error description, or a generic fallback when
	// the body carried none
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("server rejected request (HTTP %d): %s", e.StatusCode, e.Message)
}

// newAPIError builds an APIError from a parsed error body, falling back to
// the HTTP status text when the server gave no message.
func newAPIError(statusCode int, body errorResponse) *APIError {
	msg := body.Error
	if msg == "" {
		msg = body.Message
	}
	if msg == "" {
		msg = http.StatusText(statusCode)
	}
	return &APIError{StatusCode: statusCode, Message: msg}
}

// isSessionExpired reports whether err carries the session-expiry sentinel.
func isSessionExpired(err error) bool {
	return errors.Is(err, ErrSessionExpired)
}

// IsCredentialRejection reports whether err is a server-side rejection of the
// submitted credential (wrong password, bad 2FA code, unrecognized face).
// Such failures are user-facing and must not tear down an unrelated existing
// session.
func IsCredentialRejection(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.StatusCode {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		return true
	}
	return false
}
