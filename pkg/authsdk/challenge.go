package authsdk

import (
	"sync"

	"github.com/pavohq/folio/pkg/idx"
)

// ChallengeState is a step of the multi-step login protocol.
type ChallengeState int

const (
	// StateIdle means no login is in progress and no session is established.
	StateIdle ChallengeState = iota

	// StateAwaitingCredentials means a credential submission is in flight.
	StateAwaitingCredentials

	// StateAwaitingTwoFactor means the password was accepted and the server
	// is waiting for a second factor. The machine holds the temporary token
	// for the duration of this state and nowhere else.
	StateAwaitingTwoFactor

	// StateAuthenticated is the only state in which the session store holds
	// a full token.
	StateAuthenticated

	// StateFailed means the last submission was rejected; the reason is
	// attached for display and retry re-enters AwaitingCredentials.
	StateFailed
)

func (s ChallengeState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingCredentials:
		return "awaiting_credentials"
	case StateAwaitingTwoFactor:
		return "awaiting_twofactor"
	case StateAuthenticated:
		return "authenticated"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Challenge tracks the login protocol. Every submission is stamped with a
// monotonic attempt ID; a completion carrying a superseded ID is ignored, so
// a slow response can never clobber the outcome of a newer submission.
type Challenge struct {
	mu        sync.Mutex
	state     ChallengeState
	attempt   idx.ID
	tempToken string
	reason    string
}

func NewChallenge() *Challenge {
	return &Challenge{state: StateIdle}
}

// Current returns the protocol state. This is the one consolidated
// "is a user logged in" query: a session is valid iff Current() reports
// StateAuthenticated.
func (ch *Challenge) Current() ChallengeState {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.state
}

// Reason returns the failure or retry message attached to the current state.
func (ch *Challenge) Reason() string {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.reason
}

// TempToken returns the pending two-factor token, or "" outside
// AwaitingTwoFactor.
func (ch *Challenge) TempToken() string {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.tempToken
}

// begin starts a new credential submission and returns its attempt ID.
// Legal from Idle, Failed (retry) and AwaitingCredentials (a newer submission
// supersedes the in-flight one). An established session must be logged out
// first, and a pending two-factor challenge must be cancelled, so neither can
// be silently overwritten.
func (ch *Challenge) begin() (idx.ID, error) {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	switch ch.state {
	case StateIdle, StateFailed, StateAwaitingCredentials:
		ch.state = StateAwaitingCredentials
		ch.attempt = idx.New()
		ch.reason = ""
		return ch.attempt, nil
	default:
		return idx.Zero, ErrInvalidTransition
	}
}

// stale reports whether attempt has been superseded by a newer submission.
// Must be called with the mutex held.
func (ch *Challenge) stale(attempt idx.ID) bool {
	return attempt != ch.attempt
}

// authenticate applies a successful credential outcome. Returns false when
// the completion is stale.
func (ch *Challenge) authenticate(attempt idx.ID) bool {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if ch.state != StateAwaitingCredentials || ch.stale(attempt) {
		return false
	}
	ch.state = StateAuthenticated
	ch.tempToken = ""
	ch.reason = ""
	return true
}

// awaitTwoFactor applies the server's two-factor fork, parking the temporary
// token in the machine.
func (ch *Challenge) awaitTwoFactor(attempt idx.ID, tempToken, message string) bool {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if ch.state != StateAwaitingCredentials || ch.stale(attempt) {
		return false
	}
	ch.state = StateAwaitingTwoFactor
	ch.tempToken = tempToken
	ch.reason = message
	return true
}

// fail applies a rejected credential outcome.
func (ch *Challenge) fail(attempt idx.ID, reason string) bool {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if ch.state != StateAwaitingCredentials || ch.stale(attempt) {
		return false
	}
	ch.state = StateFailed
	ch.tempToken = ""
	ch.reason = reason
	return true
}

// completeTwoFactor moves AwaitingTwoFactor to Authenticated after a verified
// code. The temporary token is discarded.
func (ch *Challenge) completeTwoFactor() error {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if ch.state != StateAwaitingTwoFactor {
		return ErrInvalidTransition
	}
	ch.state = StateAuthenticated
	ch.tempToken = ""
	ch.reason = ""
	return nil
}

// retryTwoFactor records a rejected code. The machine stays in
// AwaitingTwoFactor with the same temporary token so the user can try again.
func (ch *Challenge) retryTwoFactor(reason string) {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if ch.state == StateAwaitingTwoFactor {
		ch.reason = reason
	}
}

// Cancel abandons an in-progress login and returns to Idle. The temporary
// token, if any, is discarded entirely; it is never downgraded for reuse.
// Cancelling an authenticated session is not allowed; use Logout.
func (ch *Challenge) Cancel() error {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if ch.state == StateAuthenticated {
		return ErrInvalidTransition
	}
	ch.state = StateIdle
	ch.attempt = idx.New() // orphan any in-flight completion
	ch.tempToken = ""
	ch.reason = ""
	return nil
}

// markAuthenticated force-sets Authenticated when a persisted session is
// restored at startup.
func (ch *Challenge) markAuthenticated() {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.state = StateAuthenticated
	ch.tempToken = ""
	ch.reason = ""
}

// forceIdle resets the machine from any state. Used on logout and on the
// session-expiry policy path.
func (ch *Challenge) forceIdle() {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.state = StateIdle
	ch.attempt = idx.New()
	ch.tempToken = ""
	ch.reason = ""
}
