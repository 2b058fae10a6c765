package authsdk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChallengeHappyPath(t *testing.T) {
	ch := NewChallenge()
	assert.Equal(t, StateIdle, ch.Current())

	attempt, err := ch.begin()
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingCredentials, ch.Current())

	assert.True(t, ch.authenticate(attempt))
	assert.Equal(t, StateAuthenticated, ch.Current())
}

func TestChallengeTwoFactorPath(t *testing.T) {
	ch := NewChallenge()

	attempt, err := ch.begin()
	require.NoError(t, err)

	assert.True(t, ch.awaitTwoFactor(attempt, "temp-tok", "enter your code"))
	assert.Equal(t, StateAwaitingTwoFactor, ch.Current())
	assert.Equal(t, "temp-tok", ch.TempToken())
	assert.Equal(t, "enter your code", ch.Reason())

	// A rejected code keeps the challenge and its temporary token alive.
	ch.retryTwoFactor("invalid code")
	assert.Equal(t, StateAwaitingTwoFactor, ch.Current())
	assert.Equal(t, "temp-tok", ch.TempToken())
	assert.Equal(t, "invalid code", ch.Reason())

	require.NoError(t, ch.completeTwoFactor())
	assert.Equal(t, StateAuthenticated, ch.Current())
	assert.Empty(t, ch.TempToken())
}

func TestChallengeFailureAllowsRetry(t *testing.T) {
	ch := NewChallenge()

	attempt, err := ch.begin()
	require.NoError(t, err)
	assert.True(t, ch.fail(attempt, "invalid credentials"))
	assert.Equal(t, StateFailed, ch.Current())
	assert.Equal(t, "invalid credentials", ch.Reason())

	_, err = ch.begin()
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingCredentials, ch.Current())
	assert.Empty(t, ch.Reason())
}

func TestChallengeBeginRefusedWhileAuthenticated(t *testing.T) {
	ch := NewChallenge()
	ch.markAuthenticated()

	_, err := ch.begin()
	require.ErrorIs(t, err, ErrInvalidTransition)

	// And while a two-factor challenge is pending.
	ch = NewChallenge()
	attempt, err := ch.begin()
	require.NoError(t, err)
	require.True(t, ch.awaitTwoFactor(attempt, "temp", ""))

	_, err = ch.begin()
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestChallengeStaleCompletionIgnored(t *testing.T) {
	ch := NewChallenge()

	first, err := ch.begin()
	require.NoError(t, err)

	// A newer submission supersedes the first before it resolves.
	second, err := ch.begin()
	require.NoError(t, err)

	assert.False(t, ch.authenticate(first))
	assert.Equal(t, StateAwaitingCredentials, ch.Current())

	assert.True(t, ch.authenticate(second))
	assert.Equal(t, StateAuthenticated, ch.Current())
}

func TestChallengeCancel(t *testing.T) {
	ch := NewChallenge()

	attempt, err := ch.begin()
	require.NoError(t, err)
	require.True(t, ch.awaitTwoFactor(attempt, "temp-tok", ""))

	require.NoError(t, ch.Cancel())
	assert.Equal(t, StateIdle, ch.Current())
	assert.Empty(t, ch.TempToken())

	// The cancelled attempt's late completion must not resurrect anything.
	assert.False(t, ch.authenticate(attempt))
	assert.Equal(t, StateIdle, ch.Current())
}

func TestChallengeCancelRefusedWhenAuthenticated(t *testing.T) {
	ch := NewChallenge()
	ch.markAuthenticated()
	require.ErrorIs(t, ch.Cancel(), ErrInvalidTransition)
	assert.Equal(t, StateAuthenticated, ch.Current())
}

func TestChallengeCompleteTwoFactorRequiresPending(t *testing.T) {
	ch := NewChallenge()
	require.ErrorIs(t, ch.completeTwoFactor(), ErrInvalidTransition)
}

func TestChallengeStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "awaiting_twofactor", StateAwaitingTwoFactor.String())
	assert.Equal(t, "unknown", ChallengeState(99).String())
}
