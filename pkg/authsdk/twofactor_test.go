package authsdk

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoFactorAPI stubs the login fork plus verification and profile fetch.
func twoFactorAPI(t *testing.T, code string) http.Handler {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc(endpointLogin, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{
			"twofa_required":    true,
			"temp_access_token": "temp-tok",
			"message":           "enter your two-factor code",
		})
	})
	mux.HandleFunc(endpointVerifyTwoFactor, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer temp-tok", r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["token"] != code {
			writeJSON(t, w, http.StatusUnauthorized, map[string]any{"error": "invalid 2FA code"})
			return
		}
		writeJSON(t, w, http.StatusOK, map[string]any{"access_token": "full-tok"})
	})
	mux.HandleFunc(endpointUser, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer full-tok", r.Header.Get("Authorization"))
		user := testUser()
		user.TwoFactorEnabled = true
		writeJSON(t, w, http.StatusOK, map[string]any{"user": user})
	})
	return mux
}

func TestVerifyTwoFactorSuccess(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t, twoFactorAPI(t, "123456"))

	res, err := c.Login(ctx, "dave@example.com", "hunter2")
	require.NoError(t, err)
	require.Equal(t, StatusTwoFactorRequired, res.Status)

	// The machine holds the temporary token; callers may omit it.
	res, err = c.VerifyTwoFactor(ctx, "123456", "")
	require.NoError(t, err)

	assert.Equal(t, StatusAuthenticated, res.Status)
	require.NotNil(t, res.User)
	assert.True(t, res.User.TwoFactorEnabled)

	assert.Equal(t, "full-tok", c.Token(ctx))
	require.NotNil(t, c.User(ctx))
	assert.Equal(t, StateAuthenticated, c.Challenge().Current())
	assert.Empty(t, c.Challenge().TempToken())
}

func TestVerifyTwoFactorRejectedCodeAllowsRetry(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t, twoFactorAPI(t, "123456"))

	_, err := c.Login(ctx, "dave@example.com", "hunter2")
	require.NoError(t, err)

	res, err := c.VerifyTwoFactor(ctx, "000000", "")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, "invalid 2FA code", res.Reason)

	// Same challenge, same temporary token: the user retries the code
	// without re-entering the password.
	assert.Equal(t, StateAwaitingTwoFactor, c.Challenge().Current())
	assert.Equal(t, "temp-tok", c.Challenge().TempToken())
	assert.Empty(t, c.Token(ctx))

	res, err = c.VerifyTwoFactor(ctx, "123456", "")
	require.NoError(t, err)
	assert.Equal(t, StatusAuthenticated, res.Status)
	assert.Equal(t, "full-tok", c.Token(ctx))
}

func TestCancelWhileVerificationInFlightNeverCommits(t *testing.T) {
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})

	mux := http.NewServeMux()
	mux.HandleFunc(endpointLogin, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{
			"twofa_required":    true,
			"temp_access_token": "temp-tok",
		})
	})
	mux.HandleFunc(endpointVerifyTwoFactor, func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		writeJSON(t, w, http.StatusOK, map[string]any{"access_token": "stale-tok"})
	})
	mux.HandleFunc(endpointUser, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{"user": testUser()})
	})

	c := newTestClient(t, mux)

	_, err := c.Login(ctx, "dave@example.com", "hunter2")
	require.NoError(t, err)

	done := make(chan *LoginResult, 1)
	go func() {
		res, err := c.VerifyTwoFactor(ctx, "123456", "")
		require.NoError(t, err)
		done <- res
	}()

	// The user abandons the challenge while the code is being verified.
	<-entered
	require.NoError(t, c.Challenge().Cancel())
	close(release)

	// The late verification must not resurrect the cancelled challenge or
	// write the session it carries.
	res := <-done
	assert.Equal(t, StatusFailed, res.Status)
	assert.Empty(t, c.Token(ctx))
	assert.Nil(t, c.User(ctx))
	assert.Equal(t, StateIdle, c.Challenge().Current())
}

func TestVerifyTwoFactorWithoutChallenge(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request should reach the server")
	}))

	_, err := c.VerifyTwoFactor(context.Background(), "123456", "")
	require.ErrorIs(t, err, ErrNoPendingChallenge)
}

func TestGenerateTwoFactor(t *testing.T) {
	ctx := context.Background()

	const uri = "otpauth://totp/Folio:dave@example.com?secret=JBSWY3DPEHPK3PXP&issuer=Folio"
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, endpointGenerateTwoFactor, r.URL.Path)
		require.Equal(t, "Bearer full-tok", r.Header.Get("Authorization"))
		writeJSON(t, w, http.StatusOK, map[string]any{"qr_code": uri})
	})

	store := seededStore(t, "full-tok", testUser())
	c := newTestClient(t, handler, WithSessionStore(store))

	setup, err := c.GenerateTwoFactor(ctx)
	require.NoError(t, err)

	assert.Equal(t, uri, setup.ProvisioningURI)
	assert.Equal(t, "JBSWY3DPEHPK3PXP", setup.Secret)
	assert.Equal(t, "Folio", setup.Issuer)
	assert.Equal(t, "dave@example.com", setup.Account)
}

func TestDisableTwoFactor(t *testing.T) {
	ctx := context.Background()

	mux := http.NewServeMux()
	mux.HandleFunc(endpointDisableTwoFactor, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "hunter2", body["password"])
		writeJSON(t, w, http.StatusOK, map[string]any{"message": "2FA disabled"})
	})
	mux.HandleFunc(endpointUser, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{"user": testUser()})
	})

	seeded := testUser()
	seeded.TwoFactorEnabled = true
	store := seededStore(t, "full-tok", seeded)
	c := newTestClient(t, mux, WithSessionStore(store))

	require.NoError(t, c.DisableTwoFactor(ctx, "hunter2"))

	// The refreshed profile replaced the stale one.
	require.NotNil(t, c.User(ctx))
	assert.False(t, c.User(ctx).TwoFactorEnabled)
}
