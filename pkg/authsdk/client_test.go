package authsdk

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient spins up a stub API and a client pointed at it. The
// submission limit is relaxed so tests never sit in the throttle.
func newTestClient(t *testing.T, handler http.Handler, opts ...Option) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	opts = append([]Option{
		WithSubmissionLimit(100, time.Second),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}, opts...)
	return NewClient(srv.URL, opts...)
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, body any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(body))
}

func testUser() *UserProfile {
	return &UserProfile{
		ID:       42,
		Username: "dave",
		Email:    "dave@example.com",
	}
}

// seededStore builds a session store already holding a committed session.
func seededStore(t *testing.T, token string, user *UserProfile) *memStore {
	t.Helper()
	s := newMemStore()
	raw, err := encodeProfile(user)
	require.NoError(t, err)
	require.NoError(t, s.SetSession(context.Background(), token, raw))
	return s
}

func TestNewClientTrimsTrailingSlash(t *testing.T) {
	c := NewClient("http://localhost:5001/")
	assert.Equal(t, "http://localhost:5001", c.BaseURL)
	assert.Equal(t, StateIdle, c.Challenge().Current())
}

func TestTokenAndUserAbsentByDefault(t *testing.T) {
	c := NewClient("http://localhost:5001")
	assert.Empty(t, c.Token(context.Background()))
	assert.Nil(t, c.User(context.Background()))
}
