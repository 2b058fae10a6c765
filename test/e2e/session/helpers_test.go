package session_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"

	"github.com/pavohq/folio/internal/store/drivers/sqlite"
	"github.com/pavohq/folio/pkg/authsdk"
	"github.com/pavohq/folio/pkg/idx"
)

/*
 * End-to-end tests for the full session lifecycle: login, two-factor,
 * biometrics, persistence across process restarts and server-side
 * revocation. The Folio API is stood in for by an in-process stub that
 * mirrors its wire format; the client side is the real stack, durable
 * SQLite store included.
 */

type stubUser struct {
	id           int64
	email        string
	username     string
	password     string
	faceID       string
	totpSecret   string
	twoFAEnabled bool
}

func (u *stubUser) profile() map[string]any {
	return map[string]any{
		"id":             u.id,
		"username":       u.username,
		"email":          u.email,
		"has_faceid":     u.faceID != "",
		"is_2fa_enabled": u.twoFAEnabled,
	}
}

// stubAPI is an in-memory Folio API. Tokens are opaque; a temporary token is
// only honored by the 2FA verification endpoint.
type stubAPI struct {
	mu         sync.Mutex
	users      map[string]*stubUser
	tokens     map[string]*stubUser
	tempTokens map[string]*stubUser
	nextID     int64
}

func newStubAPI(t *testing.T) (*stubAPI, string) {
	t.Helper()
	api := &stubAPI{
		users:      make(map[string]*stubUser),
		tokens:     make(map[string]*stubUser),
		tempTokens: make(map[string]*stubUser),
	}
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)
	return api, srv.URL
}

func (s *stubAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/register", s.handleRegister)
	mux.HandleFunc("/api/auth/login", s.handleLogin)
	mux.HandleFunc("/api/auth/verify-2fa", s.handleVerifyTwoFactor)
	mux.HandleFunc("/api/auth/verify-face", s.handleVerifyFace)
	mux.HandleFunc("/api/auth/register-face", s.handleRegisterFace)
	mux.HandleFunc("/api/auth/user", s.handleUser)
	mux.HandleFunc("/api/auth/generate-2fa", s.handleGenerateTwoFactor)
	mux.HandleFunc("/api/auth/disable-2fa", s.handleDisableTwoFactor)
	mux.HandleFunc("/api/auth/logout", s.handleLogout)
	return mux
}

func (s *stubAPI) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Username string `json:"username"`
		Password string `json:"password"`
		FaceID   string `json:"faceid"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]any{"error": "bad request"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[req.Email]; exists {
		respond(w, http.StatusConflict, map[string]any{"error": "email already registered"})
		return
	}

	s.nextID++
	user := &stubUser{
		id:       s.nextID,
		email:    req.Email,
		username: req.Username,
		password: req.Password,
		faceID:   req.FaceID,
	}
	s.users[req.Email] = user

	token := s.mintLocked(user)
	respond(w, http.StatusCreated, map[string]any{
		"access_token": token,
		"user":         user.profile(),
	})
}

func (s *stubAPI) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[req.Email]
	if !ok || user.password != req.Password {
		respond(w, http.StatusUnauthorized, map[string]any{"error": "invalid credentials"})
		return
	}

	if user.twoFAEnabled {
		temp := idx.New().String()
		s.tempTokens[temp] = user
		respond(w, http.StatusOK, map[string]any{
			"twofa_required":    true,
			"temp_access_token": temp,
			"message":           "enter your two-factor code",
		})
		return
	}

	respond(w, http.StatusOK, map[string]any{
		"access_token": s.mintLocked(user),
		"user":         user.profile(),
	})
}

func (s *stubAPI) handleVerifyTwoFactor(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.tempTokens[bearer(r)]
	if !ok {
		respond(w, http.StatusUnauthorized, map[string]any{"error": "invalid temporary token"})
		return
	}
	if !totp.Validate(req.Token, user.totpSecret) {
		respond(w, http.StatusUnauthorized, map[string]any{"error": "invalid 2FA code"})
		return
	}

	delete(s.tempTokens, bearer(r))
	respond(w, http.StatusOK, map[string]any{"access_token": s.mintLocked(user)})
}

func (s *stubAPI) handleVerifyFace(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Image string `json:"image"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[req.Email]
	if !ok || user.faceID == "" || user.faceID != req.Image {
		respond(w, http.StatusUnauthorized, map[string]any{"error": "face not recognised"})
		return
	}

	respond(w, http.StatusOK, map[string]any{
		"access_token": s.mintLocked(user),
		"user":         user.profile(),
	})
}

func (s *stubAPI) handleRegisterFace(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Image string `json:"image"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.tokens[bearer(r)]
	if !ok {
		respond(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
		return
	}

	user.faceID = req.Image
	respond(w, http.StatusOK, map[string]any{"message": "face registered"})
}

func (s *stubAPI) handleUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.tokens[bearer(r)]
	if !ok {
		respond(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
		return
	}
	respond(w, http.StatusOK, map[string]any{"user": user.profile()})
}

func (s *stubAPI) handleGenerateTwoFactor(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.tokens[bearer(r)]
	if !ok {
		respond(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
		return
	}

	key, err := totp.Generate(totp.GenerateOpts{Issuer: "Folio", AccountName: user.email})
	if err != nil {
		respond(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}

	user.totpSecret = key.Secret()
	user.twoFAEnabled = true
	respond(w, http.StatusOK, map[string]any{"qr_code": key.URL()})
}

func (s *stubAPI) handleDisableTwoFactor(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.tokens[bearer(r)]
	if !ok {
		respond(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
		return
	}
	if user.password != req.Password {
		respond(w, http.StatusForbidden, map[string]any{"error": "invalid password"})
		return
	}

	user.totpSecret = ""
	user.twoFAEnabled = false
	respond(w, http.StatusOK, map[string]any{"message": "2FA disabled"})
}

func (s *stubAPI) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[bearer(r)]; !ok {
		respond(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
		return
	}
	delete(s.tokens, bearer(r))
	respond(w, http.StatusOK, map[string]any{"message": "logged out"})
}

// revokeAll invalidates every issued full token, simulating server-side
// session revocation.
func (s *stubAPI) revokeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = make(map[string]*stubUser)
}

func (s *stubAPI) mintLocked(user *stubUser) string {
	token := idx.New().String()
	s.tokens[token] = user
	return token
}

func bearer(r *http.Request) string {
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}

func respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// newSessionClient builds the production client stack: durable SQLite
// sessions and cache, pointed at the given database file so a second client
// can reuse it as a "restarted process".
func newSessionClient(t *testing.T, baseURL, dbFile string) *authsdk.Client {
	t.Helper()

	st, err := sqlite.NewStore(dbFile, time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	return authsdk.NewClient(baseURL,
		authsdk.WithSessionStore(st.Sessions()),
		authsdk.WithRequestCache(st.Cache()),
		authsdk.WithSubmissionLimit(100, time.Second),
		authsdk.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func sessionDBFile(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "folio.db")
}
