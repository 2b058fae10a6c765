package authsdk

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// SessionStore is durable key/value persistence for the current session:
// exactly one bearer token and one serialized user profile. Implementations
// must commit SetSession atomically (profile before token) and must remove
// the token first on Clear, so no intermediate state authorizes requests.
type SessionStore interface {
	Token(ctx context.Context) (string, error)
	User(ctx context.Context) ([]byte, error)
	SetSession(ctx context.Context, token string, user []byte) error
	Clear(ctx context.Context) error
}

// RequestCache is a time-windowed cache of successful read responses keyed by
// endpoint path. Entries are derived state: the client treats every cache
// error as a miss and carries on.
type RequestCache interface {
	Get(ctx context.Context, endpoint string) ([]byte, error)
	Put(ctx context.Context, endpoint string, payload []byte) error
	Invalidate(ctx context.Context, prefix string) error
	InvalidateAll(ctx context.Context) error
}

// Client is the auth gateway for the Folio API. It issues all
// authentication-related network operations, sequences the login protocol
// through its Challenge machine, and is the only writer of the session store
// and request cache.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	sessions  SessionStore
	cache     RequestCache
	challenge *Challenge
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithSessionStore wires durable session persistence. Defaults to an
// in-process store that does not survive restarts.
func WithSessionStore(s SessionStore) Option {
	return func(c *Client) { c.sessions = s }
}

// WithRequestCache wires the read-response cache. Defaults to an in-process
// cache with the standard 60 second window.
func WithRequestCache(rc RequestCache) Option {
	return func(c *Client) { c.cache = rc }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.HTTPClient = hc }
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithSubmissionLimit throttles credential submissions (login, 2FA, face
// verify) client-side. The default mirrors the server's strict profile:
// 5 per minute with a burst of 5.
func WithSubmissionLimit(perWindow int, window time.Duration) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(
			rate.Limit(float64(perWindow)/window.Seconds()),
			perWindow,
		)
	}
}

// NewClient creates an auth gateway for the API at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		challenge: NewChallenge(),
		limiter:   rate.NewLimiter(rate.Limit(5.0/60.0), 5),
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.sessions == nil {
		c.sessions = newMemStore()
	}
	if c.cache == nil {
		c.cache = newMemCache(60 * time.Second)
	}

	return c
}

// Challenge returns the login protocol state machine. UI code should derive
// "is a user logged in" from Challenge().Current() rather than probing
// storage.
func (c *Client) Challenge() *Challenge {
	return c.challenge
}

// Token returns the committed full bearer token, or "" when no session is
// established.
func (c *Client) Token(ctx context.Context) string {
	token, err := c.sessions.Token(ctx)
	if err != nil {
		return ""
	}
	return token
}

// User returns the committed user profile, or nil when no session is
// established.
func (c *Client) User(ctx context.Context) *UserProfile {
	raw, err := c.sessions.User(ctx)
	if err != nil {
		return nil
	}
	return decodeProfile(raw)
}
