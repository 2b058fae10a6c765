package authsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Folio API endpoints. The request cache is keyed on these paths, and
// mutations invalidate by the shared apiPrefix.
const (
	endpointRegister          = "/api/auth/register"
	endpointLogin             = "/api/auth/login"
	endpointVerifyTwoFactor   = "/api/auth/verify-2fa"
	endpointVerifyFace        = "/api/auth/verify-face"
	endpointRegisterFace      = "/api/auth/register-face"
	endpointUser              = "/api/auth/user"
	endpointUpdateProfile     = "/api/auth/profile/update"
	endpointGenerateTwoFactor = "/api/auth/generate-2fa"
	endpointDisableTwoFactor  = "/api/auth/disable-2fa"
	endpointLogout            = "/api/auth/logout"

	apiPrefix = "/api/auth"
)

// authScope selects which bearer credential a request carries.
type authScope int

const (
	// scopeNone sends no Authorization header.
	scopeNone authScope = iota

	// scopeTemporary attaches the pending two-factor token. Only the
	// verify-2fa endpoint may be called at this scope.
	scopeTemporary

	// scopeFull attaches the committed session token from the store.
	scopeFull
)

// url builds a complete URL by appending the path to the base URL.
func (c *Client) url(path string) string {
	return c.BaseURL + path
}

// request performs one JSON API call and returns the raw body alongside the
// HTTP status. Protocol branches (like the two-factor fork) live in the body
// even on non-2xx responses, so callers get the bytes regardless of status;
// only transport-level failures return an error.
//
// The scope rules are enforced here, at the single choke point every call
// goes through: a temporary token can only reach verify-2fa, and a full-scope
// call that comes back 401 tears the session down before reporting
// ErrSessionExpired.
func (c *Client) request(
	ctx context.Context,
	method, endpoint string,
	body any,
	scope authScope,
	tempToken string,
) ([]byte, int, error) {
	var bearer string
	switch scope {
	case scopeNone:
	case scopeTemporary:
		if endpoint != endpointVerifyTwoFactor {
			return nil, 0, fmt.Errorf("%w (attempted %s)", ErrTemporaryTokenMisuse, endpoint)
		}
		if tempToken == "" {
			return nil, 0, ErrNoPendingChallenge
		}
		bearer = tempToken
	case scopeFull:
		bearer = c.Token(ctx)
		if bearer == "" {
			return nil, 0, ErrNotAuthenticated
		}
	}

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(endpoint), reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "application/json") {
		// Drain so the connection can be reused, but never parse.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, resp.StatusCode, fmt.Errorf("%w (content-type %q)", ErrNonJSONResponse, ct)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}

	if scope == scopeFull && resp.StatusCode == http.StatusUnauthorized {
		c.expireSession(ctx)
		return nil, resp.StatusCode, fmt.Errorf("call to %s unauthorized: %w", endpoint, ErrSessionExpired)
	}

	return raw, resp.StatusCode, nil
}

// decodeResult turns a raw response into target, or into an APIError when the
// status reports failure.
func decodeResult(raw []byte, status int, target any) error {
	if status < 200 || status >= 300 {
		var body errorResponse
		_ = json.Unmarshal(raw, &body)
		return newAPIError(status, body)
	}

	if target == nil {
		return nil
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// decodeBody applies the JSON content-type check and decodeResult to a raw
// *http.Response. Used by the one code path that bypasses the request
// primitive because its token is deliberately uncommitted.
func decodeBody(resp *http.Response, target any) error {
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "application/json") {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w (content-type %q)", ErrNonJSONResponse, ct)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	return decodeResult(raw, resp.StatusCode, target)
}

// getJSON performs a cached GET: a fresh cache entry bypasses the network
// entirely, and a successful fetch restarts the entry's TTL window. Cache
// errors are misses.
func (c *Client) getJSON(ctx context.Context, endpoint string, target any) error {
	if cached, err := c.cache.Get(ctx, endpoint); err == nil {
		if err := json.Unmarshal(cached, target); err == nil {
			c.logger.Debug("cache hit", "endpoint", endpoint)
			return nil
		}
		// Unreadable entry: fall through to the network.
	}

	raw, status, err := c.request(ctx, http.MethodGet, endpoint, nil, scopeFull, "")
	if err != nil {
		return err
	}
	if err := decodeResult(raw, status, target); err != nil {
		return err
	}

	if err := c.cache.Put(ctx, endpoint, raw); err != nil {
		c.logger.Debug("cache write failed", "endpoint", endpoint, "error", err)
	}
	return nil
}

// invalidateAuthCache drops every cached read under the auth API prefix.
// Mutations call this on success so subsequent reads observe their effect.
func (c *Client) invalidateAuthCache(ctx context.Context) {
	if err := c.cache.Invalidate(ctx, apiPrefix); err != nil {
		c.logger.Debug("cache invalidation failed", "prefix", apiPrefix, "error", err)
	}
}

// expireSession is the single unsolicited-logout path: the server said
// unauthorized on a full-scope call, so the store is cleared, the cache
// purged and the challenge machine reset.
func (c *Client) expireSession(ctx context.Context) {
	if err := c.sessions.Clear(ctx); err != nil {
		c.logger.Warn("failed to clear session store", "error", err)
	}
	if err := c.cache.InvalidateAll(ctx); err != nil {
		c.logger.Debug("cache purge failed", "error", err)
	}
	c.challenge.forceIdle()
	c.logger.Info("session expired, cleared local state")
}

// decodeProfile deserializes a stored profile, returning nil when the bytes
// are unreadable.
func decodeProfile(raw []byte) *UserProfile {
	var user UserProfile
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil
	}
	return &user
}

// encodeProfile serializes a profile for the session store.
func encodeProfile(user *UserProfile) ([]byte, error) {
	raw, err := json.Marshal(user)
	if err != nil {
		return nil, fmt.Errorf("failed to encode profile: %w", err)
	}
	return raw, nil
}
