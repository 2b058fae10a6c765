package authsdk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Login submits an email/password credential. The outcome is a three-way
// branch: authenticated (session committed), two-factor required (temporary
// token handed back, nothing persisted), or failed (server rejected the
// credential). The two-factor fork is a deliberate protocol branch, not an
// error, and may arrive on a non-2xx status, so the body is inspected before
// the status code is consulted.
//
// Only transport-level failures return an error; in that case no protocol
// decision was reached and the challenge machine records the failure.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	attempt, err := c.challenge.begin()
	if err != nil {
		return nil, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		c.challenge.fail(attempt, "submission cancelled")
		return nil, fmt.Errorf("login throttled: %w", err)
	}

	body := map[string]string{"email": email, "password": password}
	raw, status, err := c.request(ctx, http.MethodPost, endpointLogin, body, scopeNone, "")
	if err != nil {
		c.challenge.fail(attempt, "could not reach the server")
		return nil, err
	}

	var resp loginResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		c.challenge.fail(attempt, "could not reach the server")
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	// The two-factor fork wins over everything else in the body.
	if resp.TwoFARequired {
		if !c.challenge.awaitTwoFactor(attempt, resp.TempAccessToken, resp.Message) {
			return &LoginResult{Status: StatusFailed, Reason: "superseded by a newer login"}, nil
		}
		message := resp.Message
		if message == "" {
			message = "enter your two-factor code"
		}
		return &LoginResult{
			Status:    StatusTwoFactorRequired,
			TempToken: resp.TempAccessToken,
			Message:   message,
		}, nil
	}

	if status == http.StatusOK && resp.AccessToken != "" && resp.User != nil {
		// Claim the outcome first. A completion that was superseded or
		// cancelled while in flight must never touch the store; the newer
		// submission owns it.
		if !c.challenge.authenticate(attempt) {
			return &LoginResult{Status: StatusFailed, Reason: "superseded by a newer login"}, nil
		}
		if err := c.commitSession(ctx, resp.AccessToken, resp.User); err != nil {
			c.challenge.forceIdle()
			return nil, err
		}
		return &LoginResult{Status: StatusAuthenticated, User: resp.User}, nil
	}

	reason := resp.Error
	if reason == "" {
		reason = "login failed"
	}
	c.challenge.fail(attempt, reason)
	return &LoginResult{Status: StatusFailed, Reason: reason}, nil
}

// commitSession persists the full token and profile atomically and purges
// every cached read, which may belong to the previous identity.
func (c *Client) commitSession(ctx context.Context, token string, user *UserProfile) error {
	raw, err := encodeProfile(user)
	if err != nil {
		return err
	}
	if err := c.sessions.SetSession(ctx, token, raw); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	if err := c.cache.InvalidateAll(ctx); err != nil {
		c.logger.Debug("cache purge failed", "error", err)
	}
	c.logger.Info("session established", "user", user.Username)
	return nil
}

// Logout tears the session down: best-effort server notification, then the
// local clear (token first, then profile, then cache) and the challenge
// machine back to Idle.
func (c *Client) Logout(ctx context.Context) error {
	if c.Token(ctx) != "" {
		raw, status, err := c.request(ctx, http.MethodPost, endpointLogout, nil, scopeFull, "")
		if err != nil {
			// The server could not be told; the local session still dies.
			c.logger.Warn("server logout failed", "error", err)
		} else if err := decodeResult(raw, status, nil); err != nil {
			c.logger.Warn("server logout rejected", "error", err)
		}
	}

	if err := c.sessions.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	if err := c.cache.InvalidateAll(ctx); err != nil {
		c.logger.Debug("cache purge failed", "error", err)
	}
	c.challenge.forceIdle()
	c.logger.Info("logged out")
	return nil
}

// RestoreSession revives a persisted session at startup. When both durable
// keys are present and the token is not visibly expired, the profile is
// re-fetched so a revoked session is detected immediately; on success the
// challenge machine reports Authenticated. Returns nil with no error when
// there is nothing to restore.
func (c *Client) RestoreSession(ctx context.Context) (*UserProfile, error) {
	token := c.Token(ctx)
	stored := c.User(ctx)
	if token == "" || stored == nil {
		return nil, nil
	}

	if tokenExpired(token, timeNow()) {
		c.logger.Info("persisted token expired, discarding session")
		c.expireSession(ctx)
		return nil, nil
	}

	user, err := c.fetchProfileWithToken(ctx, token)
	if err != nil {
		if IsCredentialRejection(err) || isSessionExpired(err) {
			// The request helper already cleared state on 401.
			c.expireSession(ctx)
			return nil, nil
		}
		return nil, err
	}

	if err := c.commitSession(ctx, token, user); err != nil {
		return nil, err
	}
	c.challenge.markAuthenticated()
	return user, nil
}
