package authsdk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Register creates a new account. A successful registration behaves like a
// successful login: the returned token and profile are committed atomically
// and the challenge machine reports Authenticated.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*LoginResult, error) {
	attempt, err := c.challenge.begin()
	if err != nil {
		return nil, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		c.challenge.fail(attempt, "submission cancelled")
		return nil, fmt.Errorf("registration throttled: %w", err)
	}

	raw, status, err := c.request(ctx, http.MethodPost, endpointRegister, req, scopeNone, "")
	if err != nil {
		c.challenge.fail(attempt, "could not reach the server")
		return nil, err
	}

	var resp loginResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		c.challenge.fail(attempt, "could not reach the server")
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if status == http.StatusOK || status == http.StatusCreated {
		if resp.AccessToken != "" && resp.User != nil {
			if !c.challenge.authenticate(attempt) {
				return &LoginResult{Status: StatusFailed, Reason: "superseded by a newer login"}, nil
			}
			if err := c.commitSession(ctx, resp.AccessToken, resp.User); err != nil {
				c.challenge.forceIdle()
				return nil, err
			}
			return &LoginResult{Status: StatusAuthenticated, User: resp.User}, nil
		}
	}

	reason := resp.Error
	if reason == "" {
		reason = "registration failed"
	}
	c.challenge.fail(attempt, reason)
	return &LoginResult{Status: StatusFailed, Reason: reason}, nil
}
