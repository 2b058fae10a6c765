package authsdk

import (
	"context"
	"fmt"
	"net/http"
)

// FetchProfile returns the authenticated user's profile. Reads go through
// the request cache: a fresh entry answers without a network round-trip. A
// fetched profile replaces the stored one wholesale.
func (c *Client) FetchProfile(ctx context.Context) (*UserProfile, error) {
	var resp userResponse
	if err := c.getJSON(ctx, endpointUser, &resp); err != nil {
		return nil, err
	}
	if resp.User == nil {
		return nil, fmt.Errorf("user response carried no profile")
	}

	token := c.Token(ctx)
	if token != "" {
		encoded, err := encodeProfile(resp.User)
		if err != nil {
			return nil, err
		}
		if err := c.sessions.SetSession(ctx, token, encoded); err != nil {
			c.logger.Warn("failed to persist refreshed profile", "error", err)
		}
	}
	return resp.User, nil
}

// fetchProfileWithToken fetches the profile under an explicitly supplied full
// token. Used when the token exists but has deliberately not been committed
// yet (the 2FA completion and the startup restore path).
func (c *Client) fetchProfileWithToken(ctx context.Context, token string) (*UserProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(endpointUser), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	var body userResponse
	if err := decodeBody(resp, &body); err != nil {
		return nil, err
	}
	if body.User == nil {
		return nil, fmt.Errorf("user response carried no profile")
	}
	return body.User, nil
}

// UpdateProfile changes account details (username, email, optionally the
// password). The server answers with the updated profile, which replaces the
// stored one wholesale; cached reads under the auth prefix are dropped.
func (c *Client) UpdateProfile(ctx context.Context, req UpdateProfileRequest) (*UserProfile, error) {
	raw, status, err := c.request(ctx, http.MethodPut, endpointUpdateProfile, req, scopeFull, "")
	if err != nil {
		return nil, err
	}

	var resp userResponse
	if err := decodeResult(raw, status, &resp); err != nil {
		return nil, err
	}
	if resp.User == nil {
		return nil, fmt.Errorf("user response carried no profile")
	}

	token := c.Token(ctx)
	if token == "" {
		return nil, ErrNotAuthenticated
	}
	encoded, err := encodeProfile(resp.User)
	if err != nil {
		return nil, err
	}
	if err := c.sessions.SetSession(ctx, token, encoded); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}
	c.invalidateAuthCache(ctx)
	return resp.User, nil
}
