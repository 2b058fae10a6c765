package authsdk

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/pquerna/otp"
)

// VerifyTwoFactor completes a pending two-factor challenge. The code travels
// under the temporary token; on success the server answers with a full token
// and no profile, so the profile is re-fetched under the new token and only
// then is the session committed. A rejected code leaves the machine in
// AwaitingTwoFactor with the same temporary token, so the user can retry
// without re-entering the password.
func (c *Client) VerifyTwoFactor(ctx context.Context, code, tempToken string) (*LoginResult, error) {
	if c.challenge.Current() != StateAwaitingTwoFactor {
		return nil, ErrNoPendingChallenge
	}
	if tempToken == "" {
		tempToken = c.challenge.TempToken()
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("verification throttled: %w", err)
	}

	body := map[string]string{"token": code}
	raw, status, err := c.request(ctx, http.MethodPost, endpointVerifyTwoFactor, body, scopeTemporary, tempToken)
	if err != nil {
		return nil, err
	}

	var resp tokenResponse
	if err := decodeResult(raw, status, &resp); err != nil {
		if IsCredentialRejection(err) {
			// Retry allowed: same challenge, same temporary token.
			c.challenge.retryTwoFactor(userMessage(err))
			return &LoginResult{Status: StatusFailed, Reason: userMessage(err)}, nil
		}
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("verify-2fa response carried no access token")
	}

	// The 2FA response has no profile; fetch it with the new full token
	// before anything is persisted.
	user, err := c.fetchProfileWithToken(ctx, resp.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch profile after 2FA: %w", err)
	}

	// Claim the transition before committing: a challenge cancelled while
	// the verification was in flight must not produce a session.
	if err := c.challenge.completeTwoFactor(); err != nil {
		return &LoginResult{Status: StatusFailed, Reason: "challenge cancelled"}, nil
	}
	if err := c.commitSession(ctx, resp.AccessToken, user); err != nil {
		c.challenge.forceIdle()
		return nil, err
	}
	return &LoginResult{Status: StatusAuthenticated, User: user}, nil
}

// GenerateTwoFactor starts TOTP enrollment for the authenticated user. The
// server answers with a provisioning URI (rendered as a QR code in the UI);
// the URI is parsed so callers get the secret and labels without touching
// the otpauth format themselves.
func (c *Client) GenerateTwoFactor(ctx context.Context) (*TwoFactorSetup, error) {
	raw, status, err := c.request(ctx, http.MethodPost, endpointGenerateTwoFactor, nil, scopeFull, "")
	if err != nil {
		return nil, err
	}

	var resp qrCodeResponse
	if err := decodeResult(raw, status, &resp); err != nil {
		return nil, err
	}

	key, err := otp.NewKeyFromURL(resp.QRCode)
	if err != nil {
		return nil, fmt.Errorf("failed to parse provisioning URI: %w", err)
	}

	c.invalidateAuthCache(ctx)
	return &TwoFactorSetup{
		ProvisioningURI: resp.QRCode,
		Secret:          key.Secret(),
		Issuer:          key.Issuer(),
		Account:         key.AccountName(),
	}, nil
}

// DisableTwoFactor turns TOTP off for the authenticated user. The password
// re-confirmation travels in the body; on success the cached profile is
// stale, so it is re-fetched rather than patched.
func (c *Client) DisableTwoFactor(ctx context.Context, password string) error {
	body := map[string]string{"password": password}
	raw, status, err := c.request(ctx, http.MethodPost, endpointDisableTwoFactor, body, scopeFull, "")
	if err != nil {
		return err
	}
	if err := decodeResult(raw, status, nil); err != nil {
		return err
	}

	c.invalidateAuthCache(ctx)
	if _, err := c.FetchProfile(ctx); err != nil {
		c.logger.Warn("profile refresh after disabling 2FA failed", "error", err)
	}
	return nil
}

// userMessage extracts the display message from a server rejection.
func userMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
