package authsdk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// FaceVerify performs a biometric login: a single still frame, encoded as a
// JPEG data URI by pkg/camx, is matched against the enrolled face for the
// given email. A match follows the exact session-commit contract of a
// password login. There is no retry loop here; re-capture and resubmission
// belong to the capture layer.
func (c *Client) FaceVerify(ctx context.Context, email, imageDataURI string) (*LoginResult, error) {
	attempt, err := c.challenge.begin()
	if err != nil {
		return nil, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		c.challenge.fail(attempt, "submission cancelled")
		return nil, fmt.Errorf("face verification throttled: %w", err)
	}

	body := map[string]string{"email": email, "image": imageDataURI}
	raw, status, err := c.request(ctx, http.MethodPost, endpointVerifyFace, body, scopeNone, "")
	if err != nil {
		c.challenge.fail(attempt, "could not reach the server")
		return nil, err
	}

	var resp loginResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		c.challenge.fail(attempt, "could not reach the server")
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if status == http.StatusOK && resp.AccessToken != "" && resp.User != nil {
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
		reason = "face verification failed"
	}
	c.challenge.fail(attempt, reason)
	return &LoginResult{Status: StatusFailed, Reason: reason}, nil
}

// FaceEnroll registers a facial biometric for the already-authenticated user.
// On success the server's only new fact is "this account now has a face ID",
// so the stored profile is patched in place: HasFaceID flips to true and
// every other field is left untouched. This is the one permitted partial
// profile update.
func (c *Client) FaceEnroll(ctx context.Context, imageDataURI string) error {
	body := map[string]string{"image": imageDataURI}
	raw, status, err := c.request(ctx, http.MethodPost, endpointRegisterFace, body, scopeFull, "")
	if err != nil {
		return err
	}
	if err := decodeResult(raw, status, nil); err != nil {
		return err
	}

	token := c.Token(ctx)
	user := c.User(ctx)
	if token == "" || user == nil {
		return ErrNotAuthenticated
	}
	user.HasFaceID = true
	encoded, err := encodeProfile(user)
	if err != nil {
		return err
	}
	if err := c.sessions.SetSession(ctx, token, encoded); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	c.invalidateAuthCache(ctx)
	c.logger.Info("face enrolled", "user", user.Username)
	return nil
}
