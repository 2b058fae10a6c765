package authsdk

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// timeNow is swapped out by tests to pin token expiry checks.
var timeNow = time.Now

// tokenExpired reports whether a persisted bearer token is already past its
// expiry claim. The token is treated as opaque: nothing is verified, no
// signature is checked. This is purely a restore-time hint so the client can
// skip a round-trip that is guaranteed to come back 401. Tokens that do not
// parse as JWTs, or carry no exp claim, are assumed live and left for the
// server to judge.
func tokenExpired(raw string, now time.Time) bool {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(now)
}
