// Package authsdk is the client-side authentication and session core for the
// Folio API.
//
// It owns everything between "the UI collected credentials" and "the process
// holds an authenticated session": the HTTP auth gateway, the multi-step
// login state machine, durable session persistence, and a time-windowed cache
// of idempotent reads. Presentation code is expected to call into this
// package and render the structured results; it should never talk to the API
// or the underlying storage directly.
//
// # Client
//
// A Client is created once per process and shared:
//
//	client := authsdk.NewClient("https://api.folio.example",
//		authsdk.WithSessionStore(sessions),
//		authsdk.WithRequestCache(cache),
//		authsdk.WithLogger(logger),
//	)
//
// Without options the client keeps its session in process memory, which is
// enough for tests and throwaway tools. Real deployments inject the durable
// store so sessions survive restarts.
//
// # Login protocol
//
// Login is a three-way branch, not a boolean:
//
//	result, err := client.Login(ctx, email, password)
//	if err != nil {
//		// transport-level failure, nothing was decided
//	}
//	switch result.Status {
//	case authsdk.StatusAuthenticated:
//		// session committed, full token in the store
//	case authsdk.StatusTwoFactorRequired:
//		code := promptForCode(result.Message)
//		result, err = client.VerifyTwoFactor(ctx, code, result.TempToken)
//	case authsdk.StatusFailed:
//		showError(result.Reason)
//	}
//
// The two-factor branch hands back a temporary token that is only ever valid
// for the verify-2fa endpoint. The client enforces that scope: a temporary
// token is never attached to any other request and never written to the
// session store.
//
// # Sessions
//
// The ChallengeStateMachine (see Challenge) is the single authority on "is a
// user logged in". Authenticated is the only state in which the session store
// holds a full token, and any unauthorized response from the server clears
// the store, purges the cache and forces the machine back to Idle.
//
// Biometric login and enrollment take a JPEG data URI produced by pkg/camx
// and follow the same commit contract as password login.
package authsdk
