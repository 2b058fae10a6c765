package authsdk

// ============================================================================
// Domain Types
// ============================================================================

// UserProfile is the authenticated user as the server reports it. It is
// replaced wholesale on every successful auth or profile fetch; the single
// exception is FaceEnroll, which flips HasFaceID in place because the server
// reports that fact additively.
type UserProfile struct {
	// ID is the server-side user identifier
	ID int64 `json:"id"`

	// Username is the user's display handle
	Username string `json:"username"`

	// Email is the login email address
	Email string `json:"email"`

	// HasFaceID reports whether a facial biometric is enrolled for this user
	HasFaceID bool `json:"has_faceid"`

	// TwoFactorEnabled reports whether TOTP two-factor auth is enabled
	TwoFactorEnabled bool `json:"is_2fa_enabled"`
}

// LoginStatus is the three-way outcome of a credential or biometric
// submission.
type LoginStatus string

const (
	// StatusAuthenticated means a full session was committed to the store.
	StatusAuthenticated LoginStatus = "authenticated"

	// StatusTwoFactorRequired means the password was accepted but the server
	// demands a second factor before issuing a full token.
	StatusTwoFactorRequired LoginStatus = "twofa_required"

	// StatusFailed means the server rejected the submission.
	StatusFailed LoginStatus = "failed"
)

// LoginResult is the structured outcome of Login, Register and FaceVerify.
// A LoginResult is only produced when the protocol reached a decision;
// transport failures are returned as errors instead.
type LoginResult struct {
	Status LoginStatus

	// User is the committed profile. Set only for StatusAuthenticated.
	User *UserProfile

	// TempToken is the narrowly-scoped credential for completing the
	// two-factor challenge. Set only for StatusTwoFactorRequired.
	TempToken string

	// Message is the server's prompt for the second factor.
	Message string

	// Reason is the user-facing failure message. Set only for StatusFailed.
	Reason string
}

// TwoFactorSetup is the enrollment material returned by GenerateTwoFactor.
type TwoFactorSetup struct {
	// ProvisioningURI is the raw otpauth:// URI encoded by the server's QR code
	ProvisioningURI string

	// Secret is the shared TOTP secret extracted from the URI
	Secret string

	// Issuer is the issuing service name extracted from the URI
	Issuer string

	// Account is the account label extracted from the URI
	Account string
}

// ============================================================================
// Request Types
// ============================================================================

// RegisterRequest is the payload for creating a new account.
type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
	Age      int    `json:"age"`

	// FaceID optionally carries a JPEG data URI to enroll a facial biometric
	// at registration time.
	FaceID string `json:"faceid,omitempty"`
}

// UpdateProfileRequest is the payload for updating account details. The
// current password is always required; NewPassword is optional.
type UpdateProfileRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password,omitempty"`
}

// ============================================================================
// Internal Wire Types (used for JSON unmarshaling)
// ============================================================================

// loginResponse covers both branches of the login endpoint: a committed
// session or a two-factor challenge.
type loginResponse struct {
	AccessToken string       `json:"access_token"`
	User        *UserProfile `json:"user"`

	TwoFARequired   bool   `json:"twofa_required"`
	TempAccessToken string `json:"temp_access_token"`
	Message         string `json:"message"`

	Error string `json:"error"`
}

// userResponse wraps the profile returned by the user and profile endpoints.
type userResponse struct {
	User *UserProfile `json:"user"`
}

// tokenResponse is the verify-2fa success shape. It carries no profile; the
// client re-fetches it before committing.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// qrCodeResponse is the generate-2fa success shape.
type qrCodeResponse struct {
	QRCode string `json:"qr_code"`
}

// errorResponse is the generic failure body.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
