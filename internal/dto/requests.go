package dto

// SignupRequest represents a signup request
type SignupRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Using2FA  bool   `json:"using_2fa"`
}

// LoginRequest represents a credential login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// DeviceLoginRequest represents a login attempt from an identified device
type DeviceLoginRequest struct {
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required"`
	DeviceID   string `json:"device_id" binding:"required"`
	DeviceType string `json:"device_type" binding:"required"`
}

// DeviceApproveRequest represents a remote approval of a pending device,
// issued from an already-trusted channel
type DeviceApproveRequest struct {
	Email    string `json:"email" binding:"required,email"`
	DeviceID string `json:"device_id" binding:"required"`
}

// PasswordResetRequest represents a request to start the password-reset flow
type PasswordResetRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// SavePasswordRequest represents the redemption of a reset token
type SavePasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

// Update2FARequest toggles the caller's two-factor preference. A pointer
// keeps "using_2fa": false from failing required-field validation.
type Update2FARequest struct {
	Using2FA *bool `json:"using_2fa" binding:"required"`
}

// SessionResponse represents a minted session token
type SessionResponse struct {
	AccessToken string   `json:"access_token"`
	TokenType   string   `json:"token_type"`
	ExpiresIn   int      `json:"expires_in"`
	User        UserInfo `json:"user"`
}

// DeviceLoginResponse reports the outcome of a device login attempt.
// Session is set only when the device is approved; a pending device gets
// the approval URL (also dispatched over the trusted channel as a QR payload).
type DeviceLoginResponse struct {
	Status      string           `json:"status"` // approved, pending
	Session     *SessionResponse `json:"session,omitempty"`
	ApprovalURL string           `json:"approval_url,omitempty"`
	Message     string           `json:"message,omitempty"`
}

// UserInfo represents user information in a session response
type UserInfo struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// UserResponse represents a user profile response
type UserResponse struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	FirstName   string   `json:"first_name"`
	LastName    string   `json:"last_name"`
	Enabled     bool     `json:"enabled"`
	Roles       []string `json:"roles"`
	Using2FA    bool     `json:"using_2fa"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
	LastLoginAt *string  `json:"last_login_at"`
}

// DeviceResponse represents one of the user's known devices
type DeviceResponse struct {
	ID          string `json:"id"`
	DeviceID    string `json:"device_id"`
	DeviceType  string `json:"device_type"`
	State       string `json:"state"`
	LastLoginAt string `json:"last_login_at"`
	CreatedAt   string `json:"created_at"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}
