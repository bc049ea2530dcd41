package domain

import "time"

// TokenPurpose identifies what an account token can be redeemed for
type TokenPurpose string

const (
	PurposeVerification   TokenPurpose = "verification"
	PurposePasswordReset  TokenPurpose = "password_reset"
	PurposeDeviceApproval TokenPurpose = "device_approval"
)

// TokenStatus is the three-way result of validating an account token.
// Expired and not-found are expected control flow, not errors.
type TokenStatus string

const (
	TokenValid    TokenStatus = "valid"
	TokenExpired  TokenStatus = "expired"
	TokenNotFound TokenStatus = "not_found"
)

// AccountToken is a single-use, time-bounded opaque token tied to one user
// and one purpose. At most one live token exists per (user, purpose) pair;
// device-approval tokens are additionally scoped to a device.
type AccountToken struct {
	ID        string       `json:"id" db:"id"`
	UserID    string       `json:"user_id" db:"user_id"`
	Purpose   TokenPurpose `json:"purpose" db:"purpose"`
	Token     string       `json:"-" db:"token"`
	DeviceID  *string      `json:"device_id" db:"device_id"`
	ExpiresAt time.Time    `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
}

// IsExpired reports whether the token expiry has passed at the given instant
func (t AccountToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// SessionClaims represents the claims embedded in a signed session token
type SessionClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Exp    int64  `json:"exp"`
	Iat    int64  `json:"iat"`
}

// IsExpired checks if the session token is expired
func (sc SessionClaims) IsExpired() bool {
	return time.Now().Unix() > sc.Exp
}
