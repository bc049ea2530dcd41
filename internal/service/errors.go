package service

import "errors"

// Domain errors returned to handlers for translation into user-facing
// responses. Infrastructure failures (mail, geolocation) are not part of this
// taxonomy; they are logged and isolated so they cannot abort a committed
// account mutation.
var (
	// ErrDuplicateUser is returned when signing up with an already registered email
	ErrDuplicateUser = errors.New("user already exists")

	// ErrInvalidToken is returned when a token is unknown or already consumed
	ErrInvalidToken = errors.New("invalid token")

	// ErrExpiredToken is returned when a token exists but its TTL has passed
	ErrExpiredToken = errors.New("expired token")

	// ErrAuthenticationFailed is returned when credentials do not match
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrAccountDisabled is returned when logging into an unverified account
	ErrAccountDisabled = errors.New("account is not enabled")

	// ErrDeviceNotFound is returned when approving a device with no record
	ErrDeviceNotFound = errors.New("device not found")

	// ErrInvalidDeviceType is returned when a device login names an unknown device type
	ErrInvalidDeviceType = errors.New("invalid device type")

	// ErrInvalidEmail is returned when an email address fails validation
	ErrInvalidEmail = errors.New("invalid email format")

	// ErrWeakPassword is returned when a password fails the complexity rules
	ErrWeakPassword = errors.New("password must be at least 8 characters long and contain uppercase, lowercase, and number")
)
