package domain

import "time"

// RoleUser is the default role assigned on signup
const RoleUser = "ROLE_USER"

// User represents a registered account in the system.
// Enabled flips true only after verification-token redemption.
type User struct {
	ID           string     `json:"id" db:"id"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	FirstName    string     `json:"first_name" db:"first_name"`
	LastName     string     `json:"last_name" db:"last_name"`
	Enabled      bool       `json:"enabled" db:"enabled"`
	Roles        []string   `json:"roles" db:"roles"`
	Using2FA     bool       `json:"using_2fa" db:"using_2fa"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
	LastLoginAt  *time.Time `json:"last_login_at" db:"last_login_at"`
}

// UserLocation is an append-only record of a country a user has logged in from.
// Rows are never mutated after creation.
type UserLocation struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Country   string    `json:"country" db:"country"`
	Enabled   bool      `json:"enabled" db:"enabled"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
