package repository

import (
	"context"
	"time"

	"github.com/hungbv115/education-backend/internal/domain"
)

// UserRepository defines methods for user operations
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	Enable(ctx context.Context, userID string) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	UpdateUsing2FA(ctx context.Context, userID string, enabled bool) error
	UpdateLastLogin(ctx context.Context, userID string) error
}

// TokenRepository defines methods for single-use account tokens.
// At most one live token exists per (user, purpose, device) triple;
// Upsert replaces the prior one.
type TokenRepository interface {
	Upsert(ctx context.Context, token *domain.AccountToken) error
	GetByToken(ctx context.Context, token string) (*domain.AccountToken, error)
	Rotate(ctx context.Context, oldToken, newToken string, expiresAt time.Time) (*domain.AccountToken, error)
	// Redeem deletes the token iff it is still live at the given instant and
	// returns the deleted record. A concurrent second redeem observes ErrNotFound.
	Redeem(ctx context.Context, token string, now time.Time) (*domain.AccountToken, error)
	DeleteExpired(ctx context.Context) error
}

// DeviceRepository defines methods for per-user device identities
type DeviceRepository interface {
	// RecordOrGet creates the device in the pending state if absent,
	// otherwise returns the existing record unchanged.
	RecordOrGet(ctx context.Context, device *domain.Device) (*domain.Device, error)
	GetByUserAndDevice(ctx context.Context, userID, deviceID string) (*domain.Device, error)
	// Approve flips the approved flag; ErrNotFound when no record exists
	Approve(ctx context.Context, userID, deviceID string) error
	TouchLastLogin(ctx context.Context, userID, deviceID string) error
	GetByUserID(ctx context.Context, userID string) ([]*domain.Device, error)
}

// LocationRepository defines methods for the append-only login-location audit trail
type LocationRepository interface {
	Create(ctx context.Context, loc *domain.UserLocation) error
	GetByCountryAndUser(ctx context.Context, country, userID string) (*domain.UserLocation, error)
	GetByUserID(ctx context.Context, userID string) ([]*domain.UserLocation, error)
}

// OutboxRepository defines methods for the notification outbox queue
type OutboxRepository interface {
	Enqueue(ctx context.Context, msg *OutboxMessage) error
	// ClaimPending stamps and returns up to limit unsent messages with fewer
	// than maxAttempts delivery attempts, oldest first. A claimed message is
	// invisible to other callers until its claim lease expires or MarkFailed
	// releases it.
	ClaimPending(ctx context.Context, limit, maxAttempts int) ([]*OutboxMessage, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, reason string) error
}
