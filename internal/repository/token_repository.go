package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hungbv115/education-backend/internal/domain"
	"github.com/hungbv115/education-backend/pkg/database"
	"github.com/lib/pq"
)

// tokenRepository implements TokenRepository interface
type tokenRepository struct {
	db *database.Postgres
}

// NewTokenRepository creates a new account token repository
func NewTokenRepository(db *database.Postgres) TokenRepository {
	return &tokenRepository{db: db}
}

const tokenColumns = `id, user_id, purpose, token, device_id, expires_at, created_at`

// Upsert stores a token, replacing any existing live token for the same
// (user, purpose, device) triple. The replaced token value is no longer redeemable.
func (r *tokenRepository) Upsert(ctx context.Context, token *domain.AccountToken) error {
	query := `
		INSERT INTO account_tokens (id, user_id, purpose, token, device_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, purpose, device_key) DO UPDATE
		SET token = EXCLUDED.token,
		    expires_at = EXCLUDED.expires_at,
		    created_at = EXCLUDED.created_at
	`

	// Generate UUID if not provided
	if token.ID == "" {
		token.ID = uuid.New().String()
	}

	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}

	_, err := r.db.DB.ExecContext(ctx, query,
		token.ID,
		token.UserID,
		token.Purpose,
		token.Token,
		token.DeviceID,
		token.ExpiresAt,
		token.CreatedAt,
	)

	if err != nil {
		// Token values are unique across all purposes
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" { // unique_violation
				return fmt.Errorf("token value collision: %w", ErrDuplicateToken)
			}
		}
		return fmt.Errorf("failed to upsert token: %w", err)
	}

	return nil
}

// GetByToken retrieves a token record by its value. Pure read, no expiry side effect.
func (r *tokenRepository) GetByToken(ctx context.Context, token string) (*domain.AccountToken, error) {
	query := fmt.Sprintf(`SELECT %s FROM account_tokens WHERE token = $1`, tokenColumns)

	record, err := r.scanToken(r.db.DB.QueryRowContext(ctx, query, token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("token not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	return record, nil
}

// Rotate replaces the token value on the same logical record and extends its expiry.
// Used when an invalid or expired token holder asks for a resend.
func (r *tokenRepository) Rotate(ctx context.Context, oldToken, newToken string, expiresAt time.Time) (*domain.AccountToken, error) {
	query := fmt.Sprintf(`
		UPDATE account_tokens
		SET token = $2, expires_at = $3
		WHERE token = $1
		RETURNING %s
	`, tokenColumns)

	record, err := r.scanToken(r.db.DB.QueryRowContext(ctx, query, oldToken, newToken, expiresAt))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("token not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to rotate token: %w", err)
	}

	return record, nil
}

// Redeem deletes the token iff it is still live at the given instant.
// The compare-and-delete keeps redemption atomic: of two concurrent redeems
// of the same value, exactly one sees the row.
func (r *tokenRepository) Redeem(ctx context.Context, token string, now time.Time) (*domain.AccountToken, error) {
	query := fmt.Sprintf(`
		DELETE FROM account_tokens
		WHERE token = $1 AND expires_at > $2
		RETURNING %s
	`, tokenColumns)

	record, err := r.scanToken(r.db.DB.QueryRowContext(ctx, query, token, now))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("token not redeemable: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to redeem token: %w", err)
	}

	return record, nil
}

// DeleteExpired deletes all expired account tokens
func (r *tokenRepository) DeleteExpired(ctx context.Context) error {
	query := `DELETE FROM account_tokens WHERE expires_at < $1`

	_, err := r.db.DB.ExecContext(ctx, query, time.Now())
	if err != nil {
		return fmt.Errorf("failed to delete expired tokens: %w", err)
	}

	return nil
}

func (r *tokenRepository) scanToken(row *sql.Row) (*domain.AccountToken, error) {
	record := &domain.AccountToken{}
	var deviceID sql.NullString

	err := row.Scan(
		&record.ID,
		&record.UserID,
		&record.Purpose,
		&record.Token,
		&deviceID,
		&record.ExpiresAt,
		&record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if deviceID.Valid {
		record.DeviceID = &deviceID.String
	}

	return record, nil
}
