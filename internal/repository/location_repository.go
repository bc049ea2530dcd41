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
)

// locationRepository implements LocationRepository interface
type locationRepository struct {
	db *database.Postgres
}

// NewLocationRepository creates a new user location repository
func NewLocationRepository(db *database.Postgres) LocationRepository {
	return &locationRepository{db: db}
}

// Create appends a login-location record. Rows are never mutated afterwards.
func (r *locationRepository) Create(ctx context.Context, loc *domain.UserLocation) error {
	query := `
		INSERT INTO user_locations (id, user_id, country, enabled, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	if loc.ID == "" {
		loc.ID = uuid.New().String()
	}
	if loc.CreatedAt.IsZero() {
		loc.CreatedAt = time.Now()
	}

	_, err := r.db.DB.ExecContext(ctx, query,
		loc.ID,
		loc.UserID,
		loc.Country,
		loc.Enabled,
		loc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user location: %w", err)
	}

	return nil
}

// GetByCountryAndUser retrieves the location record for a (country, user) pair
func (r *locationRepository) GetByCountryAndUser(ctx context.Context, country, userID string) (*domain.UserLocation, error) {
	query := `
		SELECT id, user_id, country, enabled, created_at
		FROM user_locations
		WHERE country = $1 AND user_id = $2
	`

	loc := &domain.UserLocation{}
	err := r.db.DB.QueryRowContext(ctx, query, country, userID).Scan(
		&loc.ID,
		&loc.UserID,
		&loc.Country,
		&loc.Enabled,
		&loc.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("location not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user location: %w", err)
	}

	return loc, nil
}

// GetByUserID retrieves all location records for a user
func (r *locationRepository) GetByUserID(ctx context.Context, userID string) ([]*domain.UserLocation, error) {
	query := `
		SELECT id, user_id, country, enabled, created_at
		FROM user_locations
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get locations by user id: %w", err)
	}
	defer rows.Close()

	var locations []*domain.UserLocation
	for rows.Next() {
		loc := &domain.UserLocation{}
		err := rows.Scan(
			&loc.ID,
			&loc.UserID,
			&loc.Country,
			&loc.Enabled,
			&loc.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user location: %w", err)
		}

		locations = append(locations, loc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user locations: %w", err)
	}

	return locations, nil
}
