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

// deviceRepository implements DeviceRepository interface
type deviceRepository struct {
	db *database.Postgres
}

// NewDeviceRepository creates a new device repository
func NewDeviceRepository(db *database.Postgres) DeviceRepository {
	return &deviceRepository{db: db}
}

const deviceColumns = `id, user_id, device_id, device_type, approved, last_login_at, created_at`

// RecordOrGet creates the device in the pending state if no record exists for
// the (user, device) pair, otherwise returns the existing record unchanged.
// The insert-if-absent keeps the operation idempotent under concurrent logins.
func (r *deviceRepository) RecordOrGet(ctx context.Context, device *domain.Device) (*domain.Device, error) {
	if device.ID == "" {
		device.ID = uuid.New().String()
	}

	now := time.Now()
	if device.CreatedAt.IsZero() {
		device.CreatedAt = now
	}
	if device.LastLoginAt.IsZero() {
		device.LastLoginAt = now
	}

	insert := `
		INSERT INTO devices (id, user_id, device_id, device_type, approved, last_login_at, created_at)
		VALUES ($1, $2, $3, $4, FALSE, $5, $6)
		ON CONFLICT (user_id, device_id) DO NOTHING
	`

	_, err := r.db.DB.ExecContext(ctx, insert,
		device.ID,
		device.UserID,
		device.DeviceID,
		device.DeviceType,
		device.LastLoginAt,
		device.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record device: %w", err)
	}

	// Read back whichever row won
	return r.GetByUserAndDevice(ctx, device.UserID, device.DeviceID)
}

// GetByUserAndDevice retrieves a device record by (user, device id)
func (r *deviceRepository) GetByUserAndDevice(ctx context.Context, userID, deviceID string) (*domain.Device, error) {
	query := fmt.Sprintf(`SELECT %s FROM devices WHERE user_id = $1 AND device_id = $2`, deviceColumns)

	device, err := r.scanDevice(r.db.DB.QueryRowContext(ctx, query, userID, deviceID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("device %s not found for user %s: %w", deviceID, userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get device: %w", err)
	}

	return device, nil
}

// Approve marks the device as approved for login. The conditional update
// serializes concurrent approvals on the backing row.
func (r *deviceRepository) Approve(ctx context.Context, userID, deviceID string) error {
	query := `
		UPDATE devices
		SET approved = TRUE
		WHERE user_id = $1 AND device_id = $2
	`

	result, err := r.db.DB.ExecContext(ctx, query, userID, deviceID)
	if err != nil {
		return fmt.Errorf("failed to approve device: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("device %s not found for user %s: %w", deviceID, userID, ErrNotFound)
	}

	return nil
}

// TouchLastLogin updates the last login timestamp for a device
func (r *deviceRepository) TouchLastLogin(ctx context.Context, userID, deviceID string) error {
	query := `
		UPDATE devices
		SET last_login_at = $3
		WHERE user_id = $1 AND device_id = $2
	`

	result, err := r.db.DB.ExecContext(ctx, query, userID, deviceID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to touch device last login: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("device %s not found for user %s: %w", deviceID, userID, ErrNotFound)
	}

	return nil
}

// GetByUserID retrieves all device records for a user
func (r *deviceRepository) GetByUserID(ctx context.Context, userID string) ([]*domain.Device, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM devices
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, deviceColumns)

	rows, err := r.db.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get devices by user id: %w", err)
	}
	defer rows.Close()

	var devices []*domain.Device
	for rows.Next() {
		device := &domain.Device{}
		err := rows.Scan(
			&device.ID,
			&device.UserID,
			&device.DeviceID,
			&device.DeviceType,
			&device.Approved,
			&device.LastLoginAt,
			&device.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}

		devices = append(devices, device)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate devices: %w", err)
	}

	return devices, nil
}

func (r *deviceRepository) scanDevice(row *sql.Row) (*domain.Device, error) {
	device := &domain.Device{}

	err := row.Scan(
		&device.ID,
		&device.UserID,
		&device.DeviceID,
		&device.DeviceType,
		&device.Approved,
		&device.LastLoginAt,
		&device.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return device, nil
}
