package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hungbv115/education-backend/internal/config"
	"github.com/hungbv115/education-backend/internal/domain"
	"github.com/hungbv115/education-backend/internal/repository"
	"github.com/hungbv115/education-backend/internal/utils"
)

// TokenService manages the lifecycle of single-use, time-bounded account
// tokens for verification, password reset and device approval. At most one
// live token exists per (user, purpose, device) triple; issuing a new one
// replaces the prior token, which is no longer redeemable.
type TokenService struct {
	tokens repository.TokenRepository
	ttls   config.TokenConfig
	now    func() time.Time
}

// NewTokenService creates a new token service
func NewTokenService(tokens repository.TokenRepository, ttls config.TokenConfig) *TokenService {
	return &TokenService{
		tokens: tokens,
		ttls:   ttls,
		now:    time.Now,
	}
}

// Issue generates a cryptographically random opaque token for the user and
// purpose, replacing any existing live token for the same pair. Device-approval
// tokens are additionally bound to a device id.
func (s *TokenService) Issue(ctx context.Context, userID string, purpose domain.TokenPurpose, deviceID *string) (*domain.AccountToken, error) {
	value, err := utils.GenerateOpaqueToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	token := &domain.AccountToken{
		UserID:    userID,
		Purpose:   purpose,
		Token:     value,
		DeviceID:  deviceID,
		ExpiresAt: s.now().Add(s.ttl(purpose)),
	}

	if err := s.tokens.Upsert(ctx, token); err != nil {
		return nil, fmt.Errorf("failed to store token: %w", err)
	}

	return token, nil
}

// PurgeExpired removes tokens past their expiry. Expired rows are already
// unredeemable; the sweep just keeps the table from growing without bound.
func (s *TokenService) PurgeExpired(ctx context.Context) error {
	return s.tokens.DeleteExpired(ctx)
}

// Validate classifies a token as valid, expired or not found. The expired and
// not-found legs are expected control flow; the error return is reserved for
// storage failures.
func (s *TokenService) Validate(ctx context.Context, token string) (domain.TokenStatus, *domain.AccountToken, error) {
	record, err := s.tokens.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.TokenNotFound, nil, nil
		}
		return domain.TokenNotFound, nil, fmt.Errorf("failed to validate token: %w", err)
	}

	if record.IsExpired(s.now()) {
		return domain.TokenExpired, record, nil
	}

	return domain.TokenValid, record, nil
}

// Rotate replaces the value on the same logical record and extends its expiry,
// used when the holder of an invalid or expired token asks for a retry
// (e.g. "resend verification email").
func (s *TokenService) Rotate(ctx context.Context, existing string) (*domain.AccountToken, error) {
	record, err := s.tokens.GetByToken(ctx, existing)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to look up token: %w", err)
	}

	value, err := utils.GenerateOpaqueToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	rotated, err := s.tokens.Rotate(ctx, existing, value, s.now().Add(s.ttl(record.Purpose)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Lost a race with a concurrent redeem or rotation
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to rotate token: %w", err)
	}

	return rotated, nil
}

// Redeem validates the token and, if valid for the given purpose, deletes it
// and returns the record. Redemption succeeds exactly once: of two concurrent
// redemptions, the second observes ErrInvalidToken.
func (s *TokenService) Redeem(ctx context.Context, token string, purpose domain.TokenPurpose) (*domain.AccountToken, error) {
	record, err := s.tokens.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to look up token: %w", err)
	}

	if record.Purpose != purpose {
		return nil, ErrInvalidToken
	}

	if record.IsExpired(s.now()) {
		return nil, ErrExpiredToken
	}

	redeemed, err := s.tokens.Redeem(ctx, token, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// The row vanished between the read and the compare-and-delete:
			// consumed concurrently or expired at the boundary
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to redeem token: %w", err)
	}

	return redeemed, nil
}

func (s *TokenService) ttl(purpose domain.TokenPurpose) time.Duration {
	switch purpose {
	case domain.PurposePasswordReset:
		return s.ttls.PasswordResetTTL.Duration
	case domain.PurposeDeviceApproval:
		return s.ttls.DeviceApprovalTTL.Duration
	default:
		return s.ttls.VerificationTTL.Duration
	}
}
