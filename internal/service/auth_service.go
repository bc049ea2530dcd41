package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hungbv115/education-backend/internal/domain"
	"github.com/hungbv115/education-backend/internal/dto"
	"github.com/hungbv115/education-backend/internal/geo"
	"github.com/hungbv115/education-backend/internal/notification"
	"github.com/hungbv115/education-backend/internal/repository"
	"github.com/hungbv115/education-backend/internal/utils"
	"go.uber.org/zap"
)

// authService implements AuthService interface
type authService struct {
	userRepo     repository.UserRepository
	deviceRepo   repository.DeviceRepository
	locationRepo repository.LocationRepository
	tokens       *TokenService
	outbox       *OutboxService
	jwtManager   *utils.JWTManager
	revoker      *SessionRevoker
	resolver     geo.Resolver
	geoEnabled   bool
	baseURL      string
	logger       *zap.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo repository.UserRepository,
	deviceRepo repository.DeviceRepository,
	locationRepo repository.LocationRepository,
	tokens *TokenService,
	outbox *OutboxService,
	jwtManager *utils.JWTManager,
	revoker *SessionRevoker,
	resolver geo.Resolver,
	geoEnabled bool,
	baseURL string,
	logger *zap.Logger,
) AuthService {
	return &authService{
		userRepo:     userRepo,
		deviceRepo:   deviceRepo,
		locationRepo: locationRepo,
		tokens:       tokens,
		outbox:       outbox,
		jwtManager:   jwtManager,
		revoker:      revoker,
		resolver:     resolver,
		geoEnabled:   geoEnabled,
		baseURL:      baseURL,
		logger:       logger,
	}
}

// Login authenticates a user by credentials and mints a session token
func (s *authService) Login(ctx context.Context, req *dto.LoginRequest, ip string) (*dto.SessionResponse, error) {
	user, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.UpdateLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn("failed to update last login", zap.String("user_id", user.ID), zap.Error(err))
	}

	// Best-effort location tagging; never blocks or fails the login
	s.recordLoginLocation(ctx, user, ip)

	return s.mintSession(user)
}

// DeviceLogin runs the device-approval handshake. An unseen device is parked
// pending; an approved device with correct credentials gets a session token.
func (s *authService) DeviceLogin(ctx context.Context, req *dto.DeviceLoginRequest, ip string) (*dto.DeviceLoginResponse, error) {
	deviceType := domain.DeviceType(req.DeviceType)
	if !deviceType.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDeviceType, req.DeviceType)
	}

	// Re-authenticate credentials on every attempt, pending or approved
	user, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	device, err := s.deviceRepo.RecordOrGet(ctx, &domain.Device{
		UserID:     user.ID,
		DeviceID:   req.DeviceID,
		DeviceType: deviceType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record device: %w", err)
	}

	if !device.Approved {
		approvalURL, err := s.dispatchApproval(ctx, user, req.DeviceID)
		if err != nil {
			s.logger.Error("failed to queue device approval notification",
				zap.String("user_id", user.ID),
				zap.String("device_id", req.DeviceID),
				zap.Error(err),
			)
		}

		return &dto.DeviceLoginResponse{
			Status:      "pending",
			ApprovalURL: approvalURL,
			Message:     "Device is waiting for remote login approval.",
		}, nil
	}

	if err := s.deviceRepo.TouchLastLogin(ctx, user.ID, req.DeviceID); err != nil {
		s.logger.Warn("failed to touch device last login", zap.Error(err))
	}

	if err := s.userRepo.UpdateLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn("failed to update last login", zap.String("user_id", user.ID), zap.Error(err))
	}

	s.recordLoginLocation(ctx, user, ip)

	session, err := s.mintSession(user)
	if err != nil {
		return nil, err
	}

	return &dto.DeviceLoginResponse{
		Status:  "approved",
		Session: session,
	}, nil
}

// ApproveDevice marks a pending device as approved. The approval must come
// from a different, already-trusted channel: the authenticated approver has to
// be the owner of the device record.
func (s *authService) ApproveDevice(ctx context.Context, approverID, email, deviceID string) error {
	user, err := s.userRepo.GetByEmail(ctx, utils.SanitizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrDeviceNotFound
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}

	if user.ID != approverID {
		return ErrAuthenticationFailed
	}

	return s.approve(ctx, user.ID, deviceID)
}

// RedeemDeviceApproval approves the device bound to a device-approval token.
// This is the QR/link path: scanning from the trusted device redeems the
// single-use token.
func (s *authService) RedeemDeviceApproval(ctx context.Context, token string) error {
	record, err := s.tokens.Redeem(ctx, token, domain.PurposeDeviceApproval)
	if err != nil {
		return err
	}

	if record.DeviceID == nil {
		return ErrInvalidToken
	}

	return s.approve(ctx, record.UserID, *record.DeviceID)
}

// ListDevices returns the caller's known devices with their approval state
func (s *authService) ListDevices(ctx context.Context, userID string) ([]*dto.DeviceResponse, error) {
	devices, err := s.deviceRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	out := make([]*dto.DeviceResponse, 0, len(devices))
	for _, device := range devices {
		out = append(out, &dto.DeviceResponse{
			ID:          device.ID,
			DeviceID:    device.DeviceID,
			DeviceType:  string(device.DeviceType),
			State:       string(device.State()),
			LastLoginAt: device.LastLoginAt.Format(time.RFC3339),
			CreatedAt:   device.CreatedAt.Format(time.RFC3339),
		})
	}

	return out, nil
}

// Logout revokes the session token for its remaining lifetime
func (s *authService) Logout(ctx context.Context, sessionToken string) error {
	claims, err := s.jwtManager.ValidateSessionToken(sessionToken)
	if err != nil {
		// Already invalid or expired, nothing to revoke
		return nil
	}

	remaining := time.Until(time.Unix(claims.Exp, 0))
	if remaining <= 0 {
		return nil
	}

	if err := s.revoker.Revoke(ctx, sessionToken, remaining); err != nil {
		return fmt.Errorf("failed to revoke session token: %w", err)
	}

	return nil
}

// GetUser gets user profile information
func (s *authService) GetUser(ctx context.Context, userID string) (*dto.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	response := &dto.UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Enabled:   user.Enabled,
		Roles:     user.Roles,
		Using2FA:  user.Using2FA,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
		UpdatedAt: user.UpdatedAt.Format(time.RFC3339),
	}

	if user.LastLoginAt != nil {
		lastLogin := user.LastLoginAt.Format(time.RFC3339)
		response.LastLoginAt = &lastLogin
	}

	return response, nil
}

// Update2FA toggles the caller's two-factor preference and returns the
// refreshed profile
func (s *authService) Update2FA(ctx context.Context, userID string, enabled bool) (*dto.UserResponse, error) {
	if err := s.userRepo.UpdateUsing2FA(ctx, userID, enabled); err != nil {
		return nil, fmt.Errorf("failed to update 2fa preference: %w", err)
	}

	s.logger.Info("2FA preference updated",
		zap.String("user_id", userID),
		zap.Bool("using_2fa", enabled))

	return s.GetUser(ctx, userID)
}

// ValidateToken validates a session token against signature, expiry and the
// revocation list
func (s *authService) ValidateToken(ctx context.Context, token string) (*domain.SessionClaims, error) {
	revoked, err := s.revoker.IsRevoked(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to check session revocation: %w", err)
	}
	if revoked {
		return nil, fmt.Errorf("token is revoked")
	}

	claims, err := s.jwtManager.ValidateSessionToken(token)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	return claims, nil
}

func (s *authService) authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, utils.SanitizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAuthenticationFailed
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !utils.CheckPasswordHash(password, user.PasswordHash) {
		return nil, ErrAuthenticationFailed
	}

	if !user.Enabled {
		return nil, ErrAccountDisabled
	}

	return user, nil
}

func (s *authService) mintSession(user *domain.User) (*dto.SessionResponse, error) {
	accessToken, err := s.jwtManager.GenerateSessionToken(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	return &dto.SessionResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   s.jwtManager.GetSessionExpiry(),
		User: dto.UserInfo{
			ID:    user.ID,
			Email: user.Email,
		},
	}, nil
}

func (s *authService) approve(ctx context.Context, userID, deviceID string) error {
	if err := s.deviceRepo.Approve(ctx, userID, deviceID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrDeviceNotFound
		}
		return fmt.Errorf("failed to approve device: %w", err)
	}
	return nil
}

// dispatchApproval issues a single-use device-approval token and queues the
// approval link for the trusted channel. The returned URL doubles as the QR
// code payload shown to the pending device.
func (s *authService) dispatchApproval(ctx context.Context, user *domain.User, deviceID string) (string, error) {
	token, err := s.tokens.Issue(ctx, user.ID, domain.PurposeDeviceApproval, &deviceID)
	if err != nil {
		return "", fmt.Errorf("failed to issue approval token: %w", err)
	}

	approvalURL := fmt.Sprintf("%s/api/v1/auth/device/approve?token=%s", s.baseURL, token.Token)

	err = s.outbox.Enqueue(ctx, notification.Message{
		Recipient: user.Email,
		Subject:   "New Device Login Approval",
		Body: fmt.Sprintf("A login was attempted from a new device (%s). "+
			"To approve it, open this link from a trusted device.\r\n%s", deviceID, approvalURL),
	})
	if err != nil {
		return approvalURL, err
	}

	return approvalURL, nil
}

// recordLoginLocation appends a (country, user) audit row once per country.
// The lookup is best-effort: any failure is logged and swallowed.
func (s *authService) recordLoginLocation(ctx context.Context, user *domain.User, ip string) {
	if !s.geoEnabled || ip == "" {
		return
	}

	country, err := s.resolver.Country(ctx, ip)
	if err != nil {
		s.logger.Debug("geolocation lookup failed", zap.String("ip", ip), zap.Error(err))
		return
	}

	_, err = s.locationRepo.GetByCountryAndUser(ctx, country, user.ID)
	if err == nil {
		return // already recorded
	}
	if !errors.Is(err, repository.ErrNotFound) {
		s.logger.Warn("failed to check user location", zap.Error(err))
		return
	}

	loc := &domain.UserLocation{
		UserID:  user.ID,
		Country: country,
		Enabled: true,
	}
	if err := s.locationRepo.Create(ctx, loc); err != nil {
		s.logger.Warn("failed to record user location", zap.Error(err))
	}
}
