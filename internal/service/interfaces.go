package service

import (
	"context"

	"github.com/hungbv115/education-backend/internal/domain"
	"github.com/hungbv115/education-backend/internal/dto"
)

// AccountService defines the signup, verification and password-reset flows
type AccountService interface {
	Signup(ctx context.Context, req *dto.SignupRequest) (*domain.User, error)
	ConfirmRegistration(ctx context.Context, token string) error
	ResendVerification(ctx context.Context, existingToken string) error
	RequestPasswordReset(ctx context.Context, email string) error
	SavePassword(ctx context.Context, token, newPassword string) error
}

// AuthService defines login, device approval and session operations
type AuthService interface {
	Login(ctx context.Context, req *dto.LoginRequest, ip string) (*dto.SessionResponse, error)
	DeviceLogin(ctx context.Context, req *dto.DeviceLoginRequest, ip string) (*dto.DeviceLoginResponse, error)
	ApproveDevice(ctx context.Context, approverID, email, deviceID string) error
	RedeemDeviceApproval(ctx context.Context, token string) error
	ListDevices(ctx context.Context, userID string) ([]*dto.DeviceResponse, error)
	Logout(ctx context.Context, sessionToken string) error
	GetUser(ctx context.Context, userID string) (*dto.UserResponse, error)
	Update2FA(ctx context.Context, userID string, enabled bool) (*dto.UserResponse, error)
	ValidateToken(ctx context.Context, token string) (*domain.SessionClaims, error)
}
