package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/hungbv115/education-backend/internal/domain"
	"github.com/hungbv115/education-backend/internal/dto"
	"github.com/hungbv115/education-backend/internal/notification"
	"github.com/hungbv115/education-backend/internal/repository"
	"github.com/hungbv115/education-backend/internal/utils"
	"go.uber.org/zap"
)

// accountService implements AccountService interface
type accountService struct {
	userRepo   repository.UserRepository
	tokens     *TokenService
	outbox     *OutboxService
	bcryptCost int
	baseURL    string
	logger     *zap.Logger
}

// NewAccountService creates a new account service
func NewAccountService(
	userRepo repository.UserRepository,
	tokens *TokenService,
	outbox *OutboxService,
	bcryptCost int,
	baseURL string,
	logger *zap.Logger,
) AccountService {
	return &accountService{
		userRepo:   userRepo,
		tokens:     tokens,
		outbox:     outbox,
		bcryptCost: bcryptCost,
		baseURL:    baseURL,
		logger:     logger,
	}
}

// Signup registers a new, disabled user and queues a verification mail.
// The user stays disabled until the verification token is redeemed.
func (s *accountService) Signup(ctx context.Context, req *dto.SignupRequest) (*domain.User, error) {
	if !utils.ValidateEmail(req.Email) {
		return nil, ErrInvalidEmail
	}

	if !utils.ValidatePassword(req.Password) {
		return nil, ErrWeakPassword
	}

	passwordHash, err := utils.HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		Email:        utils.SanitizeEmail(req.Email),
		PasswordHash: passwordHash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Enabled:      false,
		Roles:        []string{domain.RoleUser},
		Using2FA:     req.Using2FA,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrDuplicateUser
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if err := s.dispatchVerification(ctx, user); err != nil {
		// The account exists and is recoverable via the resend flow,
		// so a queueing failure is logged but not surfaced as a signup failure
		s.logger.Error("failed to queue verification mail",
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
	}

	return user, nil
}

// ConfirmRegistration redeems a verification token and enables the account.
// The token is consumed exactly once; an expired token leaves the user disabled.
func (s *accountService) ConfirmRegistration(ctx context.Context, token string) error {
	record, err := s.tokens.Redeem(ctx, token, domain.PurposeVerification)
	if err != nil {
		return err
	}

	if err := s.userRepo.Enable(ctx, record.UserID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Token invariant violated: owning user must be loadable
			return ErrInvalidToken
		}
		return fmt.Errorf("failed to enable user: %w", err)
	}

	return nil
}

// ResendVerification rotates an existing verification token and re-queues the
// mail. Rotation extends the expiry, so an expired token is retried, not rejected.
func (s *accountService) ResendVerification(ctx context.Context, existingToken string) error {
	status, record, err := s.tokens.Validate(ctx, existingToken)
	if err != nil {
		return fmt.Errorf("failed to validate token: %w", err)
	}
	// Purpose is checked before rotating so a foreign token is left untouched.
	// An expired verification token is fine here: rotation is the recovery path.
	if status == domain.TokenNotFound || record.Purpose != domain.PurposeVerification {
		return ErrInvalidToken
	}

	rotated, err := s.tokens.Rotate(ctx, existingToken)
	if err != nil {
		return err
	}

	user, err := s.userRepo.GetByID(ctx, rotated.UserID)
	if err != nil {
		return fmt.Errorf("failed to load token owner: %w", err)
	}

	return s.queueVerificationMail(ctx, user, rotated.Token, "Resend Registration Token")
}

// RequestPasswordReset issues a reset token and queues the mail iff the email
// is registered. The externally observable response never reveals whether the
// account exists.
func (s *accountService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.userRepo.GetByEmail(ctx, utils.SanitizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Burn comparable work so the unknown-email path is not
			// distinguishable by timing
			if _, genErr := utils.GenerateOpaqueToken(); genErr != nil {
				s.logger.Warn("token generation failed on reset decoy path", zap.Error(genErr))
			}
			return nil
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}

	token, err := s.tokens.Issue(ctx, user.ID, domain.PurposePasswordReset, nil)
	if err != nil {
		return fmt.Errorf("failed to issue reset token: %w", err)
	}

	resetURL := fmt.Sprintf("%s/api/v1/auth/password/save?token=%s", s.baseURL, token.Token)
	return s.outbox.Enqueue(ctx, notification.Message{
		Recipient: user.Email,
		Subject:   "Reset Password",
		Body:      "To reset your password, please click on the below link.\r\n" + resetURL,
	})
}

// SavePassword redeems a reset token and replaces the stored password hash
func (s *accountService) SavePassword(ctx context.Context, token, newPassword string) error {
	if !utils.ValidatePassword(newPassword) {
		return ErrWeakPassword
	}

	record, err := s.tokens.Redeem(ctx, token, domain.PurposePasswordReset)
	if err != nil {
		return err
	}

	passwordHash, err := utils.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.userRepo.UpdatePassword(ctx, record.UserID, passwordHash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return nil
}

func (s *accountService) dispatchVerification(ctx context.Context, user *domain.User) error {
	token, err := s.tokens.Issue(ctx, user.ID, domain.PurposeVerification, nil)
	if err != nil {
		return fmt.Errorf("failed to issue verification token: %w", err)
	}

	return s.queueVerificationMail(ctx, user, token.Token, "Registration Confirmation")
}

func (s *accountService) queueVerificationMail(ctx context.Context, user *domain.User, token, subject string) error {
	confirmURL := fmt.Sprintf("%s/api/v1/auth/registration/confirm?token=%s", s.baseURL, token)
	return s.outbox.Enqueue(ctx, notification.Message{
		Recipient: user.Email,
		Subject:   subject,
		Body:      "You registered successfully. To confirm your registration, please click on the below link.\r\n" + confirmURL,
	})
}
