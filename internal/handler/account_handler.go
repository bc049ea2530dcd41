package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hungbv115/education-backend/internal/dto"
	"github.com/hungbv115/education-backend/internal/service"
)

// AccountHandler handles signup, verification and password-reset requests
type AccountHandler struct {
	accountService service.AccountService
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(accountService service.AccountService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
	}
}

// Signup handles user registration
// @Summary Register a new user
// @Description Register a disabled user and send a verification mail
// @Tags account
// @Accept json
// @Produce json
// @Param request body dto.SignupRequest true "Signup request"
// @Success 201 {object} dto.SuccessResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /auth/signup [post]
func (h *AccountHandler) Signup(c *gin.Context) {
	var req dto.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	_, err := h.accountService.Signup(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDuplicateUser):
			c.JSON(http.StatusConflict, dto.ErrorResponse{
				Error:   "Conflict",
				Message: "user with that email address already exists",
			})
		case errors.Is(err, service.ErrInvalidEmail), errors.Is(err, service.ErrWeakPassword):
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{
				Error:   "Validation failed",
				Message: err.Error(),
			})
		default:
			c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
				Error:   "Internal server error",
				Message: "failed to register user",
			})
		}
		return
	}

	c.JSON(http.StatusCreated, dto.SuccessResponse{
		Message: "Registered successfully, confirmation mail sent",
	})
}

// ConfirmRegistration handles verification-token redemption
// @Summary Confirm registration
// @Description Redeem a verification token and enable the account
// @Tags account
// @Produce json
// @Param token query string true "Verification token"
// @Success 200 {object} dto.SuccessResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 410 {object} dto.ErrorResponse
// @Router /auth/registration/confirm [get]
func (h *AccountHandler) ConfirmRegistration(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Bad request",
			Message: "token query parameter is required",
		})
		return
	}

	if err := h.accountService.ConfirmRegistration(c.Request.Context(), token); err != nil {
		status, resp := authErrorResponse(err)
		c.JSON(status, resp)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{
		Message: "Account verified successfully",
	})
}

// ResendVerification handles verification-token rotation and resend
// @Summary Resend verification mail
// @Description Rotate an existing verification token and resend the mail
// @Tags account
// @Produce json
// @Param token query string true "Existing verification token"
// @Success 201 {object} dto.SuccessResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /auth/registration/resend [post]
func (h *AccountHandler) ResendVerification(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Bad request",
			Message: "token query parameter is required",
		})
		return
	}

	if err := h.accountService.ResendVerification(c.Request.Context(), token); err != nil {
		status, resp := authErrorResponse(err)
		c.JSON(status, resp)
		return
	}

	c.JSON(http.StatusCreated, dto.SuccessResponse{
		Message: "Verification mail resent",
	})
}

// RequestPasswordReset handles a password-reset request.
// The response is identical whether or not the email is registered.
// @Summary Request password reset
// @Description Send a reset token if the email is registered
// @Tags account
// @Accept json
// @Produce json
// @Param request body dto.PasswordResetRequest true "Reset request"
// @Success 200 {object} dto.SuccessResponse
// @Router /auth/password/reset [post]
func (h *AccountHandler) RequestPasswordReset(c *gin.Context) {
	var req dto.PasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	if err := h.accountService.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal server error",
			Message: "failed to process reset request",
		})
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{
		Message: "If the address is registered, a reset mail has been sent",
	})
}

// SavePassword handles reset-token redemption and password change
// @Summary Save new password
// @Description Redeem a reset token and set the new password
// @Tags account
// @Accept json
// @Produce json
// @Param request body dto.SavePasswordRequest true "Save password request"
// @Success 200 {object} dto.SuccessResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 410 {object} dto.ErrorResponse
// @Router /auth/password/save [post]
func (h *AccountHandler) SavePassword(c *gin.Context) {
	var req dto.SavePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	if err := h.accountService.SavePassword(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		status, resp := authErrorResponse(err)
		c.JSON(status, resp)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{
		Message: "Password reset successfully",
	})
}
