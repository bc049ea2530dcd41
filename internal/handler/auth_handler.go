package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hungbv115/education-backend/internal/dto"
	"github.com/hungbv115/education-backend/internal/service"
)

// AuthHandler handles login, device approval and session requests
type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Login handles credential login
// @Summary Login user
// @Description Authenticate user with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Login request"
// @Success 200 {object} dto.SessionResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	session, err := h.authService.Login(c.Request.Context(), &req, c.ClientIP())
	if err != nil {
		status, resp := authErrorResponse(err)
		c.JSON(status, resp)
		return
	}

	c.JSON(http.StatusOK, session)
}

// DeviceLogin handles a login attempt from an identified device
// @Summary Device login
// @Description Login from a device; unapproved devices are parked pending remote approval
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.DeviceLoginRequest true "Device login request"
// @Success 200 {object} dto.DeviceLoginResponse
// @Success 202 {object} dto.DeviceLoginResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /auth/device/login [post]
func (h *AuthHandler) DeviceLogin(c *gin.Context) {
	var req dto.DeviceLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	result, err := h.authService.DeviceLogin(c.Request.Context(), &req, c.ClientIP())
	if err != nil {
		status, resp := authErrorResponse(err)
		c.JSON(status, resp)
		return
	}

	if result.Status == "pending" {
		c.JSON(http.StatusAccepted, result)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ApproveDevice handles a remote approval from an authenticated trusted channel
// @Summary Approve device
// @Description Approve a pending device from an already-trusted session
// @Tags auth
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.DeviceApproveRequest true "Device approval request"
// @Success 200 {object} dto.SuccessResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /auth/device/approve [post]
func (h *AuthHandler) ApproveDevice(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error:   "Unauthorized",
			Message: "User ID not found in context",
		})
		return
	}

	var req dto.DeviceApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	err := h.authService.ApproveDevice(c.Request.Context(), userID.(string), req.Email, req.DeviceID)
	if err != nil {
		status, resp := authErrorResponse(err)
		c.JSON(status, resp)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{
		Message: "Device approved for login",
	})
}

// ApproveDeviceByToken handles the QR/link approval path
// @Summary Approve device by token
// @Description Redeem a single-use device-approval token
// @Tags auth
// @Produce json
// @Param token query string true "Device approval token"
// @Success 200 {object} dto.SuccessResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 410 {object} dto.ErrorResponse
// @Router /auth/device/approve [get]
func (h *AuthHandler) ApproveDeviceByToken(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Bad request",
			Message: "token query parameter is required",
		})
		return
	}

	if err := h.authService.RedeemDeviceApproval(c.Request.Context(), token); err != nil {
		status, resp := authErrorResponse(err)
		c.JSON(status, resp)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{
		Message: "Device approved for login",
	})
}

// ListDevices handles listing the caller's known devices
// @Summary List devices
// @Description List the authenticated user's devices and their approval state
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {array} dto.DeviceResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /auth/devices [get]
func (h *AuthHandler) ListDevices(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error:   "Unauthorized",
			Message: "User ID not found in context",
		})
		return
	}

	devices, err := h.authService.ListDevices(c.Request.Context(), userID.(string))
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal server error",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, devices)
}

// Logout handles user logout
// @Summary Logout user
// @Description Revoke the current session token
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.SuccessResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error:   "Unauthorized",
			Message: "Authorization header is required",
		})
		return
	}

	if err := h.authService.Logout(c.Request.Context(), token); err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal server error",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{
		Message: "Logged out successfully",
	})
}

// GetMe handles getting current user profile
// @Summary Get current user profile
// @Description Get information about the current authenticated user
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.UserResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /auth/me [get]
func (h *AuthHandler) GetMe(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error:   "Unauthorized",
			Message: "User ID not found in context",
		})
		return
	}

	user, err := h.authService.GetUser(c.Request.Context(), userID.(string))
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal server error",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, user)
}

// Update2FA handles toggling the caller's two-factor preference
// @Summary Update 2FA preference
// @Description Enable or disable two-factor authentication for the current user
// @Tags auth
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.Update2FARequest true "2FA preference"
// @Success 200 {object} dto.UserResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /auth/me/2fa [put]
func (h *AuthHandler) Update2FA(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error:   "Unauthorized",
			Message: "User ID not found in context",
		})
		return
	}

	var req dto.Update2FARequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	user, err := h.authService.Update2FA(c.Request.Context(), userID.(string), *req.Using2FA)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal server error",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, user)
}

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

// authErrorResponse maps domain errors to HTTP responses
func authErrorResponse(err error) (int, dto.ErrorResponse) {
	switch {
	case errors.Is(err, service.ErrAuthenticationFailed):
		return http.StatusUnauthorized, dto.ErrorResponse{
			Error:   "Unauthorized",
			Message: "invalid email or password",
		}
	case errors.Is(err, service.ErrAccountDisabled):
		return http.StatusForbidden, dto.ErrorResponse{
			Error:   "Forbidden",
			Message: "account is not enabled",
		}
	case errors.Is(err, service.ErrDeviceNotFound):
		return http.StatusNotFound, dto.ErrorResponse{
			Error:   "Not found",
			Message: "no device record for that user and device",
		}
	case errors.Is(err, service.ErrExpiredToken):
		return http.StatusGone, dto.ErrorResponse{
			Error:   "Expired",
			Message: "token has expired",
		}
	case errors.Is(err, service.ErrInvalidToken):
		return http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Invalid token",
			Message: "token is invalid or already used",
		}
	case errors.Is(err, service.ErrInvalidDeviceType), errors.Is(err, service.ErrWeakPassword):
		return http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		}
	default:
		return http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal server error",
			Message: "something went wrong",
		}
	}
}
