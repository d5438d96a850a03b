package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"insight-backend/internal/auth"
	"insight-backend/internal/models"
)

type AuthHandler struct {
	service *auth.Service
}

func NewAuthHandler(service *auth.Service) *AuthHandler {
	return &AuthHandler{service: service}
}

// Register godoc
// @Summary     Register a new account
// @Description Creates a user profile and returns a bearer token
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body models.RegisterRequest true "Registration details"
// @Success     201 {object} models.AuthResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid request",
			Message: err.Error(),
		})
		return
	}

	resp, err := h.service.Register(req.Email, req.Password, req.FullName)
	if errors.Is(err, auth.ErrEmailTaken) {
		c.JSON(http.StatusConflict, models.ErrorResponse{Error: "email already registered"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "registration failed",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// Login godoc
// @Summary     Login with email and password
// @Description Verifies credentials and returns a bearer token
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body models.LoginRequest true "Login credentials"
// @Success     200 {object} models.AuthResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid request",
			Message: err.Error(),
		})
		return
	}

	resp, err := h.service.Login(req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "invalid email or password"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "login failed",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// RequestPasswordReset godoc
// @Summary     Request a password reset code
// @Description Emails a one-time reset code. The response does not reveal whether the account exists.
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body models.PasswordResetRequest true "Account email"
// @Success     200 {object} models.PasswordResetResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /auth/request-password-reset [post]
func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var req models.PasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid request",
			Message: err.Error(),
		})
		return
	}

	resp, err := h.service.RequestPasswordReset(req.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "password reset failed",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// VerifyReset godoc
// @Summary     Verify a reset code and set a new password
// @Description Consumes the one-time code and replaces the account password
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body models.VerifyResetRequest true "Email, code and new password"
// @Success     200 {object} models.VerifyResetResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /auth/verify-reset [post]
func (h *AuthHandler) VerifyReset(c *gin.Context) {
	var req models.VerifyResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid request",
			Message: err.Error(),
		})
		return
	}

	resp, err := h.service.VerifyReset(req.Email, req.OTP, req.NewPassword)
	if errors.Is(err, auth.ErrInvalidResetCode) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid or expired reset code"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "password reset failed",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}
