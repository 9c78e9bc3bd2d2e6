// api/handlers/auth_handler.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smbworks/erp-backend/api/middleware"
	"github.com/smbworks/erp-backend/api/models"
	"github.com/smbworks/erp-backend/config"
	"github.com/smbworks/erp-backend/internal/auth"
	"github.com/smbworks/erp-backend/internal/dal"
	"github.com/smbworks/erp-backend/internal/storage"
)

// AuthHandler holds dependencies for authentication handlers.
type AuthHandler struct {
	DB      dal.DB
	Cfg     *config.Config
	Lockout *auth.Lockout
}

// NewAuthHandler creates a new AuthHandler with dependencies.
func NewAuthHandler(db dal.DB, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		DB:      db,
		Cfg:     cfg,
		Lockout: auth.NewLockout(cfg.LoginMaxAttempts, cfg.LoginLockout),
	}
}

// Login handles user login requests and issues JWT on success.
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	if h.Lockout.Locked(req.Email) {
		customLog.Warnf("Login refused for locked account %s", req.Email)
		_ = c.Error(auth.ErrLockedOut)
		return
	}

	user, err := storage.FindUserByEmail(c.Request.Context(), h.DB, req.Email)
	if err != nil && !errors.Is(err, storage.ErrUserNotFound) {
		_ = c.Error(err)
		return
	}

	// Unknown accounts, disabled accounts and wrong passwords look the same to the caller.
	if user == nil || !user.Active || !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		failures := h.Lockout.Fail(req.Email)
		customLog.Warnf("Login attempt failed for email %s (%d recent failures)", req.Email, failures)
		_ = c.Error(auth.ErrInvalidCredentials)
		return
	}
	h.Lockout.Reset(req.Email)

	tokenString, err := auth.GenerateJWT(user.UserID, user.Email, user.IsAdmin, h.Cfg.JWTSecret, h.Cfg.JWTExpiration)
	if err != nil {
		_ = c.Error(err)
		return
	}

	customLog.Printf("User %s logged in", user.UserID)
	c.JSON(http.StatusOK, models.LoginResponse{Token: tokenString, User: *user})
}

// Me returns the signed-in user.
func (h *AuthHandler) Me(c *gin.Context) {
	userID := c.GetString(middleware.UserIDKey)
	user, err := storage.FindUserByID(c.Request.Context(), h.DB, userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// ChangePassword replaces the signed-in user's password after checking the old one.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req models.ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	user, err := storage.FindUserByID(ctx, h.DB, c.GetString(middleware.UserIDKey))
	if err != nil {
		_ = c.Error(err)
		return
	}
	if !auth.CheckPasswordHash(req.OldPassword, user.PasswordHash) {
		_ = c.Error(auth.ErrInvalidCredentials)
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if err := storage.UpdatePassword(ctx, h.DB, user.UserID, hash); err != nil {
		_ = c.Error(err)
		return
	}

	storage.LogAdminEvent(ctx, h.DB, "password_changed", user.Email, map[string]any{"user_id": user.UserID})
	c.JSON(http.StatusOK, gin.H{"message": "Password changed"})
}
