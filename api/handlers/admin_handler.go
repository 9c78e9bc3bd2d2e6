package handlers

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smbworks/erp-backend/api/models"
	"github.com/smbworks/erp-backend/internal/auth"
	"github.com/smbworks/erp-backend/internal/dal"
	"github.com/smbworks/erp-backend/internal/storage"
)

const initialPasswordBytes = 12

// AdminHandler serves user administration for admin sessions.
type AdminHandler struct {
	DB dal.DB
}

func NewAdminHandler(db dal.DB) *AdminHandler {
	return &AdminHandler{DB: db}
}

// CreateUser adds an account with a generated password, returned only in this response.
func (h *AdminHandler) CreateUser(c *gin.Context) {
	var req models.CreateUserRequest
	if !bindJSON(c, &req) {
		return
	}

	password, err := initialPassword()
	if err != nil {
		_ = c.Error(err)
		return
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		_ = c.Error(err)
		return
	}

	ctx := c.Request.Context()
	user, err := storage.CreateUser(ctx, h.DB, storage.NewUserID(), req.Email, req.CompanyID, hash, req.IsAdmin, req.SubscriptionPlan)
	if err != nil {
		_ = c.Error(err)
		return
	}

	storage.LogAdminEvent(ctx, h.DB, "user_created", actor(c), map[string]any{
		"user_id":  user.UserID,
		"email":    user.Email,
		"is_admin": user.IsAdmin,
	})
	c.JSON(http.StatusCreated, models.CreateUserResponse{User: *user, InitialPassword: password})
}

func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := storage.ListUsers(c.Request.Context(), h.DB)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *AdminHandler) ListAudit(c *gin.Context) {
	limit, ok := intQuery(c, "limit", 100)
	if !ok {
		return
	}
	entries, err := storage.ListAdminAudit(c.Request.Context(), h.DB, limit)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func initialPassword() (string, error) {
	b := make([]byte, initialPasswordBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
