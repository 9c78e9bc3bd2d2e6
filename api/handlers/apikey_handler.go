package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smbworks/erp-backend/api/models"
	"github.com/smbworks/erp-backend/internal/credentials"
)

// APIKeyHandler administers stored API credentials behind the admin key.
type APIKeyHandler struct {
	Creds *credentials.Manager
}

func NewAPIKeyHandler(creds *credentials.Manager) *APIKeyHandler {
	return &APIKeyHandler{Creds: creds}
}

func (h *APIKeyHandler) List(c *gin.Context) {
	keys, err := h.Creds.List(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, keys)
}

// Issue creates a key. The body is optional; the plaintext is shown once.
func (h *APIKeyHandler) Issue(c *gin.Context) {
	var req models.IssueAPIKeyRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	issued, err := h.Creds.Issue(c.Request.Context(), req.Label)
	if err != nil {
		_ = c.Error(err)
		return
	}
	customLog.Printf("Issued API key %d", issued.ID)
	c.JSON(http.StatusCreated, issued)
}

func (h *APIKeyHandler) Delete(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	if err := h.Creds.Delete(c.Request.Context(), id, "admin"); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

func (h *APIKeyHandler) Rotate(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	issued, err := h.Creds.Rotate(c.Request.Context(), id, "admin")
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, issued)
}

func (h *APIKeyHandler) ListAudit(c *gin.Context) {
	limit, ok := intQuery(c, "limit", 100)
	if !ok {
		return
	}
	entries, err := h.Creds.ListAudit(c.Request.Context(), limit)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// PurgeAudit deletes audit entries older than ?days= (default 30).
func (h *APIKeyHandler) PurgeAudit(c *gin.Context) {
	days, ok := intQuery(c, "days", 30)
	if !ok {
		return
	}
	purged, err := h.Creds.PurgeAudit(c.Request.Context(), days)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"purged": purged, "days": days})
}
