package middleware

import (
	"crypto/subtle"
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/smbworks/erp-backend/config"
	"github.com/smbworks/erp-backend/internal/auth"
	"github.com/smbworks/erp-backend/internal/credentials"
)

var (
	ErrInvalidAPIKey         = errors.New("invalid or missing api key")
	ErrAdminKeyNotConfigured = errors.New("admin key not configured")
	ErrInvalidAdminKey       = errors.New("invalid admin key")
)

const (
	apiKeyHeader   = "X-API-Key"
	apiKeyQuery    = "api_key"
	adminKeyHeader = "X-Admin-Key"

	// APIKeyIDKey holds the id of the stored credential that admitted a write.
	APIKeyIDKey = "apiKeyId"
)

// WriteGuard admits mutating requests that carry either a valid session token
// or an API key. Keys from configuration are checked before stored credentials.
func WriteGuard(cfg *config.Config, creds *credentials.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, err := bearerToken(c); err == nil {
			if claims, err := auth.ValidateJWT(token, cfg.JWTSecret); err == nil {
				setClaims(c, claims)
				c.Next()
				return
			}
		}

		key := c.GetHeader(apiKeyHeader)
		if key == "" {
			key = c.Query(apiKeyQuery)
		}
		if key == "" {
			denyWrite(c)
			return
		}

		for _, static := range cfg.StaticAPIKeys {
			if subtle.ConstantTimeCompare([]byte(key), []byte(static)) == 1 {
				c.Next()
				return
			}
		}

		ctx := c.Request.Context()
		cred, err := creds.Verify(ctx, key)
		if err != nil {
			customLog.Warnf("WriteGuard: Credential lookup failed: %v", err)
			denyWrite(c)
			return
		}
		if cred == nil {
			denyWrite(c)
			return
		}

		creds.MarkUsed(ctx, cred.ID)
		creds.LogEvent(ctx, &cred.ID, credentials.EventUsed, "api", map[string]any{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		})
		c.Set(APIKeyIDKey, cred.ID)
		c.Next()
	}
}

func denyWrite(c *gin.Context) {
	_ = c.Error(ErrInvalidAPIKey)
	c.Abort()
}

// AdminKey guards credential administration with the configured X-Admin-Key.
func AdminKey(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.AdminKey == "" {
			_ = c.Error(ErrAdminKeyNotConfigured)
			c.Abort()
			return
		}
		if subtle.ConstantTimeCompare([]byte(c.GetHeader(adminKeyHeader)), []byte(cfg.AdminKey)) != 1 {
			customLog.Warnf("AdminKey: Rejected request from %s", c.ClientIP())
			_ = c.Error(ErrInvalidAdminKey)
			c.Abort()
			return
		}
		c.Next()
	}
}
