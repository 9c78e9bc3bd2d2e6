// api/middleware/auth_middleware.go
package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/smbworks/erp-backend/config"
	"github.com/smbworks/erp-backend/internal/auth"
)

// Context keys set once a request is authenticated.
const (
	ClaimsKey  = "claims"
	UserIDKey  = "userId"
	IsAdminKey = "isAdmin"
)

// bearerToken returns the token of an "Authorization: Bearer ..." header.
func bearerToken(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", fmt.Errorf("%w: authorization header required", auth.ErrUnauthorized)
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", fmt.Errorf("%w: authorization header format must be Bearer {token}", auth.ErrUnauthorized)
	}
	return strings.TrimSpace(parts[1]), nil
}

func setClaims(c *gin.Context, claims *auth.Claims) {
	c.Set(ClaimsKey, claims)
	c.Set(UserIDKey, claims.UserID())
	c.Set(IsAdminKey, claims.IsAdmin)
}

// RequireAuth admits requests carrying a valid session token.
func RequireAuth(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c)
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}

		claims, err := auth.ValidateJWT(token, cfg.JWTSecret)
		if err != nil {
			customLog.Printf("RequireAuth: Token validation failed: %v", err)
			_ = c.Error(err)
			c.Abort()
			return
		}

		customLog.Printf("RequireAuth: Token validated successfully for UserID: %s", claims.UserID())
		setClaims(c, claims)
		c.Next()
	}
}

// RequireAdmin must follow RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := CurrentClaims(c)
		if !ok || !claims.IsAdmin {
			_ = c.Error(fmt.Errorf("%w: admin privileges required", auth.ErrForbidden))
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentClaims returns the claims stored by RequireAuth or WriteGuard.
func CurrentClaims(c *gin.Context) (*auth.Claims, bool) {
	v, exists := c.Get(ClaimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*auth.Claims)
	return claims, ok
}
