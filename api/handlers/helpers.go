package handlers

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/smbworks/erp-backend/api/middleware"
	"github.com/smbworks/erp-backend/internal/core"
	"github.com/smbworks/erp-backend/internal/logger"
	"github.com/smbworks/erp-backend/internal/storage"
)

var (
	customLog = logger.NewLogger()
)

// bindJSON decodes the body into dst, attaching the error for ErrorHandler on failure.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		customLog.Warnf("%s %s binding error: %v", c.Request.Method, c.FullPath(), err)
		_ = c.Error(err)
		return false
	}
	return true
}

// listParams parses paging, sorting and column filters. Names in skip are
// handled by the caller and never become filters.
func listParams(c *gin.Context, skip ...string) (*core.ListQueryOptions, map[string]string, bool) {
	query := c.Request.URL.Query()
	opts, err := core.ParseListQueryOptions(query)
	if err != nil {
		_ = c.Error(err)
		return nil, nil, false
	}
	filters, err := core.Filters(query, skip...)
	if err != nil {
		_ = c.Error(err)
		return nil, nil, false
	}
	return opts, filters, true
}

func int64Param(c *gin.Context, name string) (int64, bool) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		_ = c.Error(fmt.Errorf("%w: '%s' must be an integer", core.ErrInvalidInput, name))
		return 0, false
	}
	return v, true
}

func intQuery(c *gin.Context, name string, fallback int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		_ = c.Error(fmt.Errorf("%w: '%s' must be an integer", core.ErrInvalidInput, name))
		return 0, false
	}
	return v, true
}

// dateQuery parses an optional YYYY-MM-DD query parameter.
func dateQuery(c *gin.Context, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		_ = c.Error(fmt.Errorf("%w: '%s' must be a YYYY-MM-DD date", core.ErrInvalidInput, name))
		return nil, false
	}
	return &t, true
}

// required pairs a body field with whether the request supplied it.
type required struct {
	name    string
	present bool
}

// missing reports the first absent required field, in the order given.
func missing(c *gin.Context, fields ...required) bool {
	for _, f := range fields {
		if !f.present {
			_ = c.Error(fmt.Errorf("%w: %s is required", storage.ErrInvalidField, f.name))
			return true
		}
	}
	return false
}

// actor names who performed a request for audit trails.
func actor(c *gin.Context) string {
	if claims, ok := middleware.CurrentClaims(c); ok {
		return claims.Email
	}
	if _, ok := c.Get(middleware.APIKeyIDKey); ok {
		return "api"
	}
	return "admin"
}
