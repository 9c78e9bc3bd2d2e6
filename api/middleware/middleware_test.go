package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smbworks/erp-backend/config"
	"github.com/smbworks/erp-backend/internal/auth"
	"github.com/smbworks/erp-backend/internal/core"
	"github.com/smbworks/erp-backend/internal/credentials"
	"github.com/smbworks/erp-backend/internal/dal"
	"github.com/smbworks/erp-backend/internal/storage"
)

const testSecret = "middleware-test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func TestClassify(t *testing.T) {
	testCases := []struct {
		err  error
		want int
	}{
		{storage.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", credentials.ErrNotFound), http.StatusNotFound},
		{storage.ErrConflict, http.StatusConflict},
		{storage.ErrInUse, http.StatusConflict},
		{storage.ErrEmailExists, http.StatusConflict},
		{auth.ErrTokenExpired, http.StatusUnauthorized},
		{auth.ErrInvalidCredentials, http.StatusUnauthorized},
		{ErrInvalidAPIKey, http.StatusUnauthorized},
		{ErrAdminKeyNotConfigured, http.StatusUnauthorized},
		{auth.ErrForbidden, http.StatusForbidden},
		{auth.ErrLockedOut, http.StatusTooManyRequests},
		{storage.ErrInvalidField, http.StatusBadRequest},
		{storage.ErrInvalidReference, http.StatusBadRequest},
		{core.ErrInvalidInput, http.StatusBadRequest},
		{credentials.ErrInvalidRetention, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		got, _ := classify(tc.err)
		assert.Equal(t, tc.want, got, "error %v", tc.err)
	}
}

func TestClassifyKeyMessages(t *testing.T) {
	testCases := []struct {
		err  error
		want string
	}{
		{ErrInvalidAPIKey, "Invalid or missing API key"},
		{ErrAdminKeyNotConfigured, "Admin key not configured"},
		{ErrInvalidAdminKey, "Invalid admin key"},
	}

	for _, tc := range testCases {
		status, msg := classify(tc.err)
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, tc.want, msg)
		assert.Equal(t, strings.ToLower(tc.err.Error()), tc.err.Error(), "error strings are lowercase")
	}
}

func testManager(t *testing.T) *credentials.Manager {
	t.Helper()
	ctx := context.Background()
	db, err := dal.Open(ctx, dal.Options{Kind: dal.KindSQLite, SQLitePath: filepath.Join(t.TempDir(), "mw.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(ctx))
	return credentials.NewManager(db, credentials.Options{Iterations: 1000})
}

func guarded(cfg *config.Config, creds *credentials.Manager) *gin.Engine {
	r := gin.New()
	r.Use(ErrorHandler())
	r.POST("/write", WriteGuard(cfg, creds), func(c *gin.Context) {
		id, _ := c.Get(APIKeyIDKey)
		c.JSON(http.StatusOK, gin.H{"user": c.GetString(UserIDKey), "key": id})
	})
	r.GET("/keys", AdminKey(cfg), func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func do(r http.Handler, method, target string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWriteGuard(t *testing.T) {
	creds := testManager(t)
	cfg := &config.Config{JWTSecret: testSecret, StaticAPIKeys: []string{"env-key"}}
	r := guarded(cfg, creds)

	issued, err := creds.Issue(context.Background(), "robot")
	require.NoError(t, err)
	token, err := auth.GenerateJWT("U-1", "clerk@example.com", false, testSecret, time.Minute)
	require.NoError(t, err)

	t.Run("bearer token", func(t *testing.T) {
		w := do(r, http.MethodPost, "/write", map[string]string{"Authorization": "Bearer " + token})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "U-1")
	})

	t.Run("configured key", func(t *testing.T) {
		w := do(r, http.MethodPost, "/write", map[string]string{"X-API-Key": "env-key"})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("stored key in query", func(t *testing.T) {
		w := do(r, http.MethodPost, "/write?api_key="+issued.Plaintext, nil)
		assert.Equal(t, http.StatusOK, w.Code)

		audit, err := creds.ListAudit(context.Background(), 10)
		require.NoError(t, err)
		assert.Equal(t, credentials.EventUsed, audit[0].EventType)
		assert.Equal(t, "api", audit[0].Actor)

		keys, err := creds.List(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, keys[0].LastUsed)
	})

	t.Run("bad token falls through to missing key", func(t *testing.T) {
		w := do(r, http.MethodPost, "/write", map[string]string{"Authorization": "Bearer nope"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid or missing API key")
	})

	t.Run("unknown key", func(t *testing.T) {
		w := do(r, http.MethodPost, "/write", map[string]string{"X-API-Key": "guess"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestAdminKey(t *testing.T) {
	r := guarded(&config.Config{JWTSecret: testSecret}, nil)
	w := do(r, http.MethodGet, "/keys", map[string]string{"X-Admin-Key": "anything"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Admin key not configured")

	r = guarded(&config.Config{JWTSecret: testSecret, AdminKey: "s3cret"}, nil)
	w = do(r, http.MethodGet, "/keys", map[string]string{"X-Admin-Key": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid admin key")

	w = do(r, http.MethodGet, "/keys", map[string]string{"X-Admin-Key": "s3cret"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireAdmin(t *testing.T) {
	cfg := &config.Config{JWTSecret: testSecret}
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/admin", RequireAuth(cfg), RequireAdmin(), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/admin", nil).Code)

	clerk, _ := auth.GenerateJWT("U-1", "clerk@example.com", false, testSecret, time.Minute)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/admin", map[string]string{"Authorization": "Bearer " + clerk}).Code)

	admin, _ := auth.GenerateJWT("admin", "admin@example.com", true, testSecret, time.Minute)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/admin", map[string]string{"Authorization": "Bearer " + admin}).Code)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"), "limits are per client")
}
