package main

import (
	"bytes"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCtl(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	app := newApp(&out)
	app.SetArgs(args)
	require.NoError(t, app.Execute(), "erpctl %v", args)
	return out.String()
}

func TestAPIKeyLifecycle(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "erpctl-test-secret")
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "erpctl.db"))
	t.Setenv("APIKEY_PBKDF2_ITER", "1000")
	t.Setenv("DATABASE_URL", "")

	assert.Contains(t, runCtl(t, "--backend", "sqlite", "migrate"), "sqlite schema is up to date")

	issued := runCtl(t, "--backend", "sqlite", "apikey", "issue", "ci")
	assert.Regexp(t, regexp.MustCompile(`api_key: [0-9a-f]{64}`), issued)

	listing := runCtl(t, "--backend", "sqlite", "apikey", "list")
	assert.Contains(t, listing, "ci")
	assert.Contains(t, listing, "LAST USED")

	rotated := runCtl(t, "--backend", "sqlite", "apikey", "rotate", "1")
	assert.Contains(t, rotated, "rotated 1")
	assert.Contains(t, rotated, "id: 2")

	assert.Contains(t, runCtl(t, "--backend", "sqlite", "apikey", "delete", "2"), "deleted 2")

	audit := runCtl(t, "--backend", "sqlite", "audit", "list", "--limit", "10")
	for _, event := range []string{"created", "rotated", "deleted"} {
		assert.Contains(t, audit, event)
	}

	assert.Contains(t, runCtl(t, "--backend", "sqlite", "audit", "purge", "--days", "0"), "purged")
}

func TestRotateRejectsBadID(t *testing.T) {
	var out bytes.Buffer
	app := newApp(&out)
	app.SetArgs([]string{"apikey", "rotate", "abc"})
	assert.Error(t, app.Execute())
}
