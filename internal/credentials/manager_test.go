package credentials

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smbworks/erp-backend/internal/dal"
)

// testManager builds a manager over a fresh migrated SQLite database. A low
// iteration count keeps the tests fast.
func testManager(t *testing.T) (*Manager, dal.DB) {
	t.Helper()

	db, err := dal.Open(context.Background(), dal.Options{
		Kind:       dal.KindSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "credentials_test.db"),
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(context.Background()))
	t.Cleanup(func() { _ = db.Close() })

	return NewManager(db, Options{Iterations: 1000}), db
}

func TestIssueAndVerify(t *testing.T) {
	m, db := testManager(t)
	ctx := context.Background()
	assert := assert.New(t)

	issued, err := m.Issue(ctx, "ci")
	require.NoError(t, err)
	assert.Len(issued.Plaintext, 64)
	assert.Equal("ci", issued.Label)
	assert.True(issued.Active)
	assert.False(issued.CreatedAt.IsZero())
	assert.Nil(issued.LastUsed)

	cred, err := m.Verify(ctx, issued.Plaintext)
	assert.NoError(err)
	if assert.NotNil(cred) {
		assert.Equal(issued.ID, cred.ID)
	}

	cred, err = m.Verify(ctx, "garbage")
	assert.NoError(err, "no match is not an error")
	assert.Nil(cred)

	cred, err = m.Verify(ctx, "")
	assert.NoError(err)
	assert.Nil(cred)

	// Only the digest is stored.
	row, err := db.FetchOne(ctx, "SELECT key_text, key_hash, salt FROM api_keys WHERE id = %s", issued.ID)
	require.NoError(t, err)
	assert.Nil(row["key_text"])
	assert.NotEqual(issued.Plaintext, row["key_hash"])
	assert.Len(row.String("salt"), DefaultSaltBytes*2)
	assert.Len(row.String("key_hash"), DefaultKeyBytes*2)

	entries, err := m.ListAudit(ctx, 10)
	assert.NoError(err)
	if assert.Len(entries, 1) {
		assert.Equal(EventCreated, entries[0].EventType)
		assert.Equal(issued.ID, *entries[0].CredentialID)
		assert.Equal("ci", entries[0].Details["label"])
	}
}

func TestIssueProducesDistinctKeys(t *testing.T) {
	m, _ := testManager(t)
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		issued, err := m.Issue(ctx, "batch")
		require.NoError(t, err)
		assert.False(t, seen[issued.Plaintext], "plaintext repeated")
		seen[issued.Plaintext] = true
	}

	creds, err := m.List(ctx)
	require.NoError(t, err)
	assert.Len(t, creds, 5)
	assert.Greater(t, creds[0].ID, creds[4].ID, "newest first")
}

func TestIssueSaltsAndHashesDiffer(t *testing.T) {
	m, db := testManager(t)
	ctx := context.Background()

	first, err := m.Issue(ctx, "same")
	require.NoError(t, err)
	second, err := m.Issue(ctx, "same")
	require.NoError(t, err)

	stored := func(id int64) dal.Row {
		row, err := db.FetchOne(ctx, "SELECT key_hash, salt FROM api_keys WHERE id = %s", id)
		require.NoError(t, err)
		require.NotNil(t, row)
		return row
	}
	a, b := stored(first.ID), stored(second.ID)

	assert.NotEmpty(t, a.String("salt"))
	assert.NotEqual(t, a.String("salt"), b.String("salt"))
	assert.NotEqual(t, a.String("key_hash"), b.String("key_hash"))
}

func TestVerifyLegacyPlaintext(t *testing.T) {
	m, db := testManager(t)
	ctx := context.Background()

	_, err := db.Execute(ctx, dal.Exec("INSERT INTO api_keys (key_text, label, created_at, active) VALUES (%s, %s, %s, %s)"),
		false, "legacy-key", "old", time.Now(), true)
	require.NoError(t, err)

	cred, err := m.Verify(ctx, "legacy-key")
	assert.NoError(t, err)
	if assert.NotNil(t, cred) {
		assert.Equal(t, "old", cred.Label)
	}
}

func TestRotate(t *testing.T) {
	m, _ := testManager(t)
	ctx := context.Background()
	assert := assert.New(t)

	old, err := m.Issue(ctx, "ci")
	require.NoError(t, err)

	fresh, err := m.Rotate(ctx, old.ID, "admin")
	require.NoError(t, err)
	assert.NotEqual(old.ID, fresh.ID)
	assert.Equal("rotated-from-"+strconv.FormatInt(old.ID, 10), fresh.Label)
	assert.True(fresh.Active)

	cred, err := m.Verify(ctx, old.Plaintext)
	assert.NoError(err)
	assert.Nil(cred, "rotated key must stop verifying")

	cred, err = m.Verify(ctx, fresh.Plaintext)
	assert.NoError(err)
	if assert.NotNil(cred) {
		assert.Equal(fresh.ID, cred.ID)
	}

	entries, err := m.ListAudit(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	rotated := entries[0]
	assert.Equal(EventRotated, rotated.EventType)
	assert.Equal("admin", rotated.Actor)
	assert.Equal(fresh.ID, *rotated.CredentialID)
	// JSON numbers decode as float64.
	assert.Equal(float64(old.ID), rotated.Details["rotated_from"])
	assert.Equal(float64(fresh.ID), rotated.Details["new_id"])

	creds, err := m.List(ctx)
	require.NoError(t, err)
	for _, c := range creds {
		if c.ID == old.ID {
			assert.False(c.Active)
		}
	}
}

func TestRotateMissing(t *testing.T) {
	m, _ := testManager(t)

	_, err := m.Rotate(context.Background(), 999, "admin")
	assert.ErrorIs(t, err, ErrNotFound)

	creds, err := m.List(context.Background())
	assert.NoError(t, err)
	assert.Len(t, creds, 0, "failed rotation must not issue a key")
}

func TestDelete(t *testing.T) {
	m, _ := testManager(t)
	ctx := context.Background()

	issued, err := m.Issue(ctx, "tmp")
	require.NoError(t, err)

	assert.NoError(t, m.Delete(ctx, issued.ID, "admin"))
	assert.ErrorIs(t, m.Delete(ctx, issued.ID, "admin"), ErrNotFound)

	cred, err := m.Verify(ctx, issued.Plaintext)
	assert.NoError(t, err)
	assert.Nil(t, cred)

	entries, err := m.ListAudit(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, EventDeleted, entries[0].EventType)
}

func TestMarkUsed(t *testing.T) {
	m, _ := testManager(t)
	ctx := context.Background()

	issued, err := m.Issue(ctx, "ci")
	require.NoError(t, err)

	m.MarkUsed(ctx, issued.ID)
	m.MarkUsed(ctx, 424242) // unknown id is silently ignored

	cred, err := m.Verify(ctx, issued.Plaintext)
	require.NoError(t, err)
	require.NotNil(t, cred)
	assert.NotNil(t, cred.LastUsed)
}

func TestLogEventBestEffort(t *testing.T) {
	m, db := testManager(t)
	ctx := context.Background()

	m.LogEvent(ctx, nil, EventUsed, "api", nil)

	require.NoError(t, db.Close())
	// The handle is closed: the write fails but the call must not panic or report.
	m.LogEvent(ctx, nil, EventUsed, "api", map[string]any{"path": "/api/orders"})
	m.MarkUsed(ctx, 1)
}

func TestPurgeAudit(t *testing.T) {
	m, db := testManager(t)
	ctx := context.Background()
	assert := assert.New(t)

	insert := dal.Exec("INSERT INTO api_key_audit (event_type, event_time) VALUES (%s, %s)")
	now := time.Now().UTC()

	_, err := db.Execute(ctx, insert, false, "old", now.Add(-100*24*time.Hour))
	require.NoError(t, err)
	_, err = db.Execute(ctx, insert, false, "recent", now.Add(-10*24*time.Hour))
	require.NoError(t, err)
	_, err = db.Execute(ctx, insert, false, "untimed", nil)
	require.NoError(t, err)
	_, err = db.Execute(ctx, insert, false, "blank", "")
	require.NoError(t, err)

	purged, err := m.PurgeAudit(ctx, 90)
	assert.NoError(err)
	assert.Equal(int64(3), purged)

	entries, err := m.ListAudit(ctx, 10)
	assert.NoError(err)
	if assert.Len(entries, 1) {
		assert.Equal("recent", entries[0].EventType)
	}

	purged, err = m.PurgeAudit(ctx, 90)
	assert.NoError(err)
	assert.Equal(int64(0), purged)

	// Zero days purges everything up to now.
	purged, err = m.PurgeAudit(ctx, 0)
	assert.NoError(err)
	assert.Equal(int64(1), purged)

	_, err = m.PurgeAudit(ctx, -1)
	assert.ErrorIs(err, ErrInvalidRetention)
}

func TestOptionsDefaults(t *testing.T) {
	o := Options{SaltBytes: 4}.withDefaults()
	assert.Equal(t, DefaultIterations, o.Iterations)
	assert.Equal(t, DefaultSaltBytes, o.SaltBytes, "salt is never shorter than the default")
	assert.Equal(t, DefaultKeyBytes, o.KeyBytes)

	o = Options{Iterations: 10, SaltBytes: 32, KeyBytes: 64}.withDefaults()
	assert.Equal(t, Options{Iterations: 10, SaltBytes: 32, KeyBytes: 64}, o)
}
