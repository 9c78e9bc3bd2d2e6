// Package credentials manages long-lived API credentials: issuing, verifying,
// rotating and deleting them, plus the audit trail of those events.
//
// Only a salted PBKDF2 digest of each credential is stored. The plaintext is
// handed to the caller once, at issue time.
package credentials

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/crypto/pbkdf2"

	"github.com/smbworks/erp-backend/internal/dal"
	"github.com/smbworks/erp-backend/internal/logger"
)

var (
	customLog = logger.NewLogger()
)

var (
	ErrNotFound         = errors.New("api key not found")
	ErrInvalidRetention = errors.New("retention days must not be negative")
)

// Audit event types.
const (
	EventCreated = "created"
	EventRotated = "rotated"
	EventDeleted = "deleted"
	EventUsed    = "used"
)

const (
	DefaultIterations = 200000
	DefaultSaltBytes  = 16
	DefaultKeyBytes   = 32

	tokenBytes = 48
)

// Options tunes the key derivation.
type Options struct {
	Iterations int
	SaltBytes  int
	KeyBytes   int
}

func (o Options) withDefaults() Options {
	if o.Iterations <= 0 {
		o.Iterations = DefaultIterations
	}
	if o.SaltBytes < DefaultSaltBytes {
		o.SaltBytes = DefaultSaltBytes
	}
	if o.KeyBytes <= 0 {
		o.KeyBytes = DefaultKeyBytes
	}
	return o
}

// Credential is the public view of a stored API key.
type Credential struct {
	ID        int64      `json:"id"`
	Label     string     `json:"label"`
	CreatedAt time.Time  `json:"created_at"`
	Active    bool       `json:"active"`
	LastUsed  *time.Time `json:"last_used,omitempty"`
}

// Issued carries the plaintext of a freshly created credential.
type Issued struct {
	Credential
	Plaintext string `json:"api_key"`
}

// AuditEntry is one row of the credential audit trail.
type AuditEntry struct {
	ID           int64          `json:"audit_id"`
	CredentialID *int64         `json:"api_key_id,omitempty"`
	EventType    string         `json:"event_type"`
	Actor        string         `json:"event_by,omitempty"`
	EventTime    *time.Time     `json:"event_time,omitempty"`
	Details      map[string]any `json:"details,omitempty"`
}

// Manager owns the api_keys and api_key_audit tables.
type Manager struct {
	db   dal.DB
	opts Options
}

// NewManager builds a Manager on an opened database handle.
func NewManager(db dal.DB, opts Options) *Manager {
	return &Manager{db: db, opts: opts.withDefaults()}
}

const credentialColumns = "id, label, created_at, active, last_used"

var insertKey = dal.Statement{
	SQL: `INSERT INTO api_keys (key_hash, salt, label, created_at, active)
		VALUES (%s, %s, %s, %s, %s) RETURNING ` + credentialColumns,
	Target: &dal.Target{Table: "api_keys", Op: dal.OpInsert, Keys: []dal.Key{{Column: "id", Param: dal.FromLastInsertID}}},
}

// Issue creates a new active credential and returns its plaintext.
func (m *Manager) Issue(ctx context.Context, label string) (*Issued, error) {
	issued, err := m.issue(ctx, m.db, label)
	if err != nil {
		return nil, err
	}
	m.LogEvent(ctx, &issued.ID, EventCreated, "", map[string]any{"label": label})
	return issued, nil
}

func (m *Manager) issue(ctx context.Context, q dal.Querier, label string) (*Issued, error) {
	plaintext, err := newToken()
	if err != nil {
		return nil, err
	}
	salt := make([]byte, m.opts.SaltBytes)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	digest := m.derive(plaintext, salt)

	rows, err := q.Execute(ctx, insertKey, true,
		hex.EncodeToString(digest), hex.EncodeToString(salt), label, time.Now().UTC(), true)
	if err != nil {
		return nil, fmt.Errorf("store api key: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("store api key: no row returned")
	}

	cred, err := credentialFromRow(rows[0])
	if err != nil {
		return nil, err
	}
	customLog.Printf("Credentials: Issued api key %d (%s)", cred.ID, label)
	return &Issued{Credential: *cred, Plaintext: plaintext}, nil
}

// Verify resolves a presented plaintext to its active credential. A plaintext
// that matches nothing yields nil without an error.
func (m *Manager) Verify(ctx context.Context, plaintext string) (*Credential, error) {
	if plaintext == "" {
		return nil, nil
	}

	// Rows created before hashing was introduced keep the key in clear.
	row, err := m.db.FetchOne(ctx,
		"SELECT "+credentialColumns+" FROM api_keys WHERE key_text = %s AND active = %s", plaintext, true)
	if err != nil {
		return nil, fmt.Errorf("lookup legacy api key: %w", err)
	}
	if row != nil {
		return credentialFromRow(row)
	}

	rows, err := m.db.FetchAll(ctx,
		"SELECT "+credentialColumns+", key_hash, salt FROM api_keys WHERE active = %s AND key_hash IS NOT NULL", true)
	if err != nil {
		return nil, fmt.Errorf("scan active api keys: %w", err)
	}

	for _, row := range rows {
		salt, err := hex.DecodeString(row.String("salt"))
		if err != nil {
			customLog.Warnf("Credentials: Skipping api key %v with malformed salt", row["id"])
			continue
		}
		want, err := hex.DecodeString(row.String("key_hash"))
		if err != nil {
			customLog.Warnf("Credentials: Skipping api key %v with malformed hash", row["id"])
			continue
		}
		got := pbkdf2.Key([]byte(plaintext), salt, m.opts.Iterations, len(want), sha256.New)
		if subtle.ConstantTimeCompare(got, want) == 1 {
			return credentialFromRow(row)
		}
	}
	return nil, nil
}

// Rotate retires a credential and issues its replacement atomically.
func (m *Manager) Rotate(ctx context.Context, id int64, actor string) (*Issued, error) {
	var issued *Issued
	err := m.db.InTx(ctx, func(ctx context.Context, q dal.Querier) error {
		row, err := q.FetchOne(ctx, "SELECT id FROM api_keys WHERE id = %s", id)
		if err != nil {
			return fmt.Errorf("lookup api key: %w", err)
		}
		if row == nil {
			return ErrNotFound
		}

		if _, err := q.Execute(ctx, dal.Exec("UPDATE api_keys SET active = %s WHERE id = %s"), false, false, id); err != nil {
			return fmt.Errorf("deactivate api key: %w", err)
		}

		issued, err = m.issue(ctx, q, "rotated-from-"+strconv.FormatInt(id, 10))
		return err
	})
	if err != nil {
		return nil, err
	}

	customLog.Printf("Credentials: Rotated api key %d -> %d", id, issued.ID)
	m.LogEvent(ctx, &issued.ID, EventRotated, actor, map[string]any{
		"rotated_from": id,
		"new_id":       issued.ID,
	})
	return issued, nil
}

var deleteKey = dal.Statement{
	SQL:    "DELETE FROM api_keys WHERE id = %s RETURNING id",
	Target: &dal.Target{Table: "api_keys", Op: dal.OpDelete, Keys: []dal.Key{{Column: "id", Param: 0}}},
}

// Delete removes a credential permanently.
func (m *Manager) Delete(ctx context.Context, id int64, actor string) error {
	rows, err := m.db.Execute(ctx, deleteKey, true, id)
	if err != nil {
		return fmt.Errorf("delete api key: %w", err)
	}
	if len(rows) == 0 {
		return ErrNotFound
	}

	customLog.Printf("Credentials: Deleted api key %d", id)
	m.LogEvent(ctx, &id, EventDeleted, actor, nil)
	return nil
}

// MarkUsed stamps last_used. Failures are logged, never returned.
func (m *Manager) MarkUsed(ctx context.Context, id int64) {
	_, err := m.db.Execute(ctx, dal.Exec("UPDATE api_keys SET last_used = CURRENT_TIMESTAMP WHERE id = %s"), false, id)
	if err != nil {
		customLog.Warnf("Credentials: Failed to mark api key %d used: %v", id, err)
	}
}

// LogEvent appends to the audit trail. Failures are logged, never returned.
func (m *Manager) LogEvent(ctx context.Context, credentialID *int64, eventType, actor string, details map[string]any) {
	var encoded any
	if len(details) > 0 {
		b, err := json.Marshal(details)
		if err != nil {
			customLog.Warnf("Credentials: Failed to encode audit details for %s: %v", eventType, err)
		} else {
			encoded = string(b)
		}
	}

	var keyID any
	if credentialID != nil {
		keyID = *credentialID
	}
	var by any
	if actor != "" {
		by = actor
	}

	_, err := m.db.Execute(ctx,
		dal.Exec("INSERT INTO api_key_audit (api_key_id, event_type, event_by, event_time, details) VALUES (%s, %s, %s, %s, %s)"),
		false, keyID, eventType, by, time.Now().UTC(), encoded)
	if err != nil {
		customLog.Warnf("Credentials: Failed to write audit event %s: %v", eventType, err)
	}
}

const purgeWhere = " FROM api_key_audit WHERE event_time IS NULL OR CAST(event_time AS TEXT) = '' OR event_time <= %s"

// PurgeAudit deletes audit entries older than days, along with entries that
// carry no timestamp at all. It returns the number of deleted entries.
func (m *Manager) PurgeAudit(ctx context.Context, days int) (int64, error) {
	if days < 0 {
		return 0, ErrInvalidRetention
	}
	cutoff := time.Now().UTC().Add(-time.Duration(days) * 24 * time.Hour)

	var purged int64
	err := m.db.InTx(ctx, func(ctx context.Context, q dal.Querier) error {
		row, err := q.FetchOne(ctx, "SELECT COUNT(*) AS n"+purgeWhere, cutoff)
		if err != nil {
			return fmt.Errorf("count audit entries: %w", err)
		}
		purged = row.Int64("n")
		if purged == 0 {
			return nil
		}
		if _, err := q.Execute(ctx, dal.Exec("DELETE"+purgeWhere), false, cutoff); err != nil {
			return fmt.Errorf("purge audit entries: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	customLog.Printf("Credentials: Purged %d audit entries older than %d days", purged, days)
	return purged, nil
}

// List returns every stored credential, newest first.
func (m *Manager) List(ctx context.Context) ([]Credential, error) {
	rows, err := m.db.FetchAll(ctx, "SELECT "+credentialColumns+" FROM api_keys ORDER BY id DESC")
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}

	out := make([]Credential, 0, len(rows))
	for _, row := range rows {
		cred, err := credentialFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, *cred)
	}
	return out, nil
}

// ListAudit returns the most recent audit entries, newest first.
func (m *Manager) ListAudit(ctx context.Context, limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := m.db.FetchAll(ctx,
		"SELECT audit_id, api_key_id, event_type, event_by, event_time, details FROM api_key_audit ORDER BY audit_id DESC LIMIT %s", limit)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}

	out := make([]AuditEntry, 0, len(rows))
	for _, row := range rows {
		entry := AuditEntry{
			ID:           row.Int64("audit_id"),
			CredentialID: row.NullInt64("api_key_id"),
			EventType:    row.String("event_type"),
			Actor:        row.String("event_by"),
			EventTime:    row.Time("event_time"),
		}
		if raw := row.String("details"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &entry.Details); err != nil {
				customLog.Warnf("Credentials: Audit entry %d has unreadable details: %v", entry.ID, err)
			}
		}
		out = append(out, entry)
	}
	return out, nil
}

func (m *Manager) derive(plaintext string, salt []byte) []byte {
	return pbkdf2.Key([]byte(plaintext), salt, m.opts.Iterations, m.opts.KeyBytes, sha256.New)
}

func newToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func credentialFromRow(row dal.Row) (*Credential, error) {
	if row["id"] == nil {
		return nil, fmt.Errorf("api key row without id")
	}
	cred := &Credential{
		ID:     row.Int64("id"),
		Label:  row.String("label"),
		Active: row.Bool("active"),
	}
	if t := row.Time("created_at"); t != nil {
		cred.CreatedAt = *t
	}
	cred.LastUsed = row.Time("last_used")
	return cred, nil
}
