// internal/storage/users.go
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/smbworks/erp-backend/internal/dal"
	"github.com/smbworks/erp-backend/internal/domain"
)

const userColumns = "user_id, email, company_id, password_hash, is_admin, active, created_at, subscription_plan"

var insertUser = dal.Statement{
	SQL: `INSERT INTO users (user_id, email, company_id, password_hash, is_admin, subscription_plan, created_at)
		VALUES (%s, %s, %s, %s, %s, %s, %s) RETURNING ` + userColumns,
	Target: &dal.Target{Table: "users", Op: dal.OpInsert, Keys: []dal.Key{{Column: "user_id", Param: 0}}},
}

var updatePassword = dal.Statement{
	SQL:    "UPDATE users SET password_hash = %s WHERE user_id = %s RETURNING user_id",
	Target: &dal.Target{Table: "users", Op: dal.OpUpdate, Keys: []dal.Key{{Column: "user_id", Param: 1}}},
}

func scanUser(r dal.Row) *domain.User {
	u := &domain.User{
		UserID:           r.String("user_id"),
		Email:            r.String("email"),
		CompanyID:        r.NullString("company_id"),
		PasswordHash:     r.String("password_hash"),
		IsAdmin:          r.Bool("is_admin"),
		Active:           r.Bool("active"),
		SubscriptionPlan: r.String("subscription_plan"),
	}
	if t := r.Time("created_at"); t != nil {
		u.CreatedAt = *t
	}
	return u
}

// NewUserID returns a fresh user identifier.
func NewUserID() string {
	return "U-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// CreateUser inserts a user. userID may be empty to have one generated.
func CreateUser(ctx context.Context, q dal.Querier, userID, email string, companyID *string, passwordHash string, isAdmin bool, plan string) (*domain.User, error) {
	if userID == "" {
		userID = NewUserID()
	}
	if plan == "" {
		plan = "free"
	}

	rows, err := q.Execute(ctx, insertUser, true,
		userID, strings.ToLower(strings.TrimSpace(email)), companyID, passwordHash, isAdmin, plan, time.Now().UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailExists
		}
		customLog.Warnf("Storage: Failed to insert user %s: %v", email, err)
		return nil, fmt.Errorf("database error during user creation: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrEmailExists
	}
	customLog.Printf("Storage: Created user %s (%s)", userID, email)
	return scanUser(rows[0]), nil
}

// FindUserByEmail retrieves a user by their email address.
func FindUserByEmail(ctx context.Context, q dal.Querier, email string) (*domain.User, error) {
	row, err := q.FetchOne(ctx, "SELECT "+userColumns+" FROM users WHERE email = %s LIMIT 1", strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		customLog.Warnf("Storage: Failed to find user by email %s: %v", email, err)
		return nil, fmt.Errorf("database error finding user: %w", err)
	}
	if row == nil {
		return nil, ErrUserNotFound
	}
	return scanUser(row), nil
}

func FindUserByID(ctx context.Context, q dal.Querier, userID string) (*domain.User, error) {
	row, err := q.FetchOne(ctx, "SELECT "+userColumns+" FROM users WHERE user_id = %s LIMIT 1", userID)
	if err != nil {
		customLog.Warnf("Storage: Failed to find user %s: %v", userID, err)
		return nil, fmt.Errorf("database error finding user: %w", err)
	}
	if row == nil {
		return nil, ErrUserNotFound
	}
	return scanUser(row), nil
}

// ListUsers returns every user, newest first.
func ListUsers(ctx context.Context, q dal.Querier) ([]domain.User, error) {
	rows, err := q.FetchAll(ctx, "SELECT "+userColumns+" FROM users ORDER BY created_at DESC, user_id")
	if err != nil {
		return nil, fmt.Errorf("database error listing users: %w", err)
	}
	users := make([]domain.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, *scanUser(r))
	}
	return users, nil
}

func UpdatePassword(ctx context.Context, q dal.Querier, userID, passwordHash string) error {
	rows, err := q.Execute(ctx, updatePassword, true, passwordHash, userID)
	if err != nil {
		return fmt.Errorf("database error updating password: %w", err)
	}
	if len(rows) == 0 {
		return ErrUserNotFound
	}
	return nil
}

// EnsureAdminUser seeds the bootstrap administrator when no user has the
// given email yet. It reports whether a user was created.
func EnsureAdminUser(ctx context.Context, q dal.Querier, email, passwordHash string) (bool, error) {
	_, err := FindUserByEmail(ctx, q, email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return false, err
	}

	userID := "admin"
	if _, err := FindUserByID(ctx, q, userID); err == nil {
		userID = NewUserID()
	}
	if _, err := CreateUser(ctx, q, userID, email, nil, passwordHash, true, "enterprise"); err != nil {
		return false, err
	}
	customLog.Printf("Storage: Seeded admin user %s", email)
	return true, nil
}

// --- Admin audit ---

// LogAdminEvent records an administrative action. Failures are logged and dropped.
func LogAdminEvent(ctx context.Context, q dal.Querier, eventType, actor string, details map[string]any) {
	var encoded any
	if len(details) > 0 {
		if b, err := json.Marshal(details); err == nil {
			encoded = string(b)
		}
	}
	_, err := q.Execute(ctx,
		dal.Exec("INSERT INTO admin_audit (event_type, event_by, event_time, details) VALUES (%s, %s, %s, %s)"),
		false, eventType, actor, time.Now().UTC(), encoded)
	if err != nil {
		customLog.Warnf("Storage: Failed to write admin audit event %s: %v", eventType, err)
	}
}

// ListAdminAudit returns the latest admin events, newest first.
func ListAdminAudit(ctx context.Context, q dal.Querier, limit int) ([]domain.AdminAuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := q.FetchAll(ctx,
		"SELECT audit_id, event_type, event_by, event_time, details FROM admin_audit ORDER BY audit_id DESC LIMIT %s", limit)
	if err != nil {
		return nil, fmt.Errorf("database error listing admin audit: %w", err)
	}

	entries := make([]domain.AdminAuditEntry, 0, len(rows))
	for _, r := range rows {
		e := domain.AdminAuditEntry{
			ID:        r.Int64("audit_id"),
			EventType: r.String("event_type"),
			Actor:     r.String("event_by"),
			EventTime: r.Time("event_time"),
		}
		if raw := r.String("details"); raw != "" {
			_ = json.Unmarshal([]byte(raw), &e.Details)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
