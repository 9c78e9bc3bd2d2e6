package dal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3" // Driver registration

	"github.com/smbworks/erp-backend/internal/core"
)

// sqlExecer is satisfied by both *sql.Conn and *sql.Tx.
type sqlExecer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// SQLiteDB is the embedded backend. Each operation checks out its own
// connection and returns it before the call completes.
type SQLiteDB struct {
	db   *sql.DB
	path string
}

var _ DB = (*SQLiteDB)(nil)

func openSQLite(ctx context.Context, opts Options) (*SQLiteDB, error) {
	if opts.SQLitePath == "" {
		return nil, fmt.Errorf("%w: sqlite path is empty", ErrConfig)
	}
	customLog.Printf("DAL: Opening embedded database: %s", opts.SQLitePath)

	if dir := filepath.Dir(opts.SQLitePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			customLog.Warnf("DAL: Error creating data directory '%s': %v", dir, err)
			return nil, fmt.Errorf("%w: create data directory: %v", ErrConfig, err)
		}
	}

	// Foreign keys on, WAL journal and a 5s busy timeout for concurrent writers.
	db, err := sql.Open("sqlite3", opts.SQLitePath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		customLog.Warnf("DAL: Failed to open embedded db '%s': %v", opts.SQLitePath, err)
		return nil, fmt.Errorf("%w: open sqlite: %v", ErrConfig, err)
	}

	if err = db.PingContext(ctx); err != nil {
		db.Close()
		customLog.Warnf("DAL: Failed to ping embedded db '%s': %v", opts.SQLitePath, err)
		return nil, fmt.Errorf("%w: connect sqlite: %v", ErrConfig, err)
	}
	customLog.Println("DAL: Embedded database connection successful.")

	return &SQLiteDB{db: db, path: opts.SQLitePath}, nil
}

// Kind reports KindSQLite.
func (s *SQLiteDB) Kind() Kind { return KindSQLite }

// Path returns the database file path.
func (s *SQLiteDB) Path() string { return s.path }

func (s *SQLiteDB) FetchAll(ctx context.Context, query string, args ...any) ([]Row, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	return sqliteQuerier{ex: conn}.FetchAll(ctx, query, args...)
}

func (s *SQLiteDB) FetchOne(ctx context.Context, query string, args ...any) (Row, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	return sqliteQuerier{ex: conn}.FetchOne(ctx, query, args...)
}

// Execute runs the write in its own transaction so the statement and the
// read-back of its affected rows see the same state.
func (s *SQLiteDB) Execute(ctx context.Context, stmt Statement, returnAffected bool, args ...any) ([]Row, error) {
	var rows []Row
	err := s.InTx(ctx, func(ctx context.Context, q Querier) error {
		var err error
		rows, err = q.Execute(ctx, stmt, returnAffected, args...)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *SQLiteDB) InTx(ctx context.Context, fn func(ctx context.Context, q Querier) error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(ctx, sqliteQuerier{ex: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			customLog.Warnf("DAL: Rollback failed: %v", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *SQLiteDB) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// sqliteQuerier runs statements on one connection or transaction.
type sqliteQuerier struct {
	ex sqlExecer
}

func (q sqliteQuerier) Kind() Kind { return KindSQLite }

func (q sqliteQuerier) FetchAll(ctx context.Context, query string, args ...any) ([]Row, error) {
	text, err := translatePlaceholders(query, KindSQLite, len(args))
	if err != nil {
		return nil, err
	}

	rows, err := q.ex.QueryContext(ctx, text, normalizeSQLiteArgs(args)...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	return scanSQLRows(rows)
}

func (q sqliteQuerier) FetchOne(ctx context.Context, query string, args ...any) (Row, error) {
	rows, err := q.FetchAll(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// Execute strips any RETURNING clause (authored for PostgreSQL) and, when the
// affected rows are wanted, rebuilds them from the statement's Target.
func (q sqliteQuerier) Execute(ctx context.Context, stmt Statement, returnAffected bool, args ...any) ([]Row, error) {
	body, columns, _ := splitReturning(stmt.SQL)

	text, err := translatePlaceholders(body, KindSQLite, len(args))
	if err != nil {
		return nil, err
	}
	bound := normalizeSQLiteArgs(args)

	if !returnAffected {
		if _, err := q.ex.ExecContext(ctx, text, bound...); err != nil {
			return nil, fmt.Errorf("exec: %w", err)
		}
		return nil, nil
	}

	target := stmt.Target
	if target == nil {
		return nil, ErrNoTarget
	}
	if columns == "" {
		columns = "*"
	}

	// Deleted rows cannot be read afterwards, so capture them first.
	var deleted []Row
	if target.Op == OpDelete {
		deleted, err = q.lookup(ctx, target, columns, bound, 0)
		if err != nil {
			return nil, err
		}
	}

	res, err := q.ex.ExecContext(ctx, text, bound...)
	if err != nil {
		return nil, fmt.Errorf("exec: %w", err)
	}

	changed, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("read change count: %w", err)
	}
	if changed == 0 {
		return []Row{}, nil
	}

	if target.Op == OpDelete {
		return deleted, nil
	}

	var lastID int64
	if target.usesLastInsertID() {
		if lastID, err = res.LastInsertId(); err != nil {
			return nil, fmt.Errorf("read last insert id: %w", err)
		}
	}
	return q.lookup(ctx, target, columns, bound, lastID)
}

// lookup reads the target rows identified by the key parameters.
func (q sqliteQuerier) lookup(ctx context.Context, target *Target, columns string, args []any, lastID int64) ([]Row, error) {
	if !core.IsValidIdentifier(target.Table) || len(target.Keys) == 0 {
		return nil, fmt.Errorf("%w: table %q with %d keys", ErrTargetKey, target.Table, len(target.Keys))
	}

	where := make([]string, 0, len(target.Keys))
	values := make([]any, 0, len(target.Keys))
	for _, key := range target.Keys {
		if !core.IsValidIdentifier(key.Column) {
			return nil, fmt.Errorf("%w: column %q", ErrTargetKey, key.Column)
		}
		switch {
		case key.Param == FromLastInsertID:
			values = append(values, lastID)
		case key.Param >= 0 && key.Param < len(args):
			values = append(values, args[key.Param])
		default:
			return nil, fmt.Errorf("%w: %s.%s uses parameter %d of %d", ErrTargetKey, target.Table, key.Column, key.Param, len(args))
		}
		where = append(where, key.Column+" = ?")
	}

	// nolint:gosec // table and columns are validated identifiers from code-authored targets
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s", columns, target.Table, strings.Join(where, " AND "))
	rows, err := q.ex.QueryContext(ctx, query, values...)
	if err != nil {
		return nil, fmt.Errorf("read back %s rows: %w", target.Op, err)
	}
	return scanSQLRows(rows)
}

func (t *Target) usesLastInsertID() bool {
	for _, key := range t.Keys {
		if key.Param == FromLastInsertID {
			return true
		}
	}
	return false
}

// scanSQLRows drains rows into maps and closes them.
func scanSQLRows(rows *sql.Rows) ([]Row, error) {
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	out := make([]Row, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		row := make(Row, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}
