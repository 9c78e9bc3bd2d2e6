package dal

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgExecer is implemented by both *pgxpool.Pool and pgx.Tx, so the same
// querier serves pooled calls and transactions.
type pgExecer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresDB is the client/server backend, backed by a process-wide pool
// whose size is fixed at construction.
type PostgresDB struct {
	pool *pgxpool.Pool
}

var _ DB = (*PostgresDB)(nil)

func openPostgres(ctx context.Context, opts Options) (*PostgresDB, error) {
	if strings.TrimSpace(opts.DSN) == "" {
		return nil, fmt.Errorf("%w: postgres backend selected but no DATABASE_URL or PG_* settings given", ErrConfig)
	}

	poolCfg, err := pgxpool.ParseConfig(withSSLMode(opts.DSN, opts.SSLMode))
	if err != nil {
		return nil, fmt.Errorf("%w: parse postgres dsn: %v", ErrConfig, err)
	}
	if opts.MaxConns > 0 {
		poolCfg.MaxConns = opts.MaxConns
	}
	if opts.MinConns > poolCfg.MaxConns {
		return nil, fmt.Errorf("%w: pool min %d exceeds max %d", ErrConfig, opts.MinConns, poolCfg.MaxConns)
	}
	if opts.MinConns >= 0 {
		poolCfg.MinConns = opts.MinConns
	}
	if opts.ConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = opts.ConnectTimeout
	}

	customLog.Printf("DAL: Connecting to postgres %s (pool %d-%d)", poolCfg.ConnConfig.Host, poolCfg.MinConns, poolCfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: create postgres pool: %v", ErrConfig, err)
	}

	pingCtx := ctx
	if opts.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, opts.ConnectTimeout)
		defer cancel()
	}
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		customLog.Warnf("DAL: Failed to reach postgres: %v", err)
		return nil, fmt.Errorf("%w: connect postgres: %v", ErrConfig, err)
	}
	customLog.Println("DAL: Postgres connection successful.")

	return &PostgresDB{pool: pool}, nil
}

// withSSLMode adds sslmode to the DSN unless it already names one.
func withSSLMode(dsn, sslmode string) string {
	if sslmode == "" || strings.Contains(dsn, "sslmode=") {
		return dsn
	}

	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return dsn
		}
		q := u.Query()
		q.Set("sslmode", sslmode)
		u.RawQuery = q.Encode()
		return u.String()
	}

	// keyword/value form
	return strings.TrimSpace(dsn) + " sslmode=" + sslmode
}

// Pool exposes the underlying pool for migrations.
func (p *PostgresDB) Pool() *pgxpool.Pool { return p.pool }

func (p *PostgresDB) Kind() Kind { return KindPostgres }

func (p *PostgresDB) FetchAll(ctx context.Context, query string, args ...any) ([]Row, error) {
	return pgQuerier{ex: p.pool}.FetchAll(ctx, query, args...)
}

func (p *PostgresDB) FetchOne(ctx context.Context, query string, args ...any) (Row, error) {
	return pgQuerier{ex: p.pool}.FetchOne(ctx, query, args...)
}

func (p *PostgresDB) Execute(ctx context.Context, stmt Statement, returnAffected bool, args ...any) ([]Row, error) {
	return pgQuerier{ex: p.pool}.Execute(ctx, stmt, returnAffected, args...)
}

func (p *PostgresDB) InTx(ctx context.Context, fn func(ctx context.Context, q Querier) error) error {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(ctx, pgQuerier{ex: tx}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			customLog.Warnf("DAL: Rollback failed: %v", rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (p *PostgresDB) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *PostgresDB) Close() error {
	p.pool.Close()
	return nil
}

type pgQuerier struct {
	ex pgExecer
}

func (q pgQuerier) Kind() Kind { return KindPostgres }

func (q pgQuerier) FetchAll(ctx context.Context, query string, args ...any) ([]Row, error) {
	text, err := translatePlaceholders(query, KindPostgres, len(args))
	if err != nil {
		return nil, err
	}

	rows, err := q.ex.Query(ctx, text, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	return scanPgRows(rows)
}

func (q pgQuerier) FetchOne(ctx context.Context, query string, args ...any) (Row, error) {
	rows, err := q.FetchAll(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// Execute relies on native RETURNING. A statement authored without one gets
// RETURNING * appended when rows are requested.
func (q pgQuerier) Execute(ctx context.Context, stmt Statement, returnAffected bool, args ...any) ([]Row, error) {
	query := stmt.SQL
	if returnAffected {
		if body, _, found := splitReturning(query); !found {
			query = body + " RETURNING *"
		}
	}

	text, err := translatePlaceholders(query, KindPostgres, len(args))
	if err != nil {
		return nil, err
	}

	if !returnAffected {
		if _, err := q.ex.Exec(ctx, text, args...); err != nil {
			return nil, fmt.Errorf("exec: %w", err)
		}
		return nil, nil
	}

	rows, err := q.ex.Query(ctx, text, args...)
	if err != nil {
		return nil, fmt.Errorf("exec: %w", err)
	}
	return scanPgRows(rows)
}

func scanPgRows(rows pgx.Rows) ([]Row, error) {
	defer rows.Close()

	fields := rows.FieldDescriptions()
	out := make([]Row, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		row := make(Row, len(fields))
		for i, field := range fields {
			row[field.Name] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}
