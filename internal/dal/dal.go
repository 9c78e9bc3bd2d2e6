// Package dal is the data access layer shared by every repository.
//
// It presents one interface over two backends: an embedded single-file SQLite
// database and a PostgreSQL server. All SQL is authored with positional %s
// placeholders; the layer rewrites them into the backend token, binds
// parameters, and returns rows as column-name maps. Writes can ask for the
// affected rows back: PostgreSQL answers natively through RETURNING, SQLite
// through an emulation driven by the statement's Target descriptor.
//
// The backend is chosen once, when Open is called, and every handle is
// explicitly constructed and passed down to its users.
package dal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/smbworks/erp-backend/config"
	"github.com/smbworks/erp-backend/internal/logger"
)

var (
	customLog = logger.NewLogger()
)

var (
	// ErrConfig is returned by Open when the backend cannot be established.
	ErrConfig = errors.New("dal: invalid database configuration")
	// ErrParamCount is returned when placeholders and arguments disagree.
	ErrParamCount = errors.New("dal: placeholder count does not match argument count")
	// ErrNoTarget is returned when affected rows are requested from the embedded
	// backend for a statement that carries no Target descriptor.
	ErrNoTarget = errors.New("dal: statement has no write target to return rows from")
	// ErrTargetKey is returned when a Target key refers to a missing parameter.
	ErrTargetKey = errors.New("dal: write target key does not match the statement parameters")
)

// Kind identifies a database backend.
type Kind string

const (
	KindSQLite   Kind = "sqlite"
	KindPostgres Kind = "postgres"
)

// Row is one result row keyed by column name.
type Row map[string]any

// Op is the kind of write a statement performs.
type Op int

const (
	OpInsert Op = iota + 1
	OpUpdate
	OpDelete
)

func (o Op) String() string {
	switch o {
	case OpInsert:
		return "insert"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	default:
		return fmt.Sprintf("op(%d)", int(o))
	}
}

// FromLastInsertID marks a Key whose value is the rowid generated by the insert.
const FromLastInsertID = -1

// Key binds a column of the target table to the statement parameter holding its value.
type Key struct {
	Column string
	Param  int // index into the statement arguments, or FromLastInsertID
}

// Target describes the rows a write touches so they can be read back on
// backends without native RETURNING.
type Target struct {
	Table string
	Op    Op
	Keys  []Key
}

// Statement is a write authored with %s placeholders.
type Statement struct {
	SQL    string
	Target *Target
}

// Exec wraps SQL that never needs its affected rows returned.
func Exec(sql string) Statement {
	return Statement{SQL: sql}
}

// Querier runs queries against one backend, either directly or inside a transaction.
type Querier interface {
	// FetchAll returns every row of a read query. No rows yields an empty slice.
	FetchAll(ctx context.Context, query string, args ...any) ([]Row, error)
	// FetchOne returns the first row the backend produces, or nil.
	FetchOne(ctx context.Context, query string, args ...any) (Row, error)
	// Execute runs an insert, update or delete and commits it. With returnAffected
	// it returns the affected rows; an empty slice means the write was a no-op.
	Execute(ctx context.Context, stmt Statement, returnAffected bool, args ...any) ([]Row, error)
	// Kind reports the backend.
	Kind() Kind
}

// DB is a backend handle owning its connections.
type DB interface {
	Querier
	// InTx runs fn inside one transaction, committing when fn returns nil.
	InTx(ctx context.Context, fn func(ctx context.Context, q Querier) error) error
	// Migrate applies the embedded schema migrations for the backend.
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Options configures Open.
type Options struct {
	Kind Kind

	// SQLite
	SQLitePath string

	// PostgreSQL
	DSN            string
	SSLMode        string
	MinConns       int32
	MaxConns       int32
	ConnectTimeout time.Duration
}

// OptionsFromConfig maps application configuration onto DAL options.
func OptionsFromConfig(cfg *config.Config) Options {
	kind := KindSQLite
	if cfg.DBBackend == config.BackendPostgres {
		kind = KindPostgres
	}
	return Options{
		Kind:           kind,
		SQLitePath:     cfg.SQLitePath,
		DSN:            cfg.DatabaseURL,
		SSLMode:        cfg.PGSSLMode,
		MinConns:       cfg.DBPoolMin,
		MaxConns:       cfg.DBPoolMax,
		ConnectTimeout: cfg.DBConnectTimeout,
	}
}

// Open establishes the configured backend. Failing to reach it is fatal: a
// configured PostgreSQL backend never falls back to SQLite.
func Open(ctx context.Context, opts Options) (DB, error) {
	switch opts.Kind {
	case KindSQLite:
		return openSQLite(ctx, opts)
	case KindPostgres:
		return openPostgres(ctx, opts)
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrConfig, opts.Kind)
	}
}
