// internal/storage/table.go
package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/smbworks/erp-backend/internal/core"
	"github.com/smbworks/erp-backend/internal/dal"
)

// ErrInUse is returned when a delete is blocked by rows referencing the record.
var ErrInUse = errors.New("record is still referenced")

// table describes one business table with a single-column primary key and
// holds the CRUD statements every entity shares.
type table[T any] struct {
	name        string
	key         string
	autoKey     bool // key is generated by the database
	columns     []string
	writable    map[string]bool
	filterable  map[string]bool
	defaultSort string
	scan        func(dal.Row) T
}

func set(cols ...string) map[string]bool {
	m := make(map[string]bool, len(cols))
	for _, c := range cols {
		m[c] = true
	}
	return m
}

func (t *table[T]) selectColumns() string {
	return strings.Join(t.columns, ", ")
}

func (t *table[T]) hasColumn(col string) bool {
	for _, c := range t.columns {
		if c == col {
			return true
		}
	}
	return false
}

// fields collects column/value pairs for inserts and updates.
type fields struct {
	cols []string
	args []any
}

func (f *fields) add(col string, v any) {
	f.cols = append(f.cols, col)
	f.args = append(f.args, v)
}

// keyed prepends the primary key to rest.
func keyed(col string, id any, rest fields) fields {
	return fields{
		cols: append([]string{col}, rest.cols...),
		args: append([]any{id}, rest.args...),
	}
}

// optional adds the column only when a value was supplied.
func optional[V any](f *fields, col string, v *V) {
	if v != nil {
		f.add(col, *v)
	}
}

// condition is an extra WHERE term authored with one %s placeholder.
type condition struct {
	sql string
	arg any
}

func (t *table[T]) list(ctx context.Context, q dal.Querier, opts *core.ListQueryOptions, filters map[string]string, extra ...condition) ([]T, error) {
	if opts == nil {
		opts = &core.ListQueryOptions{Limit: core.DefaultLimit, SortOrder: core.DefaultOrder}
	}

	var where []string
	var args []any

	names := make([]string, 0, len(filters))
	for col := range filters {
		names = append(names, col)
	}
	sort.Strings(names)
	for _, col := range names {
		if !t.filterable[col] {
			return nil, fmt.Errorf("%w: cannot filter %s by '%s'", ErrInvalidField, t.name, col)
		}
		where = append(where, col+" = %s")
		args = append(args, filters[col])
	}
	for _, c := range extra {
		where = append(where, c.sql)
		args = append(args, c.arg)
	}

	sortBy := t.defaultSort
	if opts.SortBy != "" {
		if !t.hasColumn(opts.SortBy) {
			return nil, fmt.Errorf("%w: cannot sort %s by '%s'", ErrInvalidField, t.name, opts.SortBy)
		}
		sortBy = opts.SortBy
	}
	order := "ASC"
	if strings.EqualFold(opts.SortOrder, "desc") {
		order = "DESC"
	}

	query := "SELECT " + t.selectColumns() + " FROM " + t.name
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY %s %s LIMIT %%s OFFSET %%s", sortBy, order)
	args = append(args, opts.Limit, opts.Offset)

	rows, err := q.FetchAll(ctx, query, args...)
	if err != nil {
		customLog.Warnf("Storage: Failed to list %s: %v", t.name, err)
		return nil, fmt.Errorf("database error listing %s: %w", t.name, err)
	}

	out := make([]T, 0, len(rows))
	for _, row := range rows {
		out = append(out, t.scan(row))
	}
	return out, nil
}

func (t *table[T]) get(ctx context.Context, q dal.Querier, id any) (*T, error) {
	row, err := q.FetchOne(ctx, "SELECT "+t.selectColumns()+" FROM "+t.name+" WHERE "+t.key+" = %s", id)
	if err != nil {
		customLog.Warnf("Storage: Failed to get %s %v: %v", t.name, id, err)
		return nil, fmt.Errorf("database error finding %s: %w", t.name, err)
	}
	if row == nil {
		return nil, ErrNotFound
	}
	v := t.scan(row)
	return &v, nil
}

// insert adds a row. Tables with natural keys skip duplicates and report
// ErrConflict; the key must then be among the inserted fields.
func (t *table[T]) insert(ctx context.Context, q dal.Querier, f fields) (*T, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("%s, ", len(f.cols)), ", ")
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", t.name, strings.Join(f.cols, ", "), placeholders)

	key := dal.Key{Column: t.key, Param: dal.FromLastInsertID}
	if !t.autoKey {
		key.Param = indexOf(f.cols, t.key)
		if key.Param < 0 {
			return nil, fmt.Errorf("%w: %s requires %s", ErrInvalidField, t.name, t.key)
		}
		query += fmt.Sprintf(" ON CONFLICT (%s) DO NOTHING", t.key)
	}
	query += " RETURNING " + t.selectColumns()

	stmt := dal.Statement{
		SQL:    query,
		Target: &dal.Target{Table: t.name, Op: dal.OpInsert, Keys: []dal.Key{key}},
	}
	rows, err := q.Execute(ctx, stmt, true, f.args...)
	if err != nil {
		return nil, t.writeError("insert", err)
	}
	if len(rows) == 0 {
		return nil, ErrConflict
	}
	v := t.scan(rows[0])
	return &v, nil
}

// update changes the given writable columns. No fields is a plain read.
func (t *table[T]) update(ctx context.Context, q dal.Querier, id any, f fields) (*T, error) {
	if len(f.cols) == 0 {
		return t.get(ctx, q, id)
	}

	assignments := make([]string, len(f.cols))
	for i, col := range f.cols {
		if !t.writable[col] {
			return nil, fmt.Errorf("%w: %s.%s is not writable", ErrInvalidField, t.name, col)
		}
		assignments[i] = col + " = %s"
	}

	stmt := dal.Statement{
		SQL: fmt.Sprintf("UPDATE %s SET %s WHERE %s = %%s RETURNING %s",
			t.name, strings.Join(assignments, ", "), t.key, t.selectColumns()),
		Target: &dal.Target{Table: t.name, Op: dal.OpUpdate, Keys: []dal.Key{{Column: t.key, Param: len(f.cols)}}},
	}
	rows, err := q.Execute(ctx, stmt, true, append(f.args, id)...)
	if err != nil {
		return nil, t.writeError("update", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	v := t.scan(rows[0])
	return &v, nil
}

func (t *table[T]) delete(ctx context.Context, q dal.Querier, id any) error {
	stmt := dal.Statement{
		SQL:    fmt.Sprintf("DELETE FROM %s WHERE %s = %%s RETURNING %s", t.name, t.key, t.key),
		Target: &dal.Target{Table: t.name, Op: dal.OpDelete, Keys: []dal.Key{{Column: t.key, Param: 0}}},
	}
	rows, err := q.Execute(ctx, stmt, true, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrInUse
		}
		customLog.Warnf("Storage: Failed to delete %s %v: %v", t.name, id, err)
		return fmt.Errorf("database error deleting %s: %w", t.name, err)
	}
	if len(rows) == 0 {
		return ErrNotFound
	}
	customLog.Printf("Storage: Deleted %s %v", t.name, id)
	return nil
}

func (t *table[T]) writeError(op string, err error) error {
	switch {
	case isForeignKeyViolation(err):
		return ErrInvalidReference
	case isUniqueViolation(err):
		return ErrConflict
	}
	customLog.Warnf("Storage: Failed to %s %s: %v", op, t.name, err)
	return fmt.Errorf("database error during %s on %s: %w", op, t.name, err)
}

func indexOf(cols []string, col string) int {
	for i, c := range cols {
		if c == col {
			return i
		}
	}
	return -1
}
