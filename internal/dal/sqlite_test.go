package dal

import (
	"context"
	"errors"
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testSQLite opens a migrated database in a temp directory.
func testSQLite(t *testing.T) DB {
	t.Helper()

	db, err := Open(context.Background(), Options{
		Kind:       KindSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "data", "erp_test.db"),
	})
	require.NoError(t, err, "open sqlite")
	require.NoError(t, db.Migrate(context.Background()), "migrate sqlite")

	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("Warning: failed to close test database: %v", err)
		}
	})
	return db
}

func seedCustomer(t *testing.T, db DB, id, name string) {
	t.Helper()
	_, err := db.Execute(context.Background(),
		Exec("INSERT INTO customers (customer_id, name) VALUES (%s, %s)"), false, id, name)
	require.NoError(t, err)
}

var insertOrder = Statement{
	SQL: `INSERT INTO orders (order_id, customer_id, status) VALUES (%s, %s, %s)
		ON CONFLICT (order_id) DO NOTHING RETURNING order_id, customer_id, status`,
	Target: &Target{Table: "orders", Op: OpInsert, Keys: []Key{{Column: "order_id", Param: 0}}},
}

func TestSQLiteMigrateIdempotent(t *testing.T) {
	db := testSQLite(t)
	assert.NoError(t, db.Migrate(context.Background()), "second migrate should be a no-op")
	assert.Equal(t, KindSQLite, db.Kind())
}

func TestSQLiteFetch(t *testing.T) {
	db := testSQLite(t)
	ctx := context.Background()
	assert := assert.New(t)

	rows, err := db.FetchAll(ctx, "SELECT * FROM customers")
	assert.NoError(err)
	assert.NotNil(rows, "empty result should be an empty slice")
	assert.Len(rows, 0)

	row, err := db.FetchOne(ctx, "SELECT * FROM customers WHERE customer_id = %s", "missing")
	assert.NoError(err)
	assert.Nil(row)

	seedCustomer(t, db, "C1", "Acme")
	seedCustomer(t, db, "C2", "Globex")

	rows, err = db.FetchAll(ctx, "SELECT customer_id, name, active FROM customers ORDER BY customer_id")
	assert.NoError(err)
	if assert.Len(rows, 2) {
		assert.Equal("C1", rows[0]["customer_id"])
		assert.Equal("Acme", rows[0]["name"])
		assert.Equal(true, rows[0]["active"])
	}

	row, err = db.FetchOne(ctx, "SELECT name FROM customers WHERE customer_id = %s", "C2")
	assert.NoError(err)
	assert.Equal(Row{"name": "Globex"}, row)
}

func TestSQLitePlaceholderInLiteral(t *testing.T) {
	db := testSQLite(t)
	ctx := context.Background()

	seedCustomer(t, db, "C1", "Acme")
	row, err := db.FetchOne(ctx, "SELECT '%s' AS raw, name FROM customers WHERE customer_id = %s", "C1")
	require.NoError(t, err)
	assert.Equal(t, "%s", row["raw"])
	assert.Equal(t, "Acme", row["name"])
}

func TestSQLiteParamCountMismatch(t *testing.T) {
	db := testSQLite(t)
	_, err := db.FetchAll(context.Background(), "SELECT * FROM customers WHERE customer_id = %s AND name = %s", "C1")
	assert.True(t, errors.Is(err, ErrParamCount), "expected ErrParamCount, got %v", err)
}

func TestSQLiteInsertReturning(t *testing.T) {
	db := testSQLite(t)
	ctx := context.Background()
	assert := assert.New(t)
	seedCustomer(t, db, "C1", "Acme")

	rows, err := db.Execute(ctx, insertOrder, true, "O1", "C1", "Planned")
	assert.NoError(err)
	if assert.Len(rows, 1) {
		assert.Equal(Row{"order_id": "O1", "customer_id": "C1", "status": "Planned"}, rows[0])
	}

	// The returned row is what a subsequent read observes.
	stored, err := db.FetchOne(ctx, "SELECT order_id, customer_id, status FROM orders WHERE order_id = %s", "O1")
	assert.NoError(err)
	assert.Equal(rows[0], stored)

	// Conflicting insert is a no-op and returns nothing.
	rows, err = db.Execute(ctx, insertOrder, true, "O1", "C1", "Done")
	assert.NoError(err)
	assert.NotNil(rows)
	assert.Len(rows, 0)

	stored, err = db.FetchOne(ctx, "SELECT status FROM orders WHERE order_id = %s", "O1")
	assert.NoError(err)
	assert.Equal("Planned", stored["status"])
}

func TestSQLiteInsertReturningLastInsertID(t *testing.T) {
	db := testSQLite(t)
	ctx := context.Background()

	_, err := db.Execute(ctx, Exec("INSERT INTO employees (emp_id, name) VALUES (%s, %s)"), false, "E1", "Ann")
	require.NoError(t, err)

	stmt := Statement{
		SQL:    "INSERT INTO timesheets (emp_id, hours) VALUES (%s, %s) RETURNING ts_id, emp_id, hours",
		Target: &Target{Table: "timesheets", Op: OpInsert, Keys: []Key{{Column: "ts_id", Param: FromLastInsertID}}},
	}

	first, err := db.Execute(ctx, stmt, true, "E1", 7.5)
	require.NoError(t, err)
	second, err := db.Execute(ctx, stmt, true, "E1", 3.0)
	require.NoError(t, err)

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, 7.5, first[0]["hours"])
	assert.Greater(t, second[0]["ts_id"].(int64), first[0]["ts_id"].(int64))
}

func TestSQLiteUpdateReturning(t *testing.T) {
	db := testSQLite(t)
	ctx := context.Background()
	assert := assert.New(t)
	seedCustomer(t, db, "C1", "Acme")

	update := Statement{
		SQL:    "UPDATE customers SET name = %s WHERE customer_id = %s RETURNING customer_id, name",
		Target: &Target{Table: "customers", Op: OpUpdate, Keys: []Key{{Column: "customer_id", Param: 1}}},
	}

	rows, err := db.Execute(ctx, update, true, "Acme Sp. z o.o.", "C1")
	assert.NoError(err)
	if assert.Len(rows, 1) {
		assert.Equal("Acme Sp. z o.o.", rows[0]["name"])
	}

	rows, err = db.Execute(ctx, update, true, "Nobody", "C404")
	assert.NoError(err)
	assert.Len(rows, 0, "update matching no row returns an empty list")
}

func TestSQLiteDeleteReturning(t *testing.T) {
	db := testSQLite(t)
	ctx := context.Background()
	assert := assert.New(t)
	seedCustomer(t, db, "C1", "Acme")

	del := Statement{
		SQL:    "DELETE FROM customers WHERE customer_id = %s RETURNING *",
		Target: &Target{Table: "customers", Op: OpDelete, Keys: []Key{{Column: "customer_id", Param: 0}}},
	}

	rows, err := db.Execute(ctx, del, true, "C1")
	assert.NoError(err)
	if assert.Len(rows, 1) {
		assert.Equal("C1", rows[0]["customer_id"])
		assert.Equal("Acme", rows[0]["name"])
	}

	rows, err = db.Execute(ctx, del, true, "C1")
	assert.NoError(err)
	assert.Len(rows, 0)

	gone, err := db.FetchOne(ctx, "SELECT * FROM customers WHERE customer_id = %s", "C1")
	assert.NoError(err)
	assert.Nil(gone)
}

func TestSQLiteReturningWithoutTarget(t *testing.T) {
	db := testSQLite(t)
	ctx := context.Background()
	seedCustomer(t, db, "C1", "Acme")

	_, err := db.Execute(ctx, Exec("UPDATE customers SET name = %s WHERE customer_id = %s RETURNING *"), true, "X", "C1")
	assert.True(t, errors.Is(err, ErrNoTarget), "expected ErrNoTarget, got %v", err)

	// Without returnAffected the same statement runs and the clause is dropped.
	rows, err := db.Execute(ctx, Exec("UPDATE customers SET name = %s WHERE customer_id = %s RETURNING *"), false, "X", "C1")
	assert.NoError(t, err)
	assert.Nil(t, rows)

	row, err := db.FetchOne(ctx, "SELECT name FROM customers WHERE customer_id = %s", "C1")
	assert.NoError(t, err)
	assert.Equal(t, "X", row["name"])
}

func TestSQLiteTargetKeyOutOfRange(t *testing.T) {
	db := testSQLite(t)
	seedCustomer(t, db, "C1", "Acme")

	stmt := Statement{
		SQL:    "UPDATE customers SET name = %s WHERE customer_id = %s",
		Target: &Target{Table: "customers", Op: OpUpdate, Keys: []Key{{Column: "customer_id", Param: 5}}},
	}
	_, err := db.Execute(context.Background(), stmt, true, "X", "C1")
	assert.True(t, errors.Is(err, ErrTargetKey), "expected ErrTargetKey, got %v", err)

	// The failed read-back rolls the write back.
	row, err := db.FetchOne(context.Background(), "SELECT name FROM customers WHERE customer_id = %s", "C1")
	assert.NoError(t, err)
	assert.Equal(t, "Acme", row["name"])
}

func TestSQLiteDecimalCoercion(t *testing.T) {
	db := testSQLite(t)
	ctx := context.Background()
	assert := assert.New(t)

	var price pgtype.Numeric
	require.NoError(t, price.Scan("19.99"))

	insert := Statement{
		SQL:    "INSERT INTO products (product_id, name, price, std_cost) VALUES (%s, %s, %s, %s) RETURNING product_id, price, std_cost",
		Target: &Target{Table: "products", Op: OpInsert, Keys: []Key{{Column: "product_id", Param: 0}}},
	}
	rows, err := db.Execute(ctx, insert, true, "P1", "Mug", price, big.NewRat(25, 2))
	assert.NoError(err)
	if assert.Len(rows, 1) {
		assert.InDelta(19.99, rows[0]["price"], 1e-9)
		assert.InDelta(12.5, rows[0]["std_cost"], 1e-9)
	}
}

func TestSQLiteTimeBinding(t *testing.T) {
	db := testSQLite(t)
	ctx := context.Background()

	at := time.Date(2024, 3, 1, 10, 30, 0, 0, time.FixedZone("CET", 3600))
	_, err := db.Execute(ctx, Exec("INSERT INTO api_key_audit (event_type, event_time) VALUES (%s, %s)"), false, "created", at)
	require.NoError(t, err)

	raw, err := db.FetchOne(ctx, "SELECT CAST(event_time AS TEXT) AS t FROM api_key_audit")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01 09:30:00", raw["t"])

	row, err := db.FetchOne(ctx, "SELECT event_time FROM api_key_audit WHERE event_time <= %s", at.Add(time.Minute))
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.True(t, at.Equal(row["event_time"].(time.Time)))
}

func TestSQLiteInTx(t *testing.T) {
	db := testSQLite(t)
	ctx := context.Background()
	assert := assert.New(t)

	boom := errors.New("boom")
	err := db.InTx(ctx, func(ctx context.Context, q Querier) error {
		if _, err := q.Execute(ctx, Exec("INSERT INTO customers (customer_id, name) VALUES (%s, %s)"), false, "C1", "Acme"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(err, boom)

	row, err := db.FetchOne(ctx, "SELECT * FROM customers WHERE customer_id = %s", "C1")
	assert.NoError(err)
	assert.Nil(row, "rolled back insert must not be visible")

	err = db.InTx(ctx, func(ctx context.Context, q Querier) error {
		if _, err := q.Execute(ctx, Exec("INSERT INTO customers (customer_id, name) VALUES (%s, %s)"), false, "C1", "Acme"); err != nil {
			return err
		}
		rows, err := q.Execute(ctx, insertOrder, true, "O1", "C1", "Planned")
		if err != nil {
			return err
		}
		assert.Len(rows, 1)
		return nil
	})
	assert.NoError(err)

	rows, err := db.FetchAll(ctx, "SELECT * FROM orders")
	assert.NoError(err)
	assert.Len(rows, 1)
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), Options{Kind: "oracle"})
	assert.True(t, errors.Is(err, ErrConfig))

	_, err = Open(context.Background(), Options{Kind: KindSQLite})
	assert.True(t, errors.Is(err, ErrConfig), "empty sqlite path")
}
