package dal

import (
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// The accessors below smooth over the value types the two drivers produce for
// the same column: int32/int64, float64/pgtype.Numeric, time.Time/text.

// String returns the column as text, or "" when NULL.
func (r Row) String(col string) string {
	switch v := r[col].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}

// NullString returns nil for NULL and a pointer to the text otherwise.
func (r Row) NullString(col string) *string {
	if r[col] == nil {
		return nil
	}
	s := r.String(col)
	return &s
}

// Int64 returns the column as an integer, or 0 when NULL or not numeric.
func (r Row) Int64(col string) int64 {
	switch v := r[col].(type) {
	case int64:
		return v
	case int32:
		return int64(v)
	case int:
		return int64(v)
	case int16:
		return int64(v)
	case float64:
		return int64(v)
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	default:
		return 0
	}
}

// NullInt64 returns nil for NULL and a pointer to the integer otherwise.
func (r Row) NullInt64(col string) *int64 {
	if r[col] == nil {
		return nil
	}
	n := r.Int64(col)
	return &n
}

// Float64 returns the column as a float, converting PostgreSQL numerics.
func (r Row) Float64(col string) float64 {
	switch v := r[col].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case int32:
		return float64(v)
	case pgtype.Numeric:
		f, err := v.Float64Value()
		if err != nil || !f.Valid {
			return 0
		}
		return f.Float64
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	default:
		return 0
	}
}

// Bool returns the column as a boolean. SQLite integers are accepted.
func (r Row) Bool(col string) bool {
	switch v := r[col].(type) {
	case bool:
		return v
	case int64:
		return v != 0
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	default:
		return false
	}
}

// Time returns the column as a timestamp, or nil when NULL, empty or unparsable.
func (r Row) Time(col string) *time.Time {
	var t time.Time
	switch v := r[col].(type) {
	case time.Time:
		t = v
	case string:
		parsed, err := time.ParseInLocation(sqliteTimeLayout, v, time.UTC)
		if err != nil {
			if parsed, err = time.Parse(time.RFC3339, v); err != nil {
				return nil
			}
		}
		t = parsed
	default:
		return nil
	}
	if t.IsZero() {
		return nil
	}
	t = t.UTC()
	return &t
}
