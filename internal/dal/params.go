package dal

import (
	"math/big"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// sqliteTimeLayout matches what CURRENT_TIMESTAMP stores, so bound times
// compare lexically with database-generated ones.
const sqliteTimeLayout = "2006-01-02 15:04:05"

// inexactFloater is satisfied by decimal types such as shopspring's Decimal.
type inexactFloater interface {
	InexactFloat64() float64
}

// normalizeSQLiteArgs converts arguments SQLite cannot store natively.
// Arbitrary-precision decimals become float64, which loses precision: the
// embedded backend is a development target. Times become UTC text.
func normalizeSQLiteArgs(args []any) []any {
	if len(args) == 0 {
		return args
	}

	out := make([]any, len(args))
	for i, arg := range args {
		out[i] = normalizeSQLiteArg(arg)
	}
	return out
}

func normalizeSQLiteArg(arg any) any {
	switch v := arg.(type) {
	case pgtype.Numeric:
		return numericToFloat(v)
	case *pgtype.Numeric:
		if v == nil {
			return nil
		}
		return numericToFloat(*v)
	case *big.Float:
		if v == nil {
			return nil
		}
		f, _ := v.Float64()
		return f
	case *big.Rat:
		if v == nil {
			return nil
		}
		f, _ := v.Float64()
		return f
	case time.Time:
		return v.UTC().Format(sqliteTimeLayout)
	case *time.Time:
		if v == nil {
			return nil
		}
		return v.UTC().Format(sqliteTimeLayout)
	case inexactFloater:
		return v.InexactFloat64()
	default:
		return arg
	}
}

func numericToFloat(n pgtype.Numeric) any {
	f, err := n.Float64Value()
	if err != nil || !f.Valid {
		return nil
	}
	return f.Float64
}
