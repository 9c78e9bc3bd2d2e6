package dal

import (
	"math/big"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
)

type fakeDecimal float64

func (d fakeDecimal) InexactFloat64() float64 { return float64(d) }

func TestNormalizeSQLiteArgs(t *testing.T) {
	var numeric pgtype.Numeric
	assert.NoError(t, numeric.Scan("42.125"))

	var nilTime *time.Time
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	got := normalizeSQLiteArgs([]any{
		numeric,
		&numeric,
		pgtype.Numeric{},
		big.NewFloat(1.5),
		big.NewRat(1, 4),
		fakeDecimal(2.75),
		at,
		nilTime,
		"text",
		int64(7),
		nil,
	})

	assert.Equal(t, []any{
		42.125,
		42.125,
		nil,
		1.5,
		0.25,
		2.75,
		"2024-01-02 03:04:05",
		nil,
		"text",
		int64(7),
		nil,
	}, got)
}

func TestNormalizeSQLiteArgsEmpty(t *testing.T) {
	assert.Empty(t, normalizeSQLiteArgs(nil))
}
