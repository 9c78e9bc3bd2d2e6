// internal/core/validation_test.go
package core

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidIdentifier(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		want    bool
		comment string
	}{
		{"valid simple", "customer_id", true, ""},
		{"valid with numbers", "line_2", true, ""},
		{"valid uppercase", "NIP", true, ""},
		{"valid underscore start", "_col", true, ""},
		{"valid short", "a", true, ""},
		{"valid long (64 chars)", strings.Repeat("a", 64), true, ""},
		{"invalid empty", "", false, "empty string"},
		{"invalid space", "order id", false, "contains space"},
		{"invalid hyphen", "order-id", false, "contains hyphen"},
		{"invalid injection", "name;drop", false, "contains semicolon"},
		{"invalid too long", strings.Repeat("a", 65), false, "exceeds 64 chars"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := IsValidIdentifier(tc.input)
			if got != tc.want {
				t.Errorf("IsValidIdentifier(%q) = %v; want %v. %s", tc.input, got, tc.want, tc.comment)
			}
		})
	}
}

func TestParseListQueryOptions(t *testing.T) {
	opts, err := ParseListQueryOptions(url.Values{})
	require.NoError(t, err)
	assert.Equal(t, &ListQueryOptions{Limit: DefaultLimit, SortOrder: DefaultOrder}, opts)

	opts, err = ParseListQueryOptions(url.Values{"limit": {"5"}, "offset": {"10"}, "sort": {"name"}, "order": {"DESC"}})
	require.NoError(t, err)
	assert.Equal(t, &ListQueryOptions{Limit: 5, Offset: 10, SortBy: "name", SortOrder: "desc"}, opts)

	bad := []url.Values{
		{"limit": {"x"}},
		{"limit": {"0"}},
		{"limit": {"1001"}},
		{"offset": {"-1"}},
		{"sort": {"name desc"}},
		{"order": {"up"}},
	}
	for _, q := range bad {
		_, err := ParseListQueryOptions(q)
		assert.ErrorIs(t, err, ErrInvalidInput, "query %v", q)
	}
}

func TestFilters(t *testing.T) {
	q := url.Values{"Status": {"New", "Done"}, "limit": {"5"}, "api_key": {"k"}, "from": {"2024-01-01"}}

	filters, err := Filters(q, "from")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"status": "New"}, filters)

	_, err = Filters(url.Values{"a-b": {"1"}})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
