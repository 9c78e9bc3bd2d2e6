// internal/core/query_params.go
package core

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ErrInvalidInput marks request data that could not be parsed.
var ErrInvalidInput = errors.New("invalid input")

// Default and limit constants for pagination
const (
	DefaultLimit = 100
	MaxLimit     = 1000
	DefaultOrder = "asc"
)

// ReservedParams contains query parameter names reserved for pagination and sorting.
// These should not be treated as column filters.
var ReservedParams = map[string]bool{
	"limit":   true,
	"offset":  true,
	"sort":    true,
	"order":   true,
	"api_key": true,
}

// ListQueryOptions holds parsed query parameters for list endpoints
type ListQueryOptions struct {
	// Pagination
	Limit  int
	Offset int

	// Sorting
	SortBy    string
	SortOrder string // "asc" or "desc"
}

// ParseListQueryOptions extracts pagination and sorting options from query parameters.
func ParseListQueryOptions(queryParams url.Values) (*ListQueryOptions, error) {
	opts := &ListQueryOptions{
		Limit:     DefaultLimit,
		Offset:    0,
		SortOrder: DefaultOrder,
	}

	// Parse limit
	if limitStr := queryParams.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return nil, fmt.Errorf("%w: 'limit' must be an integer", ErrInvalidInput)
		}
		if limit < 1 {
			return nil, fmt.Errorf("%w: 'limit' must be at least 1", ErrInvalidInput)
		}
		if limit > MaxLimit {
			return nil, fmt.Errorf("%w: 'limit' maximum is %d", ErrInvalidInput, MaxLimit)
		}
		opts.Limit = limit
	}

	// Parse offset
	if offsetStr := queryParams.Get("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil {
			return nil, fmt.Errorf("%w: 'offset' must be an integer", ErrInvalidInput)
		}
		if offset < 0 {
			return nil, fmt.Errorf("%w: 'offset' must be non-negative", ErrInvalidInput)
		}
		opts.Offset = offset
	}

	if sortBy := queryParams.Get("sort"); sortBy != "" {
		if !IsValidIdentifier(sortBy) {
			return nil, fmt.Errorf("%w: '%s' is not a valid column name", ErrInvalidInput, sortBy)
		}
		opts.SortBy = sortBy
	}

	if order := queryParams.Get("order"); order != "" {
		lowerOrder := strings.ToLower(order)
		if lowerOrder != "asc" && lowerOrder != "desc" {
			return nil, fmt.Errorf("%w: 'order' must be 'asc' or 'desc'", ErrInvalidInput)
		}
		opts.SortOrder = lowerOrder
	}

	return opts, nil
}

// Filters returns the query parameters that are neither reserved nor in skip,
// keyed by lower-cased name. Repeated parameters keep their first value.
func Filters(queryParams url.Values, skip ...string) (map[string]string, error) {
	filters := make(map[string]string)
	for key, values := range queryParams {
		name := strings.ToLower(key)
		if IsReservedParam(name) || contains(skip, name) || len(values) == 0 {
			continue
		}
		if !IsValidIdentifier(name) {
			return nil, fmt.Errorf("%w: '%s' is not a valid filter", ErrInvalidInput, key)
		}
		filters[name] = values[0]
	}
	return filters, nil
}

// IsReservedParam checks if a query parameter name is reserved for pagination/sorting.
func IsReservedParam(key string) bool {
	return ReservedParams[strings.ToLower(key)]
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
