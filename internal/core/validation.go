// internal/core/validation.go
package core

import (
	"regexp"
)

// Regular expression for valid column names (alphanumeric + underscore)
var nameValidationRegex = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// IsValidIdentifier checks if a string can be used as a column name in a sort or filter.
func IsValidIdentifier(name string) bool {
	return nameValidationRegex.MatchString(name) && len(name) > 0 && len(name) <= 64
}
