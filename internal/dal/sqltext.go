package dal

import (
	"fmt"
	"strconv"
	"strings"
)

// codeMask marks, byte by byte, which parts of query are SQL code as opposed to
// string literals, quoted identifiers or comments.
func codeMask(query string) []bool {
	mask := make([]bool, len(query))
	n := len(query)

	for i := 0; i < n; {
		switch {
		case query[i] == '\'' || query[i] == '"':
			quote := query[i]
			j := i + 1
		literal:
			for j < n {
				switch {
				case query[j] == quote && j+1 < n && query[j+1] == quote:
					j += 2 // doubled quote escapes itself
				case query[j] == quote:
					j++
					break literal
				default:
					j++
				}
			}
			i = j
		case strings.HasPrefix(query[i:], "--"):
			end := strings.IndexByte(query[i:], '\n')
			if end < 0 {
				i = n
			} else {
				i += end
			}
		case strings.HasPrefix(query[i:], "/*"):
			end := strings.Index(query[i+2:], "*/")
			if end < 0 {
				i = n
			} else {
				i += end + 4
			}
		default:
			mask[i] = true
			i++
		}
	}

	return mask
}

// translatePlaceholders rewrites %s placeholders into the backend's token and
// unescapes %%. Text inside literals and comments is copied verbatim.
func translatePlaceholders(query string, kind Kind, nargs int) (string, error) {
	mask := codeMask(query)

	var b strings.Builder
	b.Grow(len(query) + nargs*2)

	count := 0
	for i := 0; i < len(query); i++ {
		if mask[i] && query[i] == '%' && i+1 < len(query) {
			switch query[i+1] {
			case 's':
				count++
				if kind == KindPostgres {
					b.WriteByte('$')
					b.WriteString(strconv.Itoa(count))
				} else {
					b.WriteByte('?')
				}
				i++
				continue
			case '%':
				b.WriteByte('%')
				i++
				continue
			}
		}
		b.WriteByte(query[i])
	}

	if count != nargs {
		return "", fmt.Errorf("%w: %d placeholders, %d arguments", ErrParamCount, count, nargs)
	}
	return b.String(), nil
}

// splitReturning separates a top-level RETURNING clause from a write statement.
// It returns the statement without the clause and the clause's column list.
// found is false when the statement has no RETURNING clause.
func splitReturning(query string) (stmt, columns string, found bool) {
	const keyword = "returning"

	mask := codeMask(query)
	depth := 0

	for i := 0; i < len(query); i++ {
		if !mask[i] {
			continue
		}
		switch query[i] {
		case '(':
			depth++
			continue
		case ')':
			depth--
			continue
		}
		if depth != 0 || i+len(keyword) > len(query) {
			continue
		}
		if !strings.EqualFold(query[i:i+len(keyword)], keyword) {
			continue
		}
		if i > 0 && isIdentByte(query[i-1]) {
			continue
		}
		end := i + len(keyword)
		if end < len(query) && isIdentByte(query[end]) {
			continue
		}

		stmt = strings.TrimSpace(query[:i])
		columns = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(query[end:]), ";"))
		return stmt, columns, true
	}

	return strings.TrimRight(strings.TrimSpace(query), ";"), "", false
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
