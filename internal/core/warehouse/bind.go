package warehouse

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
)

// bindNamed rewrites :name placeholders into the driver's positional syntax.
// Without params the statement is sent verbatim, so ad-hoc SQL containing
// colons is not reinterpreted.
//
// Quoted strings, quoted identifiers, dollar-quoted bodies and comments are
// copied untouched, and a double colon (a Postgres cast) is never a
// placeholder.
func bindNamed(bindType int, query string, params Params) (string, []any, error) {
	if len(params) == 0 {
		return query, nil, nil
	}

	var (
		out  strings.Builder
		args []any
	)
	out.Grow(len(query))

	for i := 0; i < len(query); {
		ch := query[i]
		switch {
		case ch == '\'' || ch == '"':
			end := skipQuoted(query, i, ch)
			out.WriteString(query[i:end])
			i = end
		case ch == '-' && strings.HasPrefix(query[i:], "--"):
			end := strings.IndexByte(query[i:], '\n')
			if end < 0 {
				end = len(query)
			} else {
				end += i + 1
			}
			out.WriteString(query[i:end])
			i = end
		case ch == '/' && strings.HasPrefix(query[i:], "/*"):
			end := strings.Index(query[i+2:], "*/")
			if end < 0 {
				end = len(query)
			} else {
				end += i + 4
			}
			out.WriteString(query[i:end])
			i = end
		case ch == '$':
			end := skipDollarQuoted(query, i)
			out.WriteString(query[i:end])
			i = end
		case ch == ':' && strings.HasPrefix(query[i:], "::"):
			out.WriteString("::")
			i += 2
		case ch == ':' && i+1 < len(query) && isNameStart(query[i+1]):
			end := i + 1
			for end < len(query) && isNamePart(query[end]) {
				end++
			}
			name := query[i+1 : end]
			value, ok := params[name]
			if !ok {
				return "", nil, fmt.Errorf("bind parameters: missing parameter %q", name)
			}
			args = append(args, value)
			out.WriteString(placeholder(bindType, name, len(args)))
			i = end
		default:
			out.WriteByte(ch)
			i++
		}
	}

	return out.String(), args, nil
}

func placeholder(bindType int, name string, n int) string {
	switch bindType {
	case sqlx.DOLLAR:
		return "$" + strconv.Itoa(n)
	case sqlx.AT:
		return "@p" + strconv.Itoa(n)
	case sqlx.NAMED:
		return ":" + name
	default:
		return "?"
	}
}

// skipQuoted returns the index just past the quoted span starting at start.
// A doubled quote is an escaped quote. An unterminated span runs to the end.
func skipQuoted(query string, start int, quote byte) int {
	for i := start + 1; i < len(query); i++ {
		if query[i] != quote {
			continue
		}
		if i+1 < len(query) && query[i+1] == quote {
			i++
			continue
		}
		return i + 1
	}
	return len(query)
}

// skipDollarQuoted handles $$...$$ and $tag$...$tag$ bodies. Anything else
// starting with $ (such as an existing $1) is consumed as a single byte.
func skipDollarQuoted(query string, start int) int {
	end := start + 1
	for end < len(query) && isNamePart(query[end]) && !isDigit(query[start+1]) {
		end++
	}
	if end >= len(query) || query[end] != '$' {
		return start + 1
	}
	tag := query[start : end+1]
	closing := strings.Index(query[end+1:], tag)
	if closing < 0 {
		return len(query)
	}
	return end + 1 + closing + len(tag)
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNamePart(c byte) bool {
	return isNameStart(c) || isDigit(c)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
