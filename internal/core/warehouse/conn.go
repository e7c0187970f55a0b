package warehouse

import (
	"context"
	"strings"
)

// Params are named statement parameters. Statements reference them as :name.
type Params map[string]any

// Row is one materialized result row keyed by column name exactly as the
// warehouse reported it.
type Row map[string]any

// Lookup finds a column ignoring case. Snowflake reports unquoted identifiers
// upper-cased while Postgres reports them lower-cased.
func (r Row) Lookup(column string) (any, bool) {
	if v, ok := r[column]; ok {
		return v, true
	}
	for k, v := range r {
		if strings.EqualFold(k, column) {
			return v, true
		}
	}
	return nil, false
}

// Conn is an open warehouse connection.
type Conn interface {
	// Query runs a statement and materializes every result row.
	Query(ctx context.Context, query string, params Params) ([]Row, error)

	// Exec runs a statement without result rows and returns the affected row count.
	Exec(ctx context.Context, query string, params Params) (int64, error)

	// Close releases the connection.
	Close(ctx context.Context) error
}

// Dialer opens connections for a credential set.
type Dialer interface {
	Open(ctx context.Context, creds Credentials) (Conn, error)
}
