package warehouse

import (
	"context"
	"fmt"
	"net"
	"net/url"

	"github.com/jackc/pgx/v5"
	"github.com/jmoiron/sqlx"
)

// PgxDialer opens one pgx connection per scoped operation against a
// Postgres-compatible warehouse.
type PgxDialer struct{}

func NewPgxDialer() *PgxDialer {
	return &PgxDialer{}
}

// Open implements Dialer.
func (d *PgxDialer) Open(ctx context.Context, creds Credentials) (Conn, error) {
	connString, err := PostgresConnString(creds)
	if err != nil {
		return nil, fmt.Errorf("%w: build connection string: %w", ErrConnection, err)
	}

	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("%w: connect postgres: %w", ErrConnection, err)
	}
	return &pgxConn{conn: conn}, nil
}

// PostgresConnString uses the dsn key verbatim when present, otherwise builds
// a URL from host, port, user, password, database and sslmode.
func PostgresConnString(creds Credentials) (string, error) {
	if dsn := creds.Get("dsn"); dsn != "" {
		return dsn, nil
	}

	required, err := creds.Require("host", "user", "database")
	if err != nil {
		return "", err
	}

	port := creds.Get("port")
	if port == "" {
		port = "5432"
	}
	sslmode := creds.Get("sslmode")
	if sslmode == "" {
		sslmode = "require"
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(required[1], creds.Get("password")),
		Host:     net.JoinHostPort(required[0], port),
		Path:     "/" + required[2],
		RawQuery: url.Values{"sslmode": []string{sslmode}}.Encode(),
	}
	return u.String(), nil
}

type pgxConn struct {
	conn *pgx.Conn
}

func (c *pgxConn) Query(ctx context.Context, query string, params Params) ([]Row, error) {
	bound, args, err := bindNamed(sqlx.DOLLAR, query, params)
	if err != nil {
		return nil, err
	}

	rows, err := c.conn.Query(ctx, bound, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	result := make([]Row, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		row := make(Row, len(fields))
		for i, fd := range fields {
			row[fd.Name] = values[i]
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *pgxConn) Exec(ctx context.Context, query string, params Params) (int64, error) {
	bound, args, err := bindNamed(sqlx.DOLLAR, query, params)
	if err != nil {
		return 0, err
	}

	tag, err := c.conn.Exec(ctx, bound, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (c *pgxConn) Close(ctx context.Context) error {
	return c.conn.Close(ctx)
}
