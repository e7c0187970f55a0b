package warehouse

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// DSNFunc builds a driver DSN from a credential set.
type DSNFunc func(creds Credentials) (string, error)

// SQLDialer opens database/sql connections through sqlx. Each Open creates a
// single-connection handle that is torn down again by Close.
type SQLDialer struct {
	driverName string
	dsn        DSNFunc
}

// NewSQLDialer creates a dialer for a registered database/sql driver.
func NewSQLDialer(driverName string, dsn DSNFunc) *SQLDialer {
	return &SQLDialer{driverName: driverName, dsn: dsn}
}

// Open implements Dialer.
func (d *SQLDialer) Open(ctx context.Context, creds Credentials) (Conn, error) {
	dsn, err := d.dsn(creds)
	if err != nil {
		return nil, fmt.Errorf("%w: build dsn: %w", ErrConnection, err)
	}

	db, err := sqlx.Open(d.driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrConnection, d.driverName, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	// sql.Open is lazy; acquiring the pinned conn performs the real login.
	conn, err := db.Connx(ctx)
	if err == nil {
		err = conn.PingContext(ctx)
		if err != nil {
			conn.Close()
		}
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: connect %s: %w", ErrConnection, d.driverName, err)
	}

	return &sqlConn{db: db, conn: conn, bindType: sqlx.BindType(d.driverName)}, nil
}

type sqlConn struct {
	db       *sqlx.DB
	conn     *sqlx.Conn
	bindType int
}

func (c *sqlConn) Query(ctx context.Context, query string, params Params) ([]Row, error) {
	bound, args, err := bindNamed(c.bindType, query, params)
	if err != nil {
		return nil, err
	}

	rows, err := c.conn.QueryxContext(ctx, bound, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]Row, 0)
	for rows.Next() {
		row := make(map[string]any)
		if err := rows.MapScan(row); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		result = append(result, normalizeRow(row))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *sqlConn) Exec(ctx context.Context, query string, params Params) (int64, error) {
	bound, args, err := bindNamed(c.bindType, query, params)
	if err != nil {
		return 0, err
	}

	res, err := c.conn.ExecContext(ctx, bound, args...)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return affected, nil
}

func (c *sqlConn) Close(_ context.Context) error {
	return errors.Join(c.conn.Close(), c.db.Close())
}

// normalizeRow turns []byte values into strings so rows stay JSON friendly.
func normalizeRow(row map[string]any) Row {
	for k, v := range row {
		if b, ok := v.([]byte); ok {
			row[k] = string(b)
		}
	}
	return Row(row)
}
