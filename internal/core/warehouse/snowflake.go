package warehouse

import (
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/snowflakedb/gosnowflake"
)

const snowflakeDriverName = "snowflake"

func init() {
	sqlx.BindDriver(snowflakeDriverName, sqlx.QUESTION)
}

// NewSnowflakeDialer returns a dialer for Snowflake using the credential keys
// account, user, password, warehouse, database, schema and role.
func NewSnowflakeDialer(loginTimeout time.Duration) *SQLDialer {
	return NewSQLDialer(snowflakeDriverName, func(creds Credentials) (string, error) {
		return SnowflakeDSN(creds, loginTimeout)
	})
}

// SnowflakeDSN builds a gosnowflake DSN. account, user and password are required.
func SnowflakeDSN(creds Credentials, loginTimeout time.Duration) (string, error) {
	required, err := creds.Require("account", "user", "password")
	if err != nil {
		return "", err
	}

	return gosnowflake.DSN(&gosnowflake.Config{
		Account:      required[0],
		User:         required[1],
		Password:     required[2],
		Warehouse:    creds.Get("warehouse"),
		Database:     creds.Get("database"),
		Schema:       creds.Get("schema"),
		Role:         creds.Get("role"),
		LoginTimeout: loginTimeout,
	})
}
