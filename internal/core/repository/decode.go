package repository

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/duynhne/warehouse-user-service/internal/core/domain"
	"github.com/duynhne/warehouse-user-service/internal/core/warehouse"
)

// timestampLayouts covers the textual forms drivers hand back for
// TIMESTAMP columns when they do not convert to time.Time.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
}

// decodeUser turns a materialized row into a User. Column names are matched
// ignoring case and numeric/timestamp representations are normalized.
func decodeUser(row warehouse.Row) (domain.User, error) {
	var u domain.User

	id, err := column(row, "id")
	if err != nil {
		return u, err
	}
	if u.ID, err = toInt64(id); err != nil {
		return u, decodeError("id", err)
	}

	name, err := column(row, "name")
	if err != nil {
		return u, err
	}
	if u.Name, err = toString(name); err != nil {
		return u, decodeError("name", err)
	}

	email, err := column(row, "email")
	if err != nil {
		return u, err
	}
	if u.Email, err = toString(email); err != nil {
		return u, decodeError("email", err)
	}

	createdAt, err := column(row, "created_at")
	if err != nil {
		return u, err
	}
	if u.CreatedAt, err = toTime(createdAt); err != nil {
		return u, decodeError("created_at", err)
	}

	return u, nil
}

func decodeUsers(rows []warehouse.Row) ([]domain.User, error) {
	users := make([]domain.User, 0, len(rows))
	for _, row := range rows {
		u, err := decodeUser(row)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

func column(row warehouse.Row, name string) (any, error) {
	v, ok := row.Lookup(name)
	if !ok {
		return nil, decodeError(name, fmt.Errorf("column missing from result"))
	}
	return v, nil
}

func decodeError(col string, err error) error {
	return fmt.Errorf("%w: decode user column %q: %w", warehouse.ErrQuery, col, err)
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case int:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("non-integral value %v", n)
		}
		return int64(n), nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(n), 10, 64)
	case []byte:
		return strconv.ParseInt(strings.TrimSpace(string(n)), 10, 64)
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}

func toString(v any) (string, error) {
	switch s := v.(type) {
	case nil:
		return "", nil
	case string:
		return s, nil
	case []byte:
		return string(s), nil
	default:
		return "", fmt.Errorf("unsupported type %T", v)
	}
}

func toTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return t, nil
	case string:
		return parseTimestamp(t)
	case []byte:
		return parseTimestamp(string(t))
	default:
		return time.Time{}, fmt.Errorf("unsupported type %T", v)
	}
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
