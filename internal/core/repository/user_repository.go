package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/duynhne/warehouse-user-service/internal/core/domain"
	"github.com/duynhne/warehouse-user-service/internal/core/warehouse"
)

// Warehouse is the part of warehouse.Provider the repositories use.
type Warehouse interface {
	WithConnection(ctx context.Context, fn func(ctx context.Context, conn warehouse.Conn) error) error
	ExecuteQuery(ctx context.Context, query string, params warehouse.Params) ([]warehouse.Row, error)
	ExecuteStatement(ctx context.Context, query string, params warehouse.Params) (int64, error)
}

const (
	listUsersSQL = `SELECT id, name, email, created_at FROM users ORDER BY created_at DESC LIMIT :limit`

	getUserByIDSQL = `SELECT id, name, email, created_at FROM users WHERE id = :id`

	// The oldest row wins if the table already holds duplicates for an email.
	getUserByEmailSQL = `SELECT id, name, email, created_at FROM users WHERE email = :email ORDER BY created_at, id LIMIT 1`

	// Guarded insert: affects zero rows when another caller inserted the
	// email between our read and this statement.
	insertUserIfAbsentSQL = `INSERT INTO users (name, email, created_at)
SELECT :name, :email, CURRENT_TIMESTAMP FROM (SELECT 1 AS one) seed
WHERE NOT EXISTS (SELECT 1 FROM users WHERE email = :email)`

	updateNameByEmailSQL = `UPDATE users SET name = :name WHERE email = :email`

	deleteUserSQL = `DELETE FROM users WHERE id = :id`
)

// WarehouseUserRepository implements domain.UserRepository on the warehouse.
type WarehouseUserRepository struct {
	wh Warehouse
}

// NewUserRepository creates a new WarehouseUserRepository.
func NewUserRepository(wh Warehouse) *WarehouseUserRepository {
	return &WarehouseUserRepository{wh: wh}
}

// List returns up to limit users, newest first.
func (r *WarehouseUserRepository) List(ctx context.Context, limit int) ([]domain.User, error) {
	rows, err := r.wh.ExecuteQuery(ctx, listUsersSQL, warehouse.Params{"limit": limit})
	if err != nil {
		return nil, err
	}
	return decodeUsers(rows)
}

// GetByID returns the user with the given id.
// Returns (nil, nil) when no user is found.
func (r *WarehouseUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	rows, err := r.wh.ExecuteQuery(ctx, getUserByIDSQL, warehouse.Params{"id": id})
	if err != nil {
		return nil, err
	}
	return firstUser(rows)
}

// GetByEmail returns the user with the given email.
// Returns (nil, nil) when no user is found.
func (r *WarehouseUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	rows, err := r.wh.ExecuteQuery(ctx, getUserByEmailSQL, warehouse.Params{"email": email})
	if err != nil {
		return nil, err
	}
	return firstUser(rows)
}

// CreateIfAbsent inserts the user unless the email is taken and returns the
// stored row.
func (r *WarehouseUserRepository) CreateIfAbsent(ctx context.Context, name, email string) (*domain.User, bool, error) {
	var (
		user    *domain.User
		created bool
	)
	err := r.wh.WithConnection(ctx, func(ctx context.Context, conn warehouse.Conn) error {
		existing, err := findByEmail(ctx, conn, email)
		if err != nil {
			return err
		}
		if existing != nil {
			user = existing
			return nil
		}

		user, created, err = insertIfAbsent(ctx, conn, name, email)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return user, created, nil
}

// Update applies the non-nil fields of update and returns the affected row count.
func (r *WarehouseUserRepository) Update(ctx context.Context, id int64, update domain.UserUpdate) (int64, error) {
	var sets []string
	params := warehouse.Params{"id": id}
	if update.Name != nil {
		sets = append(sets, "name = :name")
		params["name"] = *update.Name
	}
	if update.Email != nil {
		sets = append(sets, "email = :email")
		params["email"] = *update.Email
	}
	if len(sets) == 0 {
		return 0, fmt.Errorf("update user %d: no fields to update", id)
	}

	query := `UPDATE users SET ` + strings.Join(sets, ", ") + ` WHERE id = :id`
	return r.wh.ExecuteStatement(ctx, query, params)
}

// Delete removes the user and returns the affected row count.
func (r *WarehouseUserRepository) Delete(ctx context.Context, id int64) (int64, error) {
	return r.wh.ExecuteStatement(ctx, deleteUserSQL, warehouse.Params{"id": id})
}

// Register looks the email up and then creates the user, renames it, or
// leaves it alone. All statements share one scoped connection but no
// transaction. A concurrent insert of the same email is detected through the
// guarded insert and handled as if the row had been found by the lookup.
func (r *WarehouseUserRepository) Register(ctx context.Context, name, email string) (*domain.RegistrationOutcome, error) {
	var outcome *domain.RegistrationOutcome

	err := r.wh.WithConnection(ctx, func(ctx context.Context, conn warehouse.Conn) error {
		existing, err := findByEmail(ctx, conn, email)
		if err != nil {
			return err
		}

		if existing == nil {
			user, created, err := insertIfAbsent(ctx, conn, name, email)
			if err != nil {
				return err
			}
			if created {
				outcome = &domain.RegistrationOutcome{
					User:    *user,
					Created: true,
					Message: fmt.Sprintf("New user created with email %s", email),
				}
				return nil
			}
			// Lost the insert race; continue with the row the winner wrote.
			existing = user
		}

		if existing.Name == name {
			outcome = &domain.RegistrationOutcome{
				User:    *existing,
				Message: fmt.Sprintf("User already exists with email %s", email),
			}
			return nil
		}

		affected, err := conn.Exec(ctx, updateNameByEmailSQL, warehouse.Params{"name": name, "email": email})
		if err != nil {
			return warehouse.QueryError(err)
		}
		if affected == 0 {
			return fmt.Errorf("%w: user with email %s vanished before update", warehouse.ErrConsistency, email)
		}

		updated, err := findByEmail(ctx, conn, email)
		if err != nil {
			return err
		}
		if updated == nil {
			return fmt.Errorf("%w: user with email %s vanished after update", warehouse.ErrConsistency, email)
		}

		outcome = &domain.RegistrationOutcome{
			User:    *updated,
			Updated: true,
			Message: fmt.Sprintf("User already existed, name updated to %s", name),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// insertIfAbsent runs the guarded insert and re-reads the row by email.
// created is false when another writer got there first.
func insertIfAbsent(ctx context.Context, conn warehouse.Conn, name, email string) (*domain.User, bool, error) {
	affected, err := conn.Exec(ctx, insertUserIfAbsentSQL, warehouse.Params{"name": name, "email": email})
	if err != nil {
		return nil, false, warehouse.QueryError(err)
	}

	user, err := findByEmail(ctx, conn, email)
	if err != nil {
		return nil, false, err
	}
	if user == nil {
		return nil, false, fmt.Errorf("%w: user with email %s not found after insert", warehouse.ErrConsistency, email)
	}
	return user, affected > 0, nil
}

func findByEmail(ctx context.Context, conn warehouse.Conn, email string) (*domain.User, error) {
	rows, err := conn.Query(ctx, getUserByEmailSQL, warehouse.Params{"email": email})
	if err != nil {
		return nil, warehouse.QueryError(err)
	}
	return firstUser(rows)
}

func firstUser(rows []warehouse.Row) (*domain.User, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	u, err := decodeUser(rows[0])
	if err != nil {
		return nil, err
	}
	return &u, nil
}
