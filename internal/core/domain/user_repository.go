package domain

import "context"

// UserRepository defines the data-access contract for user operations.
// Implementations live in internal/core/repository (Core layer).
// The Logic layer depends on this interface only, never on SQL or the
// warehouse driver directly.
type UserRepository interface {
	// List returns up to limit users, newest first.
	List(ctx context.Context, limit int) ([]User, error)

	// GetByID returns the user with the given id.
	// Returns (nil, nil) when no user is found.
	GetByID(ctx context.Context, id int64) (*User, error)

	// GetByEmail returns the user with the given email.
	// Returns (nil, nil) when no user is found.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// CreateIfAbsent inserts a user unless one already has the email, and
	// returns the stored row either way. created is true iff this call inserted.
	CreateIfAbsent(ctx context.Context, name, email string) (user *User, created bool, err error)

	// Update applies the non-nil fields of update to the user with the given
	// id and returns the number of affected rows.
	Update(ctx context.Context, id int64, update UserUpdate) (int64, error)

	// Delete removes the user with the given id and returns the number of
	// affected rows.
	Delete(ctx context.Context, id int64) (int64, error)

	// Register upserts by email with created/updated/unchanged semantics on a
	// single scoped connection. It never deletes.
	Register(ctx context.Context, name, email string) (*RegistrationOutcome, error)
}

// QueryRunner executes ad-hoc SQL for the passthrough endpoint and health checks.
type QueryRunner interface {
	ExecuteQuery(ctx context.Context, query string, params map[string]any) ([]map[string]any, error)
}
