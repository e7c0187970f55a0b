package v1

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/duynhne/warehouse-user-service/internal/core/domain"
	"github.com/duynhne/warehouse-user-service/internal/logging"
	"github.com/duynhne/warehouse-user-service/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

// UserService implements user business rules.
// It depends on a repository interface (injected via constructor) and
// MUST NOT access the warehouse or SQL directly.
type UserService struct {
	users domain.UserRepository
}

// NewUserService creates a new UserService with the given repository.
func NewUserService(users domain.UserRepository) *UserService {
	return &UserService{users: users}
}

// Register creates the user, renames it, or leaves it unchanged.
func (s *UserService) Register(ctx context.Context, name, email string) (*domain.RegistrationOutcome, error) {
	ctx, span := middleware.StartSpan(ctx, "users.register", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("email", email),
	))
	defer span.End()

	if err := validateIdentity(name, email); err != nil {
		span.RecordError(err)
		return nil, err
	}

	outcome, err := s.users.Register(ctx, name, email)
	if err != nil {
		span.RecordError(err)
		middleware.RegistrationsTotal.WithLabelValues("error").Inc()
		return nil, classify(fmt.Sprintf("register user %q", email), err)
	}

	label := "unchanged"
	switch {
	case outcome.Created:
		label = "created"
	case outcome.Updated:
		label = "updated"
	}
	middleware.RegistrationsTotal.WithLabelValues(label).Inc()

	span.SetAttributes(
		attribute.Int64("user.id", outcome.User.ID),
		attribute.String("registration.outcome", label),
	)
	span.AddEvent("user.registered")

	logging.FromContext(ctx).Info().
		Int64("user_id", outcome.User.ID).
		Str("outcome", label).
		Msg("Registration processed")

	return outcome, nil
}

// List returns up to limit users, newest first. A non-positive limit means
// DefaultListLimit.
func (s *UserService) List(ctx context.Context, limit int) ([]domain.User, error) {
	ctx, span := middleware.StartSpan(ctx, "users.list", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.Int("limit", limit),
	))
	defer span.End()

	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		err := fmt.Errorf("limit %d exceeds %d: %w", limit, MaxListLimit, ErrInvalidInput)
		span.RecordError(err)
		return nil, err
	}

	users, err := s.users.List(ctx, limit)
	if err != nil {
		span.RecordError(err)
		return nil, classify("list users", err)
	}
	span.SetAttributes(attribute.Int("users.count", len(users)))
	return users, nil
}

// Get returns the user with the given id.
func (s *UserService) Get(ctx context.Context, id int64) (*domain.User, error) {
	ctx, span := middleware.StartSpan(ctx, "users.get", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.Int64("user.id", id),
	))
	defer span.End()

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, classify(fmt.Sprintf("get user %d", id), err)
	}
	if user == nil {
		return nil, fmt.Errorf("get user %d: %w", id, ErrUserNotFound)
	}
	return user, nil
}

// Create inserts a user unless the email already exists, in which case the
// existing user is returned.
func (s *UserService) Create(ctx context.Context, name, email string) (*domain.User, bool, error) {
	ctx, span := middleware.StartSpan(ctx, "users.create", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("email", email),
	))
	defer span.End()

	if err := validateIdentity(name, email); err != nil {
		span.RecordError(err)
		return nil, false, err
	}

	user, created, err := s.users.CreateIfAbsent(ctx, name, email)
	if err != nil {
		span.RecordError(err)
		return nil, false, classify(fmt.Sprintf("create user %q", email), err)
	}

	logger := logging.FromContext(ctx)
	if created {
		logger.Info().Int64("user_id", user.ID).Msg("User created")
	} else {
		logger.Info().Int64("user_id", user.ID).Msg("User already exists, returning existing user")
	}
	span.SetAttributes(attribute.Bool("user.created", created))
	return user, created, nil
}

// Update changes the provided fields and returns the re-read user.
func (s *UserService) Update(ctx context.Context, id int64, update domain.UserUpdate) (*domain.User, error) {
	ctx, span := middleware.StartSpan(ctx, "users.update", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.Int64("user.id", id),
	))
	defer span.End()

	if update.Empty() {
		return nil, fmt.Errorf("update user %d: %w", id, ErrNoFieldsToUpdate)
	}
	if update.Email != nil {
		if err := validateEmail(*update.Email); err != nil {
			return nil, err
		}
	}
	if update.Name != nil && strings.TrimSpace(*update.Name) == "" {
		return nil, fmt.Errorf("name must not be blank: %w", ErrInvalidInput)
	}

	affected, err := s.users.Update(ctx, id, update)
	if err != nil {
		span.RecordError(err)
		return nil, classify(fmt.Sprintf("update user %d", id), err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("update user %d: %w", id, ErrUserNotFound)
	}

	return s.Get(ctx, id)
}

// Delete removes the user with the given id.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	ctx, span := middleware.StartSpan(ctx, "users.delete", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.Int64("user.id", id),
	))
	defer span.End()

	affected, err := s.users.Delete(ctx, id)
	if err != nil {
		span.RecordError(err)
		return classify(fmt.Sprintf("delete user %d", id), err)
	}
	if affected == 0 {
		return fmt.Errorf("delete user %d: %w", id, ErrUserNotFound)
	}
	return nil
}

// validateIdentity rejects blank names and malformed emails. Names are not
// trimmed or normalized: registration compares them byte for byte.
func validateIdentity(name, email string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("name must not be blank: %w", ErrInvalidInput)
	}
	return validateEmail(email)
}

func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("email %q is not a bare address: %w", email, ErrInvalidInput)
	}
	return nil
}
