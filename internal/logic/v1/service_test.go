package v1

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duynhne/warehouse-user-service/internal/core/domain"
	"github.com/duynhne/warehouse-user-service/internal/core/secrets"
	"github.com/duynhne/warehouse-user-service/internal/core/warehouse"
	"github.com/duynhne/warehouse-user-service/middleware"
)

type fakeUserRepo struct {
	users     map[int64]domain.User
	nextID    int64
	err       error
	outcome   *domain.RegistrationOutcome
	affected  *int64
	lastLimit int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[int64]domain.User{}, nextID: 1}
}

func (r *fakeUserRepo) List(_ context.Context, limit int) ([]domain.User, error) {
	r.lastLimit = limit
	if r.err != nil {
		return nil, r.err
	}
	out := make([]domain.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	return out, nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	if r.err != nil {
		return nil, r.err
	}
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) CreateIfAbsent(ctx context.Context, name, email string) (*domain.User, bool, error) {
	if r.err != nil {
		return nil, false, r.err
	}
	if u, _ := r.GetByEmail(ctx, email); u != nil {
		return u, false, nil
	}
	u := domain.User{ID: r.nextID, Name: name, Email: email}
	r.users[u.ID] = u
	r.nextID++
	return &u, true, nil
}

func (r *fakeUserRepo) Update(_ context.Context, id int64, update domain.UserUpdate) (int64, error) {
	if r.err != nil {
		return 0, r.err
	}
	if r.affected != nil {
		return *r.affected, nil
	}
	u, ok := r.users[id]
	if !ok {
		return 0, nil
	}
	if update.Name != nil {
		u.Name = *update.Name
	}
	if update.Email != nil {
		u.Email = *update.Email
	}
	r.users[id] = u
	return 1, nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id int64) (int64, error) {
	if r.err != nil {
		return 0, r.err
	}
	if _, ok := r.users[id]; !ok {
		return 0, nil
	}
	delete(r.users, id)
	return 1, nil
}

func (r *fakeUserRepo) Register(_ context.Context, _, _ string) (*domain.RegistrationOutcome, error) {
	return r.outcome, r.err
}

func Test_Register_CountsOutcome(t *testing.T) {
	repo := newFakeUserRepo()
	repo.outcome = &domain.RegistrationOutcome{User: domain.User{ID: 1}, Created: true}
	svc := NewUserService(repo)
	before := testutil.ToFloat64(middleware.RegistrationsTotal.WithLabelValues("created"))

	out, err := svc.Register(context.Background(), "Alice", "a@x.com")

	require.NoError(t, err)
	assert.True(t, out.Created)
	assert.Equal(t, before+1, testutil.ToFloat64(middleware.RegistrationsTotal.WithLabelValues("created")))
}

func Test_Register_RejectsInvalidInput(t *testing.T) {
	svc := NewUserService(newFakeUserRepo())

	for _, tc := range []struct{ name, email string }{
		{"", "a@x.com"},
		{"   ", "a@x.com"},
		{"Alice", "not-an-email"},
		{"Alice", "Alice <a@x.com>"},
	} {
		_, err := svc.Register(context.Background(), tc.name, tc.email)
		assert.ErrorIs(t, err, ErrInvalidInput, "%q/%q", tc.name, tc.email)
	}
}

func Test_Register_ClassifiesWarehouseErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"consistency", fmt.Errorf("%w: gone", warehouse.ErrConsistency), ErrInconsistent},
		{"query", fmt.Errorf("%w: syntax", warehouse.ErrQuery), ErrQueryFailed},
		{"connection", fmt.Errorf("%w: refused", warehouse.ErrConnection), ErrWarehouseUnavailable},
		{"credentials", fmt.Errorf("%w: %w", warehouse.ErrCredentialRetrieval,
			&secrets.Error{Category: secrets.CategoryDecryptionFailure, Name: "x", Err: errors.New("kms")}), ErrWarehouseUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newFakeUserRepo()
			repo.err = tc.err

			_, err := NewUserService(repo).Register(context.Background(), "Alice", "a@x.com")

			require.ErrorIs(t, err, tc.want)
			require.ErrorIs(t, err, tc.err)
		})
	}
}

func Test_Register_KeepsSecretCategory(t *testing.T) {
	repo := newFakeUserRepo()
	repo.err = fmt.Errorf("%w: %w", warehouse.ErrCredentialRetrieval,
		&secrets.Error{Category: secrets.CategoryNotFound, Name: "creds", Err: errors.New("missing")})

	_, err := NewUserService(repo).Register(context.Background(), "Alice", "a@x.com")

	var secretErr *secrets.Error
	require.ErrorAs(t, err, &secretErr)
	assert.Equal(t, secrets.CategoryNotFound, secretErr.Category)
}

func Test_List_AppliesLimits(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewUserService(repo)

	_, err := svc.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultListLimit, repo.lastLimit)

	_, err = svc.List(context.Background(), MaxListLimit+1)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func Test_Get_NotFound(t *testing.T) {
	_, err := NewUserService(newFakeUserRepo()).Get(context.Background(), 9)

	assert.ErrorIs(t, err, ErrUserNotFound)
}

func Test_Create_ReturnsExisting(t *testing.T) {
	svc := NewUserService(newFakeUserRepo())

	first, created, err := svc.Create(context.Background(), "John", "john@example.com")
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := svc.Create(context.Background(), "Other", "john@example.com")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}

func Test_Update(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewUserService(repo)
	u, _, err := svc.Create(context.Background(), "John", "john@example.com")
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), u.ID, domain.UserUpdate{})
	assert.ErrorIs(t, err, ErrNoFieldsToUpdate)

	bad := "nope"
	_, err = svc.Update(context.Background(), u.ID, domain.UserUpdate{Email: &bad})
	assert.ErrorIs(t, err, ErrInvalidInput)

	name := "Johnny"
	updated, err := svc.Update(context.Background(), u.ID, domain.UserUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Johnny", updated.Name)

	_, err = svc.Update(context.Background(), u.ID+1, domain.UserUpdate{Name: &name})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func Test_Delete(t *testing.T) {
	svc := NewUserService(newFakeUserRepo())
	u, _, err := svc.Create(context.Background(), "John", "john@example.com")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), u.ID))
	assert.ErrorIs(t, svc.Delete(context.Background(), u.ID), ErrUserNotFound)
}

type fakeRunner struct {
	rows  []map[string]any
	err   error
	query string
}

func (r *fakeRunner) ExecuteQuery(_ context.Context, query string, _ map[string]any) ([]map[string]any, error) {
	r.query = query
	return r.rows, r.err
}

func Test_QueryService_Execute(t *testing.T) {
	runner := &fakeRunner{rows: []map[string]any{{"ID": int64(1)}, {"ID": int64(2)}}}

	res, err := NewQueryService(runner).Execute(context.Background(), "SELECT id FROM users", nil)

	require.NoError(t, err)
	assert.Equal(t, 2, res.RowCount)
	assert.GreaterOrEqual(t, res.ExecutionTimeMs, 0.0)
}

func Test_QueryService_Execute_Errors(t *testing.T) {
	_, err := NewQueryService(&fakeRunner{}).Execute(context.Background(), "  ", nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	runner := &fakeRunner{err: fmt.Errorf("%w: bad sql", warehouse.ErrQuery)}
	_, err = NewQueryService(runner).Execute(context.Background(), "SELEC 1", nil)
	assert.ErrorIs(t, err, ErrQueryFailed)
}

func Test_QueryService_Ping(t *testing.T) {
	assert.NoError(t, NewQueryService(&fakeRunner{rows: []map[string]any{{"TEST": int64(1)}}}).Ping(context.Background()))
	assert.NoError(t, NewQueryService(&fakeRunner{rows: []map[string]any{{"test": "1"}}}).Ping(context.Background()))

	err := NewQueryService(&fakeRunner{rows: []map[string]any{{"TEST": int64(2)}}}).Ping(context.Background())
	assert.ErrorIs(t, err, ErrWarehouseUnavailable)

	err = NewQueryService(&fakeRunner{err: fmt.Errorf("%w: down", warehouse.ErrConnection)}).Ping(context.Background())
	assert.ErrorIs(t, err, ErrWarehouseUnavailable)
}
