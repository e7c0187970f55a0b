package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/duynhne/warehouse-user-service/internal/core/domain"
	"github.com/duynhne/warehouse-user-service/internal/core/repository"
	"github.com/duynhne/warehouse-user-service/internal/core/secrets"
	"github.com/duynhne/warehouse-user-service/internal/core/warehouse"
	logicv1 "github.com/duynhne/warehouse-user-service/internal/logic/v1"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(provider *warehouse.Provider) *gin.Engine {
	h := NewHandler(
		logicv1.NewUserService(repository.NewUserRepository(provider)),
		logicv1.NewQueryService(repository.NewQueryRunner(provider)),
		"test",
	)
	r := gin.New()
	h.RegisterRoutes(r.Group("/api/v1"))
	h.RegisterHealthRoutes(r)
	return r
}

func newSQLiteRouter(t *testing.T) *gin.Engine {
	t.Helper()
	path := filepath.Join(t.TempDir(), "users.db")
	dialer := warehouse.NewSQLDialer("sqlite", func(warehouse.Credentials) (string, error) {
		return path, nil
	})
	provider := warehouse.NewProvider(secrets.NewEnvStore(map[string]string{"account": "local"}), "creds", dialer)
	_, err := provider.ExecuteStatement(context.Background(), `CREATE TABLE users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`, nil)
	require.NoError(t, err)
	return newRouter(provider)
}

// newUnavailableRouter has a secret store with nothing in it.
func newUnavailableRouter() *gin.Engine {
	dialer := warehouse.NewSQLDialer("sqlite", func(warehouse.Credentials) (string, error) {
		return ":memory:", nil
	})
	return newRouter(warehouse.NewProvider(secrets.NewEnvStore(nil), "creds", dialer))
}

func do(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func Test_RegisterUser_Outcomes(t *testing.T) {
	r := newSQLiteRouter(t)

	w := do(t, r, http.MethodPost, "/api/v1/users/register", gin.H{"name": "Alice", "email": "a@x.com"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	created := decode[domain.RegistrationOutcome](t, w)
	assert.True(t, created.Created)
	assert.False(t, created.Updated)
	assert.Equal(t, "New user created with email a@x.com", created.Message)

	w = do(t, r, http.MethodPost, "/api/v1/users/register", gin.H{"name": "Alice", "email": "a@x.com"})
	require.Equal(t, http.StatusOK, w.Code)
	same := decode[domain.RegistrationOutcome](t, w)
	assert.False(t, same.Created)
	assert.False(t, same.Updated)
	assert.Equal(t, created.User.ID, same.User.ID)

	w = do(t, r, http.MethodPost, "/api/v1/users/register", gin.H{"name": "Alicia", "email": "a@x.com"})
	require.Equal(t, http.StatusOK, w.Code)
	renamed := decode[domain.RegistrationOutcome](t, w)
	assert.True(t, renamed.Updated)
	assert.Equal(t, "Alicia", renamed.User.Name)
	assert.Equal(t, "User already existed, name updated to Alicia", renamed.Message)
}

func Test_RegisterUser_BadBody(t *testing.T) {
	r := newSQLiteRouter(t)

	for _, body := range []any{
		gin.H{"name": "Alice"},
		gin.H{"email": "a@x.com"},
		gin.H{"name": "Alice", "email": "nope"},
	} {
		w := do(t, r, http.MethodPost, "/api/v1/users/register", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, "%v", body)
	}
}

func Test_RegisterUser_WarehouseUnavailable(t *testing.T) {
	w := do(t, newUnavailableRouter(), http.MethodPost, "/api/v1/users/register", gin.H{"name": "Alice", "email": "a@x.com"})

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "Warehouse unavailable", decode[ErrorResponse](t, w).Error)
}

func Test_UserCRUD(t *testing.T) {
	r := newSQLiteRouter(t)

	w := do(t, r, http.MethodPost, "/api/v1/users", gin.H{"name": "John", "email": "john@example.com"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	user := decode[domain.User](t, w)
	assert.NotZero(t, user.ID)

	w = do(t, r, http.MethodPost, "/api/v1/users", gin.H{"name": "Other", "email": "john@example.com"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, user.ID, decode[domain.User](t, w).ID)

	path := "/api/v1/users/" + jsonNumber(user.ID)

	w = do(t, r, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "John", decode[domain.User](t, w).Name)

	w = do(t, r, http.MethodPut, path, gin.H{"name": "Johnny"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Johnny", decode[domain.User](t, w).Name)

	w = do(t, r, http.MethodPut, path, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No fields to update", decode[ErrorResponse](t, w).Error)

	w = do(t, r, http.MethodGet, "/api/v1/users", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]domain.User](t, w), 1)

	w = do(t, r, http.MethodDelete, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "User "+jsonNumber(user.ID)+" deleted successfully", decode[map[string]string](t, w)["message"])

	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, path, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodDelete, path, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodPut, path, gin.H{"name": "x"}).Code)
}

func Test_UserRoutes_BadParams(t *testing.T) {
	r := newSQLiteRouter(t)

	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodGet, "/api/v1/users/abc", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodGet, "/api/v1/users?limit=-1", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodGet, "/api/v1/users?limit=5000", nil).Code)
}

func Test_ExecuteQuery(t *testing.T) {
	r := newSQLiteRouter(t)
	require.Equal(t, http.StatusOK, do(t, r, http.MethodPost, "/api/v1/users", gin.H{"name": "John", "email": "john@example.com"}).Code)

	w := do(t, r, http.MethodPost, "/api/v1/query", gin.H{
		"query":      "SELECT name FROM users WHERE email = :email",
		"parameters": gin.H{"email": "john@example.com"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[logicv1.QueryResult](t, w)
	assert.Equal(t, 1, res.RowCount)
	assert.Equal(t, "John", res.Data[0]["name"])

	w = do(t, r, http.MethodPost, "/api/v1/query", gin.H{"query": "SELEC nonsense"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Query execution failed", decode[ErrorResponse](t, w).Error)

	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodPost, "/api/v1/query", gin.H{}).Code)
}

func Test_Health(t *testing.T) {
	w := do(t, newUnavailableRouter(), http.MethodGet, "/health", nil)

	require.Equal(t, http.StatusOK, w.Code)
	res := decode[HealthResponse](t, w)
	assert.Equal(t, "healthy", res.Status)
	assert.Equal(t, "test", res.Version)
}

func Test_DatabaseHealth(t *testing.T) {
	w := do(t, newSQLiteRouter(t), http.MethodGet, "/health/database", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "connected", decode[map[string]any](t, w)["database"])

	w = do(t, newUnavailableRouter(), http.MethodGet, "/health/database", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "Database connection failed", decode[ErrorResponse](t, w).Error)
}

func jsonNumber(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
