package v1

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/duynhne/warehouse-user-service/internal/core/domain"
	"github.com/duynhne/warehouse-user-service/internal/logging"
	logicv1 "github.com/duynhne/warehouse-user-service/internal/logic/v1"
	"github.com/duynhne/warehouse-user-service/middleware"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Handler groups HTTP handlers for the user API v1.
// Dependencies are injected via the constructor, no global state.
type Handler struct {
	users   *logicv1.UserService
	queries *logicv1.QueryService
	version string
}

// NewHandler creates a new Handler.
func NewHandler(users *logicv1.UserService, queries *logicv1.QueryService, version string) *Handler {
	return &Handler{users: users, queries: queries, version: version}
}

// RegisterRoutes registers all API v1 routes on the given router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/users", h.ListUsers)
	rg.GET("/users/:id", h.GetUser)
	rg.POST("/users", h.CreateUser)
	rg.PUT("/users/:id", h.UpdateUser)
	rg.DELETE("/users/:id", h.DeleteUser)
	rg.POST("/users/register", h.RegisterUser)
	rg.POST("/query", h.ExecuteQuery)
}

// RegisterHealthRoutes registers the unversioned health endpoints.
func (h *Handler) RegisterHealthRoutes(r gin.IRoutes) {
	r.GET("/health", h.Health)
	r.GET("/health/database", h.DatabaseHealth)
}

// startSpan starts the web-layer span and installs its context on the request.
func startSpan(c *gin.Context) trace.Span {
	ctx, span := middleware.StartSpan(c.Request.Context(), "http.request", trace.WithAttributes(
		attribute.String("layer", "web"),
		attribute.String("method", c.Request.Method),
		attribute.String("path", c.FullPath()),
	))
	c.Request = c.Request.WithContext(ctx)
	return span
}

// RegisterUser handles POST /users/register.
func (h *Handler) RegisterUser(c *gin.Context) {
	span := startSpan(c)
	defer span.End()
	ctx := c.Request.Context()
	logger := logging.FromContext(ctx)

	var req UserCreateRequest
	if !bindJSON(c, span, &req) {
		return
	}

	outcome, err := h.users.Register(ctx, req.Name, req.Email)
	if err != nil {
		span.RecordError(err)
		logger.Error().Err(err).Str("email", req.Email).Msg("Register user failed")
		writeError(c, err, "Failed to register user")
		return
	}

	c.JSON(http.StatusOK, outcome)
}

// ListUsers handles GET /users?limit=N.
func (h *Handler) ListUsers(c *gin.Context) {
	span := startSpan(c)
	defer span.End()
	ctx := c.Request.Context()

	limit := logicv1.DefaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = n
	}

	users, err := h.users.List(ctx, limit)
	if err != nil {
		span.RecordError(err)
		logging.FromContext(ctx).Error().Err(err).Msg("Get users failed")
		writeError(c, err, "Failed to retrieve users")
		return
	}

	c.JSON(http.StatusOK, users)
}

// GetUser handles GET /users/:id.
func (h *Handler) GetUser(c *gin.Context) {
	span := startSpan(c)
	defer span.End()
	ctx := c.Request.Context()

	id, ok := parseID(c)
	if !ok {
		return
	}

	user, err := h.users.Get(ctx, id)
	if err != nil {
		span.RecordError(err)
		if !errors.Is(err, logicv1.ErrUserNotFound) {
			logging.FromContext(ctx).Error().Err(err).Int64("user_id", id).Msg("Get user failed")
		}
		writeError(c, err, "Failed to retrieve user")
		return
	}

	c.JSON(http.StatusOK, user)
}

// CreateUser handles POST /users. An existing email returns the stored user.
func (h *Handler) CreateUser(c *gin.Context) {
	span := startSpan(c)
	defer span.End()
	ctx := c.Request.Context()

	var req UserCreateRequest
	if !bindJSON(c, span, &req) {
		return
	}

	user, _, err := h.users.Create(ctx, req.Name, req.Email)
	if err != nil {
		span.RecordError(err)
		logging.FromContext(ctx).Error().Err(err).Str("email", req.Email).Msg("Create user failed")
		writeError(c, err, "Failed to create user")
		return
	}

	c.JSON(http.StatusOK, user)
}

// UpdateUser handles PUT /users/:id.
func (h *Handler) UpdateUser(c *gin.Context) {
	span := startSpan(c)
	defer span.End()
	ctx := c.Request.Context()

	id, ok := parseID(c)
	if !ok {
		return
	}

	var req UserUpdateRequest
	if !bindJSON(c, span, &req) {
		return
	}

	user, err := h.users.Update(ctx, id, domain.UserUpdate{Name: req.Name, Email: req.Email})
	if err != nil {
		span.RecordError(err)
		logging.FromContext(ctx).Warn().Err(err).Int64("user_id", id).Msg("Update user failed")
		writeError(c, err, "Failed to update user")
		return
	}

	c.JSON(http.StatusOK, user)
}

// DeleteUser handles DELETE /users/:id.
func (h *Handler) DeleteUser(c *gin.Context) {
	span := startSpan(c)
	defer span.End()
	ctx := c.Request.Context()

	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.users.Delete(ctx, id); err != nil {
		span.RecordError(err)
		logging.FromContext(ctx).Warn().Err(err).Int64("user_id", id).Msg("Delete user failed")
		writeError(c, err, "Failed to delete user")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("User %d deleted successfully", id)})
}

// ExecuteQuery handles POST /query. Any failure of the statement itself is the
// caller's problem and answers 400.
func (h *Handler) ExecuteQuery(c *gin.Context) {
	span := startSpan(c)
	defer span.End()
	ctx := c.Request.Context()

	var req QueryRequest
	if !bindJSON(c, span, &req) {
		return
	}

	result, err := h.queries.Execute(ctx, req.Query, req.Parameters)
	if err != nil {
		span.RecordError(err)
		logging.FromContext(ctx).Error().Err(err).Msg("Query execution failed")
		if errors.Is(err, logicv1.ErrQueryFailed) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Query execution failed", Detail: err.Error()})
			return
		}
		writeError(c, err, "Query execution failed")
		return
	}

	c.JSON(http.StatusOK, result)
}

// Health handles GET /health.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   h.version,
	})
}

// DatabaseHealth handles GET /health/database.
func (h *Handler) DatabaseHealth(c *gin.Context) {
	span := startSpan(c)
	defer span.End()
	ctx := c.Request.Context()

	if err := h.queries.Ping(ctx); err != nil {
		span.RecordError(err)
		logging.FromContext(ctx).Error().Err(err).Msg("Database health check failed")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:  "Database connection failed",
			Detail: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"database":  "connected",
		"timestamp": time.Now().UTC(),
	})
}

func bindJSON(c *gin.Context, span trace.Span, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		span.SetAttributes(attribute.Bool("request.valid", false))
		span.RecordError(err)
		logging.FromContext(c.Request.Context()).Warn().Err(err).Msg("Invalid request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Detail: err.Error()})
		return false
	}
	span.SetAttributes(attribute.Bool("request.valid", true))
	return true
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "id must be an integer"})
		return 0, false
	}
	return id, true
}

// writeError maps logic-layer sentinels to status codes.
func writeError(c *gin.Context, err error, summary string) {
	switch {
	case errors.Is(err, logicv1.ErrUserNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "User not found"})
	case errors.Is(err, logicv1.ErrNoFieldsToUpdate):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "No fields to update"})
	case errors.Is(err, logicv1.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Detail: err.Error()})
	case errors.Is(err, logicv1.ErrWarehouseUnavailable):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "Warehouse unavailable", Detail: summary})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error", Detail: summary})
	}
}
