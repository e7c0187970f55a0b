package v1

import "time"

// UserCreateRequest is the body of POST /users and POST /users/register.
type UserCreateRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required,email"`
}

// UserUpdateRequest is the body of PUT /users/:id.
type UserUpdateRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email" binding:"omitempty,email"`
}

// QueryRequest is the body of POST /query.
type QueryRequest struct {
	Query      string         `json:"query" binding:"required"`
	Parameters map[string]any `json:"parameters"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}
