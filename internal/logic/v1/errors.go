// Package v1 provides user and query business logic for API version 1.
//
// Error Handling:
// This package defines sentinel errors for the outcomes handlers translate
// into status codes. Warehouse failures are classified once, here, and
// wrapped with context using fmt.Errorf("%w") so the original driver or
// secret store error stays in the chain.
//
// Error Checking (in handlers):
//
//	switch {
//	case errors.Is(err, logicv1.ErrUserNotFound):
//	    c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
//	case errors.Is(err, logicv1.ErrWarehouseUnavailable):
//	    c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Warehouse unavailable"})
//	default:
//	    c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
//	}
package v1

import (
	"errors"
	"fmt"

	"github.com/duynhne/warehouse-user-service/internal/core/warehouse"
)

// Sentinel errors for user and query operations.
var (
	// ErrUserNotFound indicates no user matches the id.
	// HTTP Status: 404 Not Found
	ErrUserNotFound = errors.New("user not found")

	// ErrNoFieldsToUpdate indicates an update request without any field set.
	// HTTP Status: 400 Bad Request
	ErrNoFieldsToUpdate = errors.New("no fields to update")

	// ErrInvalidInput indicates a request value failed business validation.
	// HTTP Status: 400 Bad Request
	ErrInvalidInput = errors.New("invalid input")

	// ErrWarehouseUnavailable indicates credentials or a connection could not be obtained.
	// HTTP Status: 503 Service Unavailable
	ErrWarehouseUnavailable = errors.New("warehouse unavailable")

	// ErrQueryFailed indicates a statement was rejected or failed in the warehouse.
	// HTTP Status: 500 Internal Server Error (400 for ad-hoc queries)
	ErrQueryFailed = errors.New("query failed")

	// ErrInconsistent indicates a row vanished between a write and its re-read.
	// HTTP Status: 500 Internal Server Error
	ErrInconsistent = errors.New("inconsistent warehouse state")
)

// classify maps the warehouse taxonomy onto this package's sentinels while
// keeping the original chain for errors.As.
func classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, warehouse.ErrConsistency):
		return fmt.Errorf("%s: %w: %w", op, ErrInconsistent, err)
	case errors.Is(err, warehouse.ErrQuery):
		return fmt.Errorf("%s: %w: %w", op, ErrQueryFailed, err)
	case errors.Is(err, warehouse.ErrCredentialRetrieval), errors.Is(err, warehouse.ErrConnection):
		return fmt.Errorf("%s: %w: %w", op, ErrWarehouseUnavailable, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
