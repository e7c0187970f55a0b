// Package secrets fetches named secrets holding warehouse credentials.
package secrets

import (
	"context"
	"fmt"
)

// Store fetches a secret by name and returns its key/value pairs.
type Store interface {
	FetchSecret(ctx context.Context, name string) (map[string]string, error)
}

// Category classifies why a secret could not be fetched.
type Category string

const (
	CategoryNotFound          Category = "not-found"
	CategoryDecryptionFailure Category = "decryption-failure"
	CategoryInternalError     Category = "internal-error"
	CategoryInvalidParameter  Category = "invalid-parameter"
	CategoryInvalidRequest    Category = "invalid-request"
	CategoryOther             Category = "other"
)

// Error is returned by Store implementations for every failed fetch.
type Error struct {
	Category Category
	Name     string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("fetch secret %q (%s): %v", e.Name, e.Category, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
