package secrets

import (
	"context"
	"errors"
	"maps"
)

// EnvStore serves one static credential set for every secret name. It backs
// local development where credentials live in .env.
type EnvStore struct {
	values map[string]string
}

func NewEnvStore(values map[string]string) *EnvStore {
	return &EnvStore{values: maps.Clone(values)}
}

// FetchSecret implements Store.
func (s *EnvStore) FetchSecret(_ context.Context, name string) (map[string]string, error) {
	if len(s.values) == 0 {
		return nil, &Error{Category: CategoryNotFound, Name: name, Err: errors.New("no credentials configured in environment")}
	}
	return maps.Clone(s.values), nil
}
