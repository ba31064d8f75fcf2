package secrets

import (
	"context"
	"fmt"
	"os"
)

// EnvStore reads secrets from environment variables.
type EnvStore struct {
	lookup func(string) (string, bool)
}

// NewEnvStore creates a new EnvStore backed by the process environment.
func NewEnvStore() *EnvStore {
	return &EnvStore{lookup: os.LookupEnv}
}

// GetSecret returns the value of the environment variable id.
func (s *EnvStore) GetSecret(_ context.Context, id string) (string, error) {
	v, ok := s.lookup(id)
	if !ok || v == "" {
		return "", fmt.Errorf("%w: environment variable %s is not set", ErrSecretNotFound, id)
	}
	return v, nil
}
