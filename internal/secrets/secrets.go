// Package secrets resolves the OAuth2 client secret from an environment
// variable, a file or AWS Secrets Manager.
package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"heartrate-go/internal/config"
	"heartrate-go/internal/secret"
)

// ErrSecretNotFound is returned when a store has no value for an id.
var ErrSecretNotFound = errors.New("secret not found")

// Store looks up secret values by id. What an id means depends on the
// backend: a variable name, a file name or a secret ARN.
type Store interface {
	GetSecret(ctx context.Context, id string) (string, error)
}

// Store types.
const (
	TypeEnv  = "env"
	TypeFile = "file"
	TypeAWS  = "aws"
)

// New creates the Store selected by cfg.
func New(ctx context.Context, cfg config.SecretsConfig) (Store, error) {
	switch strings.ToLower(cfg.Type) {
	case "", TypeEnv:
		return NewEnvStore(), nil
	case TypeFile:
		return NewFileStore(cfg.Dir)
	case TypeAWS:
		return NewAWSStoreFromConfig(ctx, cfg.Region)
	default:
		return nil, fmt.Errorf("%w: unsupported secret store type %q", config.ErrConfiguration, cfg.Type)
	}
}

// clientSecretDocument is the JSON shape of a stored client secret.
type clientSecretDocument struct {
	ClientSecret string `json:"client_secret"`
}

// ClientSecret fetches id from store and extracts the client secret. The
// stored value is either a JSON object {"client_secret": "..."} or the bare
// secret.
func ClientSecret(ctx context.Context, store Store, id string) (secret.String, error) {
	if id == "" {
		return secret.String{}, fmt.Errorf("%w: client secret reference is empty", config.ErrConfiguration)
	}

	raw, err := store.GetSecret(ctx, id)
	if err != nil {
		return secret.String{}, fmt.Errorf("%w: failed to fetch client secret: %w", config.ErrConfiguration, err)
	}

	value := strings.TrimSpace(raw)
	if strings.HasPrefix(value, "{") {
		var doc clientSecretDocument
		if err := json.Unmarshal([]byte(value), &doc); err != nil {
			return secret.String{}, fmt.Errorf("%w: client secret is not valid JSON: %w", config.ErrConfiguration, err)
		}
		value = doc.ClientSecret
	}
	if value == "" {
		return secret.String{}, fmt.Errorf("%w: client secret %q is empty", config.ErrConfiguration, id)
	}
	return secret.New(value), nil
}

// ResolveClientSecret returns the literal client secret from cfg when one is
// set, and otherwise looks up the configured reference.
func ResolveClientSecret(ctx context.Context, cfg *config.Config) (secret.String, error) {
	if cfg.Auth.ClientSecret != "" {
		return secret.New(cfg.Auth.ClientSecret), nil
	}
	store, err := New(ctx, cfg.Secrets)
	if err != nil {
		return secret.String{}, err
	}
	return ClientSecret(ctx, store, cfg.Auth.ClientSecretRef)
}
