package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"heartrate-go/internal/config"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	// ErrPersistence marks any failure to read or write durable state.
	ErrPersistence = errors.New("persistence error")
)

// BlobStore is a flat key/value store for JSON documents. The token record
// and the daily archive both live in one.
type BlobStore interface {
	// Get returns ErrNotFound when key has never been written.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put creates or overwrites key.
	Put(ctx context.Context, key string, data []byte) error
	Close() error
}

// StoreType names a BlobStore backend.
type StoreType string

const (
	StoreTypeFile   StoreType = "file"
	StoreTypeSQLite StoreType = "sqlite"
	StoreTypeRedis  StoreType = "redis"
	StoreTypeMongo  StoreType = "mongo"
	StoreTypeS3     StoreType = "s3"
)

// ParseStoreType parses a string into a StoreType.
func ParseStoreType(s string) (StoreType, error) {
	t := StoreType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("%w: unsupported store type %q", config.ErrConfiguration, s)
	}
	return t, nil
}

// String returns the string representation of a StoreType.
func (t StoreType) String() string {
	return string(t)
}

// IsValid returns true if the StoreType is known.
func (t StoreType) IsValid() bool {
	switch t {
	case StoreTypeFile, StoreTypeSQLite, StoreTypeRedis, StoreTypeMongo, StoreTypeS3:
		return true
	default:
		return false
	}
}

// Open creates the BlobStore selected by cfg. The returned store records
// prometheus metrics for every operation.
func Open(ctx context.Context, cfg config.StorageConfig) (BlobStore, error) {
	t, err := ParseStoreType(cfg.Type)
	if err != nil {
		return nil, err
	}

	var store BlobStore
	switch t {
	case StoreTypeFile:
		store, err = NewFileStore(cfg.Path)
	case StoreTypeSQLite:
		store, err = NewSQLiteStore(cfg.Path)
	case StoreTypeRedis:
		store, err = NewRedisStoreFromOptions(RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.Prefix,
		})
	case StoreTypeMongo:
		store, err = NewMongoStoreFromURI(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
	case StoreTypeS3:
		store, err = NewS3StoreFromConfig(ctx, cfg.Bucket, cfg.Prefix, cfg.Region)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", t, err)
	}

	return Instrument(store, t.String()), nil
}

// validateKey checks that key is usable by every backend.
func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: key cannot be empty", ErrInvalidInput)
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return fmt.Errorf("%w: key %q must be a relative slash-separated path", ErrInvalidInput, key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return fmt.Errorf("%w: key %q contains an empty or relative segment", ErrInvalidInput, key)
		}
	}
	return nil
}

func joinPrefix(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return strings.TrimSuffix(prefix, "/") + "/" + key
}
