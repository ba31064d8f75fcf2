package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"heartrate-go/internal/auth"
)

// DefaultTokenKey is the key the token record is stored under.
const DefaultTokenKey = "token.json"

// TokenStore handles the logic for storing and retrieving the OAuth2 token
// record, including optional encryption and decryption.
type TokenStore struct {
	blobs         BlobStore
	key           string
	encryptionKey []byte
}

// NewTokenStore creates a new TokenStore. An empty key means
// DefaultTokenKey; a nil encryptionKey stores plain JSON.
func NewTokenStore(blobs BlobStore, key string, encryptionKey []byte) (*TokenStore, error) {
	if key == "" {
		key = DefaultTokenKey
	}
	if err := validateKey(key); err != nil {
		return nil, err
	}
	if len(encryptionKey) != 0 && len(encryptionKey) != KeySize {
		return nil, ErrInvalidKeySize
	}
	return &TokenStore{blobs: blobs, key: key, encryptionKey: encryptionKey}, nil
}

// Key returns the key the record is stored under.
func (ts *TokenStore) Key() string {
	return ts.key
}

// Load reads and validates the stored token record.
func (ts *TokenStore) Load(ctx context.Context) (auth.TokenRecord, error) {
	data, err := ts.blobs.Get(ctx, ts.key)
	if err != nil {
		return auth.TokenRecord{}, fmt.Errorf("%w: failed to read token: %w", ErrPersistence, err)
	}

	if ts.encryptionKey != nil {
		data, err = OpenToken(ts.encryptionKey, data)
		if err != nil {
			return auth.TokenRecord{}, fmt.Errorf("%w: failed to decrypt token: %w", ErrPersistence, err)
		}
	}

	var record auth.TokenRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return auth.TokenRecord{}, fmt.Errorf("%w: failed to unmarshal token: %w", ErrPersistence, err)
	}
	if err := record.Validate(); err != nil {
		return auth.TokenRecord{}, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	return record, nil
}

// Save serializes record as indented JSON, encrypts it when configured and
// overwrites the stored copy.
func (ts *TokenStore) Save(ctx context.Context, record auth.TokenRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: failed to marshal token: %w", ErrPersistence, err)
	}

	if ts.encryptionKey != nil {
		data, err = SealToken(ts.encryptionKey, data)
		if err != nil {
			return fmt.Errorf("%w: failed to encrypt token: %w", ErrPersistence, err)
		}
	}

	if err := ts.blobs.Put(ctx, ts.key, data); err != nil {
		return fmt.Errorf("%w: failed to write token: %w", ErrPersistence, err)
	}
	return nil
}
