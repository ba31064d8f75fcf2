package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/golang-migrate/migrate/v4"
)

// schemaVersion reports the schema version of a database.
type schemaVersion struct {
	Version uint
	Dirty   bool
}

func (s *SQLiteStore) migrationStatus() (schemaVersion, error) {
	migrationLock.Lock()
	defer migrationLock.Unlock()

	m, db, err := s.newMigrate()
	if err != nil {
		return schemaVersion{}, err
	}
	defer db.Close()

	version, dirty, err := m.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return schemaVersion{}, nil
		}
		return schemaVersion{}, fmt.Errorf("failed to read migration version: %w", err)
	}
	return schemaVersion{Version: version, Dirty: dirty}, nil
}

// updatedAt returns when key was last written.
func (s *SQLiteStore) updatedAt(ctx context.Context, key string) (time.Time, error) {
	var updated time.Time
	err := s.db.QueryRowContext(ctx, `SELECT updated_at FROM blobs WHERE key = ?`, key).Scan(&updated)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return updated, err
}

// keys returns the stored keys in sorted order.
func (m *MemoryStore) keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.blobs))
	for k := range m.blobs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
