package secrets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"heartrate-go/internal/config"
)

// FileStore reads each secret from a file named after its id, in the style
// of mounted Kubernetes or Docker secrets.
type FileStore struct {
	dir string
}

// NewFileStore creates a new FileStore reading from dir.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: secret directory cannot be empty", config.ErrConfiguration)
	}
	return &FileStore{dir: dir}, nil
}

// GetSecret returns the contents of dir/id.
func (s *FileStore) GetSecret(_ context.Context, id string) (string, error) {
	if !filepath.IsLocal(id) {
		return "", fmt.Errorf("%w: secret id %q must be a local file name", config.ErrConfiguration, id)
	}

	data, err := os.ReadFile(filepath.Join(s.dir, id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrSecretNotFound, id)
		}
		return "", fmt.Errorf("failed to read secret %s: %w", id, err)
	}
	return string(data), nil
}
