package storage

import (
	"context"
	"errors"
	"time"

	"heartrate-go/internal/metrics"
)

// instrumentedStore records operation counts and latency for a BlobStore.
type instrumentedStore struct {
	next    BlobStore
	backend string
}

// Instrument wraps store so every Get and Put is reported to prometheus
// under the given backend label.
func Instrument(store BlobStore, backend string) BlobStore {
	return &instrumentedStore{next: store, backend: backend}
}

func (s *instrumentedStore) observe(op string, start time.Time, err error) {
	status := metrics.Status(err)
	// A missing key is an answer, not a backend failure.
	if errors.Is(err, ErrNotFound) {
		status = "not_found"
	}
	metrics.StorageOperations.WithLabelValues(s.backend, op, status).Inc()
	metrics.StorageDuration.WithLabelValues(s.backend, op).Observe(time.Since(start).Seconds())
}

func (s *instrumentedStore) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	data, err := s.next.Get(ctx, key)
	s.observe("get", start, err)
	return data, err
}

func (s *instrumentedStore) Put(ctx context.Context, key string, data []byte) error {
	start := time.Now()
	err := s.next.Put(ctx, key, data)
	s.observe("put", start, err)
	return err
}

func (s *instrumentedStore) Close() error {
	return s.next.Close()
}
