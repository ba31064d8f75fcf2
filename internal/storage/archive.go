package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the calendar date format used in archive keys and API paths.
const DateLayout = "2006-01-02"

// DayKey returns the archive key for a calendar date, e.g. days/2021-06-23.json.
func DayKey(date string) string {
	return "days/" + date + ".json"
}

// Archive stores one raw API response per day.
type Archive struct {
	blobs BlobStore
}

// NewArchive creates a new Archive on blobs.
func NewArchive(blobs BlobStore) *Archive {
	return &Archive{blobs: blobs}
}

// SaveDay pretty-prints raw and writes it to DayKey(date), replacing any
// earlier copy. It returns the key and the number of bytes written.
func (a *Archive) SaveDay(ctx context.Context, date string, raw []byte) (string, int, error) {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return "", 0, fmt.Errorf("%w: %w: date %q: %w", ErrPersistence, ErrInvalidInput, date, err)
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return "", 0, fmt.Errorf("%w: response is not valid JSON: %w", ErrPersistence, err)
	}

	key := DayKey(date)
	if err := a.blobs.Put(ctx, key, buf.Bytes()); err != nil {
		return "", 0, fmt.Errorf("%w: failed to write %s: %w", ErrPersistence, key, err)
	}
	return key, buf.Len(), nil
}

// LoadDay returns the archived document for date.
func (a *Archive) LoadDay(ctx context.Context, date string) ([]byte, error) {
	data, err := a.blobs.Get(ctx, DayKey(date))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return data, nil
}
