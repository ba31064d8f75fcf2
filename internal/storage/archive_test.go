package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayKey(t *testing.T) {
	assert.Equal(t, "days/2021-06-23.json", DayKey("2021-06-23"))
}

func TestArchive_SaveDay(t *testing.T) {
	ctx := context.Background()
	blobs := NewMemoryStore()
	archive := NewArchive(blobs)

	raw := []byte(`{"activities-heart":[],"activities-heart-intraday":{"dataset":[{"time":"00:01:00","value":63}]}}`)
	key, n, err := archive.SaveDay(ctx, "2021-06-23", raw)
	require.NoError(t, err)
	assert.Equal(t, "days/2021-06-23.json", key)

	stored, err := archive.LoadDay(ctx, "2021-06-23")
	require.NoError(t, err)
	assert.Len(t, stored, n)
	assert.JSONEq(t, string(raw), string(stored))
	assert.Contains(t, string(stored), "\n  \"activities-heart\"")

	// A second run for the same day replaces the document.
	_, _, err = archive.SaveDay(ctx, "2021-06-23", []byte(`{"activities-heart":[]}`))
	require.NoError(t, err)
	stored, err = archive.LoadDay(ctx, "2021-06-23")
	require.NoError(t, err)
	assert.JSONEq(t, `{"activities-heart":[]}`, string(stored))
}

func TestArchive_SaveDayFailures(t *testing.T) {
	ctx := context.Background()
	archive := NewArchive(NewMemoryStore())

	tests := []struct {
		name string
		date string
		raw  string
	}{
		{name: "bad date", date: "23/06/2021", raw: `{}`},
		{name: "path in date", date: "../2021-06-23", raw: `{}`},
		{name: "invalid json", date: "2021-06-23", raw: `{"activities-heart":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := archive.SaveDay(ctx, tt.date, []byte(tt.raw))
			assert.ErrorIs(t, err, ErrPersistence)
		})
	}
}

func TestArchive_LoadDayMissing(t *testing.T) {
	_, err := NewArchive(NewMemoryStore()).LoadDay(context.Background(), "2021-06-23")
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, ErrNotFound)
}
