package scheduler

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTargetDate(t *testing.T) {
	london, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)

	tests := []struct {
		name string
		now  time.Time
		want string
	}{
		{name: "mid year", now: time.Date(2021, 6, 24, 6, 0, 0, 0, time.UTC), want: "2021-06-23"},
		{name: "new year", now: time.Date(2021, 1, 1, 0, 0, 1, 0, time.UTC), want: "2020-12-31"},
		{name: "leap day", now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), want: "2024-02-29"},
		{name: "just before midnight", now: time.Date(2021, 6, 24, 23, 59, 59, 0, time.UTC), want: "2021-06-23"},
		{name: "day after spring forward", now: time.Date(2021, 3, 29, 0, 30, 0, 0, london), want: "2021-03-28"},
		{name: "day after fall back", now: time.Date(2021, 11, 1, 0, 30, 0, 0, london), want: "2021-10-31"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TargetDate(tt.now)
			assert.Equal(t, tt.want, got.Format("2006-01-02"))
			assert.Equal(t, tt.now.Location(), got.Location())
		})
	}
}

func TestTargetDate_UsesLocation(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	// 2021-06-23T20:00Z is already the 24th in Tokyo.
	now := time.Date(2021, 6, 23, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, "2021-06-22", TargetDate(now).Format("2006-01-02"))
	assert.Equal(t, "2021-06-23", TargetDate(now.In(tokyo)).Format("2006-01-02"))
}
