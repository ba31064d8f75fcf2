package scheduler

import "time"

// TargetDate returns midnight of the calendar day before now, in now's
// location. The date is computed from the calendar fields rather than by
// subtracting 24 hours, so DST transitions never skip or repeat a day.
func TargetDate(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d-1, 0, 0, 0, 0, now.Location())
}
