package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// maxCronSearch bounds Next for schedules that can never fire, such as
// "0 0 30 2 *".
const maxCronSearch = 5 * 366 * 24 * time.Hour

var cronAliases = map[string]string{
	"@yearly":   "0 0 1 1 *",
	"@annually": "0 0 1 1 *",
	"@monthly":  "0 0 1 * *",
	"@weekly":   "0 0 * * 0",
	"@daily":    "0 0 * * *",
	"@midnight": "0 0 * * *",
	"@hourly":   "0 * * * *",
}

// CronSchedule represents a parsed cron schedule (minute, hour, day, month, weekday)
type CronSchedule struct {
	Minute  map[int]bool // 0-59
	Hour    map[int]bool // 0-23
	Day     map[int]bool // 1-31
	Month   map[int]bool // 1-12
	Weekday map[int]bool // 0-6 (Sunday=0)

	// Standard cron matches either day field when both are restricted.
	dayRestricted     bool
	weekdayRestricted bool
	expr              string
}

// ParseCron parses a 5-field cron expression or one of the @daily style
// aliases into a CronSchedule.
func ParseCron(expr string) (*CronSchedule, error) {
	expr = strings.TrimSpace(expr)
	if alias, ok := cronAliases[strings.ToLower(expr)]; ok {
		expr = alias
	}

	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return nil, fmt.Errorf("invalid cron expression: expected 5 fields, got %d", len(fields))
	}
	minute, err := parseCronField(fields[0], 0, 59)
	if err != nil {
		return nil, fmt.Errorf("minute: %w", err)
	}
	hour, err := parseCronField(fields[1], 0, 23)
	if err != nil {
		return nil, fmt.Errorf("hour: %w", err)
	}
	day, err := parseCronField(fields[2], 1, 31)
	if err != nil {
		return nil, fmt.Errorf("day: %w", err)
	}
	month, err := parseCronField(fields[3], 1, 12)
	if err != nil {
		return nil, fmt.Errorf("month: %w", err)
	}
	weekday, err := parseCronField(fields[4], 0, 6)
	if err != nil {
		return nil, fmt.Errorf("weekday: %w", err)
	}
	return &CronSchedule{
		Minute:            minute,
		Hour:              hour,
		Day:               day,
		Month:             month,
		Weekday:           weekday,
		dayRestricted:     !strings.HasPrefix(fields[2], "*"),
		weekdayRestricted: !strings.HasPrefix(fields[4], "*"),
		expr:              strings.Join(fields, " "),
	}, nil
}

// parseCronField parses a single cron field: *, single values, lists,
// ranges and steps (*/15, 0-30/10).
func parseCronField(field string, min, max int) (map[int]bool, error) {
	result := make(map[int]bool)
	for _, part := range strings.Split(field, ",") {
		step := 1
		if base, s, ok := strings.Cut(part, "/"); ok {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 {
				return nil, fmt.Errorf("invalid step: %s", part)
			}
			step = n
			part = base
		}

		start, end := min, max
		switch {
		case part == "*":
		case strings.Contains(part, "-"):
			rangeParts := strings.Split(part, "-")
			if len(rangeParts) != 2 {
				return nil, fmt.Errorf("invalid range: %s", part)
			}
			var err1, err2 error
			start, err1 = strconv.Atoi(rangeParts[0])
			end, err2 = strconv.Atoi(rangeParts[1])
			if err1 != nil || err2 != nil || start > end || start < min || end > max {
				return nil, fmt.Errorf("invalid range: %s", part)
			}
		default:
			val, err := strconv.Atoi(part)
			if err != nil || val < min || val > max {
				return nil, fmt.Errorf("invalid value: %s", part)
			}
			start = val
			if step == 1 {
				end = val
			}
		}

		for i := start; i <= end; i += step {
			result[i] = true
		}
	}
	return result, nil
}

// String returns the normalized expression.
func (c *CronSchedule) String() string {
	return c.expr
}

func (c *CronSchedule) matchesDay(t time.Time) bool {
	day := c.Day[t.Day()]
	weekday := c.Weekday[int(t.Weekday())]
	if c.dayRestricted && c.weekdayRestricted {
		return day || weekday
	}
	return day && weekday
}

// Next returns the next time after 'after' that matches the schedule, in
// after's location. It returns the zero time if nothing matches within
// five years.
func (c *CronSchedule) Next(after time.Time) time.Time {
	t := after.Truncate(time.Minute).Add(time.Minute)
	limit := after.Add(maxCronSearch)
	for t.Before(limit) {
		if !c.Month[int(t.Month())] {
			y, m, _ := t.Date()
			t = time.Date(y, m+1, 1, 0, 0, 0, 0, t.Location())
			continue
		}
		if !c.matchesDay(t) {
			y, m, d := t.Date()
			t = time.Date(y, m, d+1, 0, 0, 0, 0, t.Location())
			continue
		}
		if !c.Hour[t.Hour()] {
			y, m, d := t.Date()
			t = time.Date(y, m, d, t.Hour()+1, 0, 0, 0, t.Location())
			continue
		}
		if !c.Minute[t.Minute()] {
			t = t.Add(time.Minute)
			continue
		}
		return t
	}
	return time.Time{}
}
