package fitbit

import (
	"encoding/json"
	"fmt"
	"io"

	"heartrate-go/pkg/models"
)

type heartResponse struct {
	Intraday *intradaySeries `json:"activities-heart-intraday"`
}

type intradaySeries struct {
	Dataset []models.HeartRateReading `json:"dataset"`
}

// ParseIntraday extracts the readings from a heart-rate response, in the
// order the API returned them.
func ParseIntraday(body []byte) ([]models.HeartRateReading, error) {
	var resp heartResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse response: %w", ErrFetch, err)
	}
	if resp.Intraday == nil {
		return nil, fmt.Errorf("%w: response has no activities-heart-intraday section", ErrFetch)
	}
	if resp.Intraday.Dataset == nil {
		return []models.HeartRateReading{}, nil
	}
	return resp.Intraday.Dataset, nil
}

// WriteCSV renders readings as "time, heartrate" rows. The separator is a
// comma followed by a space, which is why encoding/csv is not used.
func WriteCSV(w io.Writer, readings []models.HeartRateReading) error {
	if _, err := io.WriteString(w, "time, heartrate\n"); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, r := range readings {
		if _, err := fmt.Fprintf(w, "%s, %d\n", r.Time, r.Value); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	return nil
}
