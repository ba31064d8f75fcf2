// Package scheduler runs the daily collect job, either once or on a cron
// schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"heartrate-go/internal/auth"
	"heartrate-go/internal/fitbit"
	"heartrate-go/internal/metrics"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "heartrate-go/internal/scheduler"

// TokenRepository loads and saves the single token record.
type TokenRepository interface {
	Load(ctx context.Context) (auth.TokenRecord, error)
	Save(ctx context.Context, record auth.TokenRecord) error
}

// TokenRefresher exchanges a refresh token and builds authenticated clients.
type TokenRefresher interface {
	Refresh(ctx context.Context, current auth.TokenRecord) (auth.TokenRecord, error)
	HTTPClient(ctx context.Context, record auth.TokenRecord) *http.Client
}

// DayArchiver persists one raw response per calendar day.
type DayArchiver interface {
	SaveDay(ctx context.Context, date string, raw []byte) (string, int, error)
}

// FetchOptions configures the heart-rate client built for each run.
type FetchOptions struct {
	BaseURL     string
	DetailLevel string
	Timeout     time.Duration
}

// RunResult describes a successful collect run.
type RunResult struct {
	RunID string
	Date  string
	Key   string
	Bytes int
}

// CollectJob refreshes the stored token and archives yesterday's heart-rate
// data. Each step must succeed before the next starts.
type CollectJob struct {
	tokens    TokenRepository
	refresher TokenRefresher
	archive   DayArchiver
	fetch     FetchOptions
	location  *time.Location
	logger    *slog.Logger
	tracer    trace.Tracer
}

// NewCollectJob creates a new CollectJob. The target date is computed in
// location; nil means time.Local.
func NewCollectJob(
	tokens TokenRepository,
	refresher TokenRefresher,
	archive DayArchiver,
	fetch FetchOptions,
	location *time.Location,
	logger *slog.Logger,
) *CollectJob {
	if location == nil {
		location = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CollectJob{
		tokens:    tokens,
		refresher: refresher,
		archive:   archive,
		fetch:     fetch,
		location:  location,
		logger:    logger,
		tracer:    otel.Tracer(tracerName),
	}
}

// Run executes one collect cycle for the day before now.
func (j *CollectJob) Run(ctx context.Context, now time.Time) (RunResult, error) {
	runID := uuid.NewString()
	logger := j.logger.With("run_id", runID)

	ctx, span := j.tracer.Start(ctx, "collect.run", trace.WithAttributes(attribute.String("run.id", runID)))
	defer span.End()

	metrics.RunsInFlight.Inc()
	defer metrics.RunsInFlight.Dec()

	logger.InfoContext(ctx, "collect run started")
	start := time.Now()
	result, err := j.run(ctx, logger, now)
	result.RunID = runID
	elapsed := time.Since(start)

	metrics.RunDuration.Observe(elapsed.Seconds())
	metrics.RunsTotal.WithLabelValues(metrics.Status(err)).Inc()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.ErrorContext(ctx, "collect run failed", "error", err, "duration", elapsed)
		return result, err
	}

	metrics.LastSuccess.SetToCurrentTime()
	span.SetAttributes(attribute.String("collect.date", result.Date), attribute.Int("collect.bytes", result.Bytes))
	logger.InfoContext(ctx, "collect run finished",
		"date", result.Date, "key", result.Key, "bytes", result.Bytes, "duration", elapsed)
	return result, nil
}

func (j *CollectJob) run(ctx context.Context, logger *slog.Logger, now time.Time) (RunResult, error) {
	// 1. Load the stored token
	var current auth.TokenRecord
	err := j.step(ctx, "token.load", func(ctx context.Context) error {
		var err error
		current, err = j.tokens.Load(ctx)
		return err
	})
	if err != nil {
		return RunResult{}, fmt.Errorf("failed to load token: %w", err)
	}

	// 2. Refresh it, whatever its expiry says
	var refreshed auth.TokenRecord
	err = j.step(ctx, "token.refresh", func(ctx context.Context) error {
		var err error
		refreshed, err = j.refresher.Refresh(ctx, current)
		metrics.TokenRefreshTotal.WithLabelValues(metrics.Status(err)).Inc()
		return err
	})
	if err != nil {
		return RunResult{}, fmt.Errorf("failed to refresh token: %w", err)
	}

	// 3. Persist before use so a rotated refresh token is never lost
	err = j.step(ctx, "token.save", func(ctx context.Context) error {
		return j.tokens.Save(ctx, refreshed)
	})
	if err != nil {
		return RunResult{}, fmt.Errorf("failed to save token: %w", err)
	}
	logger.DebugContext(ctx, "token refreshed and saved", "expires_in", refreshed.ExpiresIn)

	// 4. Work out which day to collect
	date := TargetDate(now.In(j.location))
	result := RunResult{Date: date.Format(fitbit.DateLayout)}

	// 5. Fetch the raw response
	var raw []byte
	err = j.step(ctx, "fitbit.fetch", func(ctx context.Context) error {
		httpClient := j.refresher.HTTPClient(ctx, refreshed)
		if j.fetch.Timeout > 0 {
			httpClient.Timeout = j.fetch.Timeout
		}
		client := fitbit.NewClient(httpClient, j.fetch.BaseURL, j.fetch.DetailLevel, logger)
		var err error
		raw, err = client.FetchRaw(ctx, date)
		return err
	})
	if err != nil {
		return result, fmt.Errorf("failed to fetch %s: %w", result.Date, err)
	}

	if readings, err := fitbit.ParseIntraday(raw); err != nil {
		logger.WarnContext(ctx, "response has no readable intraday dataset", "date", result.Date, "error", err)
	} else {
		metrics.ReadingsFetched.Set(float64(len(readings)))
		logger.InfoContext(ctx, "fetched readings", "date", result.Date, "count", len(readings))
	}

	// 6. Archive it
	err = j.step(ctx, "archive.save", func(ctx context.Context) error {
		var err error
		result.Key, result.Bytes, err = j.archive.SaveDay(ctx, result.Date, raw)
		return err
	})
	if err != nil {
		return result, fmt.Errorf("failed to archive %s: %w", result.Date, err)
	}

	return result, nil
}

// step runs fn inside a child span.
func (j *CollectJob) step(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := j.tracer.Start(ctx, name)
	defer span.End()

	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}
