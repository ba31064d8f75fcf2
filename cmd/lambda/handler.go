package main

import (
	"context"
	"log/slog"
	"time"

	"heartrate-go/internal/scheduler"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
)

// Response is returned to the invoker on success.
type Response struct {
	RunID string `json:"run_id"`
	Date  string `json:"date"`
	Key   string `json:"key"`
	Bytes int    `json:"bytes"`
}

type runner interface {
	RunOnce(ctx context.Context, now time.Time) (scheduler.RunResult, error)
}

type handler struct {
	app    runner
	logger *slog.Logger
	now    func() time.Time
}

func newHandler(app runner, logger *slog.Logger) *handler {
	return &handler{app: app, logger: logger, now: time.Now}
}

// Handle runs one collection. The scheduled event's time is used as "now" so
// a retried invocation still collects the day it was scheduled for. Any
// error fails the invocation.
func (h *handler) Handle(ctx context.Context, event events.CloudWatchEvent) (Response, error) {
	now := h.now()
	if !event.Time.IsZero() {
		now = event.Time
	}

	logger := h.logger
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		logger = logger.With("aws_request_id", lc.AwsRequestID)
	}
	logger.InfoContext(ctx, "invocation started", "event_id", event.ID, "event_time", now)

	result, err := h.app.RunOnce(ctx, now)
	if err != nil {
		return Response{}, err
	}
	return Response{RunID: result.RunID, Date: result.Date, Key: result.Key, Bytes: result.Bytes}, nil
}
