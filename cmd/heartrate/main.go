// Command heartrate writes one day of intraday heart-rate readings as CSV,
// either fetched with the stored token or read back from the archive.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"heartrate-go/internal/app"
	"heartrate-go/internal/fitbit"
	"heartrate-go/internal/logger"
	"heartrate-go/internal/scheduler"
	"heartrate-go/pkg/models"
)

type options struct {
	configPath string
	envFile    string
	date       string
	out        string
	archived   bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "path to a JSON config file")
	flag.StringVar(&opts.envFile, "env", "", "path to a .env file (default .env when present)")
	flag.StringVar(&opts.date, "date", "", "day to export as YYYY-MM-DD (default yesterday)")
	flag.StringVar(&opts.out, "out", "heart.csv", `output file, "-" for stdout`)
	flag.BoolVar(&opts.archived, "archived", false, "read the day from the archive instead of the API")
	flag.Parse()

	if err := run(opts); err != nil {
		slog.Error("heartrate failed", "error", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	cfg, err := app.LoadConfig(opts.envFile, opts.configPath)
	if err != nil {
		return err
	}
	log := logger.NewWithWriter(os.Stderr, cfg.LogLevel, false)
	location, err := cfg.Location()
	if err != nil {
		return err
	}

	date, err := resolveDate(opts.date, time.Now().In(location))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer application.Close()

	var raw []byte
	if opts.archived {
		raw, err = application.Archive.LoadDay(ctx, date.Format(fitbit.DateLayout))
	} else {
		raw, err = fetch(ctx, application, date)
	}
	if err != nil {
		return err
	}

	readings, err := fitbit.ParseIntraday(raw)
	if err != nil {
		return err
	}

	if err := writeOutput(opts.out, readings); err != nil {
		return err
	}

	log.Info("wrote readings", "date", date.Format(fitbit.DateLayout), "count", len(readings), "out", opts.out)
	return nil
}

// writeOutput writes readings as CSV to path, or to stdout when path is "-".
// A failed close is reported since it can lose buffered rows.
func writeOutput(path string, readings []models.HeartRateReading) (err error) {
	if path == "-" {
		return fitbit.WriteCSV(os.Stdout, readings)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()
	return fitbit.WriteCSV(f, readings)
}

// fetch calls the API with the stored access token as-is; it does not
// refresh it.
func fetch(ctx context.Context, application *app.Application, date time.Time) ([]byte, error) {
	record, err := application.Tokens.Load(ctx)
	if err != nil {
		return nil, err
	}
	httpClient := application.Auth.HTTPClient(ctx, record)
	httpClient.Timeout = application.Config.HTTPTimeout.Duration
	client := fitbit.NewClient(httpClient, application.Config.Fitbit.BaseURL, application.Config.Fitbit.DetailLevel, application.Logger)
	return client.FetchRaw(ctx, date)
}

func resolveDate(value string, now time.Time) (time.Time, error) {
	if value == "" {
		return scheduler.TargetDate(now), nil
	}
	date, err := time.ParseInLocation(fitbit.DateLayout, value, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid -date %q: %w", value, err)
	}
	return date, nil
}
