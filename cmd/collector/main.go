// Command collector archives yesterday's heart-rate data. With -once it
// runs a single collection and exits non-zero on failure; otherwise it runs
// the cron loop and the HTTP surface until it receives SIGINT or SIGTERM.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"heartrate-go/internal/app"
	"heartrate-go/internal/config"
	"heartrate-go/internal/logger"

	"github.com/appleboy/graceful"
	"github.com/gin-gonic/gin"
)

func main() {
	configPath := flag.String("config", "", "path to a JSON config file")
	envFile := flag.String("env", "", "path to a .env file (default .env when present)")
	once := flag.Bool("once", false, "run a single collection and exit")
	flag.Parse()

	cfg, err := app.LoadConfig(*envFile, *configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	if *once {
		if err := runOnce(cfg, log); err != nil {
			os.Exit(1)
		}
		return
	}

	gin.SetMode(gin.ReleaseMode)
	application, err := app.New(context.Background(), cfg, log)
	if err != nil {
		log.Error("failed to create application", "error", err)
		os.Exit(1)
	}

	m := graceful.NewManager()
	m.AddRunningJob(func(ctx context.Context) error {
		return application.Scheduler.Run(ctx)
	})
	m.AddRunningJob(func(ctx context.Context) error {
		return application.Serve(ctx)
	})
	m.AddShutdownJob(func() error {
		log.Info("shutdown signal received")
		return nil
	})

	<-m.Done()

	if err := application.Close(); err != nil {
		log.Error("failed to close application", "error", err)
	}
	log.Info("collector stopped")
}

func runOnce(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to create application", "error", err)
		return err
	}
	defer application.Close()

	// The run logs its own outcome.
	_, err = application.RunOnce(ctx, time.Now())
	return err
}
