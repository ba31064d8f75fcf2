// Command refresh-token exchanges the stored refresh token for a new token
// and saves it.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"heartrate-go/internal/app"
	"heartrate-go/internal/logger"
)

func main() {
	configPath := flag.String("config", "", "path to a JSON config file")
	envFile := flag.String("env", "", "path to a .env file (default .env when present)")
	flag.Parse()

	if err := run(*configPath, *envFile); err != nil {
		slog.Error("refresh-token failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath, envFile string) error {
	cfg, err := app.LoadConfig(envFile, configPath)
	if err != nil {
		return err
	}
	log := logger.NewWithWriter(os.Stderr, cfg.LogLevel, false)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer application.Close()

	current, err := application.Tokens.Load(ctx)
	if err != nil {
		return err
	}
	refreshed, err := application.Auth.Refresh(ctx, current)
	if err != nil {
		return err
	}
	if err := application.Tokens.Save(ctx, refreshed); err != nil {
		return err
	}

	fmt.Printf("Token refreshed, expires in %s\n", refreshed.ExpiresIn)
	return nil
}
