// Command new-token runs the interactive authorization-code flow and saves
// the resulting token, replacing any stored one.
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
	"heartrate-go/internal/auth"
	"heartrate-go/internal/logger"
)

func main() {
	var (
		configPath   string
		envFile      string
		listenAddr   string
		callbackPath string
	)
	flag.StringVar(&configPath, "config", "", "path to a JSON config file")
	flag.StringVar(&envFile, "env", "", "path to a .env file (default .env when present)")
	flag.StringVar(&listenAddr, "listen", "", "capture the code with a local callback listener on this address instead of reading it from stdin")
	flag.StringVar(&callbackPath, "callback-path", "/callback", "path the provider redirects to when -listen is set")
	flag.Parse()

	if err := run(configPath, envFile, listenAddr, callbackPath); err != nil {
		slog.Error("new-token failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath, envFile, listenAddr, callbackPath string) error {
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

	prompt := auth.StdinPrompt(os.Stdin, os.Stdout)
	if listenAddr != "" {
		prompt = auth.CallbackPrompt(listenAddr, callbackPath, os.Stdout, log)
	}

	record, err := application.Auth.Authorize(ctx, prompt)
	if err != nil {
		return err
	}
	if err := application.Tokens.Save(ctx, record); err != nil {
		return err
	}

	fmt.Printf("Token saved to %s\n", application.Tokens.Key())
	return nil
}
