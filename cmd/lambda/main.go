// Command lambda runs the collect job as an AWS Lambda function, typically
// invoked by an EventBridge schedule.
package main

import (
	"context"
	"log/slog"
	"os"

	"heartrate-go/internal/app"
	"heartrate-go/internal/config"
	"heartrate-go/internal/logger"

	"github.com/aws/aws-lambda-go/lambda"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log := logger.NewWithWriter(os.Stdout, cfg.LogLevel, true)

	// Built once per execution environment and reused across invocations.
	application, err := app.New(context.Background(), cfg, log)
	if err != nil {
		log.Error("failed to create application", "error", err)
		os.Exit(1)
	}

	lambda.Start(newHandler(application, log).Handle)
}
