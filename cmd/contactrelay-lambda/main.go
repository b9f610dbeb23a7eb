// Command contactrelay-lambda serves the contact relay API behind an AWS
// API Gateway HTTP API (payload format 2.0).
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	lambdaadapter "github.com/Strob0t/contactrelay/internal/adapter/lambda"
	"github.com/Strob0t/contactrelay/internal/app"
	"github.com/Strob0t/contactrelay/internal/config"
	"github.com/Strob0t/contactrelay/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}

	// Async logging would lose records when the runtime freezes the sandbox.
	cfg.Logging.Async = false
	log, _ := logger.New(cfg.Logging)
	slog.SetDefault(log)

	a, err := app.Build(context.Background(), cfg)
	if err != nil {
		slog.Error("build", "error", err)
		os.Exit(1)
	}

	lambda.Start(lambdaadapter.New(a.Handler).Invoke)
}
