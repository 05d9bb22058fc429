package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"expensepool/internal/cli"
	"expensepool/internal/fakeapi"
	"expensepool/internal/log"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := cli.LoadEnvFile(); err != nil {
		return err
	}
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return fmt.Errorf("configuration: %w", err)
	}
	logger := cli.SetupLogger(os.Stdout, cfg.LogLevel).WithComponent(log.ComponentFakeAPI)

	srv := fakeapi.NewServer(":"+cfg.Port, fakeapi.NewStore(), logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		m := srv.Metrics()
		logger.Info("Request totals",
			"requests", m.TotalRequests,
			"client_errors", m.ClientErrors,
			"server_errors", m.ServerErrors)
	})

	logger.Info("Starting development API", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve on port %s: %w", cfg.Port, err)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
	return nil
}
