package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"portfolio-server/internal/app"
)

func main() {
	runtime, err := app.Build(app.Options{
		LoadDotEnv:    true,
		RunMigrations: app.EnvBoolOrDefault("RUN_MIGRATIONS_ON_STARTUP", true),
	})
	if err != nil {
		os.Stderr.WriteString("bootstrap failed: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = runtime.Close() }()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           runtime.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		runtime.Logger.Info("server_start", map[string]any{"addr": server.Addr})
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			runtime.Logger.Error("server_failed", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
	case sig := <-stop:
		runtime.Logger.Info("server_shutdown", map[string]any{"signal": sig.String()})
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			runtime.Logger.Error("server_shutdown_failed", map[string]any{"error": err.Error()})
		}
	}
}
