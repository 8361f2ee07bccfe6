// cmd/library/main.go
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"librarium/internal/config"
	"librarium/internal/library"
	"librarium/internal/seed"
	"librarium/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, shutdownTracing, err := telemetry.Setup(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("Failed to set up tracing: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	opts := []library.Option{
		library.WithLogger(logger),
		library.WithTracerProvider(tp),
	}
	if cfg.LoginRatePerMinute > 0 {
		limit := rate.Every(time.Minute / time.Duration(cfg.LoginRatePerMinute))
		opts = append(opts, library.WithLoginLimiter(rate.NewLimiter(limit, cfg.LoginBurst)))
	}
	lib := library.New(cfg.LibraryName, opts...)

	if cfg.SeedFile != "" {
		res, err := seed.LoadFile(ctx, cfg.SeedFile, lib)
		if err != nil {
			log.Fatalf("Failed to seed library: %v", err)
		}
		logger.Info("library seeded", slog.Int("books", len(res.Books)), slog.Int("users", len(res.Users)))
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           library.NewRouter(lib),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", slog.Any("error", err))
		}
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Error("tracer shutdown failed", slog.Any("error", err))
		}
	}()

	logger.Info("library server listening", slog.String("addr", cfg.HTTPAddr), slog.String("library", cfg.LibraryName))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server failed: %v", err)
	}
}
