// cmd/chaos/main.go
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"golang.org/x/time/rate"

	"librarium/internal/chaos"
	"librarium/internal/config"
	"librarium/internal/library"
	"librarium/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	tp, shutdown, err := telemetry.Setup(ctx, cfg.ServiceName+"-chaos", cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("Failed to set up tracing: %v", err)
	}
	defer shutdown(ctx)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	opts := []library.Option{
		library.WithLogger(logger.With(slog.String("component", "library"))),
		library.WithTracerProvider(tp),
	}
	maxLogins := 50
	if cfg.LoginRatePerMinute > 0 {
		limit := rate.Every(time.Minute / time.Duration(cfg.LoginRatePerMinute))
		opts = append(opts, library.WithLoginLimiter(rate.NewLimiter(limit, cfg.LoginBurst)))
		// The flood lasts a few seconds at most; allow one refill on top of the burst.
		maxLogins = cfg.LoginBurst + 1
	}
	lib := library.New(cfg.LibraryName, opts...)

	engine := chaos.NewEngine(chaos.WithLogger(logger), chaos.WithTracerProvider(tp))
	if err := engine.RegisterLibraryExperiments(ctx, lib, maxLogins); err != nil {
		log.Fatalf("Failed to prepare experiments: %v", err)
	}

	gameDay := chaos.GameDay{
		Name:      "Library Chaos Game Day",
		Date:      time.Now(),
		Scenarios: engine.Experiments(),
	}
	if err := engine.ExecuteGameDay(ctx, os.Stdout, gameDay); err != nil {
		log.Fatalf("Chaos Game Day failed: %v", err)
	}
}
