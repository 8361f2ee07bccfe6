// cmd/demo/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"

	"librarium/internal/demo"
	"librarium/internal/library"
)

func main() {
	scenario := flag.String("scenario", "all", "session to replay: transfer, ledger or all")
	verbose := flag.Bool("v", false, "log every library operation to stderr")
	flag.Parse()

	var handler slog.Handler = slog.NewTextHandler(io.Discard, nil)
	if *verbose {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
				if a.Key == slog.TimeKey {
					return slog.Attr{}
				}
				return a
			},
		})
	}
	logOpt := library.WithLogger(slog.New(handler))

	ctx := context.Background()
	runs := map[string]func(context.Context, io.Writer, ...library.Option) error{
		"transfer": demo.RunTransfer,
		"ledger":   demo.RunLedger,
	}

	switch *scenario {
	case "all":
		if err := demo.RunTransfer(ctx, os.Stdout, logOpt); err != nil {
			log.Fatalf("Transfer session failed: %v", err)
		}
		fmt.Println()
		if err := demo.RunLedger(ctx, os.Stdout, logOpt); err != nil {
			log.Fatalf("Ledger session failed: %v", err)
		}
	default:
		run, ok := runs[*scenario]
		if !ok {
			log.Fatalf("Unknown scenario %q", *scenario)
		}
		if err := run(ctx, os.Stdout, logOpt); err != nil {
			log.Fatalf("Session failed: %v", err)
		}
	}
}
