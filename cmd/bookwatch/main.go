package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/QasimSalemm/bitget-spot-orders-book/internal/app"
	"github.com/QasimSalemm/bitget-spot-orders-book/internal/infra"
	"github.com/QasimSalemm/bitget-spot-orders-book/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to the yaml config file")
	flag.Parse()

	path := *configPath
	if path == "" {
		// Pick up a config.yaml next to the binary when present.
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}

	cfg, err := infra.LoadConfig(path)
	if err != nil {
		slog.Error("❌ Config load failed", slog.Any("error", err), slog.String("path", path))
		os.Exit(1)
	}

	slog.SetDefault(infra.NewLogger(cfg))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracker := app.NewTracker(cfg)
	tracker.Start()
	defer tracker.Stop()
	slog.InfoContext(ctx, "✅ Tracker started",
		slog.String("symbol", cfg.Bitget.Symbol),
		slog.Int("topN", cfg.Book.TopN))

	api := server.New(cfg.Server.Addr, tracker)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return api.Run(ctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("api server failed", slog.Any("error", err))
		os.Exit(1)
	}

	slog.Info("👋 Shutting down gracefully...")
}
