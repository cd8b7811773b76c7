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
	"time"

	"github.com/mmynk/evensplit/internal/api"
	"github.com/mmynk/evensplit/internal/config"
	"github.com/mmynk/evensplit/internal/ledger"
	"github.com/mmynk/evensplit/internal/metrics"
	"github.com/mmynk/evensplit/internal/service"
	"github.com/mmynk/evensplit/internal/storage/sqlite"
	"github.com/mmynk/evensplit/pkg/logging"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	logging.SetupWith(logging.ParseLevel(cfg.Log.Level), cfg.Log.Format)

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DBPath)

	engine := ledger.New()
	if err := rebuildLedger(context.Background(), store, engine); err != nil {
		slog.Error("Failed to rebuild ledger from history", "error", err)
		os.Exit(1)
	}

	srv := api.NewServer(
		service.NewBillService(store, engine),
		service.NewSettlementService(store, engine, cfg.Settlement.AllowOverpayment),
		service.NewAnalyticsService(store),
		engine,
		store,
	)

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: srv.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server starting", "address", cfg.ListenAddr)
		errCh <- httpServer.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	case sig := <-stop:
		slog.Info("Shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			slog.Error("Graceful shutdown failed", "error", err)
			os.Exit(1)
		}
	}
	slog.Info("Server stopped")
}

// rebuildLedger replays all persisted bills and settlements into the
// in-memory engine, then cross-checks the result against the materialized
// pair balances. A mismatch means the write path and the history diverged,
// which is not recoverable at runtime.
func rebuildLedger(ctx context.Context, store *sqlite.SQLiteStore, engine *ledger.Engine) error {
	bills, settlements, err := store.History(ctx)
	if err != nil {
		return err
	}

	start := time.Now()
	if err := engine.RecomputeAll(bills, settlements); err != nil {
		return err
	}
	metrics.RecomputeDuration.Observe(time.Since(start).Seconds())
	slog.Info("Ledger rebuilt", "bills", len(bills), "settlements", len(settlements))

	materialized, err := store.PairBalances(ctx)
	if err != nil {
		return err
	}
	for _, d := range materialized {
		got := engine.PairBalance(d.Pair.Low, d.Pair.High)
		if got.Amount != d.Amount {
			return errors.New("materialized balance for " + d.Pair.Low + "/" + d.Pair.High + " disagrees with replayed history")
		}
	}
	return nil
}
