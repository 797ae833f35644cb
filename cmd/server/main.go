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

	"dagtemplate/internal/catalog"
	"dagtemplate/internal/config"
	"dagtemplate/internal/ledger"
	"dagtemplate/internal/security"
	"dagtemplate/internal/server"
	"dagtemplate/internal/storage"
)

func main() {
	configPath := flag.String("config", "dagtemplate.properties", "path to the properties file")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg := config.LoadConfig(*configPath)
	if port := os.Getenv("PORT"); port != "" {
		cfg.ServerAddr = ":" + port
	}

	reg := catalog.Default()
	store := storage.NewDefinitionStore(cfg.DagsDir)
	n, err := reg.LoadFrom(store)
	if err != nil {
		slog.Error("Failed to load definitions", "dir", cfg.DagsDir, "error", err)
		os.Exit(1)
	}
	slog.Info("Loaded definitions", "dir", cfg.DagsDir, "scanned", n, "registered", reg.Len())

	led, err := ledger.Open(cfg.LedgerPath)
	if err != nil {
		slog.Error("Cannot open ledger", "path", cfg.LedgerPath, "error", err)
		os.Exit(1)
	}
	slog.Info("Opened ledger", "path", cfg.LedgerPath, "entries", led.NextIndex())

	kp, err := security.LoadKeyPair(cfg.KeysDir)
	switch {
	case err == nil:
		led.Trust(kp.Public)
	case errors.Is(err, os.ErrNotExist) && led.NextIndex() == 0:
		slog.Info("No ledger keys yet, ledger is empty", "dir", cfg.KeysDir)
	default:
		slog.Error("Cannot load trusted ledger key", "dir", cfg.KeysDir, "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           server.New(reg, led, cfg.CacheTTL).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("Definition server running", "addr", cfg.ServerAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Graceful shutdown failed", "error", err)
	}
	slog.Info("Definition server stopped")
}
