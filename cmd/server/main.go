package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diewo77/go-devis/internal/config"
	"github.com/diewo77/go-devis/internal/logger"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var migrateOnlyFlag = flag.Bool("migrate-only", false, "Open the quote database, apply the schema and exit")

func main() {
	flag.Parse()

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg := config.Load()

	log, err := logger.New(logger.Options{Level: cfg.App.LogLevel, Dev: cfg.App.Dev})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	app := NewApp(cfg, log)
	defer func() {
		if err := app.Close(); err != nil {
			log.Warn("close storage", zap.Error(err))
		}
	}()

	if *migrateOnlyFlag {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := app.store.Open(ctx); err != nil {
			log.Fatal("migration failed", zap.Error(err))
		}
		log.Info("migrations completed", zap.String("path", cfg.Storage.Path()))
		return
	}

	warmCtx, cancelWarm := context.WithTimeout(context.Background(), 10*time.Second)
	app.Warmup(warmCtx, log)
	cancelWarm()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      app,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("server starting", zap.String("port", cfg.Server.Port), zap.Bool("dev", cfg.App.Dev))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("error during shutdown", zap.Error(err))
	}
	log.Info("server stopped gracefully")
}
