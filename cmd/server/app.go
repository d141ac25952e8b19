package main

import (
	"context"
	"net/http"

	"github.com/diewo77/go-devis/internal/ai"
	"github.com/diewo77/go-devis/internal/clock"
	"github.com/diewo77/go-devis/internal/config"
	"github.com/diewo77/go-devis/internal/db"
	"github.com/diewo77/go-devis/internal/form"
	"github.com/diewo77/go-devis/internal/handlers"
	"github.com/diewo77/go-devis/internal/notify"
	"github.com/diewo77/go-devis/internal/pdf"
	"github.com/diewo77/go-devis/internal/services"
	"go.uber.org/zap"
)

// App wires the quote components together and serves the local API.
type App struct {
	store   *db.Store
	service *services.QuoteService
	handler http.Handler
}

// NewApp builds every component from cfg. Storage is opened by the first
// operation that needs it.
func NewApp(cfg *config.Config, log *zap.Logger) *App {
	clk := clock.Real()
	store := db.New(cfg.Storage, log, clk)

	assist := ai.New(ai.Config{
		BaseURL:    cfg.AI.BaseURL,
		Timeout:    cfg.AI.Timeout,
		Attempts:   cfg.AI.Attempts,
		RetryDelay: cfg.AI.RetryDelay,
	}, log)

	recorder := notify.NewRecorder(0)
	notifiers := notify.Multi{notify.NewLog(log), recorder}
	if cfg.App.DesktopNotify {
		notifiers = append(notifiers, notify.NewDesktop(cfg.App.CompanyName, log))
	}

	svc := services.NewQuoteService(services.Options{
		Store:    store,
		Form:     form.New(clk),
		Assist:   assist,
		Renderer: pdf.New(pdf.Company{Name: cfg.App.CompanyName, Tagline: cfg.App.CompanyTagline}, clk),
		Notifier: notifiers,
		Lang:     cfg.App.Lang,
		Logger:   log,
		Now:      clk.Now,
	})

	h := handlers.NewQuoteHandler(svc, recorder, cfg.App.Lang, log)
	return &App{
		store:   store,
		service: svc,
		handler: handlers.NewRouter(h, log),
	}
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.handler.ServeHTTP(w, r)
}

// Warmup opens the store and probes the AI backend, logging what it finds.
func (a *App) Warmup(ctx context.Context, log *zap.Logger) {
	if err := a.store.Open(ctx); err != nil {
		log.Warn("storage not available yet", zap.Error(err))
	} else if v, err := a.store.SchemaVersion(); err == nil {
		log.Info("storage ready", zap.Uint("schema_version", v))
	}
	log.Info("ai backend", zap.Bool("available", a.service.AIAvailable(ctx)))
}

func (a *App) Close() error {
	return a.store.Close()
}
