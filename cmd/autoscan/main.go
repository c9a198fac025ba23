// Command autoscan is the vehicle listings backend.
//
// On startup it acquires the SQLite database (archive > download > existing),
// bootstraps the listings_fresh read surface for the configured mode, and
// serves the comps and price-estimate API. In live mode with SCRAPE_SOURCES
// set it also runs the interval scraper.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Fojtik82/autoscan-backend/acquire"
	"github.com/Fojtik82/autoscan-backend/aiprice"
	"github.com/Fojtik82/autoscan-backend/api"
	"github.com/Fojtik82/autoscan-backend/config"
	"github.com/Fojtik82/autoscan-backend/dbopen"
	"github.com/Fojtik82/autoscan-backend/listings"
	"github.com/Fojtik82/autoscan-backend/scrape"
)

func main() {
	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("autoscan: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	mode, err := listings.ParseMode(cfg.Mode)
	if err != nil {
		return err
	}

	source, err := acquire.Resolve(ctx, acquire.Config{
		DBPath:      cfg.DBFile,
		ArchivePath: cfg.DBArchive,
		RemoteURL:   cfg.DBURL,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("acquire database: %w", err)
	}
	logger.Info("autoscan: database ready", "db", cfg.DBFile, "source", source)

	db, err := dbopen.Open(cfg.DBFile)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := listings.Bootstrap(ctx, db, mode); err != nil {
		return fmt.Errorf("bootstrap %s mode: %w", mode, err)
	}
	logger.Info("autoscan: listings_fresh ready", "mode", mode)

	store := listings.NewStore(db)

	var ai *aiprice.Client
	if cfg.OpenAIKey != "" {
		ai = aiprice.New(cfg.OpenAIKey, cfg.OpenAIModel)
		logger.Info("autoscan: ai estimates enabled", "model", cfg.OpenAIModel)
	}

	if mode == listings.ModeLive && cfg.ScrapeSources != "" {
		sources, err := config.LoadSources(cfg.ScrapeSources)
		if err != nil {
			return fmt.Errorf("load scrape sources: %w", err)
		}
		scraper := scrape.New(scrape.Config{
			Targets: sources.Targets,
			Logger:  logger,
		})
		worker := scrape.NewWorker(scraper, store, cfg.ScrapeInterval, logger)
		go worker.Run(ctx)
	}

	srv := api.New(api.Config{
		Store:      store,
		AI:         ai,
		DBPath:     cfg.DBFile,
		APIKey:     cfg.APIKey,
		Origins:    cfg.Origins,
		FreshHours: cfg.FreshHours,
		Logger:     logger,
	})

	httpSrv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("autoscan: listening", "addr", cfg.Addr())
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("autoscan: stopped")
	return nil
}
