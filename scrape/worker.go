package scrape

import (
	"context"
	"log/slog"
	"time"

	"github.com/Fojtik82/autoscan-backend/listings"
)

// Runner produces a batch of listings. Satisfied by *Scraper.
type Runner interface {
	Run(ctx context.Context) ([]listings.Listing, error)
}

// Worker runs the scraper on an interval and upserts the results.
type Worker struct {
	runner   Runner
	store    *listings.Store
	interval time.Duration
	logger   *slog.Logger
}

// NewWorker creates a Worker. Interval defaults to 6h.
func NewWorker(runner Runner, store *listings.Store, interval time.Duration, logger *slog.Logger) *Worker {
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{runner: runner, store: store, interval: interval, logger: logger}
}

// Run executes one pass immediately, then every interval until ctx is done.
// Scrape failures are logged, never fatal; the next tick retries.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("scrape: worker started", "interval", w.interval)
	w.runOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("scrape: worker stopped")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *Worker) runOnce(ctx context.Context) {
	start := time.Now()
	batch, err := w.runner.Run(ctx)
	if err != nil {
		w.logger.Error("scrape: run failed", "error", err)
		if len(batch) == 0 {
			return
		}
	}
	if len(batch) == 0 {
		w.logger.Info("scrape: run produced no listings")
		return
	}

	if err := w.store.Upsert(ctx, batch...); err != nil {
		w.logger.Error("scrape: upsert failed", "error", err)
		return
	}
	w.logger.Info("scrape: run complete",
		"listings", len(batch), "elapsed", time.Since(start))
}
