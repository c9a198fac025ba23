// Command seedcopy copies vehicles_clean rows from a source database into a
// live-mode listings_fresh table, deriving stable seed:// URLs so reruns
// upsert instead of duplicating.
//
// Usage:
//
//	seedcopy -src-db vehicles.db -dst-db vehicles_ai.db
//	seedcopy -src-db vehicles.db -src-table vehicles_clean -dst-db vehicles_ai.db
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "modernc.org/sqlite"

	"github.com/Fojtik82/autoscan-backend/dbopen"
	"github.com/Fojtik82/autoscan-backend/listings"
)

func main() {
	srcDB := flag.String("src-db", "", "source database file (required)")
	srcTable := flag.String("src-table", listings.BaseTable, "source table name")
	dstDB := flag.String("dst-db", "", "destination database file (required)")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if *srcDB == "" || *dstDB == "" {
		fmt.Fprintln(os.Stderr, "usage: seedcopy -src-db <file> -dst-db <file> [-src-table <name>]")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *srcDB, *srcTable, *dstDB); err != nil {
		logger.Error("seedcopy: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, srcPath, srcTable, dstPath string) error {
	if _, err := os.Stat(srcPath); err != nil {
		return fmt.Errorf("source database: %w", err)
	}

	src, err := dbopen.Open(srcPath)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer src.Close()

	dst, err := dbopen.Open(dstPath)
	if err != nil {
		return fmt.Errorf("open destination: %w", err)
	}
	defer dst.Close()

	if err := listings.EnsureLiveSchema(ctx, dst); err != nil {
		return fmt.Errorf("destination schema: %w", err)
	}

	n, err := listings.CopySeed(ctx, src, dst, srcTable)
	if err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	logger.Info("seedcopy: done", "rows", n, "src", srcPath, "dst", dstPath)
	return nil
}
