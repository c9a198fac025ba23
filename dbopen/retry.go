package dbopen

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// RetryPolicy controls how transactions react to SQLITE_BUSY. The defaults
// are sized for this service's contention profile: scraper upsert batches
// holding the write lock for tens of milliseconds while API readers poll.
type RetryPolicy struct {
	// Attempts is the total number of tries. Default: 3.
	Attempts int
	// Backoff is the wait before the second attempt; later waits grow
	// linearly (Backoff, 2*Backoff, ...). Default: 100ms.
	Backoff time.Duration
}

func (p *RetryPolicy) defaults() {
	if p.Attempts <= 0 {
		p.Attempts = 3
	}
	if p.Backoff <= 0 {
		p.Backoff = 100 * time.Millisecond
	}
}

// IsBusy reports whether err indicates an SQLite BUSY condition. Live-mode
// ingestion writes while the API reads, so short lock windows are expected.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}

// RunTx executes fn inside a transaction with the default RetryPolicy.
func RunTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	return RunTxWith(ctx, db, RetryPolicy{}, fn)
}

// RunTxWith executes fn inside a transaction, retrying per the policy when
// the failure is a BUSY condition. Any other error, including one returned
// by fn itself, aborts immediately with a rollback.
func RunTxWith(ctx context.Context, db *sql.DB, policy RetryPolicy, fn func(*sql.Tx) error) error {
	policy.defaults()

	var err error
	for attempt := 1; ; attempt++ {
		if err = runOnce(ctx, db, fn); err == nil || !IsBusy(err) {
			return err
		}
		if attempt == policy.Attempts {
			return fmt.Errorf("dbopen: still busy after %d attempts: %w", policy.Attempts, err)
		}
		if werr := sleepCtx(ctx, time.Duration(attempt)*policy.Backoff); werr != nil {
			return fmt.Errorf("dbopen: context cancelled during retry: %w", werr)
		}
	}
}

func runOnce(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("dbopen: begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("dbopen: commit: %w", err)
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
