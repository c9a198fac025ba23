package listings

import (
	"context"
	"database/sql"
	"fmt"
)

// liveSchema is the mutable listings_fresh shape used by live deployments.
// Scrapers upsert by url; the composite index covers the common comps filter
// and the scraped_at index serves the freshness cutoff.
const liveSchema = `
CREATE TABLE IF NOT EXISTS listings_fresh (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    source          TEXT NOT NULL DEFAULT 'live',
    url             TEXT NOT NULL UNIQUE,
    brand           TEXT NOT NULL DEFAULT '',
    model           TEXT NOT NULL DEFAULT '',
    year            INTEGER,
    mileage         INTEGER,
    fuel            TEXT,
    motor           TEXT,
    transmission    TEXT,
    drive           TEXT,
    price_czk       INTEGER,
    scraped_at      TEXT NOT NULL DEFAULT 'n/a',
    brand_fold      TEXT NOT NULL DEFAULT '',
    model_fold      TEXT NOT NULL DEFAULT '',
    model_base_fold TEXT NOT NULL DEFAULT '',
    fuel_norm       TEXT NOT NULL DEFAULT '',
    motor_fold      TEXT NOT NULL DEFAULT '',
    drive_norm      TEXT NOT NULL DEFAULT '',
    transmission_norm TEXT NOT NULL DEFAULT '',
    equipment_fold  TEXT NOT NULL DEFAULT '',
    kw              NUMERIC,
    vat             TEXT,
    vin             TEXT,
    location        TEXT
);
CREATE INDEX IF NOT EXISTS idx_listings_filter ON listings_fresh(brand, model, year, mileage);
CREATE INDEX IF NOT EXISTS idx_listings_time ON listings_fresh(scraped_at);
`

// EnsureLiveSchema creates the live listings_fresh table and its indexes.
// It fails with ErrModeConflict when listings_fresh already exists as a seed
// view, since CREATE TABLE would collide with the view of the same name.
func EnsureLiveSchema(ctx context.Context, db *sql.DB) error {
	typ, err := objectType(ctx, db, ViewName)
	if err != nil {
		return err
	}
	if typ == "view" {
		return fmt.Errorf("%w: %s is a view; this database belongs to a seed deployment", ErrModeConflict, ViewName)
	}
	if _, err := db.ExecContext(ctx, liveSchema); err != nil {
		return fmt.Errorf("listings: live schema: %w", err)
	}
	return nil
}
