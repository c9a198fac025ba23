// Package listings owns the listings_fresh contract: the single read surface
// the query API is guaranteed to find, regardless of which schema variant the
// underlying database carries.
//
// listings_fresh has two mutually exclusive shapes, picked by Mode:
//
//   - ModeSeed: a view derived from the vehicles_clean base table, dropped
//     and recreated on every start. The base table's column set varies across
//     ingestion runs (raw vs folded variants, price vs price_czk), so each
//     view column is resolved against the live column set at synthesis time.
//   - ModeLive: a real table with a uniqueness constraint on url, populated
//     by scraper upserts.
//
// A deployment uses one shape or the other, never both; Bootstrap refuses to
// create a view over an existing live table and vice versa.
package listings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// BaseTable is the externally-produced relation the seed view derives from.
const BaseTable = "vehicles_clean"

// ViewName is the canonical read surface consumed by the query API.
const ViewName = "listings_fresh"

// Mode selects which shape of listings_fresh a deployment uses.
type Mode string

const (
	// ModeSeed derives listings_fresh as a view over vehicles_clean.
	ModeSeed Mode = "seed"
	// ModeLive maintains listings_fresh as a mutable ingested table.
	ModeLive Mode = "live"
)

// ParseMode validates a configured mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeSeed, ModeLive:
		return Mode(s), nil
	case "":
		return ModeSeed, nil
	}
	return "", fmt.Errorf("listings: unknown mode %q (want seed or live)", s)
}

// ErrMissingBaseTable is returned when the seed view cannot be synthesized
// because the vehicles_clean base table does not exist.
var ErrMissingBaseTable = errors.New("listings: base table vehicles_clean does not exist")

// ErrModeConflict is returned when listings_fresh already exists in the shape
// belonging to the other mode.
var ErrModeConflict = errors.New("listings: listings_fresh exists in the other mode's shape")

// Bootstrap prepares the listings_fresh shape for the given mode. It is run
// once per startup, after acquisition, before the API starts serving.
func Bootstrap(ctx context.Context, db *sql.DB, mode Mode) error {
	switch mode {
	case ModeSeed:
		return Synthesize(ctx, db)
	case ModeLive:
		return EnsureLiveSchema(ctx, db)
	}
	return fmt.Errorf("listings: unknown mode %q", mode)
}

// objectType returns "table", "view", or "" for a schema object name.
func objectType(ctx context.Context, db *sql.DB, name string) (string, error) {
	var typ string
	err := db.QueryRowContext(ctx,
		`SELECT type FROM sqlite_master WHERE name = ? AND type IN ('table','view')`,
		name).Scan(&typ)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("listings: sqlite_master lookup for %s: %w", name, err)
	}
	return typ, nil
}

// tableColumns returns the set of live column names of a table.
func tableColumns(ctx context.Context, db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, `SELECT name FROM pragma_table_info(?)`, table)
	if err != nil {
		return nil, fmt.Errorf("listings: table_info %s: %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		cols[name] = true
	}
	return cols, rows.Err()
}
