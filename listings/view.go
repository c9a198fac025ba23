package listings

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Fojtik82/autoscan-backend/dbopen"
)

// column describes how one output column of the seed view is derived.
//
// Resolution per column is independent: the first candidate present in the
// base table wins, otherwise the fallback applies. Fold columns carry a
// two-tier fallback: when the preferred normalized column is absent they fall
// back to the already-resolved raw expression of their counterpart (foldOf)
// rather than a flat literal, so a database without normalization columns
// still gets lower-cased raw values instead of empty folds.
type column struct {
	name       string
	candidates []string // source column names, priority order; nil = fixed literal
	fallback   string   // literal SQL when no candidate is present
	cast       bool     // wrap in CAST(... AS INTEGER)
	fold       bool     // wrap in LOWER(...)
	foldOf     string   // raw column whose resolved expression is the tier-2 fallback
}

// viewColumns is the fixed target shape of listings_fresh in seed mode.
// Raw columns precede their fold companions so fold fallbacks can reference
// the already-resolved raw expressions.
var viewColumns = []column{
	{name: "source", fallback: "'seed'"},
	{name: "url", fallback: "NULL"},
	{name: "brand", candidates: []string{"brand"}, fallback: "''"},
	{name: "model", candidates: []string{"model"}, fallback: "''"},
	{name: "year", candidates: []string{"year"}, fallback: "NULL", cast: true},
	{name: "mileage", candidates: []string{"mileage"}, fallback: "NULL", cast: true},
	{name: "fuel", candidates: []string{"fuel"}, fallback: "''"},
	{name: "motor", candidates: []string{"motor"}, fallback: "''"},
	{name: "transmission", candidates: []string{"transmission"}, fallback: "''"},
	{name: "drive", candidates: []string{"drive"}, fallback: "''"},
	{name: "price_czk", candidates: []string{"price_czk", "price"}, fallback: "NULL", cast: true},
	// Seed data has no scrape timestamp; 'n/a' tells the API to skip the
	// freshness filter for these rows.
	{name: "scraped_at", fallback: "'n/a'"},
	{name: "brand_fold", candidates: []string{"brand_fold"}, fold: true, foldOf: "brand"},
	{name: "model_fold", candidates: []string{"model_fold"}, fold: true, foldOf: "model"},
	{name: "model_base_fold", candidates: []string{"model_base_fold"}, fallback: "''", fold: true},
	{name: "fuel_norm", candidates: []string{"fuel_norm"}, fold: true, foldOf: "fuel"},
	{name: "motor_fold", candidates: []string{"motor_fold"}, fold: true, foldOf: "motor"},
	{name: "drive_norm", candidates: []string{"drive_norm"}, fold: true, foldOf: "drive"},
	{name: "transmission_norm", candidates: []string{"transmission_norm"}, fold: true, foldOf: "transmission"},
	{name: "equipment_fold", candidates: []string{"equipment_fold"}, fallback: "''", fold: true},
	{name: "kw", candidates: []string{"kw"}, fallback: "NULL"},
}

// resolve picks the first candidate present in the live column set, else the
// fallback expression.
func resolve(candidates []string, live map[string]bool, fallback string) string {
	for _, c := range candidates {
		if live[c] {
			return c
		}
	}
	return fallback
}

// BuildViewSQL assembles the full drop-and-recreate statement for the seed
// view given the live column set of the base table. The output is a pure
// function of the column set, so repeated synthesis against an unchanged
// schema produces byte-identical definitions.
func BuildViewSQL(live map[string]bool) string {
	resolved := make(map[string]string, len(viewColumns))

	items := make([]string, 0, len(viewColumns))
	for _, c := range viewColumns {
		var expr string
		switch {
		case len(c.candidates) == 0:
			expr = c.fallback
		case c.fold:
			fb := c.fallback
			if c.foldOf != "" {
				fb = resolved[c.foldOf]
			}
			expr = "LOWER(" + resolve(c.candidates, live, fb) + ")"
		default:
			expr = resolve(c.candidates, live, c.fallback)
			resolved[c.name] = expr
			if c.cast {
				// SQLite CAST coerces non-numeric and NULL values silently;
				// it never raises.
				expr = "CAST(" + expr + " AS INTEGER)"
			}
		}
		items = append(items, "  "+expr+" AS "+c.name)
	}

	var b strings.Builder
	b.WriteString("DROP VIEW IF EXISTS " + ViewName + ";\n")
	b.WriteString("CREATE VIEW " + ViewName + " AS\nSELECT\n")
	b.WriteString(strings.Join(items, ",\n"))
	b.WriteString("\nFROM " + BaseTable + ";\n")
	return b.String()
}

// Synthesize drops and recreates the listings_fresh seed view over the
// vehicles_clean base table. It fails with ErrMissingBaseTable when the base
// table is absent and with ErrModeConflict when listings_fresh already exists
// as a live table.
func Synthesize(ctx context.Context, db *sql.DB) error {
	baseType, err := objectType(ctx, db, BaseTable)
	if err != nil {
		return err
	}
	if baseType != "table" {
		return fmt.Errorf("%w (acquired database has no seed data)", ErrMissingBaseTable)
	}

	viewType, err := objectType(ctx, db, ViewName)
	if err != nil {
		return err
	}
	if viewType == "table" {
		return fmt.Errorf("%w: %s is a table; this database belongs to a live deployment", ErrModeConflict, ViewName)
	}

	live, err := tableColumns(ctx, db, BaseTable)
	if err != nil {
		return err
	}

	stmt := BuildViewSQL(live)
	return dbopen.RunTx(ctx, db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("listings: create view: %w", err)
		}
		return nil
	})
}
