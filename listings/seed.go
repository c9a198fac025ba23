package listings

import (
	"context"
	"crypto/sha1"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Fojtik82/autoscan-backend/normalize"
)

// seedSourceColumns is the column set CopySeed cares about, in selection
// order. Only the columns actually present in the source table are read;
// candidate pairs (fuel_norm over fuel, model_base over model) resolve
// per row against whatever was selected.
var seedSourceColumns = []string{
	"id", "brand", "model", "model_base", "year", "mileage",
	"fuel", "fuel_norm", "motor", "motor_fold",
	"transmission", "transmission_norm", "drive", "drive_norm",
	"price", "vin",
}

// seedURL derives a stable synthetic URL for a base-table row, so repeated
// copies upsert instead of duplicating. The hash input uses the raw column
// values, id included, which makes two otherwise identical rows distinct.
func seedURL(row map[string]string) string {
	parts := []string{
		strings.ToLower(strings.TrimSpace(row["brand"])),
		strings.ToLower(strings.TrimSpace(firstOf(row, "model_base", "model"))),
		row["year"],
		row["mileage"],
		firstOf(row, "fuel_norm", "fuel"),
		firstOf(row, "motor_fold", "motor"),
		firstOf(row, "transmission_norm", "transmission"),
		firstOf(row, "drive_norm", "drive"),
		row["price"],
		row["vin"],
		row["id"],
	}
	h := sha1.Sum([]byte(strings.Join(parts, "|")))
	return fmt.Sprintf("seed://%s/%x", BaseTable, h)
}

func firstOf(row map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := row[k]; v != "" {
			return v
		}
	}
	return ""
}

// CopySeed copies every row of srcTable in src into the live listings_fresh
// table of dst, upserting by the synthetic seed URL. The source table must
// carry an id column; every other column is optional. Returns the number of
// rows written.
func CopySeed(ctx context.Context, src, dst *sql.DB, srcTable string) (int, error) {
	cols, err := tableColumns(ctx, src, srcTable)
	if err != nil {
		return 0, err
	}
	if len(cols) == 0 {
		return 0, fmt.Errorf("listings: source table %s does not exist", srcTable)
	}
	if !cols["id"] {
		return 0, fmt.Errorf("listings: source table %s has no id column", srcTable)
	}

	var sel []string
	for _, c := range seedSourceColumns {
		if cols[c] {
			sel = append(sel, c)
		}
	}

	rows, err := src.QueryContext(ctx,
		"SELECT "+strings.Join(sel, ", ")+" FROM "+srcTable)
	if err != nil {
		return 0, fmt.Errorf("listings: read %s: %w", srcTable, err)
	}
	defer rows.Close()

	store := NewStore(dst)
	now := time.Now().UTC().Format(time.RFC3339)

	const batchSize = 500
	var batch []Listing
	count := 0

	vals := make([]sql.NullString, len(sel))
	ptrs := make([]any, len(sel))
	for i := range vals {
		ptrs[i] = &vals[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return count, fmt.Errorf("listings: scan %s: %w", srcTable, err)
		}
		row := make(map[string]string, len(sel))
		for i, c := range sel {
			if vals[i].Valid {
				row[c] = vals[i].String
			}
		}
		batch = append(batch, seedListing(row, now))
		if len(batch) >= batchSize {
			if err := store.Upsert(ctx, batch...); err != nil {
				return count, err
			}
			count += len(batch)
			batch = batch[:0]
		}
	}
	if err := rows.Err(); err != nil {
		return count, err
	}
	if len(batch) > 0 {
		if err := store.Upsert(ctx, batch...); err != nil {
			return count, err
		}
		count += len(batch)
	}
	return count, nil
}

// seedListing builds the ingestion record for one base-table row, preferring
// the normalized column variants and recomputing folds for the live filters.
// Brand and model are stored fully folded, not merely lower-cased: SQLite's
// LOWER is ASCII-only, so a stored "škoda" would never match a comps filter
// for "skoda".
func seedListing(row map[string]string, scrapedAt string) Listing {
	brand := normalize.Fold(row["brand"])
	model := normalize.Fold(firstOf(row, "model_base", "model"))
	fuel := firstOf(row, "fuel_norm", "fuel")
	motor := firstOf(row, "motor_fold", "motor")
	trans := firstOf(row, "transmission_norm", "transmission")
	drive := firstOf(row, "drive_norm", "drive")

	return Listing{
		Source:       "seed",
		URL:          seedURL(row),
		Brand:        brand,
		Model:        model,
		Year:         atoiOr(row["year"], 0),
		Mileage:      atoiOr(row["mileage"], 0),
		Fuel:         fuel,
		Motor:        motor,
		Transmission: trans,
		Drive:        drive,
		PriceCZK:     atoiOr(row["price"], 0),
		ScrapedAt:    scrapedAt,
		VIN:          row["vin"],
		BrandFold:    normalize.Fold(brand),
		ModelFold:    normalize.Fold(model),
		ModelBase:    normalize.FoldBase(model),
		FuelNorm:     normalize.Fold(fuel),
		MotorFold:    normalize.Fold(motor),
		TransNorm:    normalize.Fold(trans),
		DriveNorm:    normalize.Fold(drive),
	}
}

func atoiOr(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return def
		}
		n = n*10 + int(r-'0')
	}
	return n
}
