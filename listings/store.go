package listings

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Fojtik82/autoscan-backend/dbopen"
)

// Store wraps the database for listings_fresh reads and live-mode writes.
// Reads work against either shape; writes require the live table.
type Store struct {
	DB *sql.DB
}

// NewStore creates a Store from an already-opened database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{DB: db}
}

const compsSelect = `
SELECT source, url, brand, model, year, mileage, fuel, motor, transmission, drive, price_czk, scraped_at
FROM listings_fresh
WHERE LOWER(brand) LIKE LOWER(?)
  AND LOWER(model) LIKE LOWER(?)
  AND year BETWEEN ? AND ?
  AND ABS(mileage - ?) <= ?
  AND (? = '' OR LOWER(fuel) LIKE ?)
  AND (? = '' OR LOWER(motor) LIKE ?)
  AND (scraped_at = 'n/a' OR datetime(scraped_at) >= datetime('now', '-' || ? || ' hours'))
ORDER BY ABS(mileage - ?), ABS(year - ?)
LIMIT ?`

func compsArgs(q *CompQuery) []any {
	return []any{
		"%" + q.Brand + "%",
		"%" + q.Model + "%",
		q.Year - q.WindowYear, q.Year + q.WindowYear,
		q.Mileage, q.WindowKm,
		q.Fuel, "%" + strings.ToLower(q.Fuel) + "%",
		q.Motor, "%" + strings.ToLower(q.Motor) + "%",
		q.FreshHours,
		q.Mileage, q.Year,
		q.Limit,
	}
}

// Comps returns listings comparable to the target vehicle, closest first by
// mileage then by year. Brand and model match as substrings; rows with
// scraped_at = 'n/a' (seed data) bypass the freshness cutoff.
func (s *Store) Comps(ctx context.Context, q CompQuery) ([]Comp, error) {
	q.defaults()

	rows, err := s.DB.QueryContext(ctx, compsSelect, compsArgs(&q)...)
	if err != nil {
		return nil, fmt.Errorf("listings: comps query: %w", err)
	}
	defer rows.Close()

	out := []Comp{}
	for rows.Next() {
		var (
			c                              Comp
			url, fuel, motor, trans, drive sql.NullString
			year, mileage, price           sql.NullInt64
		)
		if err := rows.Scan(&c.Source, &url, &c.Brand, &c.Model, &year, &mileage,
			&fuel, &motor, &trans, &drive, &price, &c.ScrapedAt); err != nil {
			return nil, fmt.Errorf("listings: comps scan: %w", err)
		}
		c.URL = nullStr(url)
		c.Fuel = nullStr(fuel)
		c.Motor = nullStr(motor)
		c.Transmission = nullStr(trans)
		c.Drive = nullStr(drive)
		c.Year = nullInt(year)
		c.Mileage = nullInt(mileage)
		c.PriceCZK = nullInt(price)
		out = append(out, c)
	}
	return out, rows.Err()
}

// CountComps returns only the row count for a comps filter, for diagnostics.
func (s *Store) CountComps(ctx context.Context, q CompQuery) (int, error) {
	q.defaults()
	var n int
	err := s.DB.QueryRowContext(ctx, `
SELECT COUNT(*)
FROM listings_fresh
WHERE LOWER(brand) LIKE LOWER(?)
  AND LOWER(model) LIKE LOWER(?)
  AND year BETWEEN ? AND ?
  AND ABS(mileage - ?) <= ?`,
		"%"+q.Brand+"%", "%"+q.Model+"%",
		q.Year-q.WindowYear, q.Year+q.WindowYear,
		q.Mileage, q.WindowKm).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("listings: count: %w", err)
	}
	return n, nil
}

const upsertListing = `
INSERT INTO listings_fresh (
    source, url, brand, model, year, mileage, fuel, motor, transmission, drive,
    price_czk, scraped_at, brand_fold, model_fold, model_base_fold, fuel_norm,
    motor_fold, drive_norm, transmission_norm, equipment_fold, kw, vat, vin, location
) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
ON CONFLICT(url) DO UPDATE SET
    source = excluded.source,
    brand = excluded.brand,
    model = excluded.model,
    year = excluded.year,
    mileage = excluded.mileage,
    fuel = excluded.fuel,
    motor = excluded.motor,
    transmission = excluded.transmission,
    drive = excluded.drive,
    price_czk = excluded.price_czk,
    scraped_at = excluded.scraped_at,
    brand_fold = excluded.brand_fold,
    model_fold = excluded.model_fold,
    model_base_fold = excluded.model_base_fold,
    fuel_norm = excluded.fuel_norm,
    motor_fold = excluded.motor_fold,
    drive_norm = excluded.drive_norm,
    transmission_norm = excluded.transmission_norm,
    equipment_fold = excluded.equipment_fold,
    kw = excluded.kw,
    vat = excluded.vat,
    vin = excluded.vin,
    location = excluded.location`

// Upsert inserts or refreshes listings by URL. The whole batch commits in one
// transaction; SQLITE_BUSY from a concurrent reader is retried by RunTx.
func (s *Store) Upsert(ctx context.Context, batch ...Listing) error {
	if len(batch) == 0 {
		return nil
	}
	return dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, upsertListing)
		if err != nil {
			return fmt.Errorf("listings: prepare upsert: %w", err)
		}
		defer stmt.Close()
		for _, l := range batch {
			if _, err := stmt.ExecContext(ctx,
				l.Source, l.URL, l.Brand, l.Model, l.Year, l.Mileage,
				l.Fuel, l.Motor, l.Transmission, l.Drive,
				l.PriceCZK, l.ScrapedAt,
				l.BrandFold, l.ModelFold, l.ModelBase, l.FuelNorm,
				l.MotorFold, l.DriveNorm, l.TransNorm, l.Equipment,
				l.KW, nullIfEmpty(l.VAT), nullIfEmpty(l.VIN), nullIfEmpty(l.Location),
			); err != nil {
				return fmt.Errorf("listings: upsert %s: %w", l.URL, err)
			}
		}
		return nil
	})
}

func nullStr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func nullInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
