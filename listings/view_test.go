package listings_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/Fojtik82/autoscan-backend/dbopen"
	"github.com/Fojtik82/autoscan-backend/listings"
)

func mustExec(t *testing.T, db *sql.DB, stmt string, args ...any) {
	t.Helper()
	if _, err := db.Exec(stmt, args...); err != nil {
		t.Fatalf("exec %q: %v", stmt, err)
	}
}

func TestSynthesizeMissingBaseTable(t *testing.T) {
	db := dbopen.OpenMemory(t)

	err := listings.Synthesize(context.Background(), db)
	if !errors.Is(err, listings.ErrMissingBaseTable) {
		t.Fatalf("err = %v, want ErrMissingBaseTable", err)
	}

	var n int
	if err := db.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE name = 'listings_fresh'`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("view created despite missing base table")
	}
}

func TestSynthesizeOverLiveTableConflicts(t *testing.T) {
	db := dbopen.OpenMemory(t)
	ctx := context.Background()

	if err := listings.EnsureLiveSchema(ctx, db); err != nil {
		t.Fatal(err)
	}
	mustExec(t, db, `CREATE TABLE vehicles_clean (brand TEXT, model TEXT)`)

	err := listings.Synthesize(ctx, db)
	if !errors.Is(err, listings.ErrModeConflict) {
		t.Fatalf("err = %v, want ErrModeConflict", err)
	}
}

func TestPriceCandidatePriority(t *testing.T) {
	db := dbopen.OpenMemory(t)
	ctx := context.Background()

	// Both price variants present: price_czk must win.
	mustExec(t, db, `CREATE TABLE vehicles_clean (
		brand TEXT, model TEXT, year INTEGER, mileage INTEGER,
		price INTEGER, price_czk INTEGER)`)
	mustExec(t, db, `INSERT INTO vehicles_clean VALUES ('Skoda','Octavia',2020,100000,1,250000)`)

	if err := listings.Synthesize(ctx, db); err != nil {
		t.Fatal(err)
	}

	var price int
	if err := db.QueryRow(`SELECT price_czk FROM listings_fresh`).Scan(&price); err != nil {
		t.Fatal(err)
	}
	if price != 250000 {
		t.Fatalf("price_czk = %d, want 250000 (price_czk column must outrank price)", price)
	}
}

func TestPriceFallsBackToPrice(t *testing.T) {
	db := dbopen.OpenMemory(t)
	ctx := context.Background()

	mustExec(t, db, `CREATE TABLE vehicles_clean (brand TEXT, model TEXT, price INTEGER)`)
	mustExec(t, db, `INSERT INTO vehicles_clean VALUES ('Skoda','Fabia',180000)`)

	if err := listings.Synthesize(ctx, db); err != nil {
		t.Fatal(err)
	}

	var price int
	if err := db.QueryRow(`SELECT price_czk FROM listings_fresh`).Scan(&price); err != nil {
		t.Fatal(err)
	}
	if price != 180000 {
		t.Fatalf("price_czk = %d, want 180000", price)
	}
}

func TestFoldColumnsFallBackToRaw(t *testing.T) {
	db := dbopen.OpenMemory(t)
	ctx := context.Background()

	// No fold/norm columns at all: every fold output must equal the
	// lower-cased raw counterpart, or '' where no counterpart exists.
	mustExec(t, db, `CREATE TABLE vehicles_clean (
		brand TEXT, model TEXT, fuel TEXT, motor TEXT, transmission TEXT, drive TEXT)`)
	mustExec(t, db, `INSERT INTO vehicles_clean VALUES ('SKODA','Octavia','Nafta','1.9 TDI','Manual','4x4')`)

	if err := listings.Synthesize(ctx, db); err != nil {
		t.Fatal(err)
	}

	var brandFold, modelFold, fuelNorm, motorFold, transNorm, driveNorm, modelBase, equipment string
	err := db.QueryRow(`SELECT brand_fold, model_fold, fuel_norm, motor_fold,
		transmission_norm, drive_norm, model_base_fold, equipment_fold FROM listings_fresh`).
		Scan(&brandFold, &modelFold, &fuelNorm, &motorFold, &transNorm, &driveNorm, &modelBase, &equipment)
	if err != nil {
		t.Fatal(err)
	}

	want := map[string]string{
		"brand_fold":        "skoda",
		"model_fold":        "octavia",
		"fuel_norm":         "nafta",
		"motor_fold":        "1.9 tdi",
		"transmission_norm": "manual",
		"drive_norm":        "4x4",
		"model_base_fold":   "",
		"equipment_fold":    "",
	}
	got := map[string]string{
		"brand_fold":        brandFold,
		"model_fold":        modelFold,
		"fuel_norm":         fuelNorm,
		"motor_fold":        motorFold,
		"transmission_norm": transNorm,
		"drive_norm":        driveNorm,
		"model_base_fold":   modelBase,
		"equipment_fold":    equipment,
	}
	for col, w := range want {
		if got[col] != w {
			t.Errorf("%s = %q, want %q", col, got[col], w)
		}
	}
}

func TestFoldColumnPreferredOverRaw(t *testing.T) {
	db := dbopen.OpenMemory(t)
	ctx := context.Background()

	mustExec(t, db, `CREATE TABLE vehicles_clean (brand TEXT, brand_fold TEXT)`)
	mustExec(t, db, `INSERT INTO vehicles_clean VALUES ('Škoda','SKODA-FOLDED')`)

	if err := listings.Synthesize(ctx, db); err != nil {
		t.Fatal(err)
	}

	var fold string
	if err := db.QueryRow(`SELECT brand_fold FROM listings_fresh`).Scan(&fold); err != nil {
		t.Fatal(err)
	}
	if fold != "skoda-folded" {
		t.Fatalf("brand_fold = %q, want lower-cased brand_fold source, not brand", fold)
	}
}

func TestSynthesizeIdempotent(t *testing.T) {
	db := dbopen.OpenMemory(t)
	ctx := context.Background()

	mustExec(t, db, `CREATE TABLE vehicles_clean (brand TEXT, model TEXT, price_czk INTEGER)`)

	if err := listings.Synthesize(ctx, db); err != nil {
		t.Fatal(err)
	}
	var first string
	if err := db.QueryRow(
		`SELECT sql FROM sqlite_master WHERE name = 'listings_fresh'`).Scan(&first); err != nil {
		t.Fatal(err)
	}

	if err := listings.Synthesize(ctx, db); err != nil {
		t.Fatal(err)
	}
	var second string
	if err := db.QueryRow(
		`SELECT sql FROM sqlite_master WHERE name = 'listings_fresh'`).Scan(&second); err != nil {
		t.Fatal(err)
	}

	if first != second {
		t.Fatalf("view definition changed across synthesis runs:\n%s\n---\n%s", first, second)
	}
}

func TestCastCoercesNonNumeric(t *testing.T) {
	db := dbopen.OpenMemory(t)
	ctx := context.Background()

	mustExec(t, db, `CREATE TABLE vehicles_clean (brand TEXT, year TEXT, price_czk TEXT)`)
	mustExec(t, db, `INSERT INTO vehicles_clean VALUES ('Skoda','not-a-year',NULL)`)

	if err := listings.Synthesize(ctx, db); err != nil {
		t.Fatal(err)
	}

	var year int
	var price sql.NullInt64
	if err := db.QueryRow(`SELECT year, price_czk FROM listings_fresh`).Scan(&year, &price); err != nil {
		t.Fatal(err)
	}
	// SQLite CAST coerces garbage to 0 and passes NULL through; neither raises.
	if year != 0 {
		t.Fatalf("year = %d, want 0", year)
	}
	if price.Valid {
		t.Fatalf("price_czk = %v, want NULL", price.Int64)
	}
}

// End-to-end schema scenario: base table with a partial column set.
func TestSynthesizePartialSchema(t *testing.T) {
	db := dbopen.OpenMemory(t)
	ctx := context.Background()

	mustExec(t, db, `CREATE TABLE vehicles_clean (
		brand TEXT, model TEXT, year INTEGER, mileage INTEGER,
		fuel TEXT, price_czk INTEGER, brand_fold TEXT)`)
	mustExec(t, db, `INSERT INTO vehicles_clean VALUES ('Skoda','Octavia',2019,120000,'nafta',300000,'Skoda-F')`)

	if err := listings.Synthesize(ctx, db); err != nil {
		t.Fatal(err)
	}

	var (
		motor, trans, drive, modelFold, brandFold, equipment, modelBase string
		kw                                                              sql.NullFloat64
		source, scrapedAt                                               string
		url                                                             sql.NullString
	)
	err := db.QueryRow(`SELECT motor, transmission, drive, model_fold, brand_fold,
		equipment_fold, model_base_fold, kw, source, scraped_at, url FROM listings_fresh`).
		Scan(&motor, &trans, &drive, &modelFold, &brandFold, &equipment, &modelBase,
			&kw, &source, &scrapedAt, &url)
	if err != nil {
		t.Fatal(err)
	}

	if motor != "" || trans != "" || drive != "" {
		t.Errorf("motor/transmission/drive = %q/%q/%q, want empty strings", motor, trans, drive)
	}
	if kw.Valid {
		t.Errorf("kw = %v, want NULL", kw.Float64)
	}
	if modelFold != "octavia" {
		t.Errorf("model_fold = %q, want lower-cased model", modelFold)
	}
	if brandFold != "skoda-f" {
		t.Errorf("brand_fold = %q, want lower-cased brand_fold source value", brandFold)
	}
	if equipment != "" || modelBase != "" {
		t.Errorf("equipment_fold/model_base_fold = %q/%q, want empty strings", equipment, modelBase)
	}
	if source != "seed" {
		t.Errorf("source = %q, want seed", source)
	}
	if scrapedAt != "n/a" {
		t.Errorf("scraped_at = %q, want n/a", scrapedAt)
	}
	if url.Valid {
		t.Errorf("url = %q, want NULL", url.String)
	}
}

func TestParseMode(t *testing.T) {
	cases := []struct {
		in      string
		want    listings.Mode
		wantErr bool
	}{
		{"", listings.ModeSeed, false},
		{"seed", listings.ModeSeed, false},
		{"live", listings.ModeLive, false},
		{"hybrid", "", true},
	}
	for _, c := range cases {
		got, err := listings.ParseMode(c.in)
		if (err != nil) != c.wantErr {
			t.Errorf("ParseMode(%q) err = %v, wantErr %v", c.in, err, c.wantErr)
			continue
		}
		if got != c.want {
			t.Errorf("ParseMode(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
