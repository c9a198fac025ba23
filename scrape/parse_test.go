package scrape_test

import (
	"testing"
	"time"

	"github.com/Fojtik82/autoscan-backend/scrape"
)

func TestParsePrice(t *testing.T) {
	cases := []struct {
		in   string
		want int
		ok   bool
	}{
		{"249 000 Kč", 249000, true},
		{"1.250.000", 1250000, true},
		{"299000", 299000, true},
		{"Cena dohodou", 0, false},
		{"", 0, false},
	}
	for _, c := range cases {
		got, ok := scrape.ParsePrice(c.in)
		if got != c.want || ok != c.ok {
			t.Errorf("ParsePrice(%q) = %d, %v; want %d, %v", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestParseMileage(t *testing.T) {
	got, ok := scrape.ParseMileage("154 300 km")
	if !ok || got != 154300 {
		t.Fatalf("ParseMileage = %d, %v", got, ok)
	}
}

func TestParseYear(t *testing.T) {
	cases := []struct {
		in   string
		want int
		ok   bool
	}{
		{"Škoda Octavia 2.0 TDI, 2019", 2019, true},
		{"Fabia 1999", 1999, true},
		{"VW Golf 2021 150k", 2021, true},
		{"Octavia Combi", 0, false},
		{"motor 1.6, 105 koní", 0, false},
	}
	for _, c := range cases {
		got, ok := scrape.ParseYear(c.in)
		if got != c.want || ok != c.ok {
			t.Errorf("ParseYear(%q) = %d, %v; want %d, %v", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestGuessFuel(t *testing.T) {
	cases := []struct {
		motor    string
		fallback string
		want     string
	}{
		{"2.0 TDI", "", "nafta"},
		{"1.5 dCi", "", "nafta"},
		{"1.7 CDTI", "", "nafta"},
		{"1.4 TSI", "", "benzin"},
		{"1.0 MPI", "", "benzin"},
		{"Plug-in hybrid", "", "hybrid"},
		{"elektro", "", "elektro"},
		{"1.6", "benzin", "benzin"},
		{"", "", ""},
	}
	for _, c := range cases {
		if got := scrape.GuessFuel(c.motor, c.fallback); got != c.want {
			t.Errorf("GuessFuel(%q, %q) = %q, want %q", c.motor, c.fallback, got, c.want)
		}
	}
}

func TestModelFromTitle(t *testing.T) {
	cases := []struct {
		title, brand, want string
	}{
		{"Škoda Octavia 2.0 TDI", "skoda", "Octavia 2.0 TDI"},
		{"SKODA Fabia", "Škoda", "Fabia"},
		{"Octavia Combi", "skoda", "Octavia Combi"},
		{"", "skoda", ""},
	}
	for _, c := range cases {
		if got := scrape.ModelFromTitle(c.title, c.brand); got != c.want {
			t.Errorf("ModelFromTitle(%q, %q) = %q, want %q", c.title, c.brand, got, c.want)
		}
	}
}

func TestBuildListing(t *testing.T) {
	l := scrape.BuildListing(scrape.AdFields{
		URL:          "https://www.sauto.cz/osobni/detail/skoda/octavia/1",
		Brand:        "Škoda",
		Title:        "Škoda Octavia 2.0 TDI, 2019",
		PriceText:    "249 000 Kč",
		MileageText:  "154 300 km",
		Motor:        "2.0 TDI",
		Transmission: "Manuální",
	})

	if l.Source != "sauto" {
		t.Errorf("Source = %q", l.Source)
	}
	if l.Model != "Octavia 2.0 TDI, 2019" {
		t.Errorf("Model = %q", l.Model)
	}
	if l.Year != 2019 || l.Mileage != 154300 || l.PriceCZK != 249000 {
		t.Errorf("numerics = %d/%d/%d", l.Year, l.Mileage, l.PriceCZK)
	}
	if l.Fuel != "nafta" {
		t.Errorf("Fuel = %q", l.Fuel)
	}
	if l.BrandFold != "skoda" {
		t.Errorf("BrandFold = %q", l.BrandFold)
	}
	if l.ModelBase != "octavia" {
		t.Errorf("ModelBase = %q", l.ModelBase)
	}
	if l.TransNorm != "manualni" {
		t.Errorf("TransNorm = %q", l.TransNorm)
	}
	if _, err := time.Parse(time.RFC3339, l.ScrapedAt); err != nil {
		t.Errorf("ScrapedAt = %q: %v", l.ScrapedAt, err)
	}
}
