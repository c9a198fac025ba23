package listings

import "database/sql"

// Comp is one comparable listing row as returned by the comps query.
// Nullable columns mirror the view contract: url may be NULL in seed mode,
// year/mileage/price may be NULL where the cast source was absent.
type Comp struct {
	Source       string  `json:"source"`
	URL          *string `json:"url"`
	Brand        string  `json:"brand"`
	Model        string  `json:"model"`
	Year         *int64  `json:"year"`
	Mileage      *int64  `json:"mileage"`
	Fuel         *string `json:"fuel"`
	Motor        *string `json:"motor"`
	Transmission *string `json:"transmission"`
	Drive        *string `json:"drive"`
	PriceCZK     *int64  `json:"price_czk"`
	ScrapedAt    string  `json:"scraped_at"`
}

// Listing is one scraped vehicle record for live-mode ingestion.
// Fold columns are computed by the caller (normalize package) before upsert.
type Listing struct {
	Source       string
	URL          string
	Brand        string
	Model        string
	Year         int
	Mileage      int
	Fuel         string
	Motor        string
	Transmission string
	Drive        string
	PriceCZK     int
	ScrapedAt    string
	BrandFold    string
	ModelFold    string
	ModelBase    string
	FuelNorm     string
	MotorFold    string
	DriveNorm    string
	TransNorm    string
	Equipment    string
	KW           sql.NullFloat64
	VAT          string
	VIN          string
	Location     string
}

// CompQuery holds the comps search parameters.
type CompQuery struct {
	Brand      string
	Model      string
	Year       int
	Mileage    int
	Fuel       string // optional substring match
	Motor      string // optional substring match
	WindowKm   int
	WindowYear int
	FreshHours int
	Limit      int
}

func (q *CompQuery) defaults() {
	if q.WindowKm <= 0 {
		q.WindowKm = 20000
	}
	if q.WindowYear <= 0 {
		q.WindowYear = 1
	}
	if q.FreshHours <= 0 {
		q.FreshHours = 720
	}
	if q.Limit <= 0 || q.Limit > 500 {
		q.Limit = 120
	}
}
