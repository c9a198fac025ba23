package scrape

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Fojtik82/autoscan-backend/normalize"
)

var (
	nonDigitRe = regexp.MustCompile(`\D`)
	yearRe     = regexp.MustCompile(`(19|20)\d{2}`)
)

// ParsePrice strips every non-digit and parses the rest. Returns false
// for text with no digits at all.
func ParsePrice(text string) (int, bool) {
	digits := nonDigitRe.ReplaceAllString(text, "")
	if digits == "" {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParseMileage parses a mileage figure the same way as ParsePrice.
func ParseMileage(text string) (int, bool) {
	return ParsePrice(text)
}

// ParseYear extracts the first plausible model year (19xx or 20xx).
func ParseYear(text string) (int, bool) {
	m := yearRe.FindString(text)
	if m == "" {
		return 0, false
	}
	n, _ := strconv.Atoi(m)
	return n, true
}

// GuessFuel infers the fuel kind from the motor designation. Czech listing
// sites rarely state fuel explicitly on the card, but the engine code does:
// TDI/dCi/CDTI are diesels, TSI/MPI are petrol.
func GuessFuel(motor, fallback string) string {
	m := strings.ToLower(motor)
	switch {
	case strings.Contains(m, "tdi"), strings.Contains(m, "dci"),
		strings.Contains(m, "cdti"), strings.Contains(m, "nafta"):
		return "nafta"
	case strings.Contains(m, "tsi"), strings.Contains(m, "mpi"),
		strings.Contains(m, "benzin"):
		return "benzin"
	case strings.Contains(m, "hybrid"):
		return "hybrid"
	case strings.Contains(m, "elektro"), strings.Contains(m, "ev"):
		return "elektro"
	}
	return fallback
}

// ModelFromTitle strips the brand prefix from an ad title. The comparison
// folds diacritics so "Škoda Octavia" with brand "skoda" yields "Octavia".
func ModelFromTitle(title, brand string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return ""
	}
	fields := strings.Fields(title)
	if normalize.Fold(fields[0]) == normalize.Fold(brand) {
		return strings.TrimSpace(strings.Join(fields[1:], " "))
	}
	return title
}
