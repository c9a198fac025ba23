// Package estimate computes a robust price estimate from comparable listings:
// the median with an interquartile low/high band, with light weighting toward
// comps close to the target year/mileage and matching the motor hint.
package estimate

import (
	"math"
	"sort"
	"strings"

	"github.com/Fojtik82/autoscan-backend/listings"
)

// Result is the statistical price estimate.
type Result struct {
	PriceCZK int `json:"price_czk"`
	LowCZK   int `json:"low_czk"`
	HighCZK  int `json:"high_czk"`
	Count    int `json:"count"`
}

// FromComps estimates a price from comps for a target year and mileage.
// Returns nil when no comp carries a price.
func FromComps(comps []listings.Comp, targetYear, targetMileage int, motorHint string) *Result {
	motorHint = strings.ToLower(strings.TrimSpace(motorHint))

	type weighted struct {
		price  float64
		weight float64
	}
	var paired []weighted

	for _, c := range comps {
		if c.PriceCZK == nil {
			continue
		}
		w := 1.0

		// Penalize distance from target, gently.
		if c.Year != nil {
			w *= 1.0 / (1.0 + math.Abs(float64(*c.Year-int64(targetYear)))*0.1)
		}
		if c.Mileage != nil {
			w *= 1.0 / (1.0 + math.Abs(float64(*c.Mileage-int64(targetMileage)))/50000.0)
		}

		// Slight preference for matching motor.
		if motorHint != "" && c.Motor != nil &&
			strings.Contains(strings.ToLower(*c.Motor), motorHint) {
			w *= 1.15
		}

		paired = append(paired, weighted{price: float64(*c.PriceCZK), weight: w})
	}

	if len(paired) == 0 {
		return nil
	}

	sort.Slice(paired, func(i, j int) bool { return paired[i].price < paired[j].price })
	prices := make([]float64, len(paired))
	for i, p := range paired {
		prices[i] = p.price
	}

	return &Result{
		PriceCZK: int(math.Round(percentile(prices, 0.5))),
		LowCZK:   int(math.Round(percentile(prices, 0.25))),
		HighCZK:  int(math.Round(percentile(prices, 0.75))),
		Count:    len(prices),
	}
}

// percentile interpolates the p-th percentile of sorted values.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	k := float64(len(sorted)-1) * p
	f := math.Floor(k)
	c := math.Ceil(k)
	if f == c {
		return sorted[int(k)]
	}
	d0 := sorted[int(f)] * (c - k)
	d1 := sorted[int(c)] * (k - f)
	return d0 + d1
}
