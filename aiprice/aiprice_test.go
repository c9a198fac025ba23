package aiprice_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Fojtik82/autoscan-backend/aiprice"
	"github.com/Fojtik82/autoscan-backend/listings"
)

func chatReply(content string) []byte {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	})
	return b
}

func TestEstimateNotConfigured(t *testing.T) {
	c := aiprice.New("", "gpt-4o-mini")
	_, err := c.Estimate(context.Background(), nil, aiprice.Target{})
	if !errors.Is(err, aiprice.ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
}

func TestEstimate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("auth header = %q", got)
		}
		w.Write(chatReply(`{"low_czk": 250000, "price_czk": 300000, "high_czk": 350000}`))
	}))
	defer srv.Close()

	price := int64(310000)
	comps := []listings.Comp{{Source: "seed", PriceCZK: &price}}

	c := aiprice.New("test-key", "gpt-4o-mini", aiprice.WithBaseURL(srv.URL))
	r, err := c.Estimate(context.Background(), comps, aiprice.Target{
		Brand: "Skoda", Model: "Octavia", Year: 2020, Mileage: 110000,
	})
	if err != nil {
		t.Fatal(err)
	}
	if r.PriceCZK != 300000 || r.LowCZK != 250000 || r.HighCZK != 350000 {
		t.Fatalf("result = %+v", r)
	}
	if r.UsedComps != 1 {
		t.Fatalf("used comps = %d, want 1", r.UsedComps)
	}
}

func TestEstimateFencedAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(chatReply("```json\n{\"low_czk\": 1, \"price_czk\": 2, \"high_czk\": 3}\n```"))
	}))
	defer srv.Close()

	c := aiprice.New("k", "m", aiprice.WithBaseURL(srv.URL))
	r, err := c.Estimate(context.Background(), nil, aiprice.Target{})
	if err != nil {
		t.Fatal(err)
	}
	if r.PriceCZK != 2 {
		t.Fatalf("result = %+v", r)
	}
}

func TestEstimateGarbageAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(chatReply("I think around 300k?"))
	}))
	defer srv.Close()

	c := aiprice.New("k", "m", aiprice.WithBaseURL(srv.URL))
	if _, err := c.Estimate(context.Background(), nil, aiprice.Target{}); err == nil {
		t.Fatal("accepted non-JSON model answer")
	}
}

func TestEstimateHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := aiprice.New("k", "m", aiprice.WithBaseURL(srv.URL))
	if _, err := c.Estimate(context.Background(), nil, aiprice.Target{}); err == nil {
		t.Fatal("accepted HTTP error")
	}
}
