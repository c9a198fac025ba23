// Package api serves the read-only comps and price-estimate endpoints over
// the listings_fresh contract. It never touches the base table directly.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Fojtik82/autoscan-backend/aiprice"
	"github.com/Fojtik82/autoscan-backend/estimate"
	"github.com/Fojtik82/autoscan-backend/listings"
	"github.com/Fojtik82/autoscan-backend/shield"
)

// Config wires the server's collaborators.
type Config struct {
	Store      *listings.Store
	AI         *aiprice.Client
	DBPath     string
	APIKey     string
	Origins    []string
	FreshHours int // default freshness window for comps
	Logger     *slog.Logger
}

// Server exposes the HTTP API.
type Server struct {
	cfg Config
}

// New creates a Server.
func New(cfg Config) *Server {
	if cfg.FreshHours <= 0 {
		cfg.FreshHours = 720
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Server{cfg: cfg}
}

// Router builds the chi router with the shield stack applied.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	for _, mw := range shield.DefaultStack(s.cfg.Origins) {
		r.Use(mw)
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]any{"ok": true, "service": "autoscan-backend"})
	})

	r.Get("/debug/db", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]string{"db_file": s.cfg.DBPath})
	})
	r.Get("/debug/count", s.handleDebugCount)

	// Query endpoints honor the optional API key.
	r.Group(func(r chi.Router) {
		r.Use(shield.RequireAPIKey(s.cfg.APIKey))
		r.Get("/comps", s.handleComps)
		r.Post("/price/estimate", s.handleEstimate)
		r.Post("/price/ai-estimate", s.handleAIEstimate)
	})

	return r
}

// compQuery extracts the comps filter from query parameters. brand, model,
// year, and mileage are required.
func (s *Server) compQuery(r *http.Request) (listings.CompQuery, error) {
	q := listings.CompQuery{
		Brand:      r.URL.Query().Get("brand"),
		Model:      r.URL.Query().Get("model"),
		Fuel:       r.URL.Query().Get("fuel"),
		Motor:      r.URL.Query().Get("motor"),
		Year:       queryInt(r, "year", 0),
		Mileage:    queryInt(r, "mileage", -1),
		WindowKm:   queryInt(r, "window_km", 20000),
		WindowYear: queryInt(r, "window_year", 1),
		FreshHours: queryInt(r, "fresh_hours", s.cfg.FreshHours),
		Limit:      queryInt(r, "limit", 120),
	}
	if q.Brand == "" || q.Model == "" {
		return q, errors.New("brand and model are required")
	}
	if q.Year == 0 || q.Mileage < 0 {
		return q, errors.New("year and mileage are required")
	}
	return q, nil
}

func (s *Server) handleComps(w http.ResponseWriter, r *http.Request) {
	q, err := s.compQuery(r)
	if err != nil {
		writeError(w, 400, err)
		return
	}

	comps, err := s.cfg.Store.Comps(r.Context(), q)
	if err != nil {
		s.cfg.Logger.Error("comps query", "error", err)
		writeError(w, 500, err)
		return
	}
	writeJSON(w, 200, comps)
}

func (s *Server) handleDebugCount(w http.ResponseWriter, r *http.Request) {
	q, err := s.compQuery(r)
	if err != nil {
		writeError(w, 400, err)
		return
	}
	// Looser debug defaults, matching the manual-probe use of this endpoint.
	if r.URL.Query().Get("window_km") == "" {
		q.WindowKm = 60000
	}
	if r.URL.Query().Get("window_year") == "" {
		q.WindowYear = 3
	}

	n, err := s.cfg.Store.CountComps(r.Context(), q)
	if err != nil {
		writeError(w, 500, err)
		return
	}
	writeJSON(w, 200, map[string]any{"count": n, "db_file": s.cfg.DBPath})
}

// estimateRequest is the body of both estimate endpoints. Rows, when given,
// replace the comps lookup entirely.
type estimateRequest struct {
	Brand      string          `json:"brand"`
	Model      string          `json:"model"`
	Year       int             `json:"year"`
	Mileage    *int            `json:"mileage"`
	Fuel       string          `json:"fuel"`
	Motor      string          `json:"motor"`
	Rows       []listings.Comp `json:"rows"`
	FreshHours int             `json:"fresh_hours"`
	WindowKm   int             `json:"window_km"`
	WindowYear int             `json:"window_year"`
	Limit      int             `json:"limit"`
}

func (s *Server) estimateComps(r *http.Request, req *estimateRequest) ([]listings.Comp, error) {
	if len(req.Rows) > 0 {
		return req.Rows, nil
	}
	fresh := req.FreshHours
	if fresh <= 0 {
		fresh = s.cfg.FreshHours
	}
	return s.cfg.Store.Comps(r.Context(), listings.CompQuery{
		Brand: req.Brand, Model: req.Model, Year: req.Year, Mileage: *req.Mileage,
		Fuel: req.Fuel, Motor: req.Motor,
		WindowKm: req.WindowKm, WindowYear: req.WindowYear,
		FreshHours: fresh, Limit: req.Limit,
	})
}

func decodeEstimateRequest(w http.ResponseWriter, r *http.Request) (*estimateRequest, bool) {
	var req estimateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, 400, err)
		return nil, false
	}
	if req.Brand == "" || req.Model == "" || req.Year == 0 ||
		req.Mileage == nil || *req.Mileage < 0 {
		writeError(w, 400, errors.New("brand, model, year and mileage are required"))
		return nil, false
	}
	return &req, true
}

func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeEstimateRequest(w, r)
	if !ok {
		return
	}

	comps, err := s.estimateComps(r, req)
	if err != nil {
		s.cfg.Logger.Error("estimate comps", "error", err)
		writeError(w, 500, err)
		return
	}

	est := estimate.FromComps(comps, req.Year, *req.Mileage, req.Motor)
	if est == nil {
		writeJSON(w, 200, map[string]any{"found": 0, "message": "No comparable rows"})
		return
	}
	writeJSON(w, 200, map[string]any{
		"price_czk": est.PriceCZK,
		"low_czk":   est.LowCZK,
		"high_czk":  est.HighCZK,
		"count":     est.Count,
		"found":     est.Count,
	})
}

func (s *Server) handleAIEstimate(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeEstimateRequest(w, r)
	if !ok {
		return
	}
	if s.cfg.AI == nil || !s.cfg.AI.Configured() {
		writeError(w, 503, aiprice.ErrNotConfigured)
		return
	}

	comps, err := s.estimateComps(r, req)
	if err != nil {
		writeError(w, 500, err)
		return
	}

	res, err := s.cfg.AI.Estimate(r.Context(), comps, aiprice.Target{
		Brand: req.Brand, Model: req.Model, Year: req.Year,
		Mileage: *req.Mileage, Fuel: req.Fuel, Motor: req.Motor,
	})
	if err != nil {
		s.cfg.Logger.Error("ai estimate", "error", err)
		writeError(w, 502, err)
		return
	}
	writeJSON(w, 200, res)
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
