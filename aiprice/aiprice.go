// Package aiprice asks an OpenAI chat model for a price estimate over the
// comparable listings. It is optional: without an API key the client reports
// ErrNotConfigured and callers fall back to the statistical estimate.
package aiprice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Fojtik82/autoscan-backend/listings"
)

// ErrNotConfigured means no OpenAI API key is set.
var ErrNotConfigured = errors.New("aiprice: no OPENAI_API_KEY configured")

const defaultBaseURL = "https://api.openai.com/v1"

// maxComps bounds how many comps are sent to the model, for cost.
const maxComps = 20

// Target describes the vehicle being priced.
type Target struct {
	Brand   string
	Model   string
	Year    int
	Mileage int
	Fuel    string
	Motor   string
}

// Result is the model's estimate.
type Result struct {
	LowCZK    int `json:"low_czk"`
	PriceCZK  int `json:"price_czk"`
	HighCZK   int `json:"high_czk"`
	UsedComps int `json:"used_comps"`
}

// Client calls the OpenAI chat completions API.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	http    *http.Client
}

// Option customises the client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint (tests).
func WithBaseURL(u string) Option { return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") } }

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

// New creates a Client. An empty apiKey yields a client whose Estimate
// always returns ErrNotConfigured.
func New(apiKey, model string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool { return c.apiKey != "" }

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// slimComp is the reduced comp record sent to the model.
type slimComp struct {
	Source   string  `json:"source"`
	PriceCZK *int64  `json:"price_czk"`
	Year     *int64  `json:"year"`
	Mileage  *int64  `json:"mileage"`
	Fuel     *string `json:"fuel"`
	Motor    *string `json:"motor"`
}

// Estimate asks the model for a low/mid/high price given the comps.
func (c *Client) Estimate(ctx context.Context, comps []listings.Comp, target Target) (*Result, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	if len(comps) > maxComps {
		comps = comps[:maxComps]
	}
	slim := make([]slimComp, 0, len(comps))
	for _, r := range comps {
		slim = append(slim, slimComp{
			Source: r.Source, PriceCZK: r.PriceCZK, Year: r.Year,
			Mileage: r.Mileage, Fuel: r.Fuel, Motor: r.Motor,
		})
	}
	compsJSON, err := json.Marshal(slim)
	if err != nil {
		return nil, fmt.Errorf("aiprice: marshal comps: %w", err)
	}

	prompt := fmt.Sprintf(`You analyse the Czech used-car market. Given a target
vehicle and its nearest comparable offers, weigh mileage and year, ignore
extreme outliers, and answer with bare JSON and nothing else.

Target vehicle:
- brand: %s
- model: %s
- year: %d
- mileage: %d km
- fuel: %s
- motor: %s

Comparable offers (JSON):
%s

Answer with exactly this JSON:
{"low_czk": int, "price_czk": int, "high_czk": int}`,
		target.Brand, target.Model, target.Year, target.Mileage,
		target.Fuel, target.Motor, compsJSON)

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: "You are an expert vehicle appraiser. Answer precisely and tersely."},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return nil, fmt.Errorf("aiprice: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("aiprice: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("aiprice: http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("aiprice: http %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("aiprice: read body: %w", err)
	}

	var cr chatResponse
	if err := json.Unmarshal(raw, &cr); err != nil {
		return nil, fmt.Errorf("aiprice: parse response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return nil, fmt.Errorf("aiprice: empty response")
	}

	content := strings.TrimSpace(cr.Choices[0].Message.Content)
	// Some models wrap JSON in a markdown fence despite instructions.
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var out Result
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return nil, fmt.Errorf("aiprice: model answer is not the expected JSON: %w", err)
	}
	out.UsedComps = len(slim)
	return &out, nil
}
