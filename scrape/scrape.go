// Package scrape collects vehicle listings from sauto.cz with a headless
// Chrome driven through Rod. Listing pages yield ad links, each ad page is
// parsed into a live-mode listing record with folded filter columns.
package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"

	"github.com/Fojtik82/autoscan-backend/config"
	"github.com/Fojtik82/autoscan-backend/listings"
	"github.com/Fojtik82/autoscan-backend/normalize"
)

const defaultBaseURL = "https://www.sauto.cz"

// Config configures the Scraper.
type Config struct {
	// Targets lists the brands and page counts to crawl.
	Targets []config.ScrapeTarget

	// BaseURL of the listing site. Default: https://www.sauto.cz.
	BaseURL string

	// RemoteURL is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local Chrome via launcher.
	RemoteURL string

	// PageDelay is the settle time after loading a listing page. Default: 2s.
	PageDelay time.Duration

	// AdDelay is the settle time after loading an ad page. Default: 1500ms.
	AdDelay time.Duration

	// AdLimit caps ads taken per listing page. 0 = no cap.
	AdLimit int

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.PageDelay <= 0 {
		c.PageDelay = 2 * time.Second
	}
	if c.AdDelay <= 0 {
		c.AdDelay = 1500 * time.Millisecond
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Scraper drives headless Chrome over the configured targets.
type Scraper struct {
	cfg  Config
	lnch *launcher.Launcher
}

// New creates a Scraper.
func New(cfg Config) *Scraper {
	cfg.defaults()
	return &Scraper{cfg: cfg}
}

// Run crawls every configured target and returns the collected listings.
// Per-ad failures are logged and skipped. A page that yields zero ad links
// ends that target's pagination early.
func (s *Scraper) Run(ctx context.Context) ([]listings.Listing, error) {
	b, err := s.connect()
	if err != nil {
		return nil, err
	}
	defer s.cleanup(b)

	log := s.cfg.Logger
	var out []listings.Listing

	for _, target := range s.cfg.Targets {
		for page := 1; page <= target.Pages; page++ {
			if err := ctx.Err(); err != nil {
				return out, err
			}

			pageURL := fmt.Sprintf("%s/inzerce/osobni/%s?page=%d",
				s.cfg.BaseURL, strings.ToLower(target.Brand), page)
			links, err := s.adLinks(ctx, b, pageURL)
			if err != nil {
				log.Error("scrape: listing page", "url", pageURL, "error", err)
				break
			}
			if len(links) == 0 {
				log.Info("scrape: no ads, stopping pagination",
					"brand", target.Brand, "page", page)
				break
			}
			if s.cfg.AdLimit > 0 && len(links) > s.cfg.AdLimit {
				links = links[:s.cfg.AdLimit]
			}

			for _, link := range links {
				if err := ctx.Err(); err != nil {
					return out, err
				}
				l, err := s.scrapeAd(ctx, b, link, target.Brand)
				if err != nil {
					log.Warn("scrape: ad failed", "url", link, "error", err)
					continue
				}
				out = append(out, l)
			}
			log.Info("scrape: page done",
				"brand", target.Brand, "page", page, "collected", len(out))
		}
	}

	return out, nil
}

// connect launches a local Chrome or attaches to a remote one.
func (s *Scraper) connect() (*rod.Browser, error) {
	wsURL := s.cfg.RemoteURL
	if wsURL == "" {
		l := launcher.New().
			Headless(true).
			Set("disable-blink-features", "AutomationControlled").
			Set("no-sandbox").
			Set("disable-dev-shm-usage")
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("scrape: launch chrome: %w", err)
		}
		wsURL = u
		s.lnch = l
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("scrape: connect: %w", err)
	}
	return b, nil
}

func (s *Scraper) cleanup(b *rod.Browser) {
	if b != nil {
		b.Close()
	}
	if s.lnch != nil {
		s.lnch.Cleanup()
		s.lnch = nil
	}
}

// adLinks loads a listing page and collects absolute ad URLs from the
// result cards.
func (s *Scraper) adLinks(ctx context.Context, b *rod.Browser, pageURL string) ([]string, error) {
	page, err := stealth.Page(b)
	if err != nil {
		return nil, fmt.Errorf("scrape: open tab: %w", err)
	}
	defer page.Close()

	navCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		return nil, fmt.Errorf("scrape: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		s.cfg.Logger.Warn("scrape: wait load timeout", "url", pageURL, "error", err)
	}
	time.Sleep(s.cfg.PageDelay)

	res, err := page.Context(navCtx).Eval(`() =>
		Array.from(document.querySelectorAll('.c-item a.c-item__link'))
			.map(a => a.getAttribute('href') || '')
			.filter(h => h !== '')`)
	if err != nil {
		return nil, fmt.Errorf("scrape: collect links: %w", err)
	}

	var links []string
	for _, v := range res.Value.Arr() {
		href := v.Str()
		if !strings.HasPrefix(href, "http") {
			href = s.cfg.BaseURL + href
		}
		links = append(links, href)
	}
	return links, nil
}

// adExtractJS pulls the raw field texts out of an ad page in one round trip.
const adExtractJS = `() => {
	const text = el => el ? el.textContent.trim() : '';
	const body = document.body ? document.body.innerText : '';
	const km = body.match(/[\d\s .,]+\s*km/);
	const motor = body.match(/\d\.\d\s*[A-Za-z]*/);
	const vin = body.match(/VIN[:\s]*([A-HJ-NPR-Z0-9]{11,17})/i);
	const trans = body.match(/Převodovka[:\s]*([^\n]+)/i);
	return {
		title: text(document.querySelector('h1')),
		price: text(document.querySelector('.price')),
		km: km ? km[0] : '',
		motor: motor ? motor[0].trim() : '',
		vin: vin ? vin[1] : '',
		transmission: trans ? trans[1].trim() : '',
	};
}`

// scrapeAd loads one ad page and assembles the listing record, folds included.
func (s *Scraper) scrapeAd(ctx context.Context, b *rod.Browser, adURL, brand string) (listings.Listing, error) {
	page, err := stealth.Page(b)
	if err != nil {
		return listings.Listing{}, fmt.Errorf("scrape: open tab: %w", err)
	}
	defer page.Close()

	navCtx, cancel := context.WithTimeout(ctx, 45*time.Second)
	defer cancel()

	if err := page.Context(navCtx).Navigate(adURL); err != nil {
		return listings.Listing{}, fmt.Errorf("scrape: navigate %s: %w", adURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		s.cfg.Logger.Warn("scrape: wait load timeout", "url", adURL, "error", err)
	}
	time.Sleep(s.cfg.AdDelay)

	res, err := page.Context(navCtx).Eval(adExtractJS)
	if err != nil {
		return listings.Listing{}, fmt.Errorf("scrape: extract %s: %w", adURL, err)
	}

	v := res.Value
	title := v.Get("title").Str()
	if title == "" {
		return listings.Listing{}, fmt.Errorf("scrape: %s: no title", adURL)
	}

	return BuildListing(AdFields{
		URL:          adURL,
		Brand:        brand,
		Title:        title,
		PriceText:    v.Get("price").Str(),
		MileageText:  v.Get("km").Str(),
		Motor:        v.Get("motor").Str(),
		VIN:          v.Get("vin").Str(),
		Transmission: v.Get("transmission").Str(),
	}), nil
}

// AdFields is the raw text scraped from one ad page.
type AdFields struct {
	URL          string
	Brand        string
	Title        string
	PriceText    string
	MileageText  string
	Motor        string
	VIN          string
	Transmission string
}

// BuildListing turns raw ad fields into an ingestion record. Unparseable
// numerics stay zero, filter folds are always populated.
func BuildListing(f AdFields) listings.Listing {
	model := ModelFromTitle(f.Title, f.Brand)
	fuel := GuessFuel(f.Motor, "")

	l := listings.Listing{
		Source:       "sauto",
		URL:          f.URL,
		Brand:        f.Brand,
		Model:        model,
		Fuel:         fuel,
		Motor:        f.Motor,
		Transmission: f.Transmission,
		VIN:          f.VIN,
		ScrapedAt:    time.Now().UTC().Format(time.RFC3339),
		BrandFold:    normalize.Fold(f.Brand),
		ModelFold:    normalize.Fold(model),
		ModelBase:    normalize.FoldBase(model),
		FuelNorm:     normalize.Fold(fuel),
		MotorFold:    normalize.Fold(f.Motor),
		TransNorm:    normalize.Fold(f.Transmission),
	}
	if y, ok := ParseYear(f.Title); ok {
		l.Year = y
	}
	if km, ok := ParseMileage(f.MileageText); ok {
		l.Mileage = km
	}
	if p, ok := ParsePrice(f.PriceText); ok {
		l.PriceCZK = p
	}
	return l
}
