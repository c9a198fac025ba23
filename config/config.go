// Package config loads the autoscan backend configuration from environment
// variables, with an optional .env file for local development.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service configuration.
type Config struct {
	Port        string
	DBFile      string
	DBArchive   string
	DBURL       string
	Mode        string // "seed" or "live"
	APIKey      string
	Origins     []string
	FreshHours  int
	OpenAIKey   string
	OpenAIModel string

	ScrapeSources  string // YAML file with scrape targets (live mode)
	ScrapeInterval time.Duration

	LogLevel slog.Level
}

// Load reads the optional .env file and returns a populated Config.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("config: no .env file, using process environment")
	}

	return &Config{
		Port:        getEnv("PORT", "8090"),
		DBFile:      getEnv("DB_FILE", "./vehicles_ai.db"),
		DBArchive:   getEnv("DB_ARCHIVE", "./vehicles_ai.zip"),
		DBURL:       getEnv("DB_URL", ""),
		Mode:        getEnv("LISTINGS_MODE", "seed"),
		APIKey:      getEnv("API_KEY", ""),
		Origins:     splitCSV(getEnv("ALLOWED_ORIGINS", "*")),
		FreshHours:  getEnvInt("FRESH_HOURS_DEFAULT", 720),
		OpenAIKey:   getEnv("OPENAI_API_KEY", ""),
		OpenAIModel: getEnv("OPENAI_MODEL", "gpt-4o-mini"),

		ScrapeSources:  getEnv("SCRAPE_SOURCES", ""),
		ScrapeInterval: getEnvDuration("SCRAPE_INTERVAL", 6*time.Hour),

		LogLevel: parseLevel(getEnv("LOG_LEVEL", "info")),
	}
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string { return ":" + c.Port }

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("config: not an integer, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("config: not a duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Validate rejects combinations that cannot produce a working service.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("config: PORT must not be empty")
	}
	if c.Mode != "seed" && c.Mode != "live" {
		return fmt.Errorf("config: LISTINGS_MODE = %q, want seed or live", c.Mode)
	}
	return nil
}
