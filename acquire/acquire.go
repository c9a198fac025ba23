// Package acquire obtains the local listings database file before any query
// logic can run.
//
// Priority policy, highest first:
//
//  1. A local archive is an authoritative, explicitly-provided refresh: when
//     present it is extracted over any existing database file, unconditionally.
//  2. No database file and a remote URL configured: download it.
//  3. No database file and no source at all: fatal.
//  4. Database file already present, no archive: use it unchanged.
//
// Extraction and download write to a temp file in the target directory and
// rename into place, so a failed attempt never leaves a partial database
// visible. One attempt per startup; failures are not retried.
package acquire

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Sentinel errors, distinguished so startup diagnostics can name the exact
// failure instead of a generic one.
var (
	// ErrNoSource means no database file, no archive, and no remote URL.
	ErrNoSource = errors.New("acquire: no database source available")
	// ErrArchive wraps archive extraction failures, including a zip that
	// lacks any database member.
	ErrArchive = errors.New("acquire: archive extraction failed")
	// ErrDownload wraps remote transfer failures.
	ErrDownload = errors.New("acquire: download failed")
)

// Config configures the resolver.
type Config struct {
	// DBPath is where the database file is expected and written.
	DBPath string
	// ArchivePath is the local zip checked first.
	ArchivePath string
	// RemoteURL is the optional remote database source.
	RemoteURL string
	// Timeout bounds the whole download. Default: 5 minutes.
	Timeout time.Duration
	// UserAgent sent with download requests.
	UserAgent string
	// Client overrides the HTTP client (tests). Default: timeout client.
	Client *http.Client
	// Logger for progress messages. Default: slog.Default().
	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.DBPath == "" {
		c.DBPath = "vehicles_ai.db"
	}
	if c.ArchivePath == "" {
		c.ArchivePath = "vehicles_ai.zip"
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Minute
	}
	if c.UserAgent == "" {
		c.UserAgent = "autoscan-backend/1.0"
	}
	if c.Client == nil {
		c.Client = &http.Client{Timeout: c.Timeout}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Resolve produces a usable database file at cfg.DBPath per the priority
// policy and returns which source supplied it: "archive", "download", or
// "existing".
func Resolve(ctx context.Context, cfg Config) (string, error) {
	cfg.defaults()

	haveArchive := fileExists(cfg.ArchivePath)
	haveDB := fileExists(cfg.DBPath)

	switch {
	case haveArchive:
		// Archive always wins, even over a database left from a previous run.
		cfg.Logger.Info("acquire: extracting archive",
			"archive", cfg.ArchivePath, "db", cfg.DBPath, "overwriting", haveDB)
		if err := extractDB(cfg.ArchivePath, cfg.DBPath); err != nil {
			return "", err
		}
		return "archive", nil

	case !haveDB && cfg.RemoteURL != "":
		cfg.Logger.Info("acquire: downloading database", "url", cfg.RemoteURL, "db", cfg.DBPath)
		if err := download(ctx, &cfg); err != nil {
			return "", err
		}
		return "download", nil

	case !haveDB:
		return "", fmt.Errorf("%w: %s not found, %s not found, and DB_URL is not set",
			ErrNoSource, cfg.DBPath, cfg.ArchivePath)

	default:
		cfg.Logger.Info("acquire: using existing database", "db", cfg.DBPath)
		return "existing", nil
	}
}

// extractDB extracts the database member from a zip archive to dbPath.
// The member is the one matching the database file name, or failing that the
// first *.db entry.
func extractDB(archivePath, dbPath string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", ErrArchive, archivePath, err)
	}
	defer r.Close()

	want := filepath.Base(dbPath)
	var member *zip.File
	for _, f := range r.File {
		if filepath.Base(f.Name) == want {
			member = f
			break
		}
		if member == nil && strings.HasSuffix(f.Name, ".db") {
			member = f
		}
	}
	if member == nil {
		return fmt.Errorf("%w: %s contains no %s and no *.db member", ErrArchive, archivePath, want)
	}

	rc, err := member.Open()
	if err != nil {
		return fmt.Errorf("%w: open member %s: %v", ErrArchive, member.Name, err)
	}
	defer rc.Close()

	if err := writeAtomic(dbPath, rc); err != nil {
		return fmt.Errorf("%w: %v", ErrArchive, err)
	}
	return nil
}

// download fetches cfg.RemoteURL to cfg.DBPath.
func download(ctx context.Context, cfg *Config) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.RemoteURL, nil)
	if err != nil {
		return fmt.Errorf("%w: new request: %v", ErrDownload, err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)

	resp, err := cfg.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDownload, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: http %d from %s", ErrDownload, resp.StatusCode, cfg.RemoteURL)
	}

	if err := writeAtomic(cfg.DBPath, resp.Body); err != nil {
		return fmt.Errorf("%w: %v", ErrDownload, err)
	}
	return nil
}

// writeAtomic streams src to a temp file next to path and renames it into
// place, so readers never observe a partially-written database.
func writeAtomic(path string, src io.Reader) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp: %v", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %v", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %v", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename into place: %v", err)
	}
	return nil
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
