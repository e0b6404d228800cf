// Package storage persists curation reports and remembers which stories were
// already delivered to subscribers.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/innov8academy/newsletter-auto/internal/news"
	"github.com/innov8academy/newsletter-auto/internal/rss"
)

const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverNone   = "none"

	// DefaultMaxReports is how many reports the file store keeps.
	DefaultMaxReports = 50
)

// ErrNotFound is returned when no report exists yet.
var ErrNotFound = errors.New("report not found")

// Report is one persisted curation result.
type Report struct {
	ID        string              `json:"id"`
	CreatedAt time.Time           `json:"createdAt"`
	Stories   []news.CuratedStory `json:"stories"`
	Stats     news.Stats          `json:"stats"`
}

type Store interface {
	SaveReport(ctx context.Context, r Report) error
	LatestReport(ctx context.Context) (*Report, error)
	// ListReports returns up to limit reports, newest first.
	ListReports(ctx context.Context, limit int) ([]Report, error)

	IsAlreadySent(ctx context.Context, key string) (bool, error)
	MarkAsSent(ctx context.Context, key, headline, url string) error
	// Cleanup forgets sent stories older than the store's TTL.
	Cleanup(ctx context.Context) error

	Close() error
}

// Open returns the store for driver. DriverNone yields (nil, nil).
func Open(driver, path string, sentTTL time.Duration) (Store, error) {
	switch driver {
	case DriverNone:
		return nil, nil
	case DriverFile, "":
		fs := NewFileStore(path, sentTTL)
		if err := fs.Load(); err != nil {
			return nil, err
		}
		return fs, nil
	case DriverSQLite:
		s, err := OpenSQLite(path, sentTTL)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", driver)
}

// StoryKey identifies a story across runs by its normalized headline and the
// domain of its link.
func StoryKey(headline, link string) string {
	h := sha256.New()
	h.Write([]byte(rss.NormalizeTitle(headline) + "|" + extractDomain(link)))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

func extractDomain(url string) string {
	if url == "" {
		return "unknown"
	}

	url = strings.TrimPrefix(url, "http://")
	url = strings.TrimPrefix(url, "https://")

	domain, _, _ := strings.Cut(url, "/")
	domain = strings.TrimPrefix(domain, "www.")
	if domain == "" {
		return "unknown"
	}
	return strings.ToLower(domain)
}
