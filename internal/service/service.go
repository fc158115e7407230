// Package service contains the core use cases: shortening a URL against the
// active record store and resolving a short code back to its URL.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/dmarkhas/tinylink/internal/database"
	"github.com/dmarkhas/tinylink/internal/models"
	"github.com/dmarkhas/tinylink/pkg/urlnorm"
)

const (
	// DefaultMinCodeLength is the initial short code length.
	DefaultMinCodeLength = 5
	// DefaultMaxGenAttempts bounds the generator's retries.
	DefaultMaxGenAttempts = 10

	defaultStatsTimeout = 5 * time.Second
)

var shortCodePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,15}$`)

// Browser noise that must never be treated as a short code.
var skipPaths = []string{"favicon.ico", "robots.txt", "sitemap.xml", ".well-known"}

// URLService ties normalization, code generation and storage together. The
// store serving each request is selected once, at this boundary; request
// handlers never branch on storage availability themselves.
type URLService struct {
	stores *database.Selector
	logger *slog.Logger

	baseURL        string
	minCodeLength  int
	maxGenAttempts int
	statsTimeout   time.Duration

	wg sync.WaitGroup
}

// New creates a URLService. baseURL is used to compose displayable short URLs.
func New(stores *database.Selector, logger *slog.Logger, baseURL string, minCodeLength, maxGenAttempts int) *URLService {
	return &URLService{
		stores:         stores,
		logger:         logger,
		baseURL:        strings.TrimSuffix(baseURL, "/"),
		minCodeLength:  minCodeLength,
		maxGenAttempts: maxGenAttempts,
		statsTimeout:   defaultStatsTimeout,
	}
}

// Shorten normalizes rawURL, allocates a unique short code and persists the
// record. A nil ownerID creates a fresh single-use anonymous owner. If the
// write loses a race for the generated code, ErrCodeCollision is returned and
// the caller is expected to retry; the service does not loop internally
// beyond the generator's own bounded attempts.
func (s *URLService) Shorten(ctx context.Context, rawURL string, ownerID *int64) (*models.URLRecord, error) {
	const op = "service.URLService.Shorten"

	originalURL := urlnorm.Normalize(rawURL)
	store := s.stores.Active()

	shortCode, err := generateShortCode(ctx, store, s.logger, s.minCodeLength, s.maxGenAttempts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var owner *models.Owner
	if ownerID != nil {
		owner, err = store.OwnerByID(ctx, *ownerID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	} else {
		owner, err = store.CreateOwner(ctx, anonymousOwnerAttrs())
		if err != nil {
			return nil, fmt.Errorf("%s: failed to create anonymous owner: %w", op, err)
		}
	}

	rec := &models.URLRecord{
		ShortCode:   shortCode,
		OriginalURL: originalURL,
		ShortURL:    s.baseURL + "/" + shortCode,
		CreatedAt:   time.Now().UTC(),
	}

	created, err := store.AppendRecord(ctx, owner.ID, rec)
	if err != nil {
		if errors.Is(err, database.ErrDuplicateShortCode) {
			s.logger.Warn("short code claimed by concurrent writer",
				slog.String("short_code", shortCode),
			)
			return nil, fmt.Errorf("%s: %w", op, ErrCodeCollision)
		}

		return nil, fmt.Errorf("%s: failed to append record: %w", op, err)
	}

	return created, nil
}

// Resolve maps a short code back to its record. The record is returned
// before the statistics update runs: the click count increment is handed to a
// detached goroutine whose failure is only ever logged.
func (s *URLService) Resolve(ctx context.Context, shortCode string) (*models.URLRecord, error) {
	const op = "service.URLService.Resolve"

	if !validShortCode(shortCode) {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCode)
	}

	store := s.stores.Active()

	_, rec, err := store.FindByShortCode(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// Defensive: repairs records persisted before a normalization fix.
	rec.OriginalURL = urlnorm.Normalize(rec.OriginalURL)

	u, err := url.Parse(rec.OriginalURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%s: %q: %w", op, rec.OriginalURL, ErrMalformedRecord)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		statsCtx, cancel := context.WithTimeout(context.Background(), s.statsTimeout)
		defer cancel()

		if err := store.IncrementStats(statsCtx, shortCode); err != nil {
			s.logger.Error("failed to update click statistics",
				slog.String("short_code", shortCode),
				slog.Any("err", err),
			)
		}
	}()

	return rec, nil
}

// ListRecords returns the owner's records in insertion order.
func (s *URLService) ListRecords(ctx context.Context, ownerID int64) ([]models.URLRecord, error) {
	const op = "service.URLService.ListRecords"

	records, err := s.stores.Active().ListRecords(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return records, nil
}

// CollisionStats reports total records against distinct short codes. The two
// match as long as the uniqueness constraint holds; this is diagnostic only.
func (s *URLService) CollisionStats(ctx context.Context) (*models.CollisionStats, error) {
	const op = "service.URLService.CollisionStats"

	stats, err := s.stores.Active().CollisionStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return stats, nil
}

// UsingFallback reports whether requests are currently served by the
// fallback store.
func (s *URLService) UsingFallback() bool {
	return s.stores.FallbackActive()
}

// Wait blocks until all detached statistics updates have finished. Called on
// shutdown so in-flight increments are not dropped, and by tests to observe
// the update deterministically.
func (s *URLService) Wait() {
	s.wg.Wait()
}

func validShortCode(shortCode string) bool {
	for _, p := range skipPaths {
		if strings.Contains(shortCode, p) {
			return false
		}
	}
	return shortCodePattern.MatchString(shortCode)
}

// anonymousOwnerAttrs builds a one-off identity for an anonymous submission.
// The generated email keeps the owners' email uniqueness constraint from
// firing: anonymous owners are never reused.
func anonymousOwnerAttrs() models.OwnerAttrs {
	suffix := gonanoid.MustGenerate("0123456789abcdefghijklmnopqrstuvwxyz", 9)

	return models.OwnerAttrs{
		FirstName: "Anonymous",
		LastName:  "User",
		Email:     fmt.Sprintf("anonymous_%d_%s", time.Now().UnixMilli(), suffix),
		Anonymous: true,
	}
}
