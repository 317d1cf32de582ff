package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/darkodi/snip/internal/logger"
	"github.com/darkodi/snip/internal/model"
	"github.com/darkodi/snip/internal/repository"
	"github.com/darkodi/snip/internal/validator"
)

// DefaultMaxAttempts bounds code allocation retries
const DefaultMaxAttempts = 10

// ShortenService maps long URLs to short codes with get-or-create semantics
type ShortenService struct {
	store       Store
	gen         CodeGenerator
	validator   *validator.URLValidator
	maxAttempts int
	log         *logger.Logger
	now         func() time.Time

	// concurrent first requests for the same URL share one allocation
	inflight singleflight.Group
}

// NewShortenService creates a new shortening service
func NewShortenService(store Store, gen CodeGenerator, maxAttempts int, log *logger.Logger) *ShortenService {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	return &ShortenService{
		store:       store,
		gen:         gen,
		validator:   validator.NewURLValidator(),
		maxAttempts: maxAttempts,
		log:         log,
		now:         time.Now,
	}
}

// Shorten returns the short code for originalURL, creating a mapping on first use.
// Repeated calls with the identical string return the same code.
func (s *ShortenService) Shorten(ctx context.Context, baseURL, originalURL string) (*model.ShortenResponse, error) {
	// ============ STEP 1: Validation ============
	if err := s.validator.ValidateURL(originalURL); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}

	// ============ STEP 2 + 3: Reuse or allocate ============
	v, err := shared(ctx, &s.inflight, originalURL, func(ctx context.Context) (any, error) {
		return s.getOrCreate(ctx, originalURL)
	})
	if err != nil {
		return nil, err
	}
	mapping := v.(*model.URL)

	return &model.ShortenResponse{
		ShortURL:  ShortURL(baseURL, mapping.ShortCode),
		ShortCode: mapping.ShortCode,
	}, nil
}

func (s *ShortenService) getOrCreate(ctx context.Context, originalURL string) (*model.URL, error) {
	existing, err := s.store.FindByOriginalURL(ctx, originalURL)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		code := s.gen.Generate()

		created, err := s.store.Insert(ctx, originalURL, code, s.now())
		if err == nil {
			s.log.Debug("short code allocated", "short_code", code, "attempts", attempt)
			return created, nil
		}
		if !errors.Is(err, repository.ErrConflict) {
			return nil, err
		}
		s.log.Debug("short code collision, retrying", "short_code", code, "attempt", attempt)
	}

	s.log.Error("short code space exhausted",
		"attempts", s.maxAttempts,
		"original_url", originalURL)
	return nil, ErrCodeSpaceExhausted
}
