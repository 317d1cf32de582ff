package service

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/darkodi/snip/internal/logger"
	"github.com/darkodi/snip/internal/model"
	"github.com/darkodi/snip/internal/repository"
)

// Visit describes who followed a short link
type Visit struct {
	UserAgent     string
	ClientAddress string
}

// RedirectService resolves short codes and counts clicks
type RedirectService struct {
	store  Store
	cache  URLCache      // optional
	clicks ClickRecorder // optional
	log    *logger.Logger
	now    func() time.Time

	lookups singleflight.Group
}

// NewRedirectService creates a redirect service. cache and clicks may be nil.
func NewRedirectService(store Store, cache URLCache, clicks ClickRecorder, log *logger.Logger) *RedirectService {
	return &RedirectService{
		store:  store,
		cache:  cache,
		clicks: clicks,
		log:    log,
		now:    time.Now,
	}
}

// Resolve returns the original URL for code and counts the click.
// The click event is handed off without waiting for the sink.
func (s *RedirectService) Resolve(ctx context.Context, code string, visit Visit) (string, error) {
	originalURL, err := s.lookup(ctx, code)
	if err != nil {
		return "", err
	}

	if err := s.store.IncrementClicks(ctx, code); err != nil {
		return "", err
	}

	if s.clicks != nil {
		s.clicks.Dispatch(model.ClickEvent{
			ShortCode: code,
			Timestamp: s.now().UTC(),
			UserAgent: visit.UserAgent,
			IPAddress: visit.ClientAddress,
		})
	}

	return originalURL, nil
}

// Stats returns the mapping for code, read from the store
func (s *RedirectService) Stats(ctx context.Context, code string) (*model.URL, error) {
	mapping, err := s.store.FindByShortCode(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrURLNotFound
	}
	return mapping, err
}

func (s *RedirectService) lookup(ctx context.Context, code string) (string, error) {
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, code)
		if err != nil {
			s.log.Warn("cache get failed", "short_code", code, "error", err.Error())
		} else if ok {
			return cached, nil
		}
	}

	v, err := shared(ctx, &s.lookups, code, func(ctx context.Context) (any, error) {
		mapping, err := s.store.FindByShortCode(ctx, code)
		if err != nil {
			return "", err
		}
		if s.cache != nil {
			if err := s.cache.Set(ctx, code, mapping.OriginalURL); err != nil {
				s.log.Warn("cache set failed", "short_code", code, "error", err.Error())
			}
		}
		return mapping.OriginalURL, nil
	})
	if errors.Is(err, repository.ErrNotFound) {
		return "", ErrURLNotFound
	}
	if err != nil {
		return "", err
	}
	return v.(string), nil
}
