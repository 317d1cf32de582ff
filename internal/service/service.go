package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/darkodi/snip/internal/model"
)

// Custom errors for the service layer
var (
	ErrInvalidURL         = errors.New("invalid URL")
	ErrURLNotFound        = errors.New("short URL not found")
	ErrCodeSpaceExhausted = errors.New("could not allocate a unique short code")
)

// Store is the persistence the services need.
// repository.URLRepository implements it.
type Store interface {
	FindByOriginalURL(ctx context.Context, originalURL string) (*model.URL, error)
	FindByShortCode(ctx context.Context, code string) (*model.URL, error)
	Insert(ctx context.Context, originalURL, shortCode string, createdAt time.Time) (*model.URL, error)
	IncrementClicks(ctx context.Context, code string) error
}

// CodeGenerator produces candidate short codes
type CodeGenerator interface {
	Generate() string
}

// URLCache is an optional lookaside cache of short code -> original URL
type URLCache interface {
	Get(ctx context.Context, code string) (string, bool, error)
	Set(ctx context.Context, code, originalURL string) error
}

// ClickRecorder accepts click events without blocking
type ClickRecorder interface {
	Dispatch(ev model.ClickEvent) bool
}

// ShortURL joins baseURL and code
func ShortURL(baseURL, code string) string {
	return strings.TrimRight(baseURL, "/") + "/" + code
}

// shared runs fn once for all concurrent callers of key. fn gets a context
// that keeps ctx's values but not its cancellation, so one caller going away
// does not fail the others; the store's own query timeout still bounds it.
// Each caller stops waiting when its own ctx is done.
func shared(ctx context.Context, g *singleflight.Group, key string, fn func(context.Context) (any, error)) (any, error) {
	detached := context.WithoutCancel(ctx)
	ch := g.DoChan(key, func() (any, error) {
		return fn(detached)
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
