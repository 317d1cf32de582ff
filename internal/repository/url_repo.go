package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/darkodi/snip/internal/config"
	"github.com/darkodi/snip/internal/model"
)

var (
	ErrNotFound    = errors.New("url not found")
	ErrConflict    = errors.New("short code already exists")
	ErrUnavailable = errors.New("url store unavailable")
)

const selectColumns = "SELECT id, original_url, short_code, clicks, created_at FROM urls"

// URLRepository persists URL mappings in sqlite or postgres.
// It is safe for concurrent use; uniqueness and counting rely on the database.
type URLRepository struct {
	db      *sql.DB
	dialect dialect
	timeout time.Duration

	qFindByCode     string
	qFindByOriginal string
	qInsert         string
	qIncrement      string
}

// NewURLRepository opens the configured database and creates the schema if needed
func NewURLRepository(cfg *config.DatabaseConfig) (*URLRepository, error) {
	d, dsn, err := dataSource(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, err
	}

	if d.driver == sqliteDialect.driver {
		// One writer at a time; also keeps ":memory:" a single database.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	r := &URLRepository{
		db:      db,
		dialect: d,
		timeout: cfg.QueryTimeout,

		qFindByCode:     d.rebind(selectColumns + " WHERE short_code = ?"),
		qFindByOriginal: d.rebind(selectColumns + " WHERE original_url = ? ORDER BY id LIMIT 1"),
		qInsert:         d.rebind("INSERT INTO urls (original_url, short_code, clicks, created_at) VALUES (?, ?, 0, ?) RETURNING id"),
		qIncrement:      d.rebind("UPDATE urls SET clicks = clicks + 1 WHERE short_code = ?"),
	}

	ctx, cancel := r.withTimeout(context.Background())
	defer cancel()
	for _, stmt := range d.schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}

	return r, nil
}

// FindByShortCode looks a mapping up by its exact short code
func (r *URLRepository) FindByShortCode(ctx context.Context, code string) (*model.URL, error) {
	return r.findOne(ctx, "find by short code", r.qFindByCode, code)
}

// FindByOriginalURL looks a mapping up by exact original URL match.
// The oldest mapping wins if several exist.
func (r *URLRepository) FindByOriginalURL(ctx context.Context, originalURL string) (*model.URL, error) {
	return r.findOne(ctx, "find by original url", r.qFindByOriginal, originalURL)
}

// Insert stores a new mapping with zero clicks.
// It returns ErrConflict if shortCode is already taken.
func (r *URLRepository) Insert(ctx context.Context, originalURL, shortCode string, createdAt time.Time) (*model.URL, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	createdAt = createdAt.UTC()
	var id int64
	err := r.db.QueryRowContext(ctx, r.qInsert, originalURL, shortCode, createdAt).Scan(&id)
	if err != nil {
		if r.dialect.isUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, unavailable("insert", err)
	}

	return &model.URL{
		ID:          id,
		OriginalURL: originalURL,
		ShortCode:   shortCode,
		CreatedAt:   createdAt,
	}, nil
}

// IncrementClicks adds one to the click counter in a single statement.
// An unknown code is a no-op.
func (r *URLRepository) IncrementClicks(ctx context.Context, code string) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, r.qIncrement, code); err != nil {
		return unavailable("increment clicks", err)
	}
	return nil
}

// Ping checks the database connection
func (r *URLRepository) Ping(ctx context.Context) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if err := r.db.PingContext(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

// Close releases the connection pool
func (r *URLRepository) Close() error {
	return r.db.Close()
}

func (r *URLRepository) findOne(ctx context.Context, op, query string, arg any) (*model.URL, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	u := &model.URL{}
	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&u.ID, &u.OriginalURL, &u.ShortCode, &u.Clicks, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable(op, err)
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}

func (r *URLRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
}
