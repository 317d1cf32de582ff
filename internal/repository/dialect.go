package repository

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/darkodi/snip/internal/config"
)

// dialect captures what differs between the supported backends.
type dialect struct {
	driver            string
	schema            []string
	rebind            func(query string) string
	isUniqueViolation func(err error) bool
}

var sqliteDialect = dialect{
	driver: "sqlite3",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS urls (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            original_url VARCHAR(2048) NOT NULL,
            short_code VARCHAR(32) NOT NULL,
            clicks INTEGER NOT NULL DEFAULT 0,
            created_at DATETIME NOT NULL
        )`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_urls_short_code ON urls (short_code)`,
		`CREATE INDEX IF NOT EXISTS idx_urls_original_url ON urls (original_url)`,
	},
	rebind: func(q string) string { return q },
	isUniqueViolation: func(err error) bool {
		var se sqlite3.Error
		if !errors.As(err, &se) {
			return false
		}
		return se.ExtendedCode == sqlite3.ErrConstraintUnique ||
			se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	},
}

var postgresDialect = dialect{
	driver: "postgres",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS urls (
            id BIGSERIAL PRIMARY KEY,
            original_url VARCHAR(2048) NOT NULL,
            short_code VARCHAR(32) NOT NULL,
            clicks BIGINT NOT NULL DEFAULT 0,
            created_at TIMESTAMPTZ NOT NULL
        )`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_urls_short_code ON urls (short_code)`,
		// equality lookups only; hash avoids the btree row size limit on long URLs
		`CREATE INDEX IF NOT EXISTS idx_urls_original_url ON urls USING HASH (original_url)`,
	},
	rebind: rebindDollar,
	isUniqueViolation: func(err error) bool {
		var pe *pq.Error
		return errors.As(err, &pe) && pe.Code == "23505"
	},
}

// dataSource picks the dialect and DSN for cfg.
func dataSource(cfg *config.DatabaseConfig) (dialect, string, error) {
	switch cfg.Backend {
	case config.BackendSQLite, "":
		if cfg.Path == ":memory:" {
			return sqliteDialect, cfg.Path, nil
		}
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return dialect{}, "", fmt.Errorf("create database directory: %w", err)
			}
		}
		return sqliteDialect, "file:" + cfg.Path + "?_busy_timeout=5000&_journal_mode=WAL", nil
	case config.BackendPostgres:
		return postgresDialect, cfg.DSN, nil
	default:
		return dialect{}, "", fmt.Errorf("unsupported database backend %q", cfg.Backend)
	}
}

// rebindDollar rewrites ? placeholders as $1, $2, ...
func rebindDollar(q string) string {
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(q[i])
	}
	return b.String()
}
