package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/MediSynth-io/contentplanner/internal/config"
	_ "github.com/lib/pq" // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// Dialect names the SQL backend a connection talks to.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// ParseDialect maps the configured database type onto a Dialect. Empty means SQLite.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(s) {
	case "postgres", "postgresql":
		return Postgres, nil
	case "sqlite", "sqlite3", "":
		return SQLite, nil
	}
	return "", fmt.Errorf("unsupported database type: %s", s)
}

// DB is an open connection pool together with its dialect.
type DB struct {
	*sql.DB
	Dialect Dialect
}

// Open connects to the configured database and verifies it with a ping,
// retrying up to MaxRetries times.
func Open(ctx context.Context, cfg config.DatabaseConfig, log zerolog.Logger) (*DB, error) {
	dialect, err := ParseDialect(cfg.Type)
	if err != nil {
		return nil, err
	}

	var db *sql.DB
	switch dialect {
	case Postgres:
		log.Info().Str("host", cfg.Host).Int("port", cfg.Port).Str("database", cfg.Name).Msg("opening postgres connection")
		db, err = sql.Open("postgres", cfg.DSN())
		if err != nil {
			return nil, fmt.Errorf("failed to open PostgreSQL connection: %w", err)
		}
		if cfg.MaxConns > 0 {
			db.SetMaxOpenConns(cfg.MaxConns)
		}
		if cfg.MaxIdle > 0 {
			db.SetMaxIdleConns(cfg.MaxIdle)
		}
	case SQLite:
		db, err = openSQLite(cfg.Path, log)
		if err != nil {
			return nil, err
		}
	}

	attempts := cfg.MaxRetries
	if attempts <= 0 {
		attempts = 1
	}
	for i := 1; ; i++ {
		err = db.PingContext(ctx)
		if err == nil {
			break
		}
		if i >= attempts {
			db.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		log.Warn().Err(err).Int("attempt", i).Int("of", attempts).Msg("database ping failed, retrying")
		select {
		case <-ctx.Done():
			db.Close()
			return nil, ctx.Err()
		case <-time.After(cfg.RetryDelay):
		}
	}

	log.Info().Str("dialect", string(dialect)).Msg("database connection established")
	return &DB{DB: db, Dialect: dialect}, nil
}

func openSQLite(path string, log zerolog.Logger) (*sql.DB, error) {
	if path != ":memory:" {
		dataDir := filepath.Dir(path)
		if err := createDataDir(dataDir, log); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		if err := checkWritePermissions(dataDir, log); err != nil {
			return nil, fmt.Errorf("insufficient permissions for data directory %s: %w", dataDir, err)
		}
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000", path)
	log.Debug().Str("dsn", dsn).Msg("opening sqlite database")

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY under the WAL journal.
	db.SetMaxOpenConns(1)
	return db, nil
}

// Rebind rewrites `?` placeholders into the dialect's native form.
func (d Dialect) Rebind(query string) string {
	if d != Postgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// Placeholders returns "?, ?, ..." with n entries.
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// createDataDir ensures the data directory exists with proper permissions
func createDataDir(dir string, log zerolog.Logger) error {
	if stat, err := os.Stat(dir); err == nil {
		if !stat.IsDir() {
			return fmt.Errorf("path %s exists but is not a directory", dir)
		}
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat directory %s: %w", dir, err)
	}

	log.Info().Str("dir", dir).Msg("creating data directory")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// checkWritePermissions verifies that we can write to the directory
func checkWritePermissions(dir string, log zerolog.Logger) error {
	testFile := filepath.Join(dir, ".write_test")

	file, err := os.Create(testFile)
	if err != nil {
		return fmt.Errorf("cannot create test file: %w", err)
	}
	file.Close()

	if err := os.Remove(testFile); err != nil {
		log.Warn().Err(err).Str("file", testFile).Msg("failed to remove write test file")
	}
	return nil
}

// TableCounts reports row counts for the application tables. Used by health tooling.
func (d *DB) TableCounts(ctx context.Context) (map[string]int64, error) {
	tables := []string{"users", "content_items", "content_templates", "email_reminders", "sessions", "api_tokens"}
	counts := make(map[string]int64, len(tables))
	for _, t := range tables {
		var n int64
		if err := d.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+t).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", t, err)
		}
		counts[t] = n
	}
	return counts, nil
}
