package shared

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// NewDatabase opens a connection using the named driver and data source.
//
// Supported drivers are "sqlite3" (cgo), "sqlite" (pure Go) and "postgres". An empty driver means "sqlite3".
// For SQLite the path can be ":memory:"; in that case the pool is pinned to a single connection so every query
// sees the same database.
func NewDatabase(driver, path string) (*sql.DB, error) {
	if driver == "" {
		driver = "sqlite3"
	}

	switch driver {
	case "sqlite3", "sqlite", "postgres":
	default:
		return nil, fmt.Errorf("%w: unsupported database driver %q", ErrInvalidConfig, driver)
	}

	db, err := sql.Open(driver, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver != "postgres" && path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// ConfigureDatabase sets connection pool settings for the database.
// Recommended for production use to limit connections and improve performance.
func ConfigureDatabase(db *sql.DB, maxOpenConns, maxIdleConns int) {
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}
	if maxIdleConns > 0 {
		db.SetMaxIdleConns(maxIdleConns)
	}
}

// IsPostgres reports whether db was opened with the lib/pq driver.
func IsPostgres(db *sql.DB) bool {
	_, ok := db.Driver().(*pq.Driver)
	return ok
}

// Rebind rewrites "?" placeholders to "$n" when db is a Postgres connection.
//
// Queries in this module never contain literal question marks, so a plain scan is enough.
func Rebind(db *sql.DB, query string) string {
	if !IsPostgres(db) {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
