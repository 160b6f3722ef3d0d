// Package database provides the SQLite setup, models and the Store used to
// keep a ledger of archived ticket transcripts.
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	"github.com/edgard/ticketbot/migrations"

	_ "modernc.org/sqlite" //revive:disable:blank-imports
)

// connPragmas are applied to every connection unless the path sets them.
var connPragmas = []string{
	"busy_timeout(5000)",
	"foreign_keys(1)",
	"journal_mode(WAL)",
}

// NewDB opens the ledger database at path and migrates it to the latest
// schema. path is a file name, optionally with "file:" and query parameters.
func NewDB(path string) (*sqlx.DB, error) {
	dsn, err := withPragmas(path)
	if err != nil {
		return nil, fmt.Errorf("invalid database path %q: %w", path, err)
	}

	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	// One writer at a time.
	db.SetMaxOpenConns(1)

	if err := ApplyMigrations(db.DB, dbFile(path)); err != nil {
		CloseDB(db)
		return nil, err
	}

	slog.Info("Ledger database ready", "path", dbFile(path))
	return db, nil
}

// CloseDB closes the connection pool and logs the outcome.
func CloseDB(db *sqlx.DB) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		slog.Error("Error closing database connection", "error", err)
		return
	}
	slog.Info("Database connection closed")
}

// ApplyMigrations brings the schema up to the newest embedded migration.
// The migrator is not closed because that would close db.
func ApplyMigrations(db *sql.DB, name string) error {
	if db == nil {
		return errors.New("cannot migrate a nil database")
	}

	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{DatabaseName: name})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	m.Log = migrateLogger{log: slog.Default().With("component", "migrate")}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	slog.Info("Schema up to date", "version", version, "dirty", dirty)
	return nil
}

// migrateLogger routes golang-migrate output to slog.
type migrateLogger struct {
	log *slog.Logger
}

func (l migrateLogger) Printf(format string, v ...any) {
	l.log.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l migrateLogger) Verbose() bool { return false }

// withPragmas appends the default connection pragmas to path, keeping any
// pragma the path already sets.
func withPragmas(path string) (string, error) {
	base, rawQuery, _ := strings.Cut(path, "?")
	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		return "", err
	}

	set := make(map[string]bool)
	for _, p := range query["_pragma"] {
		name, _, _ := strings.Cut(p, "(")
		set[strings.ToLower(name)] = true
	}
	for _, p := range connPragmas {
		name, _, _ := strings.Cut(p, "(")
		if !set[name] {
			query.Add("_pragma", p)
		}
	}
	return base + "?" + query.Encode(), nil
}

// dbFile returns the file name part of a SQLite path.
func dbFile(path string) string {
	path, _, _ = strings.Cut(strings.TrimPrefix(path, "file:"), "?")
	if decoded, err := url.PathUnescape(path); err == nil {
		return decoded
	}
	return path
}
