package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/billsforynab/bills/internal/config"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite" // register sqlite driver
)

// LatestVersion is the schema version every opened store is migrated to.
const LatestVersion uint = 3

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrMigrationFailed means the store could not be brought to LatestVersion and must not be used
// until the database file is cleared.
var ErrMigrationFailed = errors.New("schema migration failed")

// Open opens (creating when needed) the local SQLite store and migrates it to the latest schema.
func Open(ctx context.Context, cfg config.Store) (*sql.DB, error) {
	if dir := filepath.Dir(cfg.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("creating store dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.Path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)&_pragma=synchronous(normal)")
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("opening store: %w", err)
	}

	if err := Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate runs every pending migration using golang-migrate against the given database.
func Migrate(db *sql.DB) error {
	m, closeSource, err := newMigrate(db)
	if err != nil {
		return err
	}
	defer closeSource()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Errorf("migration up failed: %v", err)
		return fmt.Errorf("%w: %w", ErrMigrationFailed, err)
	}
	return nil
}

// MigrateTo moves the schema to exactly the given version, up or down.
func MigrateTo(db *sql.DB, version uint) error {
	m, closeSource, err := newMigrate(db)
	if err != nil {
		return err
	}
	defer closeSource()

	if err := m.Migrate(version); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Errorf("migration to version %d failed: %v", version, err)
		return fmt.Errorf("%w: %w", ErrMigrationFailed, err)
	}
	return nil
}

// Version reports the current schema version. A fresh database reports 0.
func Version(db *sql.DB) (uint, bool, error) {
	m, closeSource, err := newMigrate(db)
	if err != nil {
		return 0, false, err
	}
	defer closeSource()

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("reading schema version: %w", err)
	}
	return version, dirty, nil
}

// newMigrate builds a migrate instance on top of db. Closing the returned instance would close db
// as well, so callers only release the embedded source.
func newMigrate(db *sql.DB) (*migrate.Migrate, func(), error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, nil, fmt.Errorf("%w: loading migrations: %w", ErrMigrationFailed, err)
	}

	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		_ = src.Close()
		return nil, nil, fmt.Errorf("%w: creating sqlite driver: %w", ErrMigrationFailed, err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		_ = src.Close()
		return nil, nil, fmt.Errorf("%w: creating migrate instance: %w", ErrMigrationFailed, err)
	}
	m.Log = migrateLogger{}

	return m, func() { _ = src.Close() }, nil
}

type migrateLogger struct{}

func (migrateLogger) Printf(format string, v ...interface{}) {
	log.Debugf("migrate: "+format, v...)
}

func (migrateLogger) Verbose() bool {
	return log.IsLevelEnabled(log.TraceLevel)
}
