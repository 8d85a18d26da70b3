package repository

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

var pragmas = []string{
	"busy_timeout(5000)",
	"foreign_keys(1)",
	"journal_mode(WAL)",
}

func dataSource(path string) string {
	return "file:" + path + "?_pragma=" + strings.Join(pragmas, "&_pragma=")
}

// Open opens the SQLite database at path and brings its schema up to date.
func Open(path string) (*Repo, error) {
	db, err := sql.Open("sqlite", dataSource(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	r := &Repo{db: db}
	if err := r.Migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

// migrator is not closed by callers: closing it would close r.db.
func (r *Repo) migrator() (*migrate.Migrate, error) {
	driver, err := sqlite.WithInstance(r.db, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("sqlite driver: %w", err)
	}
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return nil, fmt.Errorf("iofs source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("migrate init: %w", err)
	}
	return m, nil
}

// Migrate applies pending migrations. An up-to-date schema is not an error.
func (r *Repo) Migrate() error {
	m, err := r.migrator()
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// SchemaVersion reports the applied migration version.
func (r *Repo) SchemaVersion() (version uint, dirty bool, err error) {
	m, err := r.migrator()
	if err != nil {
		return 0, false, err
	}
	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}
