package persistence

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// ErrDirtySchema means a previous migration failed halfway and needs manual repair
var ErrDirtySchema = errors.New("ledger schema is dirty")

// MigrationsSource turns a directory into a migrate source URL. Values that
// already carry a scheme are returned unchanged.
func MigrationsSource(path string) string {
	if strings.Contains(path, "://") {
		return path
	}
	return "file://" + path
}

// RunMigrations brings the ledger schema up to date and returns its version
func RunMigrations(databaseURL string, migrationsPath string) (uint, error) {
	switch {
	case migrationsPath == "":
		return 0, errors.New("migrations path cannot be empty")
	case databaseURL == "":
		return 0, errors.New("database URL cannot be empty")
	}

	m, err := migrate.New(MigrationsSource(migrationsPath), databaseURL)
	if err != nil {
		return 0, fmt.Errorf("failed to open migrations: %w", err)
	}
	defer m.Close()

	if _, dirty, err := m.Version(); err == nil && dirty {
		return 0, ErrDirtySchema
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, _, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}
