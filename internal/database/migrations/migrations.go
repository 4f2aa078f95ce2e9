package migrations

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"katalog/internal/katalog"
)

// CurrentVersion is the schema version written by this build. Each
// migration file NNNNNN_*.up.sql brings a catalog to version NNNNNN.
const CurrentVersion = 3

// Full-text modules usable for the search index, in order of preference.
const (
	ModuleFTS5 = "fts5"
	ModuleFTS4 = "fts4"
)

// indexModulePlaceholder stands for the search index module in migration
// bodies.
const indexModulePlaceholder = "{{index_module}}"

//go:embed files/*.sql
var migrationFiles embed.FS

// Migrate brings db to CurrentVersion. Steps are applied in order, each in
// its own transaction. Catalogs that only carry a schema_info row or a
// user_version stamp are adopted at that version first. A catalog stamped
// with a newer version is rejected with katalog.ErrSchemaIncompatible.
// On success the schema_info row and user_version are re-stamped.
func Migrate(db *sql.DB) error {
	stored, err := StoredVersion(db)
	if err != nil {
		return err
	}
	if stored > CurrentVersion {
		return fmt.Errorf("%w: catalog version %d, supported %d", katalog.ErrSchemaIncompatible, stored, CurrentVersion)
	}

	m, err := newMigrate(db)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	// Note: m is not closed because that would close db, which the caller owns.

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		if stored > 0 {
			if err := m.Force(stored); err != nil {
				return fmt.Errorf("adopting legacy catalog at version %d: %w", stored, err)
			}
		}
	case err != nil:
		return fmt.Errorf("failed to get database version: %w", err)
	case version > CurrentVersion:
		return fmt.Errorf("%w: catalog version %d, supported %d", katalog.ErrSchemaIncompatible, version, CurrentVersion)
	case dirty:
		// The failed step ran in a transaction that was rolled back, so the
		// schema is still at the previous version and the step is safe to rerun.
		prev := int(version) - 1
		if prev == 0 {
			prev = database.NilVersion
		}
		if err := m.Force(prev); err != nil {
			return fmt.Errorf("recovering dirty version %d: %w", version, err)
		}
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}

	return stamp(db, CurrentVersion)
}

// MigrateUp runs all pending migrations without the legacy adoption and
// stamping done by Migrate.
func MigrateUp(db *sql.DB) error {
	m, err := newMigrate(db)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return nil
		}
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// MigrateTo moves db to exactly version, up or down. Used to reproduce old
// catalogs.
func MigrateTo(db *sql.DB, version uint) error {
	m, err := newMigrate(db)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	if err := m.Migrate(version); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrating to version %d: %w", version, err)
	}
	return nil
}

// CheckDBMigrationStatus verifies that the database schema is up-to-date.
// Returns nil if the database is at the latest version.
func CheckDBMigrationStatus(db *sql.DB) error {
	m, err := newMigrate(db)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return fmt.Errorf("database has no schema version (needs migration)")
		}
		return fmt.Errorf("failed to get database version: %w", err)
	}
	if dirty {
		return fmt.Errorf("database is in dirty state at version %d (migration failed previously)", version)
	}

	sourceDriver, err := iofs.New(migrationFiles, "files")
	if err != nil {
		return fmt.Errorf("failed to read migration files: %w", err)
	}
	defer sourceDriver.Close()

	latestVersion, err := getLatestVersion(sourceDriver)
	if err != nil {
		return fmt.Errorf("failed to determine latest version: %w", err)
	}

	if version < latestVersion {
		return fmt.Errorf("database is at version %d but latest is %d (%d migrations behind)",
			version, latestVersion, latestVersion-version)
	}
	if version > latestVersion {
		return fmt.Errorf("database version %d is ahead of binary version %d (binary needs update)",
			version, latestVersion)
	}
	return nil
}

// StoredVersion reads the version recorded in the catalog itself: the
// schema_info row when present, else PRAGMA user_version. 0 means the
// catalog carries no version.
func StoredVersion(db *sql.DB) (int, error) {
	var n int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'schema_info'").Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("inspecting schema: %w", err)
	}
	if n > 0 {
		var v int
		err := db.QueryRow("SELECT version FROM schema_info WHERE id = 1").Scan(&v)
		switch {
		case err == nil:
			return v, nil
		case !errors.Is(err, sql.ErrNoRows):
			return 0, fmt.Errorf("reading schema_info: %w", err)
		}
	}

	var v int
	if err := db.QueryRow("PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("reading user_version: %w", err)
	}
	return v, nil
}

// LatestVersion returns the highest version among the embedded migrations.
func LatestVersion() (uint, error) {
	src, err := iofs.New(migrationFiles, "files")
	if err != nil {
		return 0, fmt.Errorf("failed to read migration files: %w", err)
	}
	defer src.Close()
	return getLatestVersion(src)
}

func stamp(db *sql.DB, version int) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS schema_info (id INTEGER PRIMARY KEY CHECK (id = 1), version INTEGER NOT NULL)`,
		fmt.Sprintf(`INSERT INTO schema_info (id, version) VALUES (1, %d)
			ON CONFLICT(id) DO UPDATE SET version = excluded.version`, version),
		fmt.Sprintf(`PRAGMA user_version = %d`, version),
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("stamping schema version: %w", err)
		}
	}
	return tx.Commit()
}

// newMigrate creates a new migrate instance for the given database. The
// search index is created with the best full-text module db supports.
func newMigrate(db *sql.DB) (*migrate.Migrate, error) {
	module, err := SupportedIndexModule(db)
	if err != nil {
		return nil, err
	}

	sourceDriver, err := iofs.New(migrationFiles, "files")
	if err != nil {
		return nil, fmt.Errorf("failed to create source driver: %w", err)
	}

	dbDriver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		sourceDriver.Close()
		return nil, fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", indexSource{Driver: sourceDriver, module: module}, "sqlite3", dbDriver)
	if err != nil {
		sourceDriver.Close()
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}

// indexSource fills in the search index module in up migrations.
type indexSource struct {
	source.Driver
	module string
}

func (s indexSource) ReadUp(version uint) (io.ReadCloser, string, error) {
	r, identifier, err := s.Driver.ReadUp(version)
	if err != nil {
		return nil, "", err
	}
	defer r.Close()

	body, err := io.ReadAll(r)
	if err != nil {
		return nil, "", fmt.Errorf("reading migration %d: %w", version, err)
	}
	text := strings.ReplaceAll(string(body), indexModulePlaceholder, s.module)
	return io.NopCloser(strings.NewReader(text)), identifier, nil
}

// SupportedIndexModule reports the preferred full-text module available on
// db. mattn/go-sqlite3 ships fts4 (fts5 needs the sqlite_fts5 build tag);
// modernc.org/sqlite ships only fts5.
func SupportedIndexModule(db *sql.DB) (string, error) {
	ctx := context.Background()
	conn, err := db.Conn(ctx)
	if err != nil {
		return "", fmt.Errorf("checking full-text support: %w", err)
	}
	defer conn.Close()

	for _, module := range []string{ModuleFTS5, ModuleFTS4} {
		_, err := conn.ExecContext(ctx, "CREATE VIRTUAL TABLE temp.katalog_index_check USING "+module+"(x)")
		if err != nil {
			if strings.Contains(err.Error(), "no such module") {
				continue
			}
			return "", fmt.Errorf("checking %s: %w", module, err)
		}
		if _, err := conn.ExecContext(ctx, "DROP TABLE temp.katalog_index_check"); err != nil {
			return "", fmt.Errorf("checking %s: %w", module, err)
		}
		return module, nil
	}
	return "", errors.New("sqlite build has neither fts5 nor fts4")
}

// IndexModule returns the full-text module the catalog's search index was
// created with, or "" when there is no index yet.
func IndexModule(db *sql.DB) (string, error) {
	var ddl string
	err := db.QueryRow("SELECT sql FROM sqlite_master WHERE type = 'table' AND name = 'file_fts'").Scan(&ddl)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading search index definition: %w", err)
	}
	if strings.Contains(strings.ToLower(ddl), ModuleFTS5) {
		return ModuleFTS5, nil
	}
	return ModuleFTS4, nil
}

// getLatestVersion returns the highest version number available in the source.
func getLatestVersion(src source.Driver) (uint, error) {
	version, err := src.First()
	if err != nil {
		return 0, err
	}

	latestVersion := version
	for {
		nextVersion, err := src.Next(latestVersion)
		if err != nil {
			// Any error from Next() means there are no more migrations.
			break
		}
		latestVersion = nextVersion
	}
	return latestVersion, nil
}
