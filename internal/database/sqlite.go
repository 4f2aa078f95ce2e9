package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"katalog/internal/database/migrations"
	"katalog/internal/katalog"

	_ "github.com/mattn/go-sqlite3" // SQLite driver (cgo)
	"modernc.org/sqlite"            // SQLite driver (pure Go)
	sqlitelib "modernc.org/sqlite/lib"
)

// Driver names accepted by OpenConnection.
const (
	DriverCgo  = "sqlite3"
	DriverPure = "sqlite"
)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Catalog implements katalog.Store on a single SQLite file. A Catalog may be
// closed, in which case every operation fails with katalog.ErrStoreClosed,
// and can be re-pointed at another file with Open.
type Catalog struct {
	driver string
	logger katalog.Logger
	clock  katalog.Clock

	mu          sync.RWMutex
	db          *sql.DB
	path        string
	indexModule string

	errMu   sync.Mutex
	lastErr string
}

var _ katalog.Store = (*Catalog)(nil)

// NewCatalog returns a closed catalog that will use the given driver.
func NewCatalog(driver string, logger katalog.Logger, clock katalog.Clock) *Catalog {
	if driver == "" {
		driver = DriverCgo
	}
	if logger == nil {
		logger = katalog.NewNopLogger()
	}
	if clock == nil {
		clock = katalog.RealClock{}
	}
	return &Catalog{driver: driver, logger: logger, clock: clock}
}

// OpenCatalog creates a catalog and opens path. path can be a file path or
// ":memory:".
func OpenCatalog(driver, path string, logger katalog.Logger, clock katalog.Clock) (*Catalog, error) {
	c := NewCatalog(driver, logger, clock)
	if err := c.Open(path); err != nil {
		return nil, err
	}
	return c, nil
}

// OpenConnection opens and configures a SQLite connection: foreign keys on,
// a busy timeout, and WAL journaling for file catalogs. In-memory catalogs
// are limited to one connection so every query sees the same database.
func OpenConnection(driver, path string) (*sql.DB, error) {
	memory := path == ":memory:"

	var dsn string
	switch driver {
	case DriverCgo:
		dsn = path + "?_foreign_keys=on&_busy_timeout=5000"
		if !memory {
			dsn += "&_journal_mode=WAL&_synchronous=NORMAL"
		}
	case DriverPure:
		dsn = "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
		if !memory {
			dsn += "&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
		}
	default:
		return nil, fmt.Errorf("unknown sqlite driver: %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if memory {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// Open opens (creating if needed) and migrates the catalog at path, then
// swaps it in. On failure the previously open catalog, if any, is kept.
func (c *Catalog) Open(path string) error {
	db, err := OpenConnection(c.driver, path)
	if err != nil {
		return c.fail("open", err)
	}
	if err := migrations.Migrate(db); err != nil {
		db.Close()
		return c.fail("open", err)
	}
	if err := migrations.CheckDBMigrationStatus(db); err != nil {
		db.Close()
		return c.fail("open", err)
	}
	module, err := migrations.IndexModule(db)
	if err != nil {
		db.Close()
		return c.fail("open", err)
	}

	c.mu.Lock()
	old := c.db
	c.db = db
	c.path = path
	c.indexModule = module
	c.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			c.logger.Warn("closing previous catalog", "error", err)
		}
	}
	c.logger.Debug("catalog open", "path", path, "driver", c.driver, "index", module)
	return nil
}

// Close closes the catalog. Closing a closed catalog is a no-op.
func (c *Catalog) Close() error {
	c.mu.Lock()
	db := c.db
	c.db = nil
	c.mu.Unlock()
	if db == nil {
		return nil
	}
	return db.Close()
}

func (c *Catalog) IsOpen() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db != nil
}

// Path returns the path of the most recently opened catalog.
func (c *Catalog) Path() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.path
}

// LastError describes the most recent failed operation.
func (c *Catalog) LastError() string {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.lastErr
}

// SchemaVersion returns the version stamped in the open catalog.
func (c *Catalog) SchemaVersion() (int, error) {
	var v int
	err := c.withDB("schema version", func(db *sql.DB) error {
		var err error
		v, err = migrations.StoredVersion(db)
		return err
	})
	return v, err
}

// BackupTo writes a consistent snapshot of the catalog to destPath using
// VACUUM INTO. destPath must not exist.
func (c *Catalog) BackupTo(destPath string) error {
	return c.withDB("backup", func(db *sql.DB) error {
		if _, err := db.Exec("VACUUM INTO ?", destPath); err != nil {
			return fmt.Errorf("vacuum into %s: %w", destPath, err)
		}
		return nil
	})
}

// withDB runs fn against the open connection, holding the read side of the
// lifecycle lock so Open and Close wait for it.
func (c *Catalog) withDB(op string, fn func(db *sql.DB) error) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.db == nil {
		return c.fail(op, katalog.ErrStoreClosed)
	}
	if err := fn(c.db); err != nil {
		if isForeignKeyViolation(err) {
			err = fmt.Errorf("%w: referenced row is gone: %v", katalog.ErrNotFound, err)
		}
		return c.fail(op, err)
	}
	return nil
}

// isForeignKeyViolation reports whether err is a write that referenced a
// missing volume, directory, file or folder.
func isForeignKeyViolation(err error) bool {
	if isCgoForeignKeyViolation(err) {
		return true
	}
	var pureErr *sqlite.Error
	if errors.As(err, &pureErr) {
		return pureErr.Code() == sqlitelib.SQLITE_CONSTRAINT_FOREIGNKEY ||
			strings.Contains(pureErr.Error(), "FOREIGN KEY constraint failed")
	}
	return false
}

// withTx runs fn inside one transaction.
func (c *Catalog) withTx(op string, fn func(tx *sql.Tx) error) error {
	return c.withDB(op, func(db *sql.DB) error {
		ctx := context.Background()
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("starting transaction: %w", err)
		}
		defer tx.Rollback()

		if err := fn(tx); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing transaction: %w", err)
		}
		return nil
	})
}

// fail records and logs err. Caller mistakes are not logged as errors.
func (c *Catalog) fail(op string, err error) error {
	wrapped := fmt.Errorf("%s: %w", op, err)

	c.errMu.Lock()
	c.lastErr = wrapped.Error()
	c.errMu.Unlock()

	switch {
	case errors.Is(err, katalog.ErrNotFound), errors.Is(err, katalog.ErrInvalidArgument):
		c.logger.Debug("catalog operation rejected", "op", op, "error", err)
	default:
		c.logger.Error("catalog operation failed", "op", op, "error", err)
	}
	return wrapped
}

// fullPathSQL joins a directory path and a file name without doubling the
// root slash.
func fullPathSQL(dirPath, name string) string {
	return fmt.Sprintf("CASE WHEN %[1]s = '/' THEN '/' || %[2]s ELSE %[1]s || '/' || %[2]s END", dirPath, name)
}

func unixOrNil(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Unix()
}

func timeFromNull(v sql.NullInt64) time.Time {
	if !v.Valid {
		return time.Time{}
	}
	return time.Unix(v.Int64, 0).UTC()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullID(id int64) any {
	if id <= 0 {
		return nil
	}
	return id
}

func notFound(what string, id int64) error {
	return fmt.Errorf("%s %d: %w", what, id, katalog.ErrNotFound)
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", katalog.ErrInvalidArgument, msg)
}
