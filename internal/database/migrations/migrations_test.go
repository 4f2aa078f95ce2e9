package migrations

import (
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"katalog/internal/katalog"
)

func TestMigrateUp_FreshDatabase(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	tables := []string{"volumes", "directories", "files", "file_fts", "notes", "tags", "file_tags",
		"virtual_folders", "virtual_folder_items", "schema_migrations"}
	for _, table := range tables {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("Table %s was not created: %v", table, err)
		}
	}
}

func TestCheckDBMigrationStatus_FreshDatabase(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	err := CheckDBMigrationStatus(db)
	if err == nil {
		t.Fatal("CheckDBMigrationStatus() expected error for fresh database, got nil")
	}
	if err.Error() != "database has no schema version (needs migration)" {
		t.Errorf("CheckDBMigrationStatus() error = %q, want error about needing migration", err.Error())
	}
}

func TestCheckDBMigrationStatus_AfterMigration(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate() failed: %v", err)
	}
	if err := CheckDBMigrationStatus(db); err != nil {
		t.Errorf("CheckDBMigrationStatus() after migration returned error: %v", err)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := Migrate(db); err != nil {
		t.Fatalf("First Migrate() failed: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Errorf("Second Migrate() failed: %v (should be idempotent)", err)
	}
	if err := CheckDBMigrationStatus(db); err != nil {
		t.Errorf("CheckDBMigrationStatus() after double migration returned error: %v", err)
	}
}

func TestMigrate_StampsVersion(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate() failed: %v", err)
	}

	got, err := StoredVersion(db)
	if err != nil {
		t.Fatalf("StoredVersion() error = %v", err)
	}
	if got != CurrentVersion {
		t.Errorf("StoredVersion() = %d, want %d", got, CurrentVersion)
	}

	var userVersion int
	if err := db.QueryRow("PRAGMA user_version").Scan(&userVersion); err != nil {
		t.Fatalf("reading user_version: %v", err)
	}
	if userVersion != CurrentVersion {
		t.Errorf("user_version = %d, want %d", userVersion, CurrentVersion)
	}
}

func TestMigrate_RejectsNewerCatalog(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	mustExec(t, db, `CREATE TABLE schema_info (id INTEGER PRIMARY KEY CHECK (id = 1), version INTEGER NOT NULL)`)
	mustExec(t, db, `INSERT INTO schema_info (id, version) VALUES (1, 99)`)

	err := Migrate(db)
	if !errors.Is(err, katalog.ErrSchemaIncompatible) {
		t.Fatalf("Migrate() error = %v, want ErrSchemaIncompatible", err)
	}

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE name = 'volumes'").Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Error("rejected catalog should not be modified")
	}
}

func TestMigrate_AdoptsLegacyCatalog(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	// A version 1 catalog stamped only through user_version.
	if err := MigrateTo(db, 1); err != nil {
		t.Fatalf("MigrateTo(1) failed: %v", err)
	}
	mustExec(t, db, `DROP TABLE schema_migrations`)
	mustExec(t, db, `PRAGMA user_version = 1`)
	mustExec(t, db, `INSERT INTO volumes (label, created_at, updated_at) VALUES ('old disk', 0, 0)`)

	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate() failed: %v", err)
	}

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name = 'notes'").Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Error("notes table should exist after adopting a version 1 catalog")
	}
	if err := db.QueryRow("SELECT COUNT(*) FROM volumes").Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("volumes = %d, want 1 (data must survive adoption)", n)
	}
	if err := CheckDBMigrationStatus(db); err != nil {
		t.Errorf("CheckDBMigrationStatus() after adoption returned error: %v", err)
	}
}

func TestMigrate_RecoversDirtyStep(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate() failed: %v", err)
	}
	mustExec(t, db, `UPDATE schema_migrations SET dirty = 1`)

	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate() on dirty catalog failed: %v", err)
	}
	if err := CheckDBMigrationStatus(db); err != nil {
		t.Errorf("CheckDBMigrationStatus() after recovery returned error: %v", err)
	}
}

func TestLatestVersion(t *testing.T) {
	got, err := LatestVersion()
	if err != nil {
		t.Fatalf("LatestVersion() error = %v", err)
	}
	if got != CurrentVersion {
		t.Errorf("LatestVersion() = %d, want CurrentVersion %d", got, CurrentVersion)
	}
}

func TestForeignKeyConstraints(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	_, err := db.Exec(`INSERT INTO files (directory_id, name) VALUES (4242, 'test.txt')`)
	if err == nil {
		t.Error("Expected foreign key constraint violation, but insert succeeded")
	}
}

// testDrivers are the SQLite drivers a catalog can be opened with.
var testDrivers = []string{"sqlite3", "sqlite"}

func TestSchema_SearchIndexFollowsFiles(t *testing.T) {
	for _, driver := range testDrivers {
		t.Run(driver, func(t *testing.T) {
			db := openTestDBWith(t, driver)
			defer db.Close()

			if err := MigrateUp(db); err != nil {
				t.Fatalf("MigrateUp() failed: %v", err)
			}

			mustExec(t, db, `INSERT INTO volumes (id, label, created_at, updated_at) VALUES (1, 'v', 0, 0)`)
			mustExec(t, db, `INSERT INTO directories (id, volume_id, name, full_path) VALUES (1, 1, '/', '/')`)
			mustExec(t, db, `INSERT INTO directories (id, volume_id, parent_id, name, full_path) VALUES (2, 1, 1, 'docs', '/docs')`)
			mustExec(t, db, `INSERT INTO files (id, directory_id, name) VALUES (10, 1, 'top.txt')`)
			mustExec(t, db, `INSERT INTO files (id, directory_id, name) VALUES (11, 2, 'inner.txt')`)

			wantPath := func(rowid int64, want string) {
				t.Helper()
				var got string
				if err := db.QueryRow(`SELECT full_path FROM file_fts WHERE rowid = ?`, rowid).Scan(&got); err != nil {
					t.Fatalf("reading index row %d: %v", rowid, err)
				}
				if got != want {
					t.Errorf("index full_path for %d = %q, want %q", rowid, got, want)
				}
			}
			wantPath(10, "/top.txt")
			wantPath(11, "/docs/inner.txt")

			mustExec(t, db, `UPDATE directories SET full_path = '/papers' WHERE id = 2`)
			wantPath(11, "/papers/inner.txt")

			mustExec(t, db, `UPDATE files SET name = 'renamed.txt' WHERE id = 10`)
			wantPath(10, "/renamed.txt")

			mustExec(t, db, `DELETE FROM files WHERE id = 11`)
			var n int
			if err := db.QueryRow(`SELECT COUNT(*) FROM file_fts`).Scan(&n); err != nil {
				t.Fatal(err)
			}
			if n != 1 {
				t.Errorf("index rows = %d, want 1", n)
			}
		})
	}
}

func TestSupportedIndexModule(t *testing.T) {
	for _, driver := range testDrivers {
		t.Run(driver, func(t *testing.T) {
			db := openTestDBWith(t, driver)
			defer db.Close()

			supported, err := SupportedIndexModule(db)
			if err != nil {
				t.Fatalf("SupportedIndexModule() error = %v", err)
			}
			if driver == "sqlite" && supported != ModuleFTS5 {
				t.Errorf("SupportedIndexModule() = %q, want %q for the pure Go driver", supported, ModuleFTS5)
			}

			before, err := IndexModule(db)
			if err != nil || before != "" {
				t.Errorf("IndexModule() before migrating = %q, %v; want empty", before, err)
			}
			if err := Migrate(db); err != nil {
				t.Fatalf("Migrate() failed: %v", err)
			}
			got, err := IndexModule(db)
			if err != nil {
				t.Fatalf("IndexModule() error = %v", err)
			}
			if got != supported {
				t.Errorf("IndexModule() = %q, want %q", got, supported)
			}
		})
	}
}

func TestSchema_DirectoryPathUnique(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	mustExec(t, db, `INSERT INTO volumes (id, label, created_at, updated_at) VALUES (1, 'v', 0, 0)`)
	mustExec(t, db, `INSERT INTO directories (volume_id, name, full_path) VALUES (1, 'a', '/a')`)

	_, err := db.Exec(`INSERT INTO directories (volume_id, name, full_path) VALUES (1, 'a', '/a')`)
	if err == nil {
		t.Error("Expected unique constraint violation for duplicate path, but insert succeeded")
	}
}

func mustExec(t *testing.T, db *sql.DB, stmt string) {
	t.Helper()
	if _, err := db.Exec(stmt); err != nil {
		t.Fatalf("exec %q: %v", stmt, err)
	}
}

// openTestDB opens an in-memory SQLite database for testing.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	return openTestDBWith(t, "sqlite3")
}

func openTestDBWith(t *testing.T, driver string) *sql.DB {
	t.Helper()

	db, err := sql.Open(driver, ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	// Every connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("Failed to enable foreign keys: %v", err)
	}

	return db
}
