package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"katalog/internal/katalog"
)

const fileColumns = `id, directory_id, name, size, mtime, ctime, file_type, hash, attrs`

func scanFile(row interface{ Scan(...any) error }) (*katalog.File, error) {
	var (
		f     katalog.File
		mtime sql.NullInt64
		ctime sql.NullInt64
		hash  sql.NullString
	)
	if err := row.Scan(&f.ID, &f.DirectoryID, &f.Name, &f.Size, &mtime, &ctime, &f.FileType, &hash, &f.Attrs); err != nil {
		return nil, err
	}
	f.ModTime = timeFromNull(mtime)
	f.ChangeTime = timeFromNull(ctime)
	f.Hash = hash.String
	return &f, nil
}

// UpsertFile writes f. An explicit f.ID updates that row; otherwise the row
// with the same (DirectoryID, Name) is updated; otherwise a new row is
// inserted. The search index follows in the same transaction through the
// schema's triggers.
func (c *Catalog) UpsertFile(f *katalog.File) (int64, error) {
	var id int64
	err := c.withTx("upsert file", func(tx *sql.Tx) error {
		if f.DirectoryID <= 0 {
			return invalid("file without directory")
		}
		if f.Name == "" || strings.ContainsRune(f.Name, '/') {
			return invalid(fmt.Sprintf("file name %q", f.Name))
		}
		ctx := context.Background()

		target := f.ID
		if target <= 0 {
			err := tx.QueryRowContext(ctx, `SELECT id FROM files WHERE directory_id = ? AND name = ?`,
				f.DirectoryID, f.Name).Scan(&target)
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("looking up file %s: %w", f.Name, err)
			}
		}

		if target > 0 {
			res, err := tx.ExecContext(ctx, `UPDATE files
				SET directory_id = ?, name = ?, size = ?, mtime = ?, ctime = ?,
				    file_type = ?, hash = ?, attrs = ?
				WHERE id = ?`,
				f.DirectoryID, f.Name, f.Size, unixOrNil(f.ModTime), unixOrNil(f.ChangeTime),
				f.FileType, nullString(f.Hash), f.Attrs, target)
			if err != nil {
				return fmt.Errorf("updating file %d: %w", target, err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return notFound("file", target)
			}
			id = target
			return nil
		}

		res, err := tx.ExecContext(ctx, `INSERT INTO files
			(directory_id, name, size, mtime, ctime, file_type, hash, attrs)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			f.DirectoryID, f.Name, f.Size, unixOrNil(f.ModTime), unixOrNil(f.ChangeTime),
			f.FileType, nullString(f.Hash), f.Attrs)
		if err != nil {
			return fmt.Errorf("inserting file %s: %w", f.Name, err)
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, err
	}
	f.ID = id
	return id, nil
}

// GetFile returns the file with id, or nil if there is none.
func (c *Catalog) GetFile(id int64) (*katalog.File, error) {
	var f *katalog.File
	err := c.withDB("get file", func(db *sql.DB) error {
		row := db.QueryRow(`SELECT `+fileColumns+` FROM files WHERE id = ?`, id)
		var err error
		f, err = scanFile(row)
		if errors.Is(err, sql.ErrNoRows) {
			f = nil
			return nil
		}
		return err
	})
	return f, err
}

// DeleteFile removes a file. Its search index row, tag links, folder
// memberships and note go with it.
func (c *Catalog) DeleteFile(id int64) error {
	return c.withDB("delete file", func(db *sql.DB) error {
		res, err := db.Exec(`DELETE FROM files WHERE id = ?`, id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return notFound("file", id)
		}
		return nil
	})
}

// ListFilesInDirectory returns a directory's files ordered by name.
func (c *Catalog) ListFilesInDirectory(directoryID int64) ([]*katalog.File, error) {
	var out []*katalog.File
	err := c.withDB("list files", func(db *sql.DB) error {
		rows, err := db.Query(`SELECT `+fileColumns+` FROM files WHERE directory_id = ? ORDER BY name`, directoryID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			f, err := scanFile(rows)
			if err != nil {
				return err
			}
			out = append(out, f)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// entrySelect selects the columns scanned by scanEntry from files f joined
// with directories d and volumes v.
var entrySelect = `SELECT f.id, f.directory_id, d.volume_id, f.name, ` + fullPathSQL("d.full_path", "f.name") + `,
	v.label, f.file_type, f.size, f.mtime
	FROM files f
	JOIN directories d ON d.id = f.directory_id
	JOIN volumes v ON v.id = d.volume_id`

func scanEntry(row interface{ Scan(...any) error }) (*katalog.FileEntry, error) {
	var (
		e     katalog.FileEntry
		mtime sql.NullInt64
	)
	if err := row.Scan(&e.FileID, &e.DirectoryID, &e.VolumeID, &e.Name, &e.FullPath,
		&e.VolumeLabel, &e.FileType, &e.Size, &mtime); err != nil {
		return nil, err
	}
	e.ModTime = timeFromNull(mtime)
	return &e, nil
}

func queryEntries(ctx context.Context, q querier, query string, args ...any) ([]*katalog.FileEntry, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*katalog.FileEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListAllFiles returns every file ordered by volume label, directory path and
// name. volumeID > 0 restricts the listing to one volume.
func (c *Catalog) ListAllFiles(volumeID int64) ([]*katalog.FileEntry, error) {
	var out []*katalog.FileEntry
	err := c.withDB("list all files", func(db *sql.DB) error {
		query := entrySelect
		var args []any
		if volumeID > 0 {
			query += ` WHERE d.volume_id = ?`
			args = append(args, volumeID)
		}
		query += ` ORDER BY v.label, d.full_path, f.name`
		var err error
		out, err = queryEntries(context.Background(), db, query, args...)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
