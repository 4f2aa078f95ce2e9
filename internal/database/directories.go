package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path"

	"katalog/internal/katalog"
)

// NormalizePath returns p as a volume-relative POSIX path: rooted at "/",
// without "." or ".." segments and without a trailing slash.
func NormalizePath(p string) string {
	return path.Clean("/" + p)
}

func scanDirectory(row interface{ Scan(...any) error }) (*katalog.Directory, error) {
	var (
		d      katalog.Directory
		parent sql.NullInt64
	)
	if err := row.Scan(&d.ID, &d.VolumeID, &parent, &d.Name, &d.FullPath); err != nil {
		return nil, err
	}
	d.ParentID = parent.Int64
	return &d, nil
}

// UpsertDirectory writes d. An explicit d.ID updates that row; otherwise the
// row with the same (VolumeID, FullPath) is updated; otherwise a new row is
// inserted. FullPath is normalized and Name defaults to its base name.
func (c *Catalog) UpsertDirectory(d *katalog.Directory) (int64, error) {
	d.FullPath = NormalizePath(d.FullPath)
	if d.Name == "" {
		d.Name = path.Base(d.FullPath)
	}

	var id int64
	err := c.withTx("upsert directory", func(tx *sql.Tx) error {
		if d.VolumeID <= 0 {
			return invalid("directory without volume")
		}
		ctx := context.Background()

		target := d.ID
		if target <= 0 {
			err := tx.QueryRowContext(ctx, `SELECT id FROM directories WHERE volume_id = ? AND full_path = ?`,
				d.VolumeID, d.FullPath).Scan(&target)
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("looking up directory %s: %w", d.FullPath, err)
			}
		}

		if target > 0 {
			res, err := tx.ExecContext(ctx, `UPDATE directories
				SET volume_id = ?, parent_id = ?, name = ?, full_path = ?
				WHERE id = ?`,
				d.VolumeID, nullID(d.ParentID), d.Name, d.FullPath, target)
			if err != nil {
				return fmt.Errorf("updating directory %d: %w", target, err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return notFound("directory", target)
			}
			id = target
			return nil
		}

		res, err := tx.ExecContext(ctx, `INSERT INTO directories (volume_id, parent_id, name, full_path)
			VALUES (?, ?, ?, ?)`,
			d.VolumeID, nullID(d.ParentID), d.Name, d.FullPath)
		if err != nil {
			return fmt.Errorf("inserting directory %s: %w", d.FullPath, err)
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, err
	}
	d.ID = id
	return id, nil
}

// GetDirectory returns the directory with id, or nil if there is none.
func (c *Catalog) GetDirectory(id int64) (*katalog.Directory, error) {
	var d *katalog.Directory
	err := c.withDB("get directory", func(db *sql.DB) error {
		row := db.QueryRow(`SELECT id, volume_id, parent_id, name, full_path FROM directories WHERE id = ?`, id)
		var err error
		d, err = scanDirectory(row)
		if errors.Is(err, sql.ErrNoRows) {
			d = nil
			return nil
		}
		return err
	})
	return d, err
}

// ListDirectories returns the children of parentID in a volume ordered by
// name. parentID 0 returns the directories without a parent, i.e. the
// volume's root.
func (c *Catalog) ListDirectories(volumeID, parentID int64) ([]*katalog.Directory, error) {
	var out []*katalog.Directory
	err := c.withDB("list directories", func(db *sql.DB) error {
		var (
			rows *sql.Rows
			err  error
		)
		if parentID <= 0 {
			rows, err = db.Query(`SELECT id, volume_id, parent_id, name, full_path FROM directories
				WHERE volume_id = ? AND parent_id IS NULL ORDER BY name`, volumeID)
		} else {
			rows, err = db.Query(`SELECT id, volume_id, parent_id, name, full_path FROM directories
				WHERE volume_id = ? AND parent_id = ? ORDER BY name`, volumeID, parentID)
		}
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			d, err := scanDirectory(rows)
			if err != nil {
				return err
			}
			out = append(out, d)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
