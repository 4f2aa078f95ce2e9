package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"katalog/internal/katalog"
)

const volumeColumns = `id, label, description, fs_uuid, fs_type, physical_hint, total_size, created_at, updated_at`

func scanVolume(row interface{ Scan(...any) error }) (*katalog.Volume, error) {
	var (
		v         katalog.Volume
		fsUUID    sql.NullString
		createdAt sql.NullInt64
		updatedAt sql.NullInt64
	)
	if err := row.Scan(&v.ID, &v.Label, &v.Description, &fsUUID, &v.FsType, &v.PhysicalHint,
		&v.TotalSize, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	v.FsUUID = fsUUID.String
	v.CreatedAt = timeFromNull(createdAt)
	v.UpdatedAt = timeFromNull(updatedAt)
	return &v, nil
}

// UpsertVolume writes v. An explicit v.ID updates that row; otherwise a row
// with the same FsUUID is updated; otherwise a new row is inserted. An update
// refreshes updated_at and never touches created_at. v.ID is set to the row
// id on success.
func (c *Catalog) UpsertVolume(v *katalog.Volume) (int64, error) {
	now := c.clock.Now()
	if v.CreatedAt.IsZero() {
		v.CreatedAt = now
	}

	var id int64
	err := c.withTx("upsert volume", func(tx *sql.Tx) error {
		ctx := context.Background()
		target := v.ID
		if target <= 0 && v.FsUUID != "" {
			err := tx.QueryRowContext(ctx, `SELECT id FROM volumes WHERE fs_uuid = ?`, v.FsUUID).Scan(&target)
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("looking up volume by fs uuid: %w", err)
			}
		}

		if target > 0 {
			v.UpdatedAt = now
			res, err := tx.ExecContext(ctx, `UPDATE volumes
				SET label = ?, description = ?, fs_uuid = ?, fs_type = ?, physical_hint = ?,
				    total_size = ?, updated_at = ?
				WHERE id = ?`,
				v.Label, v.Description, nullString(v.FsUUID), v.FsType, v.PhysicalHint,
				v.TotalSize, v.UpdatedAt.Unix(), target)
			if err != nil {
				return fmt.Errorf("updating volume %d: %w", target, err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return notFound("volume", target)
			}
			id = target
			return nil
		}

		if v.UpdatedAt.IsZero() {
			v.UpdatedAt = now
		}
		res, err := tx.ExecContext(ctx, `INSERT INTO volumes
			(label, description, fs_uuid, fs_type, physical_hint, total_size, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			v.Label, v.Description, nullString(v.FsUUID), v.FsType, v.PhysicalHint,
			v.TotalSize, v.CreatedAt.Unix(), v.UpdatedAt.Unix())
		if err != nil {
			return fmt.Errorf("inserting volume: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, err
	}
	v.ID = id
	return id, nil
}

// GetVolume returns the volume with id, or nil if there is none.
func (c *Catalog) GetVolume(id int64) (*katalog.Volume, error) {
	var v *katalog.Volume
	err := c.withDB("get volume", func(db *sql.DB) error {
		row := db.QueryRow(`SELECT `+volumeColumns+` FROM volumes WHERE id = ?`, id)
		var err error
		v, err = scanVolume(row)
		if errors.Is(err, sql.ErrNoRows) {
			v = nil
			return nil
		}
		return err
	})
	return v, err
}

// FindVolumeByFsUUID returns the volume identified by a filesystem UUID, or
// nil if that media was never cataloged.
func (c *Catalog) FindVolumeByFsUUID(fsUUID string) (*katalog.Volume, error) {
	if fsUUID == "" {
		return nil, nil
	}
	var v *katalog.Volume
	err := c.withDB("find volume by fs uuid", func(db *sql.DB) error {
		row := db.QueryRow(`SELECT `+volumeColumns+` FROM volumes WHERE fs_uuid = ?`, fsUUID)
		var err error
		v, err = scanVolume(row)
		if errors.Is(err, sql.ErrNoRows) {
			v = nil
			return nil
		}
		return err
	})
	return v, err
}

// ListVolumes returns all volumes ordered by label.
func (c *Catalog) ListVolumes() ([]*katalog.Volume, error) {
	var out []*katalog.Volume
	err := c.withDB("list volumes", func(db *sql.DB) error {
		rows, err := db.Query(`SELECT ` + volumeColumns + ` FROM volumes ORDER BY label COLLATE NOCASE, id`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			v, err := scanVolume(rows)
			if err != nil {
				return err
			}
			out = append(out, v)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RenameVolume sets a volume's label. The label must not be blank.
func (c *Catalog) RenameVolume(id int64, label string) error {
	label = strings.TrimSpace(label)
	return c.withDB("rename volume", func(db *sql.DB) error {
		if label == "" {
			return invalid("empty volume label")
		}
		res, err := db.Exec(`UPDATE volumes SET label = ?, updated_at = ? WHERE id = ?`,
			label, c.clock.Now().Unix(), id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return notFound("volume", id)
		}
		return nil
	})
}

// DeleteVolume removes a volume; its directories and files cascade.
func (c *Catalog) DeleteVolume(id int64) error {
	return c.withDB("delete volume", func(db *sql.DB) error {
		res, err := db.Exec(`DELETE FROM volumes WHERE id = ?`, id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return notFound("volume", id)
		}
		return nil
	})
}

// ClearVolumeContents deletes every directory and file of a volume in one
// transaction, keeping the volume row.
func (c *Catalog) ClearVolumeContents(volumeID int64) error {
	return c.withTx("clear volume contents", func(tx *sql.Tx) error {
		ctx := context.Background()
		if _, err := tx.ExecContext(ctx, `DELETE FROM files
			WHERE directory_id IN (SELECT id FROM directories WHERE volume_id = ?)`, volumeID); err != nil {
			return fmt.Errorf("deleting files: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM directories WHERE volume_id = ?`, volumeID); err != nil {
			return fmt.Errorf("deleting directories: %w", err)
		}
		return nil
	})
}

// ProjectStats counts volumes and files and sums file sizes in a single
// statement, so the three numbers come from one snapshot.
func (c *Catalog) ProjectStats() (*katalog.ProjectStats, error) {
	var s katalog.ProjectStats
	err := c.withDB("project stats", func(db *sql.DB) error {
		return db.QueryRow(`SELECT
			(SELECT COUNT(*) FROM volumes),
			(SELECT COUNT(*) FROM files),
			(SELECT COALESCE(SUM(size), 0) FROM files)`).Scan(&s.Volumes, &s.Files, &s.TotalBytes)
	})
	if err != nil {
		return nil, err
	}
	return &s, nil
}
