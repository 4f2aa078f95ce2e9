package database

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"katalog/internal/katalog"
)

func scanFolder(row interface{ Scan(...any) error }) (*katalog.VirtualFolder, error) {
	var (
		f      katalog.VirtualFolder
		parent sql.NullInt64
	)
	if err := row.Scan(&f.ID, &parent, &f.Name); err != nil {
		return nil, err
	}
	f.ParentID = parent.Int64
	return &f, nil
}

// CreateVirtualFolder creates a folder under parentID (0 for top level) and
// returns its id. The name is trimmed and must not be empty.
func (c *Catalog) CreateVirtualFolder(name string, parentID int64) (int64, error) {
	name = strings.TrimSpace(name)
	var id int64
	err := c.withDB("create virtual folder", func(db *sql.DB) error {
		if name == "" {
			return invalid("empty folder name")
		}
		res, err := db.Exec(`INSERT INTO virtual_folders (parent_id, name) VALUES (?, ?)`, nullID(parentID), name)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// RenameVirtualFolder renames a folder. The name must not be blank.
func (c *Catalog) RenameVirtualFolder(id int64, name string) error {
	name = strings.TrimSpace(name)
	return c.withDB("rename virtual folder", func(db *sql.DB) error {
		if name == "" {
			return invalid("empty folder name")
		}
		res, err := db.Exec(`UPDATE virtual_folders SET name = ? WHERE id = ?`, name, id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return notFound("virtual folder", id)
		}
		return nil
	})
}

// DeleteVirtualFolder removes a folder, its descendants and their
// memberships. Member files are untouched.
func (c *Catalog) DeleteVirtualFolder(id int64) error {
	return c.withDB("delete virtual folder", func(db *sql.DB) error {
		res, err := db.Exec(`DELETE FROM virtual_folders WHERE id = ?`, id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return notFound("virtual folder", id)
		}
		return nil
	})
}

// GetVirtualFolder returns the folder with id, or nil if there is none.
func (c *Catalog) GetVirtualFolder(id int64) (*katalog.VirtualFolder, error) {
	var f *katalog.VirtualFolder
	err := c.withDB("get virtual folder", func(db *sql.DB) error {
		row := db.QueryRow(`SELECT id, parent_id, name FROM virtual_folders WHERE id = ?`, id)
		var err error
		f, err = scanFolder(row)
		if errors.Is(err, sql.ErrNoRows) {
			f = nil
			return nil
		}
		return err
	})
	return f, err
}

// ListVirtualFolders returns the children of parentID (0 for top level)
// ordered by name, case-insensitively.
func (c *Catalog) ListVirtualFolders(parentID int64) ([]*katalog.VirtualFolder, error) {
	var out []*katalog.VirtualFolder
	err := c.withDB("list virtual folders", func(db *sql.DB) error {
		var (
			rows *sql.Rows
			err  error
		)
		if parentID <= 0 {
			rows, err = db.Query(`SELECT id, parent_id, name FROM virtual_folders
				WHERE parent_id IS NULL ORDER BY name COLLATE NOCASE, id`)
		} else {
			rows, err = db.Query(`SELECT id, parent_id, name FROM virtual_folders
				WHERE parent_id = ? ORDER BY name COLLATE NOCASE, id`, parentID)
		}
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			f, err := scanFolder(rows)
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

// AddFileToVirtualFolder adds a file to a folder. Adding twice is a no-op.
func (c *Catalog) AddFileToVirtualFolder(folderID, fileID int64) error {
	return c.withDB("add file to virtual folder", func(db *sql.DB) error {
		_, err := db.Exec(`INSERT OR IGNORE INTO virtual_folder_items (folder_id, file_id) VALUES (?, ?)`, folderID, fileID)
		return err
	})
}

// RemoveFileFromVirtualFolder removes a file from a folder.
func (c *Catalog) RemoveFileFromVirtualFolder(folderID, fileID int64) error {
	return c.withDB("remove file from virtual folder", func(db *sql.DB) error {
		_, err := db.Exec(`DELETE FROM virtual_folder_items WHERE folder_id = ? AND file_id = ?`, folderID, fileID)
		return err
	})
}

// ListVirtualFolderItems returns a folder's files with their location,
// ordered by name.
func (c *Catalog) ListVirtualFolderItems(folderID int64) ([]*katalog.FileEntry, error) {
	var out []*katalog.FileEntry
	err := c.withDB("list virtual folder items", func(db *sql.DB) error {
		var err error
		out, err = queryEntries(context.Background(), db, entrySelect+`
			JOIN virtual_folder_items vfi ON vfi.file_id = f.id
			WHERE vfi.folder_id = ?
			ORDER BY f.name COLLATE NOCASE, f.id`, folderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
