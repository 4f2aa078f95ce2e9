package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"katalog/internal/katalog"
)

// AddTag links the (key, value) tag to a file, creating the tag definition
// if needed. Adding an existing link is a no-op. Key and value are trimmed;
// an empty key is rejected.
func (c *Catalog) AddTag(fileID int64, key, value string) error {
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	return c.withTx("add tag", func(tx *sql.Tx) error {
		if key == "" {
			return invalid("empty tag key")
		}
		ctx := context.Background()

		tagID, err := lookupTag(ctx, tx, key, value)
		if err != nil {
			return err
		}
		if tagID == 0 {
			res, err := tx.ExecContext(ctx, `INSERT INTO tags (key, value) VALUES (?, ?)`, key, value)
			if err != nil {
				return fmt.Errorf("inserting tag: %w", err)
			}
			if tagID, err = res.LastInsertId(); err != nil {
				return err
			}
		}

		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO file_tags (file_id, tag_id) VALUES (?, ?)`,
			fileID, tagID); err != nil {
			return fmt.Errorf("linking tag to file %d: %w", fileID, err)
		}
		return nil
	})
}

// RemoveTag unlinks the tag from a file. The tag definition is kept.
func (c *Catalog) RemoveTag(fileID int64, key, value string) error {
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	return c.withDB("remove tag", func(db *sql.DB) error {
		ctx := context.Background()
		tagID, err := lookupTag(ctx, db, key, value)
		if err != nil || tagID == 0 {
			return err
		}
		_, err = db.ExecContext(ctx, `DELETE FROM file_tags WHERE file_id = ? AND tag_id = ?`, fileID, tagID)
		return err
	})
}

// TagsForFile returns a file's tags ordered by key then value.
func (c *Catalog) TagsForFile(fileID int64) ([]*katalog.Tag, error) {
	var out []*katalog.Tag
	err := c.withDB("tags for file", func(db *sql.DB) error {
		var err error
		out, err = queryTags(db, `SELECT t.id, t.key, t.value FROM tags t
			JOIN file_tags ft ON ft.tag_id = t.id
			WHERE ft.file_id = ? ORDER BY t.key, t.value`, fileID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListTags returns every tag definition ordered by key then value.
func (c *Catalog) ListTags() ([]*katalog.Tag, error) {
	var out []*katalog.Tag
	err := c.withDB("list tags", func(db *sql.DB) error {
		var err error
		out, err = queryTags(db, `SELECT id, key, value FROM tags ORDER BY key, value`)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func lookupTag(ctx context.Context, q querier, key, value string) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, `SELECT id FROM tags WHERE key = ? AND value = ?`, key, value).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("looking up tag %s=%s: %w", key, value, err)
	}
	return id, nil
}

func queryTags(db *sql.DB, query string, args ...any) ([]*katalog.Tag, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*katalog.Tag
	for rows.Next() {
		var t katalog.Tag
		if err := rows.Scan(&t.ID, &t.Key, &t.Value); err != nil {
			return nil, err
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}
