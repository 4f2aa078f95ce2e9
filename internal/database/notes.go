package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"katalog/internal/katalog"
)

// GetNote returns the note attached to target, or "" if there is none.
func (c *Catalog) GetNote(target katalog.NoteTarget) (string, error) {
	var content string
	err := c.withDB("get note", func(db *sql.DB) error {
		if !target.Type.Valid() {
			return invalid(fmt.Sprintf("note target type %q", target.Type))
		}
		err := db.QueryRow(`SELECT content FROM notes WHERE target_type = ? AND target_id = ? ORDER BY id LIMIT 1`,
			string(target.Type), target.ID).Scan(&content)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return err
	})
	return content, err
}

// SetNote stores the trimmed content as target's note. Blank content
// deletes the note.
func (c *Catalog) SetNote(target katalog.NoteTarget, content string) error {
	content = strings.TrimSpace(content)
	return c.withTx("set note", func(tx *sql.Tx) error {
		if !target.Type.Valid() {
			return invalid(fmt.Sprintf("note target type %q", target.Type))
		}
		ctx := context.Background()
		kind := string(target.Type)

		if content == "" {
			_, err := tx.ExecContext(ctx, `DELETE FROM notes WHERE target_type = ? AND target_id = ?`, kind, target.ID)
			return err
		}

		var id int64
		err := tx.QueryRowContext(ctx, `SELECT id FROM notes WHERE target_type = ? AND target_id = ? ORDER BY id LIMIT 1`,
			kind, target.ID).Scan(&id)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			_, err = tx.ExecContext(ctx, `INSERT INTO notes (target_type, target_id, content) VALUES (?, ?, ?)`,
				kind, target.ID, content)
			return err
		case err != nil:
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE notes SET content = ? WHERE id = ?`, content, id)
		return err
	})
}
