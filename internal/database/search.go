package database

import (
	"context"
	"database/sql"
	"mime"
	"strings"
	"unicode"

	"katalog/internal/database/migrations"
	"katalog/internal/katalog"
)

const (
	DefaultSearchLimit = 100
	MaxSearchLimit     = 10000
)

// MatchExpression turns free text into a full-text prefix query for the
// given index module: every whitespace-separated token must match the start
// of an indexed term (or term sequence, for tokens like "report.txt"). It
// returns "" when the text holds nothing searchable.
func MatchExpression(module, text string) string {
	var terms []string
	for _, tok := range strings.Fields(text) {
		tok = strings.ReplaceAll(tok, `"`, "")
		if !strings.ContainsFunc(tok, func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }) {
			continue
		}
		// fts5 reads a star inside quotes as text.
		if module == migrations.ModuleFTS5 {
			terms = append(terms, `"`+tok+`"*`)
		} else {
			terms = append(terms, `"`+tok+`*"`)
		}
	}
	return strings.Join(terms, " ")
}

// fileTypeClause builds the file type filter. A value with a slash matches
// that type exactly ("image/*" matches the major type); a bare value matches
// either half of the type, or the type its extension maps to.
func fileTypeClause(fileType string) (string, []any) {
	ft := strings.ToLower(strings.TrimSpace(fileType))
	if ft == "" {
		return "", nil
	}
	if strings.Contains(ft, "/") {
		if major, ok := strings.CutSuffix(ft, "/*"); ok {
			return `f.file_type LIKE ?`, []any{major + "/%"}
		}
		return `lower(f.file_type) = ?`, []any{ft}
	}

	clause := `(lower(f.file_type) = ? OR f.file_type LIKE ? OR f.file_type LIKE ?`
	args := []any{ft, "%/" + ft, ft + "/%"}
	if byExt := mime.TypeByExtension("." + ft); byExt != "" {
		if mt, _, _ := strings.Cut(byExt, ";"); mt != "" {
			clause += ` OR lower(f.file_type) = ?`
			args = append(args, strings.ToLower(strings.TrimSpace(mt)))
		}
	}
	return clause + `)`, args
}

// Search returns files whose name or full path has tokens starting with the
// query's tokens, newest modification first. A blank query returns nothing.
func (c *Catalog) Search(query string, filters katalog.SearchFilters, limit, offset int) ([]*katalog.FileEntry, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}
	if offset < 0 {
		offset = 0
	}

	var out []*katalog.FileEntry
	err := c.withDB("search", func(db *sql.DB) error {
		match := MatchExpression(c.indexModule, query)
		if match == "" {
			return nil
		}

		q := entrySelect + ` JOIN file_fts ON file_fts.rowid = f.id WHERE file_fts MATCH ?`
		args := []any{match}
		if filters.VolumeID > 0 {
			q += ` AND d.volume_id = ?`
			args = append(args, filters.VolumeID)
		}
		if clause, typeArgs := fileTypeClause(filters.FileType); clause != "" {
			q += ` AND ` + clause
			args = append(args, typeArgs...)
		}
		q += ` ORDER BY f.mtime DESC, f.id DESC LIMIT ? OFFSET ?`
		args = append(args, limit, offset)

		var err error
		out, err = queryEntries(context.Background(), db, q, args...)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
