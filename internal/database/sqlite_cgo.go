//go:build cgo

package database

import (
	"errors"

	"github.com/mattn/go-sqlite3"
)

// isCgoForeignKeyViolation reports whether err is a mattn/go-sqlite3
// foreign-key violation.
func isCgoForeignKeyViolation(err error) bool {
	var cgoErr sqlite3.Error
	if errors.As(err, &cgoErr) {
		return cgoErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
	}
	return false
}
