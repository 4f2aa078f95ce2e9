//go:build !cgo

package database

// isCgoForeignKeyViolation is always false without cgo: mattn/go-sqlite3 is
// a stub then and never returns its typed errors.
func isCgoForeignKeyViolation(err error) bool {
	return false
}
