package db

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	msg := err.Error()

	// PostgreSQL (SQLSTATE 23505)
	if strings.Contains(msg, "duplicate key value violates unique constraint") || strings.Contains(msg, "SQLSTATE 23505") {
		return true
	}

	// MySQL (error code 1062)
	if strings.Contains(msg, "Error 1062") {
		return true
	}

	// SQLite (extended code 2067)
	if strings.Contains(msg, "UNIQUE constraint failed") {
		return true
	}

	return false
}

// IsDuplicateKeyOn reports a unique violation whose constraint or column name
// mentions name. Postgres and MySQL report the index name, SQLite the columns.
func IsDuplicateKeyOn(err error, name string) bool {
	if !IsDuplicateKeyErr(err) || name == "" {
		return false
	}
	return strings.Contains(err.Error(), name)
}

// IsTransientErr reports errors that a caller may resolve by simply retrying:
// serialization failures, deadlocks and busy/locked databases.
func IsTransientErr(err error) bool {
	if err == nil {
		return false
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "SQLSTATE 40001"),
		strings.Contains(msg, "could not serialize access"),
		strings.Contains(msg, "SQLSTATE 40P01"),
		strings.Contains(msg, "deadlock detected"):
		return true
	case strings.Contains(msg, "Error 1213"), // MySQL deadlock
		strings.Contains(msg, "Error 1205"): // MySQL lock wait timeout
		return true
	case strings.Contains(msg, "database is locked"),
		strings.Contains(msg, "SQLITE_BUSY"):
		return true
	default:
		return false
	}
}
