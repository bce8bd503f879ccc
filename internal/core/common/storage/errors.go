// Package storage holds helpers shared by the postgres and mongo repositories.
package storage

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

// IsUniqueViolation reports whether err came from a unique index, whatever
// the backend.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	if mongo.IsDuplicateKeyError(err) {
		return true
	}
	// sqlite, used by the repository tests
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
