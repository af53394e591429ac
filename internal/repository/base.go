// Package repository implements the data access layer for the application.
package repository

import (
	"errors"
	"strings"

	"spilledin/internal/database"
	"spilledin/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func readDB(primary *gorm.DB) *gorm.DB {
	return database.GetReadDB(primary)
}

// forUpdate adds a row lock on dialects that support it. sqlite serializes
// writers already.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == database.DriverPostgres {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

const pgUniqueViolation = "23505"

// uniqueViolation reports whether err is a unique constraint violation and
// returns the violated constraint (or sqlite column list) when known.
func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName, pgErr.Code == pgUniqueViolation
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return "", true
	}
	msg := err.Error()
	if i := strings.Index(msg, "UNIQUE constraint failed:"); i >= 0 {
		return strings.TrimSpace(msg[i+len("UNIQUE constraint failed:"):]), true
	}
	return "", false
}

func wrapNotFound(err error, resource string, id any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(resource, id)
	}
	return err
}

// likePattern builds a case-insensitive substring pattern for LIKE ... ESCAPE '\'.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(s)) + "%"
}
