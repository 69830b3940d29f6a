package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"catalog-import-service/internal/models"
)

const pgUniqueViolation = "23505"

// uniqueViolation reports whether err is a unique constraint violation and
// returns a description naming the violated constraint or columns.
func uniqueViolation(err error) (string, bool) {
	if err == nil {
		return "", false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return pgErr.TableName + " " + pgErr.ConstraintName, true
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return err.Error(), true
	}
	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value") {
		return msg, true
	}
	return "", false
}

// classifyWriteError maps unique violations on products and variants onto
// the domain sentinels and passes everything else through.
func classifyWriteError(err error) error {
	desc, dup := uniqueViolation(err)
	if !dup {
		return err
	}
	if strings.Contains(desc, "product_variants") || strings.Contains(desc, "idx_variants") {
		return models.ErrDuplicateVariant
	}
	return models.ErrDuplicateSKU
}
