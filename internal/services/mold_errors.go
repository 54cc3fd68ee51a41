package services

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/yungbote/moldindex-backend/internal/platform/apierr"
)

// isUniqueViolation reports whether err came from a unique index. gorm translates the
// error for both drivers; the pgconn and message checks cover errors that arrive raw.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key value")
}

func duplicateRecordErr(partNumber, moldNumber string) error {
	return apierr.Conflict("duplicate_mold_record", "a mold record with part number %q or mold number %q already exists", partNumber, moldNumber)
}

func recordNotFoundErr(id uint) error {
	return apierr.NotFound("mold_record_not_found", "mold record %d not found", id)
}

func mediaNotFoundErr(id uint) error {
	return apierr.NotFound("media_not_found", "media %d not found", id)
}
