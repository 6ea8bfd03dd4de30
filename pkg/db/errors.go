package db

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	pkgerrors "github.com/angelmondragon/tablebook-backend/pkg/errors"
)

// IsUniqueViolation reports whether the provided error references a unique
// violation. When constraintName is provided, only violations of a constraint
// whose name (or, on SQLite, message) contains it match.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	if code := pkgerrors.PGCode(err); code != "" {
		if code != pkgerrors.PGUniqueViolation {
			return false
		}
		if constraintName == "" {
			return true
		}
		if constraint := pkgerrors.PGConstraint(err); constraint != "" {
			return strings.Contains(constraint, constraintName)
		}
		return strings.Contains(err.Error(), constraintName)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) && constraintName == "" {
		return true
	}
	msg := err.Error()
	unique := strings.Contains(msg, "duplicate key value") || strings.Contains(msg, "UNIQUE constraint failed")
	if constraintName != "" {
		return unique && strings.Contains(msg, constraintName)
	}
	return unique
}

// IsNotFound reports whether err is GORM's record-not-found sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
