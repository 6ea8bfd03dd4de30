package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// SQLSTATE codes the reservation flows react to.
const (
	PGUniqueViolation     = "23505"
	PGForeignKeyViolation = "23503"
	PGCheckViolation      = "23514"
	PGSerializationFail   = "40001"
	PGDeadlockDetected    = "40P01"
	PGLockNotAvailable    = "55P03"
)

// ErrorDump flattens an error chain for structured logs.
type ErrorDump struct {
	TopMessage string   `json:"top_message"`
	Code       Code     `json:"code,omitempty"`
	Chain      []string `json:"chain,omitempty"`

	PGCode       string `json:"pg_code,omitempty"`
	PGConstraint string `json:"pg_constraint,omitempty"`
	PGTable      string `json:"pg_table,omitempty"`
	PGColumn     string `json:"pg_column,omitempty"`
	PGDetail     string `json:"pg_detail,omitempty"`
	PGMessage    string `json:"pg_message,omitempty"`
}

type pgDetails struct {
	code, constraint, table, column, detail, message string
}

// postgresDetails pulls driver fields from either pgx or lib/pq errors.
func postgresDetails(err error) (pgDetails, bool) {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgDetails{
			code:       pgxErr.Code,
			constraint: pgxErr.ConstraintName,
			table:      pgxErr.TableName,
			column:     pgxErr.ColumnName,
			detail:     pgxErr.Detail,
			message:    pgxErr.Message,
		}, true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pgDetails{
			code:       string(pqErr.Code),
			constraint: pqErr.Constraint,
			table:      pqErr.Table,
			column:     pqErr.Column,
			detail:     pqErr.Detail,
			message:    pqErr.Message,
		}, true
	}
	return pgDetails{}, false
}

// PGCode returns the SQLSTATE carried by err, or "" for non-Postgres errors.
func PGCode(err error) string {
	details, _ := postgresDetails(err)
	return details.code
}

// PGConstraint returns the constraint named by a Postgres error, or "".
func PGConstraint(err error) string {
	details, _ := postgresDetails(err)
	return details.constraint
}

// IsRetryableTx reports whether Postgres aborted the transaction because of
// lock contention, so the caller may run it again.
func IsRetryableTx(err error) bool {
	switch PGCode(err) {
	case PGSerializationFail, PGDeadlockDetected, PGLockNotAvailable:
		return true
	default:
		return false
	}
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{TopMessage: err.Error()}
	if te := As(err); te != nil {
		d.Code = te.Code()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}
	if pg, ok := postgresDetails(err); ok {
		d.PGCode = pg.code
		d.PGConstraint = pg.constraint
		d.PGTable = pg.table
		d.PGColumn = pg.column
		d.PGDetail = pg.detail
		d.PGMessage = pg.message
	}
	return d
}

// Fields renders the dump as log fields, leaving out empty driver values.
func (d ErrorDump) Fields() map[string]any {
	fields := map[string]any{
		"error":       d.TopMessage,
		"error_chain": d.Chain,
	}
	if d.Code != "" {
		fields["error_code"] = d.Code
	}
	for key, value := range map[string]string{
		"pg_code":       d.PGCode,
		"pg_constraint": d.PGConstraint,
		"pg_table":      d.PGTable,
		"pg_column":     d.PGColumn,
		"pg_detail":     d.PGDetail,
		"pg_message":    d.PGMessage,
	} {
		if value != "" {
			fields[key] = value
		}
	}
	return fields
}
