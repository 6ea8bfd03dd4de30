package validators

import (
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/tablebook-backend/pkg/errors"
	"github.com/angelmondragon/tablebook-backend/pkg/pagination"
)

// queryValue returns the trimmed value of key. Repeating a scalar parameter
// is a validation error rather than a silent first-wins.
func queryValue(r *http.Request, key string) (string, bool, error) {
	values := r.URL.Query()[key]
	switch len(values) {
	case 0:
		return "", false, nil
	case 1:
		raw := strings.TrimSpace(values[0])
		return raw, raw != "", nil
	default:
		return "", false, queryError(key, "query parameter must not be repeated", nil)
	}
}

func queryError(key, msg string, extra map[string]any) error {
	details := map[string]any{"field": key}
	for k, v := range extra {
		details[k] = v
	}
	return pkgerrors.New(pkgerrors.CodeValidation, msg).WithDetails(details)
}

// ParseQueryInt reads an optional integer bounded to [min, max].
func ParseQueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	raw, ok, err := queryValue(r, key)
	if err != nil || !ok {
		return defaultVal, err
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, queryError(key, "query parameter must be numeric", nil)
	}
	if value < min || value > max {
		return 0, queryError(key, "query parameter out of range", map[string]any{"min": min, "max": max})
	}
	return value, nil
}

// ParseQueryBool reads an optional boolean flag such as ?upcoming=true.
func ParseQueryBool(r *http.Request, key string, defaultVal bool) (bool, error) {
	raw, ok, err := queryValue(r, key)
	if err != nil || !ok {
		return defaultVal, err
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, queryError(key, "query parameter must be a boolean", nil)
	}
	return value, nil
}

// ParsePage reads ?limit and ?cursor. The cursor is checked here so a
// tampered token is a 400 before any query runs.
func ParsePage(r *http.Request) (pagination.Params, error) {
	limit, err := ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	cursor, _, err := queryValue(r, "cursor")
	if err != nil {
		return pagination.Params{}, err
	}
	if _, err := pagination.ParseCursor(cursor); err != nil {
		return pagination.Params{}, queryError("cursor", "cursor is invalid", nil)
	}
	return pagination.Params{Limit: limit, Cursor: cursor}, nil
}
