package errors

import "net/http"

type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"

	// Reservation engine failures.
	CodeInsufficientStock Code = "INSUFFICIENT_STOCK"
	CodeCapacityExceeded  Code = "CAPACITY_EXCEEDED"
	CodeExternalService   Code = "EXTERNAL_SERVICE_ERROR"
)

// Metadata drives how a code is rendered on the wire.
type Metadata struct {
	HTTPStatus    int
	Retryable     bool
	PublicMessage string
	// ExposeMessage lets the error's own message replace PublicMessage.
	ExposeMessage  bool
	DetailsAllowed bool
}

// client errors echo their message; server errors keep it private.
func client(status int, public string, details bool) Metadata {
	return Metadata{HTTPStatus: status, PublicMessage: public, ExposeMessage: true, DetailsAllowed: details}
}

func server(status int, public string, details bool) Metadata {
	return Metadata{HTTPStatus: status, PublicMessage: public, Retryable: true, DetailsAllowed: details}
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:        client(http.StatusBadRequest, "validation failed", true),
	CodeUnauthorized:      client(http.StatusUnauthorized, "authentication required", false),
	CodeForbidden:         client(http.StatusForbidden, "access denied", false),
	CodeNotFound:          client(http.StatusNotFound, "resource not found", false),
	CodeConflict:          client(http.StatusConflict, "conflict detected", false),
	CodeStateConflict:     client(http.StatusUnprocessableEntity, "state transition disallowed", true),
	CodeIdempotency:       client(http.StatusConflict, "idempotency key reused", true),
	CodeRateLimit:         client(http.StatusTooManyRequests, "rate limit exceeded", false),
	CodeInsufficientStock: client(http.StatusBadRequest, "insufficient product stock", true),
	CodeCapacityExceeded:  client(http.StatusBadRequest, "guest count exceeds table capacity", true),

	CodeInternal:        server(http.StatusInternalServerError, "internal server error", false),
	CodeDependency:      server(http.StatusServiceUnavailable, "dependency unavailable", true),
	CodeExternalService: server(http.StatusBadGateway, "payment provider unavailable", false),
}

// MetadataFor falls back to CodeInternal for unknown codes.
func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}
