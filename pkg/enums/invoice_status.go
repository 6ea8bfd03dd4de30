package enums

import (
	"fmt"
	"strings"
)

// InvoiceStatus tracks a gateway invoice.
type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "PENDING"
	InvoiceStatusPaid    InvoiceStatus = "PAID"
	InvoiceStatusExpired InvoiceStatus = "EXPIRED"
	InvoiceStatusFailed  InvoiceStatus = "FAILED"
)

var validInvoiceStatuses = []InvoiceStatus{
	InvoiceStatusPending,
	InvoiceStatusPaid,
	InvoiceStatusExpired,
	InvoiceStatusFailed,
}

// String implements fmt.Stringer.
func (s InvoiceStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known InvoiceStatus.
func (s InvoiceStatus) IsValid() bool {
	for _, candidate := range validInvoiceStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the invoice has settled one way or another.
func (s InvoiceStatus) IsTerminal() bool {
	return s == InvoiceStatusPaid || s == InvoiceStatusExpired || s == InvoiceStatusFailed
}

// ParseInvoiceStatus converts raw input into an InvoiceStatus. Gateways report
// SETTLED for captured funds; it is treated as PAID.
func ParseInvoiceStatus(value string) (InvoiceStatus, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	if normalized == "SETTLED" {
		return InvoiceStatusPaid, nil
	}
	for _, candidate := range validInvoiceStatuses {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid invoice status %q", value)
}
