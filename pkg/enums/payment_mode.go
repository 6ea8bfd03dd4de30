package enums

import (
	"fmt"
	"strings"
)

// PaymentMode selects how a reservation is settled.
type PaymentMode string

const (
	PaymentModeManual  PaymentMode = "manual"
	PaymentModeGateway PaymentMode = "gateway"
)

var validPaymentModes = []PaymentMode{
	PaymentModeManual,
	PaymentModeGateway,
}

// String implements fmt.Stringer.
func (m PaymentMode) String() string {
	return string(m)
}

// IsValid reports whether the value is a known PaymentMode.
func (m PaymentMode) IsValid() bool {
	for _, candidate := range validPaymentModes {
		if candidate == m {
			return true
		}
	}
	return false
}

// InitialStatus returns the status a new reservation starts in for this mode.
func (m PaymentMode) InitialStatus() ReservationStatus {
	if m == PaymentModeGateway {
		return ReservationStatusPending
	}
	return ReservationStatusWaitingManualPayment
}

// ParsePaymentMode converts raw input into a PaymentMode.
func ParsePaymentMode(value string) (PaymentMode, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validPaymentModes {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment mode %q", value)
}
