package enums

import "fmt"

// ReservationStatus is the payment lifecycle of a reservation.
type ReservationStatus string

const (
	ReservationStatusPending              ReservationStatus = "PENDING"
	ReservationStatusWaitingManualPayment ReservationStatus = "WAITING_MANUAL_PAYMENT"
	ReservationStatusPaid                 ReservationStatus = "PAID"
	ReservationStatusFailed               ReservationStatus = "FAILED"
	ReservationStatusExpired              ReservationStatus = "EXPIRED"
)

var validReservationStatuses = []ReservationStatus{
	ReservationStatusPending,
	ReservationStatusWaitingManualPayment,
	ReservationStatusPaid,
	ReservationStatusFailed,
	ReservationStatusExpired,
}

// Terminal states have no automated outgoing edges; only an admin
// cancellation may move a PAID reservation to FAILED.
var reservationTransitions = map[ReservationStatus][]ReservationStatus{
	ReservationStatusPending: {
		ReservationStatusPaid,
		ReservationStatusExpired,
		ReservationStatusFailed,
	},
	ReservationStatusWaitingManualPayment: {
		ReservationStatusPaid,
		ReservationStatusExpired,
		ReservationStatusFailed,
	},
}

// String implements fmt.Stringer.
func (s ReservationStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ReservationStatus.
func (s ReservationStatus) IsValid() bool {
	for _, candidate := range validReservationStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// AwaitingPayment reports whether inventory is still held for an unpaid reservation.
func (s ReservationStatus) AwaitingPayment() bool {
	return s == ReservationStatusPending || s == ReservationStatusWaitingManualPayment
}

// IsTerminal reports whether the status is final for automated transitions.
func (s ReservationStatus) IsTerminal() bool {
	return s.IsValid() && !s.AwaitingPayment()
}

// HoldsInventory reports whether the reservation still owns its table and stock.
func (s ReservationStatus) HoldsInventory() bool {
	return s.AwaitingPayment() || s == ReservationStatusPaid
}

// CanTransitionTo reports whether next is reachable from s without an override.
func (s ReservationStatus) CanTransitionTo(next ReservationStatus) bool {
	for _, candidate := range reservationTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParseReservationStatus converts raw input into a ReservationStatus.
func ParseReservationStatus(value string) (ReservationStatus, error) {
	for _, candidate := range validReservationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid reservation status %q", value)
}
