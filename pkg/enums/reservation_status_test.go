package enums

import "testing"

func TestReservationStatusTransitions(t *testing.T) {
	tests := []struct {
		from ReservationStatus
		to   ReservationStatus
		ok   bool
	}{
		{ReservationStatusPending, ReservationStatusPaid, true},
		{ReservationStatusPending, ReservationStatusExpired, true},
		{ReservationStatusWaitingManualPayment, ReservationStatusPaid, true},
		{ReservationStatusWaitingManualPayment, ReservationStatusFailed, true},
		{ReservationStatusPaid, ReservationStatusExpired, false},
		{ReservationStatusPaid, ReservationStatusFailed, false},
		{ReservationStatusExpired, ReservationStatusPaid, false},
		{ReservationStatusFailed, ReservationStatusPending, false},
		{ReservationStatusPending, ReservationStatusWaitingManualPayment, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.ok {
			t.Fatalf("%s -> %s: expected %v got %v", tt.from, tt.to, tt.ok, got)
		}
	}
}

func TestReservationStatusPredicates(t *testing.T) {
	if !ReservationStatusWaitingManualPayment.AwaitingPayment() {
		t.Fatal("waiting manual payment should await payment")
	}
	if ReservationStatusPaid.AwaitingPayment() {
		t.Fatal("paid should not await payment")
	}
	if !ReservationStatusPaid.HoldsInventory() {
		t.Fatal("paid reservations keep their inventory")
	}
	if ReservationStatusExpired.HoldsInventory() {
		t.Fatal("expired reservations released their inventory")
	}
	if !ReservationStatusFailed.IsTerminal() || ReservationStatusPending.IsTerminal() {
		t.Fatal("unexpected terminal classification")
	}
	if ReservationStatus("CREATING").IsTerminal() {
		t.Fatal("unknown status must not be terminal")
	}
}

func TestEventTableStatusTransitions(t *testing.T) {
	if !EventTableStatusAvailable.CanTransitionTo(EventTableStatusBooked) {
		t.Fatal("available tables must be bookable")
	}
	if EventTableStatusUnavailable.CanTransitionTo(EventTableStatusBooked) {
		t.Fatal("unavailable tables must not be bookable")
	}
	if EventTableStatusBooked.CanTransitionTo(EventTableStatusUnavailable) {
		t.Fatal("booked tables must be released before being withdrawn")
	}
}

func TestParseInvoiceStatusNormalizes(t *testing.T) {
	tests := map[string]InvoiceStatus{
		"PAID":     InvoiceStatusPaid,
		"settled":  InvoiceStatusPaid,
		" expired": InvoiceStatusExpired,
		"FAILED":   InvoiceStatusFailed,
	}
	for raw, want := range tests {
		got, err := ParseInvoiceStatus(raw)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		if got != want {
			t.Fatalf("parse %q: expected %s got %s", raw, want, got)
		}
	}
	if _, err := ParseInvoiceStatus("REFUNDED"); err == nil {
		t.Fatal("expected unknown status to fail")
	}
}

func TestPaymentModeInitialStatus(t *testing.T) {
	if PaymentModeGateway.InitialStatus() != ReservationStatusPending {
		t.Fatal("gateway reservations start pending")
	}
	if PaymentModeManual.InitialStatus() != ReservationStatusWaitingManualPayment {
		t.Fatal("manual reservations wait for manual payment")
	}
	if _, err := ParsePaymentMode("Gateway"); err != nil {
		t.Fatalf("expected case-insensitive parse: %v", err)
	}
}
