package enums

import "fmt"

// OutboxAggregateType names the entity an outbox event is about.
type OutboxAggregateType string

const (
	AggregateReservation OutboxAggregateType = "reservation"
	AggregateTicket      OutboxAggregateType = "ticket"
	AggregateUser        OutboxAggregateType = "user"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateReservation,
	AggregateTicket,
	AggregateUser,
}

// IsValid reports whether the value is a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType enumerates the domain events written to the outbox.
type OutboxEventType string

const (
	EventReservationCreated     OutboxEventType = "reservation_created"
	EventReservationPaid        OutboxEventType = "reservation_paid"
	EventReservationExpired     OutboxEventType = "reservation_expired"
	EventReservationFailed      OutboxEventType = "reservation_failed"
	EventReservationCanceled    OutboxEventType = "reservation_canceled"
	EventTicketIssued           OutboxEventType = "ticket_issued"
	EventPasswordResetRequested OutboxEventType = "password_reset_requested"
)

var validOutboxEventTypes = []OutboxEventType{
	EventReservationCreated,
	EventReservationPaid,
	EventReservationExpired,
	EventReservationFailed,
	EventReservationCanceled,
	EventTicketIssued,
	EventPasswordResetRequested,
}

// IsValid reports whether the value is a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
