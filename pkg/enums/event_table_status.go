package enums

import "fmt"

// EventTableStatus tracks the availability of a table bound to an event.
type EventTableStatus string

const (
	EventTableStatusAvailable   EventTableStatus = "AVAILABLE"
	EventTableStatusBooked      EventTableStatus = "BOOKED"
	EventTableStatusUnavailable EventTableStatus = "UNAVAILABLE"
)

var validEventTableStatuses = []EventTableStatus{
	EventTableStatusAvailable,
	EventTableStatusBooked,
	EventTableStatusUnavailable,
}

var eventTableTransitions = map[EventTableStatus][]EventTableStatus{
	EventTableStatusAvailable:   {EventTableStatusBooked, EventTableStatusUnavailable},
	EventTableStatusBooked:      {EventTableStatusAvailable},
	EventTableStatusUnavailable: {EventTableStatusAvailable},
}

// String implements fmt.Stringer.
func (s EventTableStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known EventTableStatus.
func (s EventTableStatus) IsValid() bool {
	for _, candidate := range validEventTableStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether next is reachable from s in one step.
func (s EventTableStatus) CanTransitionTo(next EventTableStatus) bool {
	for _, candidate := range eventTableTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParseEventTableStatus converts raw input into an EventTableStatus.
func ParseEventTableStatus(value string) (EventTableStatus, error) {
	for _, candidate := range validEventTableStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event table status %q", value)
}
