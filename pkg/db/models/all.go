package models

// All lists every persisted model in dependency order for AutoMigrate.
func All() []any {
	return []any{
		&User{},
		&Table{},
		&Event{},
		&EventTable{},
		&Product{},
		&Invoice{},
		&Reservation{},
		&OrderItem{},
		&Ticket{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
