package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tablebook-backend/pkg/enums"
)

// Envelope is an outbox event as received by the analytics worker, with
// routing attributes resolved and the payload left undecoded.
type Envelope struct {
	EventID       string
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   string
	OccurredAt    time.Time
	// ActorID is uuid.Nil for system-originated events such as expiry.
	ActorID   uuid.UUID
	ActorRole string
	Payload   json.RawMessage
}
