package outbox

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EnvelopeVersion is the newest envelope layout this build writes and reads.
const EnvelopeVersion = 1

// ActorRef identifies who caused the event.
type ActorRef struct {
	UserID uuid.UUID `json:"user_id"`
	Role   string    `json:"role,omitempty"`
}

// PayloadEnvelope wraps every payload stored in outbox_events and published
// to Pub/Sub. EventID equals the outbox row id.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"event_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// HasData reports whether the envelope carries a non-null payload.
func (e PayloadEnvelope) HasData() bool {
	trimmed := bytes.TrimSpace(e.Data)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// DecodeEnvelope parses raw and rejects layouts newer than EnvelopeVersion.
// A missing version is read as version 1.
func DecodeEnvelope(raw []byte) (PayloadEnvelope, error) {
	var env PayloadEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return PayloadEnvelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Version == 0 {
		env.Version = 1
	}
	if env.Version > EnvelopeVersion {
		return PayloadEnvelope{}, fmt.Errorf("envelope version %d is newer than supported %d", env.Version, EnvelopeVersion)
	}
	return env, nil
}
