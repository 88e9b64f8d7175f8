package messages

import "encoding/json"

// InboundMessage is the generic wrapper for messages coming from the client.
// The "event" field tells us the action; "payload" is the data we parse further.
type InboundMessage struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Inbound event names understood by the hub
const (
	EventJoin    = "join"
	EventStart   = "start"
	EventHit     = "hit"
	EventReset   = "reset"
	EventRestart = "restart"
	EventDebug   = "debug"
)

// HitPayload represents the payload for a hit attempt. The target is
// informational only; the server validates against the sender identity.
type HitPayload struct {
	Target string `json:"target"`
}
