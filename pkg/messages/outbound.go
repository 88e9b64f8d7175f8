package messages

// OutboundMessage is how we wrap responses before sending
// them to the client
type OutboundMessage struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
}

// ConnectedPayload is sent once when the websocket connection is registered
type ConnectedPayload struct {
	ClientID string `json:"clientId"`
}

// JoinedPayload represents the payload after a join. ClientID is null when
// the session has been reset and clients must drop their game identity.
type JoinedPayload struct {
	Message  string  `json:"message,omitempty"`
	ClientID *string `json:"clientId"`
	Leader   bool    `json:"leader,omitempty"`
}

// AlreadyJoinedPayload is the unicast reply to a duplicate join
type AlreadyJoinedPayload struct {
	Message  string `json:"message"`
	ClientID string `json:"clientId"`
}

// GameInProgressPayload is the unicast reply to a join during a running match
type GameInProgressPayload struct {
	Message string `json:"message"`
}

// PlayerCountPayload is broadcast whenever the participant set grows
type PlayerCountPayload struct {
	Count int `json:"count"`
}

// MatchStartedPayload carries the identifier of the current mole holder.
// It is broadcast on match start and on every relocation of the mole.
type MatchStartedPayload struct {
	Target string `json:"target"`
}

// ScoreUpdatePayload is broadcast after every successful hit
type ScoreUpdatePayload struct {
	Score int `json:"score"`
}

// TimeUpdatePayload is broadcast on whole-second boundaries of the match clock
type TimeUpdatePayload struct {
	RemainingSeconds int64 `json:"remainingSeconds"`
}

// MatchEndedPayload is broadcast exactly once when the match clock runs out
type MatchEndedPayload struct {
	FinalScore int `json:"finalScore"`
}

// Outbound event names
const (
	EventConnected      = "connected"
	EventJoined         = "joined"
	EventAlreadyJoined  = "alreadyJoined"
	EventGameInProgress = "gameInProgress"
	EventPlayerCount    = "playerCount"
	EventMatchStarted   = "matchStarted"
	EventScoreUpdate    = "scoreUpdate"
	EventTimeUpdate     = "timeUpdate"
	EventMatchEnded     = "matchEnded"
	EventMatchRestarted = "matchRestarted"
)
