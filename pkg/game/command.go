package game

// Command is an inbound event for the session loop. Player commands are
// produced by the transport layer with the sender identity attached; tick
// commands are produced by the session's own timer goroutines.
type Command interface{ isCommand() }

// Join adds the sender to the session
type Join struct{ ClientID string }

// Start begins a match; only honored for the leader with enough players
type Start struct{ ClientID string }

// Hit is a whack attempt by the sender
type Hit struct {
	ClientID string
	Target   string
}

// Reset tears the whole session down, participants included
type Reset struct{ ClientID string }

// Restart ends any running match and rewinds the clock, keeping participants
type Restart struct{ ClientID string }

// Disconnect removes the sender from the session
type Disconnect struct{ ClientID string }

// Debug emits a snapshot of the session to the diagnostic sink
type Debug struct{ ClientID string }

// countdownTick is posted by the match clock every tick interval. It carries
// the match generation it was armed for so stale ticks can be discarded.
type countdownTick struct{ generation uint64 }

// respawnTick is posted by the respawn ticker; same generation guard.
type respawnTick struct{ generation uint64 }

// snapshotQuery is an internal synchronous read of the session state
type snapshotQuery struct{ reply chan Snapshot }

func (Join) isCommand()          {}
func (Start) isCommand()         {}
func (Hit) isCommand()           {}
func (Reset) isCommand()         {}
func (Restart) isCommand()       {}
func (Disconnect) isCommand()    {}
func (Debug) isCommand()         {}
func (countdownTick) isCommand() {}
func (respawnTick) isCommand()   {}
func (snapshotQuery) isCommand() {}
