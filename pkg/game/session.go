package game

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tecu23/mole-server/pkg/config"
	"github.com/tecu23/mole-server/pkg/events"
	"github.com/tecu23/mole-server/pkg/messages"
)

// Phase is the session's lifecycle state
type Phase string

// The session is either waiting for a match or running one
const (
	PhaseIdle    Phase = "IDLE"
	PhaseRunning Phase = "RUNNING"
)

// Sink is the broadcast boundary. The hub implements it; tests substitute
// a recording fake. Emission is fire-and-forget.
type Sink interface {
	Broadcast(msg messages.OutboundMessage)
	Send(clientID string, msg messages.OutboundMessage)
}

// match holds the fields that only exist while a match is running.
// The session points at exactly one match while RUNNING and at nil while
// IDLE, so no inconsistent flag combination can be represented.
type match struct {
	generation    uint64
	score         int
	remainingMs   int64
	lastScoreAtMs int64
	target        string

	countdownStop chan struct{}
	respawnStop   chan struct{}
}

// Session is the authoritative record of one whack-a-mole game. All
// mutations happen on the Run goroutine, which drains a single inbox of
// player commands and timer ticks; no locks guard the state because
// nothing else touches it.
type Session struct {
	cfg      config.GameConfig
	tiers    Tiers
	sink     Sink
	selector *Selector

	inbox chan Command
	quit  chan struct{}
	once  sync.Once

	participants []string
	leader       string
	generation   uint64
	match        *match

	publisher *events.Publisher
	logger    *zap.Logger
}

// Snapshot is a read-only copy of the session fields, timer handles excluded
type Snapshot struct {
	Phase         Phase    `json:"phase"`
	Participants  []string `json:"participants"`
	Leader        string   `json:"leader"`
	Generation    uint64   `json:"generation"`
	Score         int      `json:"score"`
	RemainingMs   int64    `json:"remainingMs"`
	LastScoreAtMs int64    `json:"lastScoreAtMs"`
	Target        string   `json:"target"`
}

// NewSession creates an idle session with no participants
func NewSession(
	cfg config.GameConfig,
	sink Sink,
	selector *Selector,
	publisher *events.Publisher,
	logger *zap.Logger,
) *Session {
	return &Session{
		cfg:       cfg,
		tiers:     Tiers{Easy: cfg.EasyInterval, Medium: cfg.MediumInterval, Hard: cfg.HardInterval},
		sink:      sink,
		selector:  selector,
		inbox:     make(chan Command, 64),
		quit:      make(chan struct{}),
		publisher: publisher,
		logger:    logger,
	}
}

// SetSink wires the broadcast boundary. Must be called before Run when the
// sink could not be supplied at construction (the hub and the session
// reference each other).
func (s *Session) SetSink(sink Sink) {
	s.sink = sink
}

// Run is the main execution of the session. It owns all state mutation.
func (s *Session) Run() {
	for {
		select {
		case cmd := <-s.inbox:
			s.handle(cmd)
		case <-s.quit:
			if s.match != nil {
				s.stopTimers(s.match)
				s.match = nil
			}
			return
		}
	}
}

// Post delivers a command to the session loop
func (s *Session) Post(cmd Command) {
	select {
	case s.inbox <- cmd:
	case <-s.quit:
	}
}

// Stop shuts the session loop down
func (s *Session) Stop() {
	s.once.Do(func() { close(s.quit) })
}

// Snapshot returns a copy of the current session state. It round-trips
// through the session loop, so it also acts as a synchronization point:
// every command posted before it has been applied when it returns.
func (s *Session) Snapshot() Snapshot {
	reply := make(chan Snapshot, 1)
	s.Post(snapshotQuery{reply: reply})
	select {
	case snap := <-reply:
		return snap
	case <-s.quit:
		return Snapshot{}
	}
}

func (s *Session) handle(cmd Command) {
	switch c := cmd.(type) {
	case Join:
		s.handleJoin(c.ClientID)
	case Start:
		s.handleStart(c.ClientID)
	case Hit:
		s.handleHit(c.ClientID)
	case Reset:
		s.handleReset()
	case Restart:
		s.handleRestart()
	case Disconnect:
		s.handleDisconnect(c.ClientID)
	case Debug:
		s.handleDebug()
	case countdownTick:
		s.handleCountdownTick(c.generation)
	case respawnTick:
		s.handleRespawnTick(c.generation)
	case snapshotQuery:
		c.reply <- s.snapshot()
	}
}

func (s *Session) handleJoin(id string) {
	if s.match != nil {
		s.sink.Send(id, messages.OutboundMessage{
			Event:   messages.EventGameInProgress,
			Payload: messages.GameInProgressPayload{Message: "Game is in progress."},
		})
		return
	}

	if s.isParticipant(id) {
		s.sink.Send(id, messages.OutboundMessage{
			Event:   messages.EventAlreadyJoined,
			Payload: messages.AlreadyJoinedPayload{Message: "You already joined the game.", ClientID: id},
		})
		return
	}

	if len(s.participants) == 0 || s.leader == "" {
		s.leader = id
	}

	s.participants = append(s.participants, id)

	s.sink.Send(id, messages.OutboundMessage{
		Event: messages.EventJoined,
		Payload: messages.JoinedPayload{
			Message:  "You joined the game.",
			ClientID: &id,
			Leader:   s.leader == id,
		},
	})
	s.sink.Broadcast(messages.OutboundMessage{
		Event:   messages.EventPlayerCount,
		Payload: messages.PlayerCountPayload{Count: len(s.participants)},
	})

	s.publisher.Publish(events.Event{Type: events.EventPlayerJoined, Payload: id})
	s.logger.Info("player joined",
		zap.String("client_id", id),
		zap.Int("players", len(s.participants)),
		zap.Bool("leader", s.leader == id))
}

func (s *Session) handleStart(id string) {
	if s.match != nil || id != s.leader || len(s.participants) < 3 {
		return
	}

	s.generation++
	m := &match{
		generation:    s.generation,
		remainingMs:   s.cfg.MatchDuration.Milliseconds(),
		lastScoreAtMs: s.scoreSentinel(),
	}
	m.target = s.selector.Pick(s.participants, "")
	s.match = m

	s.sink.Broadcast(messages.OutboundMessage{
		Event:   messages.EventMatchStarted,
		Payload: messages.MatchStartedPayload{Target: m.target},
	})

	m.countdownStop = make(chan struct{})
	m.respawnStop = make(chan struct{})
	go s.runCountdown(m.generation, m.countdownStop)
	go s.runRespawn(m.generation, m.respawnStop)

	s.publisher.Publish(events.Event{Type: events.EventMatchStarted, Payload: s.snapshot()})
	s.logger.Info("match started",
		zap.Uint64("generation", m.generation),
		zap.String("target", m.target),
		zap.Int("players", len(s.participants)))
}

func (s *Session) handleHit(id string) {
	m := s.match
	if m == nil || id != m.target {
		return
	}

	m.score += s.cfg.PointsPerHit
	m.lastScoreAtMs = m.remainingMs
	m.target = s.selector.Pick(s.participants, m.target)

	s.sink.Broadcast(messages.OutboundMessage{
		Event:   messages.EventMatchStarted,
		Payload: messages.MatchStartedPayload{Target: m.target},
	})
	s.sink.Broadcast(messages.OutboundMessage{
		Event:   messages.EventScoreUpdate,
		Payload: messages.ScoreUpdatePayload{Score: m.score},
	})

	// Any score tightens the respawn cadence to the HARD interval.
	close(m.respawnStop)
	m.respawnStop = make(chan struct{})
	go s.runRespawn(m.generation, m.respawnStop)

	s.publisher.Publish(events.Event{Type: events.EventScoreChanged, Payload: m.score})
	s.logger.Debug("hit scored",
		zap.String("client_id", id),
		zap.Int("score", m.score),
		zap.String("next_target", m.target))
}

func (s *Session) handleCountdownTick(generation uint64) {
	m := s.match
	if m == nil || generation != m.generation {
		s.logger.Debug("discarding stale countdown tick", zap.Uint64("generation", generation))
		return
	}

	m.remainingMs -= s.cfg.TickInterval.Milliseconds()

	if m.remainingMs <= 0 {
		s.endMatch(m)
		return
	}

	if m.remainingMs%1000 == 0 {
		s.sink.Broadcast(messages.OutboundMessage{
			Event:   messages.EventTimeUpdate,
			Payload: messages.TimeUpdatePayload{RemainingSeconds: m.remainingMs / 1000},
		})
	}
}

func (s *Session) handleRespawnTick(generation uint64) {
	m := s.match
	if m == nil || generation != m.generation {
		s.logger.Debug("discarding stale respawn tick", zap.Uint64("generation", generation))
		return
	}
	if len(s.participants) == 0 {
		return
	}

	decision := EvaluateDifficulty(m.remainingMs, m.lastScoreAtMs, s.cfg.MatchDuration, s.tiers)
	if !decision.Respawn {
		return
	}

	m.target = s.selector.Pick(s.participants, m.target)
	s.sink.Broadcast(messages.OutboundMessage{
		Event:   messages.EventMatchStarted,
		Payload: messages.MatchStartedPayload{Target: m.target},
	})

	s.logger.Debug("mole relocated",
		zap.String("tier", string(decision.Tier)),
		zap.Int64("remaining_ms", m.remainingMs),
		zap.String("target", m.target))
}

// endMatch is the timeout path: stop the tickers, announce the final
// score and fall back to IDLE.
func (s *Session) endMatch(m *match) {
	s.stopTimers(m)
	s.match = nil

	s.sink.Broadcast(messages.OutboundMessage{
		Event:   messages.EventMatchEnded,
		Payload: messages.MatchEndedPayload{FinalScore: m.score},
	})

	s.publisher.Publish(events.Event{Type: events.EventMatchEnded, Payload: m.score})
	s.logger.Info("match ended",
		zap.Uint64("generation", m.generation),
		zap.Int("final_score", m.score))
}

func (s *Session) handleReset() {
	if s.match != nil {
		s.stopTimers(s.match)
		s.match = nil
	}
	s.participants = nil
	s.leader = ""

	// A null clientId tells every client to drop its game identity.
	s.sink.Broadcast(messages.OutboundMessage{
		Event:   messages.EventJoined,
		Payload: messages.JoinedPayload{ClientID: nil},
	})

	s.publisher.Publish(events.Event{Type: events.EventSessionReset})
	s.logger.Info("session reset")
}

func (s *Session) handleRestart() {
	// Timeout-path teardown without the matchEnded broadcast. Participants
	// and leader survive; the match fields go away with the match struct.
	if s.match != nil {
		s.stopTimers(s.match)
		s.match = nil
	}

	s.sink.Broadcast(messages.OutboundMessage{Event: messages.EventMatchRestarted})

	s.publisher.Publish(events.Event{Type: events.EventMatchRestarted})
	s.logger.Info("match restarted", zap.Int("players", len(s.participants)))
}

func (s *Session) handleDisconnect(id string) {
	if !s.isParticipant(id) {
		return
	}

	kept := s.participants[:0]
	for _, p := range s.participants {
		if p != id {
			kept = append(kept, p)
		}
	}
	s.participants = kept

	if s.leader == id && len(s.participants) > 0 {
		s.leader = s.participants[0]
	}

	// The mole must always rest on a current participant.
	if m := s.match; m != nil && m.target == id {
		m.target = ""
		if len(s.participants) > 0 {
			m.target = s.selector.Pick(s.participants, "")
			s.sink.Broadcast(messages.OutboundMessage{
				Event:   messages.EventMatchStarted,
				Payload: messages.MatchStartedPayload{Target: m.target},
			})
		}
	}

	s.publisher.Publish(events.Event{Type: events.EventPlayerLeft, Payload: id})
	s.logger.Info("player left",
		zap.String("client_id", id),
		zap.Int("players", len(s.participants)))
}

func (s *Session) handleDebug() {
	snap := s.snapshot()
	s.publisher.Publish(events.Event{Type: events.EventSessionSnapshot, Payload: snap})
	s.logger.Info("session snapshot",
		zap.String("phase", string(snap.Phase)),
		zap.Strings("participants", snap.Participants),
		zap.String("leader", snap.Leader),
		zap.Uint64("generation", snap.Generation),
		zap.Int("score", snap.Score),
		zap.Int64("remaining_ms", snap.RemainingMs),
		zap.Int64("last_score_at_ms", snap.LastScoreAtMs),
		zap.String("target", snap.Target))
}

func (s *Session) snapshot() Snapshot {
	snap := Snapshot{
		Phase:        PhaseIdle,
		Participants: append([]string(nil), s.participants...),
		Leader:       s.leader,
		Generation:   s.generation,
	}
	if m := s.match; m != nil {
		snap.Phase = PhaseRunning
		snap.Score = m.score
		snap.RemainingMs = m.remainingMs
		snap.LastScoreAtMs = m.lastScoreAtMs
		snap.Target = m.target
	}
	return snap
}

func (s *Session) isParticipant(id string) bool {
	for _, p := range s.participants {
		if p == id {
			return true
		}
	}
	return false
}

// scoreSentinel is the lastScoreAt value meaning "no hit yet this match".
// It sits one EASY interval above the match duration so the EASY guard
// passes from the first qualifying tick.
func (s *Session) scoreSentinel() int64 {
	return s.cfg.MatchDuration.Milliseconds() + s.cfg.EasyInterval.Milliseconds()
}

func (s *Session) stopTimers(m *match) {
	close(m.countdownStop)
	close(m.respawnStop)
}

// runCountdown drives the match clock. It never mutates state itself; it
// posts ticks tagged with its generation into the session inbox.
func (s *Session) runCountdown(generation uint64, stop chan struct{}) {
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.postTick(countdownTick{generation: generation}, stop)
		case <-stop:
			return
		}
	}
}

// runRespawn drives the difficulty evaluation. It fires at the HARD
// interval; the policy decides on each tick whether the mole moves.
func (s *Session) runRespawn(generation uint64, stop chan struct{}) {
	ticker := time.NewTicker(s.tiers.Interval(TierHard))
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.postTick(respawnTick{generation: generation}, stop)
		case <-stop:
			return
		}
	}
}

func (s *Session) postTick(cmd Command, stop chan struct{}) {
	select {
	case s.inbox <- cmd:
	case <-stop:
	case <-s.quit:
	}
}
