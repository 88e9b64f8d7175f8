package server

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/tecu23/mole-server/pkg/game"
	"github.com/tecu23/mole-server/pkg/messages"
)

// InboundHubMessage are the messages that the hub receives
type InboundHubMessage struct {
	Conn    *Connection             // who sent it
	Message messages.InboundMessage // decoded envelope
}

// Hub keeps track of all active connections and is responsible for
// registering/unregistering them. Inbound messages are translated into
// session commands; the session calls back through the Sink interface to
// broadcast or unicast outbound events.
type Hub struct {
	mu          sync.RWMutex           // Mutex to protect direct access to the connections map.
	connections map[string]*Connection // Registered connections by client id

	register   chan *Connection       // Incoming registration
	unregister chan *Connection       // Incoming unregistration
	inbound    chan InboundHubMessage // Inbound messages the hub routes to the session

	quit chan struct{}
	once sync.Once

	session *game.Session
	logger  *zap.Logger
}

// NewHub creates a new hub for the given session
func NewHub(session *game.Session, logger *zap.Logger) *Hub {
	return &Hub{
		connections: make(map[string]*Connection),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		inbound:     make(chan InboundHubMessage),
		quit:        make(chan struct{}),
		session:     session,
		logger:      logger,
	}
}

// Run is the main execution of the hub
func (h *Hub) Run() {
	for {
		select {
		case conn := <-h.register:
			h.registerConnection(conn)

		case conn := <-h.unregister:
			h.unregisterConnection(conn)

		case msg := <-h.inbound:
			h.handleInbound(msg)

		case <-h.quit:
			h.closeAll()
			return
		}
	}
}

// Register hands a new connection to the hub loop
func (h *Hub) Register(conn *Connection) {
	select {
	case h.register <- conn:
	case <-h.quit:
	}
}

// Unregister removes a connection from the hub loop
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.quit:
	}
}

// PostInbound hands a decoded client message to the hub loop. Returns
// without delivering once the hub has shut down.
func (h *Hub) PostInbound(msg InboundHubMessage) {
	select {
	case h.inbound <- msg:
	case <-h.quit:
	}
}

// Shutdown stops the hub loop and closes every connection
func (h *Hub) Shutdown() {
	h.once.Do(func() { close(h.quit) })
}

func (h *Hub) registerConnection(conn *Connection) {
	h.mu.Lock()
	h.connections[conn.ID.String()] = conn
	total := len(h.connections)
	h.mu.Unlock()

	h.logger.Info("connection registered",
		zap.String("connection_id", conn.ID.String()),
		zap.Int("total", total))

	conn.SendJSON(messages.OutboundMessage{
		Event:   messages.EventConnected,
		Payload: messages.ConnectedPayload{ClientID: conn.ID.String()},
	})
}

func (h *Hub) unregisterConnection(conn *Connection) {
	h.mu.Lock()
	id := conn.ID.String()
	if _, ok := h.connections[id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.connections, id)
	close(conn.send)
	total := len(h.connections)
	h.mu.Unlock()

	h.session.Post(game.Disconnect{ClientID: id})

	h.logger.Info("connection unregistered",
		zap.String("connection_id", id),
		zap.Int("total", total))
}

// handleInbound routes a decoded client message into the session loop.
// Unknown events are dropped; the session applies its own preconditions.
func (h *Hub) handleInbound(msg InboundHubMessage) {
	id := msg.Conn.ID.String()

	switch msg.Message.Event {
	case messages.EventJoin:
		h.session.Post(game.Join{ClientID: id})

	case messages.EventStart:
		h.session.Post(game.Start{ClientID: id})

	case messages.EventHit:
		var payload messages.HitPayload
		if len(msg.Message.Payload) > 0 {
			if err := json.Unmarshal(msg.Message.Payload, &payload); err != nil {
				h.logger.Debug("ignoring malformed hit payload", zap.Error(err))
			}
		}
		h.session.Post(game.Hit{ClientID: id, Target: payload.Target})

	case messages.EventReset:
		h.session.Post(game.Reset{ClientID: id})

	case messages.EventRestart:
		h.session.Post(game.Restart{ClientID: id})

	case messages.EventDebug:
		h.session.Post(game.Debug{ClientID: id})

	default:
		h.logger.Debug("unknown inbound event", zap.String("event", msg.Message.Event))
	}
}

// Broadcast sends a message to every connected client. Broadcasting to
// zero connections is a no-op.
func (h *Hub) Broadcast(msg messages.OutboundMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Error marshaling JSON", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, conn := range h.connections {
		select {
		case conn.send <- data:
		default:
			// Slow consumer; drop rather than block the session.
		}
	}
}

// Send delivers a message to a single client, if still connected. The read
// lock is held across the channel send so unregistration cannot close the
// send channel mid-delivery; the send is non-blocking, so the hold is bounded.
func (h *Hub) Send(clientID string, msg messages.OutboundMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Error marshaling JSON", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	conn, ok := h.connections[clientID]
	if !ok {
		return
	}
	select {
	case conn.send <- data:
	default:
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, conn := range h.connections {
		close(conn.send)
		delete(h.connections, id)
	}
}
