package events

import "sync"

// EventType represents the type of event
type EventType string

// Define event types
const (
	EventPlayerJoined     EventType = "PLAYER_JOINED"
	EventPlayerLeft       EventType = "PLAYER_LEFT"
	EventMatchStarted     EventType = "MATCH_STARTED"
	EventMatchEnded       EventType = "MATCH_ENDED"
	EventMatchRestarted   EventType = "MATCH_RESTARTED"
	EventSessionReset     EventType = "SESSION_RESET"
	EventScoreChanged     EventType = "SCORE_CHANGED"
	EventSessionSnapshot  EventType = "SESSION_SNAPSHOT"
	EventConnectionClosed EventType = "CONNECTION_CLOSED"
)

// Event represents an event in the system
type Event struct {
	Type    EventType
	Payload interface{}
}

// Handler is a function that processes events
type Handler func(event Event)

// Publisher is the central event publisher
type Publisher struct {
	mu          sync.RWMutex
	subscribers map[EventType][]Handler
}

// NewPublisher creates a new event publisher
func NewPublisher() *Publisher {
	return &Publisher{
		subscribers: make(map[EventType][]Handler),
	}
}

// Subscribe registers a handler for a specific event type
func (p *Publisher) Subscribe(eventType EventType, handler Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.subscribers[eventType] = append(p.subscribers[eventType], handler)
}

// SubscribeAll registers a handler for all event types
func (p *Publisher) SubscribeAll(handler Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Special event type for "all events"
	p.subscribers["*"] = append(p.subscribers["*"], handler)
}

// Publish broadcasts an event to all subscribers including "all events" handlers
func (p *Publisher) Publish(event Event) {
	p.mu.RLock()
	handlers := p.subscribers[event.Type]
	allHandlers := p.subscribers["*"]
	p.mu.RUnlock()

	// Call all handlers concurrently
	for _, handler := range handlers {
		go handler(event)
	}
	for _, handler := range allHandlers {
		go handler(event)
	}
}
