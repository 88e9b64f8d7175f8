package server

import (
	"encoding/json"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tecu23/mole-server/pkg/config"
	"github.com/tecu23/mole-server/pkg/events"
	"github.com/tecu23/mole-server/pkg/game"
	"github.com/tecu23/mole-server/pkg/messages"
)

func newTestHub(t *testing.T) (*Hub, *game.Session, *events.Publisher) {
	t.Helper()
	logger := zap.NewNop()
	publisher := events.NewPublisher()

	selector := game.NewSelector(rand.New(rand.NewSource(7)))
	session := game.NewSession(config.DefaultGameConfig(), nil, selector, publisher, logger)

	hub := NewHub(session, logger)
	session.SetSink(hub)

	go session.Run()
	go hub.Run()
	t.Cleanup(func() {
		hub.Shutdown()
		session.Stop()
	})

	return hub, session, publisher
}

// readEvent blocks until the connection receives the given event
func readEvent(t *testing.T, conn *Connection, event string) messages.OutboundMessage {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case data := <-conn.send:
			var msg messages.OutboundMessage
			require.NoError(t, json.Unmarshal(data, &msg))
			if msg.Event == event {
				return msg
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q", event)
		}
	}
}

func register(t *testing.T, hub *Hub, publisher *events.Publisher) *Connection {
	t.Helper()
	conn := NewConnection(nil, hub, publisher, zap.NewNop())
	hub.Register(conn)
	msg := readEvent(t, conn, messages.EventConnected)

	payload, ok := msg.Payload.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, conn.ID.String(), payload["clientId"])
	return conn
}

func TestRegisterSendsConnected(t *testing.T) {
	hub, _, publisher := newTestHub(t)
	register(t, hub, publisher)
}

func TestJoinRoutesToSessionAndFansOut(t *testing.T) {
	hub, session, publisher := newTestHub(t)
	conn := register(t, hub, publisher)
	other := register(t, hub, publisher)

	hub.PostInbound(InboundHubMessage{
		Conn:    conn,
		Message: messages.InboundMessage{Event: messages.EventJoin},
	})

	joined := readEvent(t, conn, messages.EventJoined)
	payload := joined.Payload.(map[string]interface{})
	assert.Equal(t, conn.ID.String(), payload["clientId"])
	assert.Equal(t, true, payload["leader"])

	// The player count reaches every connection, spectators included.
	readEvent(t, conn, messages.EventPlayerCount)
	readEvent(t, other, messages.EventPlayerCount)

	snap := session.Snapshot()
	assert.Equal(t, []string{conn.ID.String()}, snap.Participants)
	assert.Equal(t, conn.ID.String(), snap.Leader)
}

func TestUnregisterRemovesParticipant(t *testing.T) {
	hub, session, publisher := newTestHub(t)
	conn := register(t, hub, publisher)

	hub.PostInbound(InboundHubMessage{
		Conn:    conn,
		Message: messages.InboundMessage{Event: messages.EventJoin},
	})
	readEvent(t, conn, messages.EventJoined)

	hub.Unregister(conn)

	require.Eventually(t, func() bool {
		return len(session.Snapshot().Participants) == 0
	}, time.Second, 10*time.Millisecond)
}

func TestUnknownEventIsDropped(t *testing.T) {
	hub, session, publisher := newTestHub(t)
	conn := register(t, hub, publisher)

	hub.PostInbound(InboundHubMessage{
		Conn:    conn,
		Message: messages.InboundMessage{Event: "teleport"},
	})

	assert.Empty(t, session.Snapshot().Participants)
}

func TestBroadcastToNobody(t *testing.T) {
	hub, _, _ := newTestHub(t)

	// Must not panic or block with zero connections.
	hub.Broadcast(messages.OutboundMessage{
		Event:   messages.EventPlayerCount,
		Payload: messages.PlayerCountPayload{Count: 0},
	})
}

func TestHitPayloadIsParsed(t *testing.T) {
	hub, session, publisher := newTestHub(t)
	conn := register(t, hub, publisher)

	// A hit while idle is silently ignored but must still route cleanly.
	hub.PostInbound(InboundHubMessage{
		Conn: conn,
		Message: messages.InboundMessage{
			Event:   messages.EventHit,
			Payload: json.RawMessage(`{"target":"someone"}`),
		},
	})

	snap := session.Snapshot()
	assert.Equal(t, game.PhaseIdle, snap.Phase)
	assert.Equal(t, 0, snap.Score)
}

// A unicast reply racing a socket close must never send on the closed
// channel; disconnecting mid-send is routine, not fatal.
func TestSendRacingDisconnect(t *testing.T) {
	hub, _, publisher := newTestHub(t)

	msg := messages.OutboundMessage{
		Event:   messages.EventAlreadyJoined,
		Payload: messages.AlreadyJoinedPayload{Message: "You already joined the game."},
	}

	for i := 0; i < 200; i++ {
		conn := register(t, hub, publisher)
		id := conn.ID.String()

		done := make(chan struct{})
		go func() {
			for j := 0; j < 20; j++ {
				hub.Send(id, msg)
			}
			close(done)
		}()

		hub.Unregister(conn)
		<-done
	}
}

func TestSendAfterUnregisterIsNoOp(t *testing.T) {
	hub, session, publisher := newTestHub(t)
	conn := register(t, hub, publisher)

	hub.Unregister(conn)
	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		_, ok := hub.connections[conn.ID.String()]
		return !ok
	}, time.Second, 10*time.Millisecond)

	hub.Send(conn.ID.String(), messages.OutboundMessage{
		Event:   messages.EventGameInProgress,
		Payload: messages.GameInProgressPayload{Message: "Game is in progress."},
	})

	assert.Empty(t, session.Snapshot().Participants)
}

func TestPostInboundAfterShutdownReturns(t *testing.T) {
	hub, _, publisher := newTestHub(t)
	conn := register(t, hub, publisher)

	hub.Shutdown()

	done := make(chan struct{})
	go func() {
		hub.PostInbound(InboundHubMessage{
			Conn:    conn,
			Message: messages.InboundMessage{Event: messages.EventJoin},
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("PostInbound blocked after shutdown")
	}
}
