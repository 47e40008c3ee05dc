package api

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// TurnEvent describes websocket payloads emitted as trainees talk to personas.
type TurnEvent struct {
	Type      string    `json:"type"`
	SessionID string    `json:"session_id,omitempty"`
	Domain    string    `json:"domain"`
	Seq       int       `json:"seq,omitempty"`
	Role      string    `json:"user_role,omitempty"`
	Score     float64   `json:"integrity_score"`
	Outcome   string    `json:"outcome,omitempty"`
	Requested []string  `json:"requested_info,omitempty"`
	Revealed  []string  `json:"info_to_reveal,omitempty"`
	Breach    bool      `json:"breach,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// wsClient wraps a websocket connection with write locking.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// TurnNotifier keeps track of active websocket clients and broadcasts turn events.
type TurnNotifier struct {
	mu       sync.Mutex
	clients  map[*wsClient]struct{}
	lastTurn *TurnEvent
}

// NewTurnNotifier constructs a notifier instance.
func NewTurnNotifier() *TurnNotifier {
	return &TurnNotifier{clients: make(map[*wsClient]struct{})}
}

// Register attaches a websocket connection and replays the latest turn to it.
func (n *TurnNotifier) Register(conn *websocket.Conn) *wsClient {
	client := &wsClient{conn: conn}
	n.mu.Lock()
	n.clients[client] = struct{}{}
	last := n.lastTurn
	n.mu.Unlock()

	if last != nil {
		_ = client.writeJSON(*last)
	}
	return client
}

// Unregister removes the websocket client from the notifier and closes the socket.
func (n *TurnNotifier) Unregister(client *wsClient) {
	if client == nil {
		return
	}
	n.mu.Lock()
	delete(n.clients, client)
	n.mu.Unlock()
	_ = client.conn.Close()
}

// Broadcast sends the supplied event to all registered websocket clients.
func (n *TurnNotifier) Broadcast(event TurnEvent) {
	event.Timestamp = time.Now().UTC()

	n.mu.Lock()
	if event.Type == eventTurn {
		snapshot := event
		n.lastTurn = &snapshot
	}
	for client := range n.clients {
		if err := client.writeJSON(event); err != nil {
			delete(n.clients, client)
			_ = client.conn.Close()
		}
	}
	n.mu.Unlock()
}

// LastTurn returns a copy of the most recent turn event, if any.
func (n *TurnNotifier) LastTurn() *TurnEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.lastTurn == nil {
		return nil
	}
	copy := *n.lastTurn
	return &copy
}

func (c *wsClient) writeJSON(payload interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(payload)
}
