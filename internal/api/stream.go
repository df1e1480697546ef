package api

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	clientBuffer = 16
	writeTimeout = 10 * time.Second
)

// AnalysisEvent describes websocket payloads emitted after each classification.
type AnalysisEvent struct {
	Type      string             `json:"type"`
	RequestID string             `json:"request_id,omitempty"`
	Analysis  *AnalysisRecordDTO `json:"analysis,omitempty"`
	Processed int                `json:"processed,omitempty"`
	Total     int                `json:"total,omitempty"`
	Message   string             `json:"message,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

// wsClient owns a websocket connection and the queue drained by its writer.
type wsClient struct {
	conn *websocket.Conn
	send chan AnalysisEvent
	once sync.Once
}

func newWSClient(conn *websocket.Conn) *wsClient {
	return &wsClient{conn: conn, send: make(chan AnalysisEvent, clientBuffer)}
}

// AnalysisNotifier keeps track of active websocket clients and broadcasts analysis events.
type AnalysisNotifier struct {
	mu        sync.Mutex
	clients   map[*wsClient]struct{}
	lastEvent *AnalysisEvent
}

// NewAnalysisNotifier constructs a notifier instance.
func NewAnalysisNotifier() *AnalysisNotifier {
	return &AnalysisNotifier{clients: make(map[*wsClient]struct{})}
}

// Register attaches a websocket connection, starts its writer and queues the
// latest event for replay.
func (n *AnalysisNotifier) Register(conn *websocket.Conn) *wsClient {
	client := newWSClient(conn)
	n.mu.Lock()
	n.clients[client] = struct{}{}
	if n.lastEvent != nil {
		client.send <- *n.lastEvent
	}
	n.mu.Unlock()

	go client.writeLoop()
	return client
}

// Unregister removes the websocket client from the notifier and closes the socket.
func (n *AnalysisNotifier) Unregister(client *wsClient) {
	if client == nil {
		return
	}
	n.mu.Lock()
	delete(n.clients, client)
	n.mu.Unlock()
	client.close()
	if client.conn != nil {
		_ = client.conn.Close()
	}
}

// Broadcast queues the supplied event for every registered client without
// waiting on the network. Clients whose queue is full are dropped.
func (n *AnalysisNotifier) Broadcast(event AnalysisEvent) {
	event.Timestamp = time.Now().UTC()

	n.mu.Lock()
	defer n.mu.Unlock()
	snapshot := event
	n.lastEvent = &snapshot

	for client := range n.clients {
		select {
		case client.send <- event:
		default:
			delete(n.clients, client)
			client.close()
		}
	}
}

// Clients reports the number of connected subscribers.
func (n *AnalysisNotifier) Clients() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.clients)
}

// LastEvent returns a copy of the most recent broadcast, if any.
func (n *AnalysisNotifier) LastEvent() *AnalysisEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.lastEvent == nil {
		return nil
	}
	copy := *n.lastEvent
	return &copy
}

// close ends the writer. Callers must have removed the client from the set
// so no further sends happen.
func (c *wsClient) close() {
	c.once.Do(func() { close(c.send) })
}

func (c *wsClient) writeLoop() {
	defer c.conn.Close()
	for event := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteJSON(event); err != nil {
			return
		}
	}
}
