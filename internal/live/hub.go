// Package live fans crawl and catalog events out to connected
// subscribers over WebSocket and a line-delimited TCP feed.
package live

import (
	"encoding/json"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// tcpWriteTimeout bounds how long a slow TCP subscriber can stall a
// broadcast before it is dropped.
const tcpWriteTimeout = 2 * time.Second

// subscriber is one attached feed client, regardless of transport.
// deliver sends a single newline-terminated JSON event; shutdown
// closes the underlying connection.
type subscriber interface {
	deliver(line []byte) error
	shutdown()
}

type tcpSubscriber struct {
	conn net.Conn
}

func (s *tcpSubscriber) deliver(line []byte) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(tcpWriteTimeout))
	_, err := s.conn.Write(line)
	return err
}

func (s *tcpSubscriber) shutdown() { _ = s.conn.Close() }

type wsSubscriber struct {
	conn *websocket.Conn
}

func (s *wsSubscriber) deliver(line []byte) error {
	return s.conn.WriteMessage(websocket.TextMessage, line)
}

func (s *wsSubscriber) shutdown() { _ = s.conn.Close() }

// Hub is the fan-out point for the live event feed. The crawl pipeline
// publishes run lifecycle and game.inserted events here; subscribers
// attach over TCP or WebSocket and receive every event as one JSON
// line.
type Hub struct {
	mu  sync.Mutex
	tcp map[net.Conn]*tcpSubscriber
	ws  map[*websocket.Conn]*wsSubscriber
}

type Stats struct {
	TCPClients int `json:"tcp_clients"`
	WSClients  int `json:"ws_clients"`
}

// WelcomeEvent greets a subscriber right after it attaches, carrying
// the current audience size.
type WelcomeEvent struct {
	Type        string `json:"type"` // always "welcome"
	Transport   string `json:"transport"`
	Subscribers int    `json:"subscribers"`
}

func NewHub() *Hub {
	return &Hub{
		tcp: make(map[net.Conn]*tcpSubscriber),
		ws:  make(map[*websocket.Conn]*wsSubscriber),
	}
}

func (h *Hub) Add(conn net.Conn) {
	h.mu.Lock()
	h.tcp[conn] = &tcpSubscriber{conn: conn}
	h.mu.Unlock()
}

func (h *Hub) Remove(conn net.Conn) {
	h.mu.Lock()
	sub, ok := h.tcp[conn]
	delete(h.tcp, conn)
	h.mu.Unlock()
	if ok {
		sub.shutdown()
	} else {
		_ = conn.Close()
	}
}

func (h *Hub) AddWS(conn *websocket.Conn) {
	h.mu.Lock()
	h.ws[conn] = &wsSubscriber{conn: conn}
	h.mu.Unlock()
}

func (h *Hub) RemoveWS(conn *websocket.Conn) {
	h.mu.Lock()
	sub, ok := h.ws[conn]
	delete(h.ws, conn)
	h.mu.Unlock()
	if ok {
		sub.shutdown()
	} else {
		_ = conn.Close()
	}
}

// BroadcastJSON marshals v once and sends it to every subscriber as a
// newline-terminated JSON line. Subscribers whose write fails are
// closed and dropped.
func (h *Hub) BroadcastJSON(v any) {
	line, err := json.Marshal(v)
	if err != nil {
		return
	}
	line = append(line, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()

	for conn, sub := range h.tcp {
		if err := sub.deliver(line); err != nil {
			sub.shutdown()
			delete(h.tcp, conn)
		}
	}
	for conn, sub := range h.ws {
		if err := sub.deliver(line); err != nil {
			sub.shutdown()
			delete(h.ws, conn)
		}
	}
}

// Count reports the number of TCP subscribers.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.tcp)
}

func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Stats{
		TCPClients: len(h.tcp),
		WSClients:  len(h.ws),
	}
}

// Welcome sends the greeting event to a freshly attached TCP
// subscriber. No-op if the connection is not registered.
func (h *Hub) Welcome(conn net.Conn) {
	h.mu.Lock()
	sub, ok := h.tcp[conn]
	n := len(h.tcp) + len(h.ws)
	h.mu.Unlock()
	if !ok {
		return
	}
	h.welcome(sub, "tcp", n)
}

// WelcomeWS is the WebSocket counterpart of Welcome.
func (h *Hub) WelcomeWS(conn *websocket.Conn) {
	h.mu.Lock()
	sub, ok := h.ws[conn]
	n := len(h.tcp) + len(h.ws)
	h.mu.Unlock()
	if !ok {
		return
	}
	h.welcome(sub, "websocket", n)
}

func (h *Hub) welcome(sub subscriber, transport string, subscribers int) {
	line, err := json.Marshal(WelcomeEvent{
		Type:        "welcome",
		Transport:   transport,
		Subscribers: subscribers,
	})
	if err != nil {
		return
	}
	_ = sub.deliver(append(line, '\n'))
}
