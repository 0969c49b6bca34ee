// Package notify pushes new-game alerts to registered UDP clients.
// Clients register with an optional genre filter; every catalog insert
// matching the filter is pushed as a single JSON datagram.
package notify

import (
	"encoding/json"
	"errors"
	"log"
	"net"
	"strings"
	"sync"

	"indiehub/pkg/models"
)

const (
	RegisterMessageType = "register"
	NewGameMessageType  = "new_game"
)

type RegisterMessage struct {
	Type   string   `json:"type"`
	UserID string   `json:"user_id"`
	Genres []string `json:"genres,omitempty"` // empty = all games
}

type NewGameMessage struct {
	Type     string   `json:"type"`
	GameID   string   `json:"game_id"`
	Name     string   `json:"name"`
	URL      string   `json:"url"`
	Price    *float64 `json:"price,omitempty"`
	Genres   []string `json:"genres,omitempty"`
	ImageURL string   `json:"image_url,omitempty"`
}

type Client struct {
	UserID string
	Genres map[string]struct{} // lowercased; nil or empty = all
	Addr   *net.UDPAddr
}

type Registry struct {
	mu      sync.RWMutex
	clients map[string]Client
}

func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]Client)}
}

func (r *Registry) Register(userID string, genres []string, addr *net.UDPAddr) {
	if userID == "" || addr == nil {
		return
	}
	var set map[string]struct{}
	if len(genres) > 0 {
		set = make(map[string]struct{}, len(genres))
		for _, g := range genres {
			g = strings.ToLower(strings.TrimSpace(g))
			if g != "" {
				set[g] = struct{}{}
			}
		}
	}
	r.mu.Lock()
	r.clients[userID] = Client{UserID: userID, Genres: set, Addr: addr}
	r.mu.Unlock()
}

func (r *Registry) Remove(userID string) {
	r.mu.Lock()
	delete(r.clients, userID)
	r.mu.Unlock()
}

func (r *Registry) Snapshot() []Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	clients := make([]Client, 0, len(r.clients))
	for _, client := range r.clients {
		clients = append(clients, client)
	}
	return clients
}

type Server struct {
	addr     string
	registry *Registry
	logger   *log.Logger
	conn     *net.UDPConn
}

func NewServer(addr string, registry *Registry, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{addr: addr, registry: registry, logger: logger}
}

func (s *Server) Run() error {
	udpAddr, err := net.ResolveUDPAddr("udp", s.addr)
	if err != nil {
		return err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return err
	}
	s.conn = conn
	defer conn.Close()

	s.logger.Printf("UDP notify server listening on %s", s.addr)

	buffer := make([]byte, 2048)
	for {
		n, addr, err := conn.ReadFromUDP(buffer)
		if err != nil {
			return err
		}
		msg, err := parseRegisterMessage(buffer[:n])
		if err != nil {
			s.logger.Printf("invalid UDP message from %s: %v", addr, err)
			continue
		}
		if msg.Type != RegisterMessageType {
			continue
		}
		s.registry.Register(msg.UserID, msg.Genres, addr)
		s.logger.Printf("registered UDP client %s (%s)", msg.UserID, addr)
	}
}

// GameInserted pushes an alert for a freshly cataloged game to every
// client whose genre filter matches.
func (s *Server) GameInserted(g models.GameDB) {
	if s.conn == nil {
		s.logger.Printf("UDP notify server not running")
		return
	}
	payload, err := json.Marshal(NewGameMessage{
		Type:     NewGameMessageType,
		GameID:   g.ID,
		Name:     g.Name,
		URL:      g.URL,
		Price:    g.Price,
		Genres:   g.Genres,
		ImageURL: g.ImageURL,
	})
	if err != nil {
		s.logger.Printf("failed to marshal alert: %v", err)
		return
	}

	clients := s.registry.Snapshot()
	for _, client := range clients {
		if !matchesGenres(client.Genres, g.Genres) {
			continue
		}
		s.sendWithRetry(client, payload)
	}
}

// matchesGenres reports whether the game carries at least one of the
// client's genres. An empty filter matches everything.
func matchesGenres(filter map[string]struct{}, genres []string) bool {
	if len(filter) == 0 {
		return true
	}
	for _, g := range genres {
		if _, ok := filter[strings.ToLower(strings.TrimSpace(g))]; ok {
			return true
		}
	}
	return false
}

func (s *Server) sendWithRetry(client Client, payload []byte) {
	if err := s.sendOnce(client, payload); err == nil {
		return
	}
	if err := s.sendOnce(client, payload); err != nil {
		s.logger.Printf("failed to notify user %s at %s: %v", client.UserID, client.Addr, err)
		s.registry.Remove(client.UserID)
	}
}

func (s *Server) sendOnce(client Client, payload []byte) error {
	if client.Addr == nil {
		return errors.New("missing client address")
	}
	_, err := s.conn.WriteToUDP(payload, client.Addr)
	return err
}

func parseRegisterMessage(data []byte) (RegisterMessage, error) {
	var msg RegisterMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, err
	}
	if msg.UserID == "" || msg.Type == "" {
		return msg, errors.New("missing required fields")
	}
	return msg, nil
}
