package live

import (
	"bufio"
	"encoding/json"
	"net"
	"testing"
	"time"
)

func TestBroadcastJSONDeliversLines(t *testing.T) {
	hub := NewHub()

	server, client := net.Pipe()
	defer client.Close()
	hub.Add(server)

	type payload struct {
		Type string `json:"type"`
		N    int    `json:"n"`
	}

	done := make(chan payload, 1)
	go func() {
		sc := bufio.NewScanner(client)
		if sc.Scan() {
			var p payload
			_ = json.Unmarshal(sc.Bytes(), &p)
			done <- p
		}
	}()

	hub.BroadcastJSON(payload{Type: "test.event", N: 7})

	select {
	case p := <-done:
		if p.Type != "test.event" || p.N != 7 {
			t.Errorf("received %+v", p)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no line delivered")
	}
}

func TestBroadcastDropsDeadConnections(t *testing.T) {
	hub := NewHub()

	server, client := net.Pipe()
	hub.Add(server)
	client.Close()
	server.Close()

	if hub.Count() != 1 {
		t.Fatalf("clients = %d before broadcast", hub.Count())
	}

	hub.BroadcastJSON(map[string]string{"type": "ping"})

	if hub.Count() != 0 {
		t.Errorf("dead connection not dropped, clients = %d", hub.Count())
	}
}

func TestWelcomeCarriesSubscriberCount(t *testing.T) {
	hub := NewHub()

	server, client := net.Pipe()
	defer client.Close()
	hub.Add(server)

	done := make(chan WelcomeEvent, 1)
	go func() {
		sc := bufio.NewScanner(client)
		if sc.Scan() {
			var ev WelcomeEvent
			_ = json.Unmarshal(sc.Bytes(), &ev)
			done <- ev
		}
	}()

	hub.Welcome(server)

	select {
	case ev := <-done:
		if ev.Type != "welcome" || ev.Transport != "tcp" || ev.Subscribers != 1 {
			t.Errorf("welcome = %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no welcome delivered")
	}
}

func TestWelcomeIgnoresUnknownConnection(t *testing.T) {
	hub := NewHub()

	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	// Never registered; must not write anything or panic.
	hub.Welcome(server)
}

func TestStatsCountsBothTransports(t *testing.T) {
	hub := NewHub()

	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()
	hub.Add(server)

	st := hub.Stats()
	if st.TCPClients != 1 || st.WSClients != 0 {
		t.Errorf("stats = %+v", st)
	}

	hub.Remove(server)
	if st := hub.Stats(); st.TCPClients != 0 {
		t.Errorf("stats after remove = %+v", st)
	}
}
