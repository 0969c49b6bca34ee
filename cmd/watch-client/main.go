// watch-client tails the api-server's TCP live feed and prints one
// line per event: the welcome greeting, crawl run lifecycle, and
// freshly ingested games.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"time"
)

// feedEvent covers every payload the feed emits. Fields a given event
// type does not carry stay at their zero value.
type feedEvent struct {
	Type        string    `json:"type"`
	Transport   string    `json:"transport"`
	Subscribers int       `json:"subscribers"`
	Stats       *runStats `json:"stats"`
	Game        *feedGame `json:"game"`
}

type runStats struct {
	Consulted  int `json:"consulted"`
	Accepted   int `json:"accepted"`
	Duplicates int `json:"duplicates"`
	Excluded   int `json:"excluded"`
	Errors     int `json:"errors"`
}

type feedGame struct {
	Name  string   `json:"name"`
	Price *float64 `json:"price"`
	URL   string   `json:"url"`
}

func main() {
	addr := flag.String("addr", "127.0.0.1:7070", "TCP live feed address")
	raw := flag.Bool("raw", false, "print raw JSON lines instead of summaries")
	flag.Parse()

	for {
		if err := run(*addr, *raw); err != nil {
			log.Printf("[watch] disconnected: %v", err)
		}
		time.Sleep(1 * time.Second) // auto reconnect
	}
}

func run(addr string, raw bool) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	log.Printf("[watch] connected to %s", addr)

	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		line := sc.Bytes()

		if raw {
			fmt.Println(string(line))
			continue
		}

		var ev feedEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			fmt.Println(string(line))
			continue
		}
		if summary := renderEvent(ev); summary != "" {
			fmt.Println(summary)
		} else {
			fmt.Println(string(line))
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return os.ErrClosed
}

// renderEvent turns a known feed event into a one-line summary.
// Unknown types return "" so the caller can fall back to the raw line.
func renderEvent(ev feedEvent) string {
	switch ev.Type {
	case "welcome":
		return fmt.Sprintf("connected over %s, %d subscribers on the feed", ev.Transport, ev.Subscribers)
	case "run.started":
		return "crawl run started"
	case "run.finished":
		if ev.Stats == nil {
			return "crawl run finished"
		}
		return fmt.Sprintf("crawl run finished: consulted=%d accepted=%d duplicates=%d excluded=%d errors=%d",
			ev.Stats.Consulted, ev.Stats.Accepted, ev.Stats.Duplicates, ev.Stats.Excluded, ev.Stats.Errors)
	case "game.inserted":
		if ev.Game == nil {
			return "new game ingested"
		}
		price := "price unknown"
		if ev.Game.Price != nil {
			price = fmt.Sprintf("$%.2f", *ev.Game.Price)
		}
		return fmt.Sprintf("new game: %s (%s) %s", ev.Game.Name, price, ev.Game.URL)
	default:
		return ""
	}
}
