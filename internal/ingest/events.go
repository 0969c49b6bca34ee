package ingest

import (
	"time"

	"indiehub/pkg/models"
)

// GameEvent is broadcast to live subscribers for every freshly
// inserted catalog entry.
type GameEvent struct {
	Type string        `json:"type"` // "game.inserted"
	Game models.GameDB `json:"game"`
	At   time.Time     `json:"at"`
}

func InsertedEvent(g models.GameDB) GameEvent {
	return GameEvent{Type: "game.inserted", Game: g, At: time.Now().UTC()}
}
