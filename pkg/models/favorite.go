package models

import "time"

// Favorite is one row of the user_favorites join table.
type Favorite struct {
	UserID  string    `json:"user_id"`
	GameID  string    `json:"game_id"`
	AddedAt time.Time `json:"added_at"`
}
