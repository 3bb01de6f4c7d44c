package domain

import "time"

// GameResult is the persisted record of a finished game.
type GameResult struct {
	ID          int64
	GameID      string
	WhiteID     string
	BlackID     string
	WinnerID    string
	Result      string
	Termination string
	Wager       uint64
	Rated       bool
	Moves       []string
	StartedAt   time.Time
	EndedAt     time.Time
	Duration    time.Duration
}

// Involves reports whether player held either seat.
func (r *GameResult) Involves(player string) bool {
	return r != nil && player != "" && (r.WhiteID == player || r.BlackID == player)
}
