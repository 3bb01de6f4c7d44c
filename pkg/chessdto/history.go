package chessdto

import "time"

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
