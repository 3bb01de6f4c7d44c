package chessdto

import "time"

// ClockView is the remaining time per side. Zero values mean an untimed game.
type ClockView struct {
	White     time.Duration
	Black     time.Duration
	Increment time.Duration
}

// OutcomeView mirrors the outcome signal emitted when a game ends.
type OutcomeView struct {
	Winner       string
	IsDraw       bool
	WagerPresent bool
	IsRated      bool
	Termination  string
}

type GameView struct {
	ID          string
	State       string
	ToMove      string
	WhiteID     string
	BlackID     string
	Board       [8]string
	Moves       []string
	LastMove    string
	Ply         int
	DrawState   string
	EnPassant   string
	Wager       uint64
	Rated       bool
	Clock       *ClockView
	Outcome     *OutcomeView
	Status      string
	BoardImage  []byte
	UpdatedAt   time.Time
	ViewerColor string
}
