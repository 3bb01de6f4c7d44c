package pvpchess

import (
	"time"

	"github.com/park285/wager-chess/internal/chess"
)

// Record is the persisted state of one hosted game, stored as JSON under chess:game:<id>.
type Record struct {
	ID        string      `json:"id"`
	Game      *chess.Game `json:"game"`
	Moves     []string    `json:"moves"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
	Version   int64       `json:"version"`
}

// OutcomeEvent is published once when a game reaches a terminal state.
type OutcomeEvent struct {
	GameID  string        `json:"game_id"`
	WhiteID string        `json:"white_id"`
	BlackID string        `json:"black_id"`
	Outcome chess.Outcome `json:"outcome"`
	Config  chess.Config  `json:"config"`
	EndedAt time.Time     `json:"ended_at"`
}

// Errors
var (
	ErrInvalidArgs      = errf("invalid arguments")
	ErrGameNotFound     = errf("game not found or expired")
	ErrConcurrentUpdate = errf("game was updated concurrently")
	ErrBadNotation      = errf("move must look like e2e4")
)

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error        { return staticErr(s) }
