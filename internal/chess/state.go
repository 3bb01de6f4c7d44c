package chess

import "fmt"

// GameState is the match-level state machine.
type GameState uint8

const (
	Waiting GameState = iota
	WhiteToMove
	BlackToMove
	WhiteWon
	BlackWon
	Draw
)

var stateNames = map[GameState]string{
	Waiting:     "waiting",
	WhiteToMove: "white_to_move",
	BlackToMove: "black_to_move",
	WhiteWon:    "white_won",
	BlackWon:    "black_won",
	Draw:        "draw",
}

func (s GameState) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// InProgress is true while a side is to move.
func (s GameState) InProgress() bool { return s == WhiteToMove || s == BlackToMove }

// Terminal is true once the game has ended. Terminal states are absorbing.
func (s GameState) Terminal() bool { return s == WhiteWon || s == BlackWon || s == Draw }

// ToMove returns the side to move; ok is false unless the game is in progress.
func (s GameState) ToMove() (Color, bool) {
	switch s {
	case WhiteToMove:
		return White, true
	case BlackToMove:
		return Black, true
	}
	return NoColor, false
}

// Winner returns the winning side of a decided game.
func (s GameState) Winner() (Color, bool) {
	switch s {
	case WhiteWon:
		return White, true
	case BlackWon:
		return Black, true
	}
	return NoColor, false
}

func toMoveState(c Color) GameState {
	if c == White {
		return WhiteToMove
	}
	return BlackToMove
}

func wonState(c Color) GameState {
	if c == White {
		return WhiteWon
	}
	return BlackWon
}

func (s GameState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *GameState) UnmarshalText(b []byte) error {
	for v, n := range stateNames {
		if n == string(b) {
			*s = v
			return nil
		}
	}
	return fmt.Errorf("invalid game state %q", b)
}

// Termination names how a game ended.
type Termination string

const (
	TerminationNone        Termination = ""
	TerminationCheckmate   Termination = "checkmate"
	TerminationResignation Termination = "resignation"
	TerminationAgreement   Termination = "agreement"
	TerminationStalemate   Termination = "stalemate"
	TerminationTimeForfeit Termination = "time_forfeit"
)
