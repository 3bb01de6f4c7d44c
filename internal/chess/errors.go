package chess

import "errors"

// RuleError is a rejection of a whole action. The game is left unchanged.
type RuleError struct {
	code string
	msg  string
}

func (e *RuleError) Error() string { return e.msg }

// Code is a stable identifier suitable for message lookup.
func (e *RuleError) Code() string { return e.code }

func ruleErr(code, msg string) error { return &RuleError{code: code, msg: msg} }

var (
	ErrNotPlayersTurn     = ruleErr("not_players_turn", "not the player's turn")
	ErrIllegalMove        = ruleErr("illegal_move", "illegal move")
	ErrSelfCheck          = ruleErr("self_check", "move leaves own king in check")
	ErrTimeExpired        = ruleErr("time_expired", "player is out of time")
	ErrSeatUnavailable    = ruleErr("seat_unavailable", "seat is not available")
	ErrGameNotInProgress  = ruleErr("game_not_in_progress", "game is not in progress")
	ErrGameAlreadyStarted = ruleErr("game_already_started", "game has already started")
	ErrDrawAlreadyOffered = ruleErr("draw_already_offered", "draw already offered")
	ErrWrongAdversary     = ruleErr("wrong_adversary", "adversary does not match seated opponent")
	ErrNotSeated          = ruleErr("not_seated", "player does not hold a seat")
	ErrAlreadySeated      = ruleErr("already_seated", "player already holds a seat")
	ErrTimeRemaining      = ruleErr("time_remaining", "side to move still has time")
)

// ErrorCode extracts the RuleError code from err.
func ErrorCode(err error) (string, bool) {
	var re *RuleError
	if errors.As(err, &re) {
		return re.code, true
	}
	return "", false
}
