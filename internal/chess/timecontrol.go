package chess

import "time"

// TimeControl keeps each side's remaining time. A zero LastMove means no move
// has been played yet, so the clocks have not started.
type TimeControl struct {
	LastMove  time.Time     `json:"last_move"`
	White     time.Duration `json:"white"`
	Black     time.Duration `json:"black"`
	Increment time.Duration `json:"increment"`
}

func NewTimeControl(timer, increment time.Duration) TimeControl {
	return TimeControl{White: timer, Black: timer, Increment: increment}
}

// Started reports whether the first move has been played.
func (tc TimeControl) Started() bool { return !tc.LastMove.IsZero() }

func (tc TimeControl) Remaining(c Color) time.Duration {
	if c == White {
		return tc.White
	}
	return tc.Black
}

func (tc *TimeControl) setRemaining(c Color, d time.Duration) {
	if d < 0 {
		d = 0
	}
	if c == White {
		tc.White = d
	} else {
		tc.Black = d
	}
}

// HasTime is always true before the first move; afterwards c must have strictly
// more remaining time than has elapsed since the last move.
func (tc TimeControl) HasTime(c Color, now time.Time) bool {
	if !tc.Started() {
		return true
	}
	return now.Sub(tc.LastMove) < tc.Remaining(c)
}

// Update charges c for the time since the last move, credits the increment and
// restarts the clock at now. The first move only starts the clock.
func (tc *TimeControl) Update(c Color, now time.Time) {
	if tc.Started() {
		elapsed := now.Sub(tc.LastMove)
		tc.setRemaining(c, tc.Remaining(c)-elapsed+tc.Increment)
	}
	tc.LastMove = now
}
