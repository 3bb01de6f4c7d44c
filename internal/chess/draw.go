package chess

import "fmt"

// DrawState tracks draw offers within one move round.
type DrawState uint8

const (
	DrawNone DrawState = iota
	DrawOfferedByWhite
	DrawOfferedByBlack
	DrawAgreed
)

func (d DrawState) String() string {
	switch d {
	case DrawOfferedByWhite:
		return "offered_by_white"
	case DrawOfferedByBlack:
		return "offered_by_black"
	case DrawAgreed:
		return "agreed"
	}
	return "none"
}

// Offer records an offer by c. An offer from the side that has not yet offered
// while the other side's offer stands yields DrawAgreed.
func (d DrawState) Offer(c Color) (DrawState, error) {
	mine, theirs := DrawOfferedByWhite, DrawOfferedByBlack
	if c == Black {
		mine, theirs = theirs, mine
	}
	switch d {
	case DrawNone:
		return mine, nil
	case mine, DrawAgreed:
		return d, ErrDrawAlreadyOffered
	case theirs:
		return DrawAgreed, nil
	}
	return d, fmt.Errorf("chess: unknown draw state %d", d)
}

func (d DrawState) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *DrawState) UnmarshalText(b []byte) error {
	for _, v := range []DrawState{DrawNone, DrawOfferedByWhite, DrawOfferedByBlack, DrawAgreed} {
		if v.String() == string(b) {
			*d = v
			return nil
		}
	}
	return fmt.Errorf("invalid draw state %q", b)
}
