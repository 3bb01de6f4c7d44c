package chess

import (
	"fmt"
	"strings"
)

// Square is a board coordinate. Rank 0 is Black's back rank (the 8th rank),
// rank 7 is White's back rank (the 1st rank); file 0 is the a-file.
type Square struct {
	Rank int
	File int
}

// NoSquare is returned by geometry helpers that would step off the board.
var NoSquare = Square{Rank: -1, File: -1}

// Valid reports whether s lies on the board.
func (s Square) Valid() bool {
	return s.Rank >= 0 && s.Rank < 8 && s.File >= 0 && s.File < 8
}

// Direction is a single step expressed as rank/file deltas.
type Direction struct {
	DRank int
	DFile int
}

var (
	North     = Direction{DRank: -1}
	South     = Direction{DRank: 1}
	East      = Direction{DFile: 1}
	West      = Direction{DFile: -1}
	NorthEast = Direction{DRank: -1, DFile: 1}
	NorthWest = Direction{DRank: -1, DFile: -1}
	SouthEast = Direction{DRank: 1, DFile: 1}
	SouthWest = Direction{DRank: 1, DFile: -1}
)

var (
	orthogonals = []Direction{North, South, East, West}
	diagonals   = []Direction{NorthEast, NorthWest, SouthEast, SouthWest}
	allDirs     = []Direction{North, South, East, West, NorthEast, NorthWest, SouthEast, SouthWest}

	knightJumps = []Direction{
		{DRank: -2, DFile: -1}, {DRank: -2, DFile: 1},
		{DRank: -1, DFile: -2}, {DRank: -1, DFile: 2},
		{DRank: 1, DFile: -2}, {DRank: 1, DFile: 2},
		{DRank: 2, DFile: -1}, {DRank: 2, DFile: 1},
	}
)

// Offset steps from s by d. Steps that leave the board return (NoSquare, false).
func (s Square) Offset(d Direction) (Square, bool) {
	if !s.Valid() {
		return NoSquare, false
	}
	next := Square{Rank: s.Rank + d.DRank, File: s.File + d.DFile}
	if !next.Valid() {
		return NoSquare, false
	}
	return next, true
}

// Ray lists the squares from s along d, nearest first, excluding s itself.
func (s Square) Ray(d Direction) []Square {
	var out []Square
	cur := s
	for {
		next, ok := cur.Offset(d)
		if !ok {
			return out
		}
		out = append(out, next)
		cur = next
	}
}

// Adjacent returns the up to eight neighbouring squares.
func (s Square) Adjacent() []Square {
	return s.steps(allDirs)
}

// KnightJumps returns the knight destinations from s that stay on the board.
func (s Square) KnightJumps() []Square {
	return s.steps(knightJumps)
}

// PawnAttacks returns the squares a pawn of color c standing on s attacks.
func (s Square) PawnAttacks(c Color) []Square {
	fwd := PawnForward(c)
	return s.steps([]Direction{
		{DRank: fwd.DRank, DFile: -1},
		{DRank: fwd.DRank, DFile: 1},
	})
}

func (s Square) steps(dirs []Direction) []Square {
	out := make([]Square, 0, len(dirs))
	for _, d := range dirs {
		if next, ok := s.Offset(d); ok {
			out = append(out, next)
		}
	}
	return out
}

// PawnForward is the direction pawns of color c advance in.
func PawnForward(c Color) Direction {
	if c == White {
		return North
	}
	return South
}

// BackRank is the rank holding c's pieces at the start.
func BackRank(c Color) int {
	if c == White {
		return 7
	}
	return 0
}

// PawnStartRank is the rank holding c's pawns at the start.
func PawnStartRank(c Color) int {
	if c == White {
		return 6
	}
	return 1
}

// PromotionRank is the opponent's back rank.
func PromotionRank(c Color) int {
	return BackRank(c.Opponent())
}

// String renders s in algebraic form ("e4"); off-board squares render as "-".
func (s Square) String() string {
	if !s.Valid() {
		return "-"
	}
	return fmt.Sprintf("%c%d", 'a'+rune(s.File), 8-s.Rank)
}

// ParseSquare reads an algebraic coordinate such as "e4".
func ParseSquare(raw string) (Square, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if len(v) != 2 {
		return NoSquare, fmt.Errorf("invalid square %q", raw)
	}
	file := int(v[0] - 'a')
	rank := int(v[1] - '1')
	sq := Square{Rank: 7 - rank, File: file}
	if file < 0 || file > 7 || rank < 0 || rank > 7 {
		return NoSquare, fmt.Errorf("invalid square %q", raw)
	}
	return sq, nil
}

// MarshalText encodes s as its algebraic name.
func (s Square) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return []byte{}, nil
	}
	return []byte(s.String()), nil
}

// UnmarshalText accepts an algebraic name; the empty string decodes to NoSquare.
func (s *Square) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*s = NoSquare
		return nil
	}
	sq, err := ParseSquare(string(b))
	if err != nil {
		return err
	}
	*s = sq
	return nil
}

// Wing selects the king or queen side for castling.
type Wing uint8

const (
	Kingside Wing = iota
	Queenside
)

var wings = []Wing{Kingside, Queenside}

func (w Wing) String() string {
	if w == Kingside {
		return "kingside"
	}
	return "queenside"
}

// CastleLandmarks are the fixed squares involved in one castling move.
type CastleLandmarks struct {
	KingStart Square
	KingDest  Square
	RookStart Square
	RookDest  Square
	// Transit lists the squares between king and rook; all must be empty.
	Transit []Square
	// KingPath lists the squares the king crosses or lands on; none may be attacked.
	KingPath []Square
}

// Castle returns the landmarks for color c castling on wing w.
func Castle(c Color, w Wing) CastleLandmarks {
	r := BackRank(c)
	sq := func(file int) Square { return Square{Rank: r, File: file} }
	if w == Kingside {
		return CastleLandmarks{
			KingStart: sq(4),
			KingDest:  sq(6),
			RookStart: sq(7),
			RookDest:  sq(5),
			Transit:   []Square{sq(5), sq(6)},
			KingPath:  []Square{sq(5), sq(6)},
		}
	}
	return CastleLandmarks{
		KingStart: sq(4),
		KingDest:  sq(2),
		RookStart: sq(0),
		RookDest:  sq(3),
		Transit:   []Square{sq(1), sq(2), sq(3)},
		KingPath:  []Square{sq(3), sq(2)},
	}
}
