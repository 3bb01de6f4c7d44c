package chess

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Board is an 8x8 grid indexed [rank][file]. It is a value type: assignment copies it.
type Board [8][8]Piece

var backRankOrder = [8]Kind{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}

// StartingBoard returns the standard initial position.
func StartingBoard() Board {
	var b Board
	for _, c := range colors {
		for file, k := range backRankOrder {
			b[BackRank(c)][file] = NewPiece(c, k)
			b[PawnStartRank(c)][file] = NewPiece(c, Pawn)
		}
	}
	return b
}

// Get returns the occupant of sq, or Empty when sq is off the board.
func (b *Board) Get(sq Square) Piece {
	if !sq.Valid() {
		return Empty
	}
	return b[sq.Rank][sq.File]
}

func (b *Board) Set(sq Square, p Piece) {
	if !sq.Valid() {
		panic(fmt.Sprintf("chess: set on invalid square %v", sq))
	}
	b[sq.Rank][sq.File] = p
}

// Move relocates the occupant of from onto to, leaving from empty.
func (b *Board) Move(from, to Square) {
	p := b.Get(from)
	b.Set(from, Empty)
	b.Set(to, p)
}

// Remove empties sq and returns what was there.
func (b *Board) Remove(sq Square) Piece {
	p := b.Get(sq)
	b.Set(sq, Empty)
	return p
}

// EmptyRun returns the empty squares from sq along d, stopping before the first occupied one.
func (b *Board) EmptyRun(sq Square, d Direction) []Square {
	var out []Square
	for _, s := range sq.Ray(d) {
		if !b.Get(s).IsEmpty() {
			break
		}
		out = append(out, s)
	}
	return out
}

// FirstBlocker returns the first occupied square from sq along d.
func (b *Board) FirstBlocker(sq Square, d Direction) (Square, Piece, bool) {
	for _, s := range sq.Ray(d) {
		if p := b.Get(s); !p.IsEmpty() {
			return s, p, true
		}
	}
	return NoSquare, Empty, false
}

// IsSquareAttacked reports whether any piece of c's opponent attacks sq.
// Turn order is irrelevant; sq may be empty.
func (b *Board) IsSquareAttacked(sq Square, c Color) bool {
	enemy := c.Opponent()
	// an enemy pawn attacks sq from the squares a pawn of c on sq would attack
	for _, s := range sq.PawnAttacks(c) {
		if b.Get(s).Is(enemy, Pawn) {
			return true
		}
	}
	for _, s := range sq.KnightJumps() {
		if b.Get(s).Is(enemy, Knight) {
			return true
		}
	}
	for _, s := range sq.Adjacent() {
		if b.Get(s).Is(enemy, King) {
			return true
		}
	}
	for _, d := range diagonals {
		if _, p, ok := b.FirstBlocker(sq, d); ok && (p.Is(enemy, Bishop) || p.Is(enemy, Queen)) {
			return true
		}
	}
	for _, d := range orthogonals {
		if _, p, ok := b.FirstBlocker(sq, d); ok && (p.Is(enemy, Rook) || p.Is(enemy, Queen)) {
			return true
		}
	}
	return false
}

// FindKing locates c's king. A board without one is corrupt and panics.
func (b *Board) FindKing(c Color) Square {
	king := NewPiece(c, King)
	for r := 0; r < 8; r++ {
		for f := 0; f < 8; f++ {
			if b[r][f] == king {
				return Square{Rank: r, File: f}
			}
		}
	}
	panic(fmt.Sprintf("chess: %s king missing from board", c))
}

// Occupied lists the squares holding pieces of color c, rank by rank.
func (b *Board) Occupied(c Color) []Square {
	var out []Square
	for r := 0; r < 8; r++ {
		for f := 0; f < 8; f++ {
			if b[r][f].Belongs(c) {
				out = append(out, Square{Rank: r, File: f})
			}
		}
	}
	return out
}

// Rows renders each rank (8th first) as eight piece symbols.
func (b *Board) Rows() [8]string {
	var rows [8]string
	for r := 0; r < 8; r++ {
		var sb strings.Builder
		for f := 0; f < 8; f++ {
			sb.WriteRune(b[r][f].Symbol())
		}
		rows[r] = sb.String()
	}
	return rows
}

// BoardFromRows is the inverse of Rows.
func BoardFromRows(rows [8]string) (Board, error) {
	var b Board
	for r, row := range rows {
		runes := []rune(row)
		if len(runes) != 8 {
			return Board{}, fmt.Errorf("rank %d: want 8 squares, got %d", 8-r, len(runes))
		}
		for f, sym := range runes {
			p, err := PieceFromSymbol(sym)
			if err != nil {
				return Board{}, fmt.Errorf("rank %d: %w", 8-r, err)
			}
			b[r][f] = p
		}
	}
	return b, nil
}

func (b Board) String() string {
	rows := b.Rows()
	return strings.Join(rows[:], "\n")
}

func (b Board) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.Rows())
}

func (b *Board) UnmarshalJSON(data []byte) error {
	var rows [8]string
	if err := json.Unmarshal(data, &rows); err != nil {
		return err
	}
	nb, err := BoardFromRows(rows)
	if err != nil {
		return err
	}
	*b = nb
	return nil
}
