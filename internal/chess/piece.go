package chess

import (
	"fmt"
	"strings"
)

// Color identifies a side. The zero value is NoColor.
type Color uint8

const (
	NoColor Color = iota
	White
	Black
)

var colors = []Color{White, Black}

// Opponent returns the other side; NoColor maps to itself.
func (c Color) Opponent() Color {
	switch c {
	case White:
		return Black
	case Black:
		return White
	}
	return NoColor
}

func (c Color) String() string {
	switch c {
	case White:
		return "white"
	case Black:
		return "black"
	}
	return ""
}

// ParseColor accepts "white"/"w" and "black"/"b" in any case.
func ParseColor(raw string) (Color, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "white", "w":
		return White, nil
	case "black", "b":
		return Black, nil
	}
	return NoColor, fmt.Errorf("invalid color %q", raw)
}

func (c Color) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Color) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*c = NoColor
		return nil
	}
	v, err := ParseColor(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Kind is a piece type.
type Kind uint8

const (
	Pawn Kind = iota + 1
	Rook
	Knight
	Bishop
	Queen
	King
)

func (k Kind) String() string {
	switch k {
	case Pawn:
		return "pawn"
	case Rook:
		return "rook"
	case Knight:
		return "knight"
	case Bishop:
		return "bishop"
	case Queen:
		return "queen"
	case King:
		return "king"
	}
	return "none"
}

// Piece packs a color and a kind into one byte. Empty is the zero value.
type Piece uint8

const Empty Piece = 0

// NewPiece builds an occupied piece.
func NewPiece(c Color, k Kind) Piece {
	return Piece(uint8(c)<<4 | uint8(k))
}

func (p Piece) IsEmpty() bool { return p == Empty }

// Color returns the owner of p; ok is false for Empty.
func (p Piece) Color() (Color, bool) {
	if p == Empty {
		return NoColor, false
	}
	return Color(p >> 4), true
}

// Kind returns the type of p; ok is false for Empty.
func (p Piece) Kind() (Kind, bool) {
	if p == Empty {
		return 0, false
	}
	return Kind(p & 0x0f), true
}

// Is reports whether p is a piece of color c and kind k.
func (p Piece) Is(c Color, k Kind) bool {
	return p == NewPiece(c, k)
}

// Belongs reports whether p is occupied by color c.
func (p Piece) Belongs(c Color) bool {
	pc, ok := p.Color()
	return ok && pc == c
}

const symbols = "PRNBQK"

// Symbol is the FEN-style letter for p (upper case for White) or '.' for Empty.
func (p Piece) Symbol() rune {
	k, ok := p.Kind()
	if !ok {
		return '.'
	}
	r := rune(symbols[k-1])
	if c, _ := p.Color(); c == Black {
		r += 'a' - 'A'
	}
	return r
}

func (p Piece) String() string {
	c, ok := p.Color()
	if !ok {
		return "empty"
	}
	k, _ := p.Kind()
	return c.String() + " " + k.String()
}

// PieceFromSymbol is the inverse of Symbol.
func PieceFromSymbol(r rune) (Piece, error) {
	if r == '.' {
		return Empty, nil
	}
	c := White
	upper := r
	if r >= 'a' && r <= 'z' {
		c = Black
		upper = r - ('a' - 'A')
	}
	idx := strings.IndexRune(symbols, upper)
	if idx < 0 {
		return Empty, fmt.Errorf("invalid piece symbol %q", r)
	}
	return NewPiece(c, Kind(idx+1)), nil
}
