package chess

// CastlingRights holds the four castling permissions. Rights only ever go from true to false.
type CastlingRights struct {
	WhiteKingside  bool `json:"white_kingside"`
	WhiteQueenside bool `json:"white_queenside"`
	BlackKingside  bool `json:"black_kingside"`
	BlackQueenside bool `json:"black_queenside"`
}

// AllCastlingRights is the state at the start of a game.
func AllCastlingRights() CastlingRights {
	return CastlingRights{WhiteKingside: true, WhiteQueenside: true, BlackKingside: true, BlackQueenside: true}
}

// Has reports whether c may still castle on wing w.
func (cr CastlingRights) Has(c Color, w Wing) bool {
	switch {
	case c == White && w == Kingside:
		return cr.WhiteKingside
	case c == White && w == Queenside:
		return cr.WhiteQueenside
	case c == Black && w == Kingside:
		return cr.BlackKingside
	case c == Black && w == Queenside:
		return cr.BlackQueenside
	}
	return false
}

func (cr *CastlingRights) revoke(c Color, w Wing) {
	switch {
	case c == White && w == Kingside:
		cr.WhiteKingside = false
	case c == White && w == Queenside:
		cr.WhiteQueenside = false
	case c == Black && w == Kingside:
		cr.BlackKingside = false
	case c == Black && w == Queenside:
		cr.BlackQueenside = false
	}
}

// Update forfeits rights after moved went from -> to. A king move drops both of its
// side's rights; leaving or landing on a rook's home corner drops that corner's right,
// which covers both the rook moving away and the rook being captured.
func (cr *CastlingRights) Update(from, to Square, moved Piece) {
	if c, ok := moved.Color(); ok && moved.Is(c, King) {
		cr.revoke(c, Kingside)
		cr.revoke(c, Queenside)
	}
	for _, c := range colors {
		for _, w := range wings {
			corner := Castle(c, w).RookStart
			if from == corner || to == corner {
				cr.revoke(c, w)
			}
		}
	}
}
