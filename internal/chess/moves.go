package chess

// LegalDestinations lists where the piece of color c on from may move, before the
// own-king safety check. It is empty when from does not hold a piece of c.
func (g *Game) LegalDestinations(c Color, from Square) []Square {
	p := g.board.Get(from)
	if !p.Belongs(c) {
		return nil
	}
	k, _ := p.Kind()
	switch k {
	case Pawn:
		return g.pawnDestinations(c, from)
	case Rook:
		return g.slideDestinations(c, from, orthogonals)
	case Bishop:
		return g.slideDestinations(c, from, diagonals)
	case Queen:
		return g.slideDestinations(c, from, allDirs)
	case Knight:
		return g.stepDestinations(c, from.KnightJumps())
	case King:
		return append(g.stepDestinations(c, from.Adjacent()), g.castleDestinations(c, from)...)
	}
	return nil
}

// IsValidMove reports whether to is among the legal destinations of from.
func (g *Game) IsValidMove(c Color, from, to Square) bool {
	for _, s := range g.LegalDestinations(c, from) {
		if s == to {
			return true
		}
	}
	return false
}

func (g *Game) pawnDestinations(c Color, from Square) []Square {
	var out []Square
	fwd := PawnForward(c)
	if one, ok := from.Offset(fwd); ok && g.board.Get(one).IsEmpty() {
		out = append(out, one)
		if from.Rank == PawnStartRank(c) {
			if two, ok := one.Offset(fwd); ok && two.Rank != BackRank(c.Opponent()) && g.board.Get(two).IsEmpty() {
				out = append(out, two)
			}
		}
	}
	for _, s := range from.PawnAttacks(c) {
		if g.board.Get(s).Belongs(c.Opponent()) || (g.enPassant.Valid() && s == g.enPassant) {
			out = append(out, s)
		}
	}
	return out
}

func (g *Game) slideDestinations(c Color, from Square, dirs []Direction) []Square {
	var out []Square
	for _, d := range dirs {
		out = append(out, g.board.EmptyRun(from, d)...)
		if s, p, ok := g.board.FirstBlocker(from, d); ok && p.Belongs(c.Opponent()) {
			out = append(out, s)
		}
	}
	return out
}

func (g *Game) stepDestinations(c Color, candidates []Square) []Square {
	out := make([]Square, 0, len(candidates))
	for _, s := range candidates {
		if !g.board.Get(s).Belongs(c) {
			out = append(out, s)
		}
	}
	return out
}

func (g *Game) castleDestinations(c Color, from Square) []Square {
	var out []Square
	for _, w := range wings {
		lm := Castle(c, w)
		if from != lm.KingStart || !g.castling.Has(c, w) {
			continue
		}
		if !g.board.Get(lm.RookStart).Is(c, Rook) {
			continue
		}
		if !g.allEmpty(lm.Transit) {
			continue
		}
		if g.board.IsSquareAttacked(lm.KingStart, c) || g.anyAttacked(lm.KingPath, c) {
			continue
		}
		out = append(out, lm.KingDest)
	}
	return out
}

func (g *Game) allEmpty(squares []Square) bool {
	for _, s := range squares {
		if !g.board.Get(s).IsEmpty() {
			return false
		}
	}
	return true
}

func (g *Game) anyAttacked(squares []Square, c Color) bool {
	for _, s := range squares {
		if g.board.IsSquareAttacked(s, c) {
			return true
		}
	}
	return false
}

// applyMove performs the board mutation and its side effects for a move already
// known to be a legal destination.
func (g *Game) applyMove(c Color, from, to Square) {
	moved := g.board.Get(from)
	k, _ := moved.Kind()
	prevEnPassant := g.enPassant
	g.enPassant = NoSquare

	switch k {
	case Pawn:
		fwd := PawnForward(c)
		if to.Rank-from.Rank == 2*fwd.DRank {
			g.enPassant = Square{Rank: from.Rank + fwd.DRank, File: from.File}
		}
		if prevEnPassant.Valid() && to == prevEnPassant && to.File != from.File {
			g.board.Remove(enPassantVictim(c, to))
		}
		if to.Rank == PromotionRank(c) {
			g.board.Set(from, NewPiece(c, Queen))
		}
	case King:
		for _, w := range wings {
			lm := Castle(c, w)
			if from == lm.KingStart && to == lm.KingDest {
				g.board.Move(lm.RookStart, lm.RookDest)
			}
		}
	}

	g.castling.Update(from, to, moved)
	g.board.Move(from, to)
}

// enPassantVictim is the square of the pawn captured when c lands on target.
func enPassantVictim(c Color, target Square) Square {
	return Square{Rank: target.Rank - PawnForward(c).DRank, File: target.File}
}

// undoRecord captures everything applyMove may touch.
type undoRecord struct {
	squares   [4]Square
	pieces    [4]Piece
	n         int
	castling  CastlingRights
	enPassant Square
}

func (u *undoRecord) save(b *Board, sq Square) {
	for i := 0; i < u.n; i++ {
		if u.squares[i] == sq {
			return
		}
	}
	u.squares[u.n] = sq
	u.pieces[u.n] = b.Get(sq)
	u.n++
}

// simulate applies the move and returns the record needed to reverse it.
func (g *Game) simulate(c Color, from, to Square) undoRecord {
	u := undoRecord{castling: g.castling, enPassant: g.enPassant}
	u.save(&g.board, from)
	u.save(&g.board, to)
	if g.board.Get(from).Is(c, Pawn) && g.enPassant.Valid() && to == g.enPassant && to.File != from.File {
		u.save(&g.board, enPassantVictim(c, to))
	}
	if g.board.Get(from).Is(c, King) {
		for _, w := range wings {
			lm := Castle(c, w)
			if from == lm.KingStart && to == lm.KingDest {
				u.save(&g.board, lm.RookStart)
				u.save(&g.board, lm.RookDest)
			}
		}
	}
	g.applyMove(c, from, to)
	return u
}

func (g *Game) restore(u undoRecord) {
	for i := u.n - 1; i >= 0; i-- {
		g.board.Set(u.squares[i], u.pieces[i])
	}
	g.castling = u.castling
	g.enPassant = u.enPassant
}

// escapesCheck applies the move, tests c's king and always restores the position.
func (g *Game) escapesCheck(c Color, from, to Square) bool {
	u := g.simulate(c, from, to)
	defer g.restore(u)
	return !g.InCheck(c)
}

// InCheck reports whether c's king is attacked.
func (g *Game) InCheck(c Color) bool {
	return g.board.IsSquareAttacked(g.board.FindKing(c), c)
}

// HasLegalMove reports whether c has any move that does not leave its king in check.
func (g *Game) HasLegalMove(c Color) bool {
	for _, from := range g.board.Occupied(c) {
		for _, to := range g.LegalDestinations(c, from) {
			if g.escapesCheck(c, from, to) {
				return true
			}
		}
	}
	return false
}

// InCheckmate is true when c is in check and no move resolves it.
func (g *Game) InCheckmate(c Color) bool {
	return g.InCheck(c) && !g.HasLegalMove(c)
}

// InStalemate is true when c is not in check but has no legal move.
func (g *Game) InStalemate(c Color) bool {
	return !g.InCheck(c) && !g.HasLegalMove(c)
}
