package chess

import (
	"encoding/json"
	"time"
)

// PlayerID identifies a seated player. Identity verification happens outside this package.
type PlayerID string

// Config fixes the terms of a game at creation.
type Config struct {
	// Wager is the stake per player; zero means no wager.
	Wager uint64 `json:"wager,omitempty"`
	Rated bool   `json:"rated"`
	// Timer is each side's starting time; zero means an untimed game.
	Timer     time.Duration `json:"timer,omitempty"`
	Increment time.Duration `json:"increment,omitempty"`
}

func (c Config) Timed() bool { return c.Timer > 0 }

// LastMove is the most recent accepted move.
type LastMove struct {
	From Square `json:"from"`
	To   Square `json:"to"`
}

// Outcome is the signal handed to rating and ledger collaborators when a game ends.
type Outcome struct {
	Winner       Color       `json:"winner,omitempty"`
	Draw         bool        `json:"is_draw"`
	WagerPresent bool        `json:"wager_present"`
	Rated        bool        `json:"is_rated"`
	Termination  Termination `json:"termination"`
}

// Game is the aggregate root. Sub-state is only changed through whole actions;
// a rejected action leaves the game untouched.
type Game struct {
	board       Board
	state       GameState
	castling    CastlingRights
	draw        DrawState
	clock       TimeControl
	enPassant   Square
	white       PlayerID
	black       PlayerID
	config      Config
	termination Termination
	lastMove    *LastMove
	ply         int
}

// NewGame creates an empty game waiting for two players.
func NewGame(cfg Config) *Game {
	return &Game{
		board:     StartingBoard(),
		state:     Waiting,
		castling:  AllCastlingRights(),
		draw:      DrawNone,
		clock:     NewTimeControl(cfg.Timer, cfg.Increment),
		enPassant: NoSquare,
		config:    cfg,
	}
}

func (g *Game) Board() Board              { return g.board }
func (g *Game) State() GameState          { return g.state }
func (g *Game) Castling() CastlingRights  { return g.castling }
func (g *Game) DrawState() DrawState      { return g.draw }
func (g *Game) Clock() TimeControl        { return g.clock }
func (g *Game) Config() Config            { return g.config }
func (g *Game) Termination() Termination  { return g.termination }
func (g *Game) Ply() int                  { return g.ply }
func (g *Game) EnPassant() (Square, bool) { return g.enPassant, g.enPassant.Valid() }
func (g *Game) LastMove() (LastMove, bool) {
	if g.lastMove == nil {
		return LastMove{}, false
	}
	return *g.lastMove, true
}

// Seat returns the player holding color c.
func (g *Game) Seat(c Color) (PlayerID, bool) {
	id := g.seat(c)
	return id, id != ""
}

// ColorOf returns the seat held by player.
func (g *Game) ColorOf(player PlayerID) (Color, bool) {
	switch {
	case player == "":
		return NoColor, false
	case g.white == player:
		return White, true
	case g.black == player:
		return Black, true
	}
	return NoColor, false
}

func (g *Game) seat(c Color) PlayerID {
	if c == White {
		return g.white
	}
	return g.black
}

func (g *Game) setSeat(c Color, id PlayerID) {
	if c == White {
		g.white = id
	} else {
		g.black = id
	}
}

// Join seats player as c. The game starts once both seats are filled.
func (g *Game) Join(c Color, player PlayerID) error {
	if c != White && c != Black {
		return ErrSeatUnavailable
	}
	if g.state != Waiting || g.seat(c) != "" {
		return ErrSeatUnavailable
	}
	if player == "" {
		return ErrNotSeated
	}
	if g.seat(c.Opponent()) == player {
		return ErrAlreadySeated
	}
	g.setSeat(c, player)
	if g.white != "" && g.black != "" {
		g.state = WhiteToMove
	}
	return nil
}

// Leave vacates seat c. Only allowed before the game starts.
func (g *Game) Leave(c Color) error {
	if g.state != Waiting {
		return ErrGameAlreadyStarted
	}
	if (c != White && c != Black) || g.seat(c) == "" {
		return ErrNotSeated
	}
	g.setSeat(c, "")
	return nil
}

// Move plays from -> to for c at time now. Promotion always yields a queen.
func (g *Game) Move(c Color, from, to Square, now time.Time) error {
	side, ok := g.state.ToMove()
	if !ok {
		return ErrGameNotInProgress
	}
	if side != c {
		return ErrNotPlayersTurn
	}
	if g.config.Timed() && !g.clock.HasTime(c, now) {
		return ErrTimeExpired
	}
	if !from.Valid() || !to.Valid() {
		return ErrIllegalMove
	}

	next := *g
	if !next.IsValidMove(c, from, to) {
		return ErrIllegalMove
	}
	next.applyMove(c, from, to)
	if next.InCheck(c) {
		return ErrSelfCheck
	}
	next.clock.Update(c, now)
	next.lastMove = &LastMove{From: from, To: to}
	next.ply++
	next.draw = DrawNone

	opp := c.Opponent()
	next.state = toMoveState(opp)
	switch {
	case next.InCheckmate(opp):
		next.finish(wonState(c), TerminationCheckmate)
	case !next.HasLegalMove(opp):
		next.finish(Draw, TerminationStalemate)
	}

	*g = next
	return nil
}

// Resign ends the game in favour of c's opponent. adversary must name the seated opponent.
func (g *Game) Resign(c Color, adversary PlayerID) error {
	if err := g.checkAdversary(c, adversary); err != nil {
		return err
	}
	g.finish(wonState(c.Opponent()), TerminationResignation)
	return nil
}

// OfferDraw records a draw offer by c; a matching offer from the other side ends the game.
func (g *Game) OfferDraw(c Color, adversary PlayerID) error {
	if err := g.checkAdversary(c, adversary); err != nil {
		return err
	}
	next, err := g.draw.Offer(c)
	if err != nil {
		return err
	}
	g.draw = next
	if next == DrawAgreed {
		g.finish(Draw, TerminationAgreement)
	}
	return nil
}

func (g *Game) checkAdversary(c Color, adversary PlayerID) error {
	if !g.state.InProgress() {
		return ErrGameNotInProgress
	}
	if c != White && c != Black {
		return ErrNotSeated
	}
	if adversary == "" || g.seat(c.Opponent()) != adversary {
		return ErrWrongAdversary
	}
	return nil
}

// CheckTimer forfeits the side to move if its time has run out at now.
func (g *Game) CheckTimer(now time.Time) error {
	side, ok := g.state.ToMove()
	if !ok {
		return ErrGameNotInProgress
	}
	if !g.config.Timed() || g.clock.HasTime(side, now) {
		return ErrTimeRemaining
	}
	g.clock.setRemaining(side, 0)
	g.finish(wonState(side.Opponent()), TerminationTimeForfeit)
	return nil
}

func (g *Game) finish(s GameState, t Termination) {
	g.state = s
	g.termination = t
}

// Outcome returns the terminal signal; ok is false while the game is not over.
func (g *Game) Outcome() (Outcome, bool) {
	if !g.state.Terminal() {
		return Outcome{}, false
	}
	winner, _ := g.state.Winner()
	return Outcome{
		Winner:       winner,
		Draw:         g.state == Draw,
		WagerPresent: g.config.Wager > 0,
		Rated:        g.config.Rated,
		Termination:  g.termination,
	}, true
}

type gameSnapshot struct {
	Board       Board          `json:"board"`
	State       GameState      `json:"state"`
	Castling    CastlingRights `json:"castling"`
	Draw        DrawState      `json:"draw"`
	Clock       TimeControl    `json:"clock"`
	EnPassant   Square         `json:"en_passant"`
	White       PlayerID       `json:"white,omitempty"`
	Black       PlayerID       `json:"black,omitempty"`
	Config      Config         `json:"config"`
	Termination Termination    `json:"termination,omitempty"`
	LastMove    *LastMove      `json:"last_move,omitempty"`
	Ply         int            `json:"ply"`
}

func (g *Game) MarshalJSON() ([]byte, error) {
	return json.Marshal(gameSnapshot{
		Board:       g.board,
		State:       g.state,
		Castling:    g.castling,
		Draw:        g.draw,
		Clock:       g.clock,
		EnPassant:   g.enPassant,
		White:       g.white,
		Black:       g.black,
		Config:      g.config,
		Termination: g.termination,
		LastMove:    g.lastMove,
		Ply:         g.ply,
	})
}

func (g *Game) UnmarshalJSON(data []byte) error {
	s := gameSnapshot{EnPassant: NoSquare}
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*g = Game{
		board:       s.Board,
		state:       s.State,
		castling:    s.Castling,
		draw:        s.Draw,
		clock:       s.Clock,
		enPassant:   s.EnPassant,
		white:       s.White,
		black:       s.Black,
		config:      s.Config,
		termination: s.Termination,
		lastMove:    s.LastMove,
		ply:         s.Ply,
	}
	return nil
}
