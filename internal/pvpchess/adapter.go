package pvpchess

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/park285/wager-chess/internal/chess"
	"github.com/park285/wager-chess/internal/msgcat"
	"github.com/park285/wager-chess/internal/obslog"
	"github.com/park285/wager-chess/internal/render"
	"github.com/park285/wager-chess/pkg/chessdto"
)

// Adapter exposes the manager through chessdto requests for chat front ends.
type Adapter struct {
	mgr      *Manager
	catalog  *msgcat.Catalog
	renderer render.BoardRenderer
}

func NewAdapter(mgr *Manager, catalog *msgcat.Catalog, renderer render.BoardRenderer) *Adapter {
	return &Adapter{mgr: mgr, catalog: catalog, renderer: renderer}
}

func (a *Adapter) Create(ctx context.Context, req chessdto.CreateGameRequest) (*chessdto.GameResponse, error) {
	rec, err := a.mgr.CreateGame(ctx, chess.Config{
		Wager:     req.Wager,
		Rated:     req.Rated,
		Timer:     req.Timer,
		Increment: req.Increment,
	})
	return a.respond(ctx, rec, req.Meta.Sender, err, nil)
}

func (a *Adapter) Join(ctx context.Context, req chessdto.JoinRequest) (*chessdto.GameResponse, error) {
	color, err := chess.ParseColor(req.Color)
	if err != nil {
		return nil, a.domainError(ErrInvalidArgs, nil)
	}
	rec, err := a.mgr.Join(ctx, req.Meta.GameID, req.Meta.Sender, color)
	return a.respond(ctx, rec, req.Meta.Sender, err, map[string]any{"Color": a.colorName(color)})
}

func (a *Adapter) Move(ctx context.Context, req chessdto.MoveRequest) (*chessdto.GameResponse, error) {
	rec, err := a.mgr.PlayMove(ctx, req.Meta.GameID, req.Meta.Sender, req.Move)
	return a.respond(ctx, rec, req.Meta.Sender, err, map[string]any{"Move": strings.TrimSpace(req.Move), "Player": req.Meta.Sender})
}

func (a *Adapter) Resign(ctx context.Context, req chessdto.ResignRequest) (*chessdto.GameResponse, error) {
	rec, err := a.mgr.Resign(ctx, req.Meta.GameID, req.Meta.Sender, req.Adversary)
	return a.respond(ctx, rec, req.Meta.Sender, err, nil)
}

func (a *Adapter) OfferDraw(ctx context.Context, req chessdto.OfferDrawRequest) (*chessdto.GameResponse, error) {
	rec, err := a.mgr.OfferDraw(ctx, req.Meta.GameID, req.Meta.Sender, req.Adversary)
	return a.respond(ctx, rec, req.Meta.Sender, err, nil)
}

func (a *Adapter) Leave(ctx context.Context, req chessdto.LeaveRequest) (*chessdto.GameResponse, error) {
	rec, err := a.mgr.Leave(ctx, req.Meta.GameID, req.Meta.Sender)
	return a.respond(ctx, rec, req.Meta.Sender, err, nil)
}

func (a *Adapter) CheckTimer(ctx context.Context, req chessdto.CheckTimerRequest) (*chessdto.GameResponse, error) {
	rec, err := a.mgr.CheckTimer(ctx, req.Meta.GameID)
	return a.respond(ctx, rec, req.Meta.Sender, err, nil)
}

func (a *Adapter) Status(ctx context.Context, req chessdto.StatusRequest) (*chessdto.GameResponse, error) {
	rec, err := a.mgr.LoadGame(ctx, req.Meta.GameID)
	if err == nil && rec == nil {
		err = ErrGameNotFound
	}
	return a.respond(ctx, rec, req.Meta.Sender, err, nil)
}

func (a *Adapter) Lobby(ctx context.Context) (*chessdto.LobbyResponse, error) {
	ids, err := a.mgr.LobbyGameIDs(ctx)
	if err != nil {
		return nil, a.domainError(err, nil)
	}
	return &chessdto.LobbyResponse{GameIDs: ids}, nil
}

// History lists finished games from the attached result repository.
func (a *Adapter) History(ctx context.Context, req chessdto.HistoryRequest) (*chessdto.HistoryResponse, error) {
	if a.mgr.repo == nil {
		return &chessdto.HistoryResponse{}, nil
	}
	results, err := a.mgr.repo.RecentResults(ctx, req.Meta.Sender, req.Limit)
	if err != nil {
		return nil, a.domainError(err, nil)
	}
	out := &chessdto.HistoryResponse{Games: make([]*chessdto.GameResult, 0, len(results))}
	for _, r := range results {
		out.Games = append(out.Games, &chessdto.GameResult{
			ID:          r.ID,
			GameID:      r.GameID,
			WhiteID:     r.WhiteID,
			BlackID:     r.BlackID,
			WinnerID:    r.WinnerID,
			Result:      r.Result,
			Termination: r.Termination,
			Wager:       r.Wager,
			Rated:       r.Rated,
			Moves:       append([]string(nil), r.Moves...),
			StartedAt:   r.StartedAt,
			EndedAt:     r.EndedAt,
			Duration:    r.Duration,
		})
	}
	return out, nil
}

func (a *Adapter) respond(ctx context.Context, rec *Record, viewer string, err error, data map[string]any) (*chessdto.GameResponse, error) {
	if err != nil {
		return nil, a.domainError(err, data)
	}
	view, err := a.View(ctx, rec, viewer)
	if err != nil {
		return nil, err
	}
	return &chessdto.GameResponse{Game: view}, nil
}

// View builds the DTO for viewer. Black sees the board from its own side.
func (a *Adapter) View(ctx context.Context, rec *Record, viewer string) (*chessdto.GameView, error) {
	if rec == nil || rec.Game == nil {
		return nil, nil
	}
	g := rec.Game
	white, _ := g.Seat(chess.White)
	black, _ := g.Seat(chess.Black)
	board := g.Board()
	view := &chessdto.GameView{
		ID:        rec.ID,
		State:     g.State().String(),
		WhiteID:   string(white),
		BlackID:   string(black),
		Board:     board.Rows(),
		Moves:     append([]string(nil), rec.Moves...),
		Ply:       g.Ply(),
		DrawState: g.DrawState().String(),
		Wager:     g.Config().Wager,
		Rated:     g.Config().Rated,
		UpdatedAt: rec.UpdatedAt,
	}
	if c, ok := g.State().ToMove(); ok {
		view.ToMove = c.String()
	}
	if sq, ok := g.EnPassant(); ok {
		view.EnPassant = sq.String()
	}
	var highlight *render.Highlight
	if lm, ok := g.LastMove(); ok {
		view.LastMove = lm.From.String() + lm.To.String()
		highlight = &render.Highlight{From: lm.From, To: lm.To}
	}
	if g.Config().Timed() {
		clock := g.Clock()
		view.Clock = &chessdto.ClockView{White: clock.White, Black: clock.Black, Increment: clock.Increment}
	}
	if o, ok := g.Outcome(); ok {
		view.Outcome = &chessdto.OutcomeView{
			IsDraw:       o.Draw,
			WagerPresent: o.WagerPresent,
			IsRated:      o.Rated,
			Termination:  string(o.Termination),
		}
		if o.Winner != chess.NoColor {
			view.Outcome.Winner = o.Winner.String()
		}
	}
	viewerColor, seated := g.ColorOf(chess.PlayerID(strings.TrimSpace(viewer)))
	if seated {
		view.ViewerColor = viewerColor.String()
	}
	view.Status = a.status(g, view)

	if a.renderer != nil {
		img, err := a.renderer.RenderPNG(ctx, g.Board(), render.Options{
			Highlight: highlight,
			Header:    a.seatName(view.WhiteID) + " vs " + a.seatName(view.BlackID),
			Footer:    view.Status,
			Flip:      seated && viewerColor == chess.Black,
		})
		if err != nil {
			obslog.L().Error("chess_render_error", zap.String("game_id", rec.ID), zap.Error(err))
			return nil, a.domainError(err, nil)
		}
		view.BoardImage = img
	}
	return view, nil
}

func (a *Adapter) status(g *chess.Game, view *chessdto.GameView) string {
	data := map[string]any{
		"White":       a.seatName(view.WhiteID),
		"Black":       a.seatName(view.BlackID),
		"Ply":         view.Ply,
		"Termination": a.catalog.RenderOr("termination."+string(g.Termination()), nil, string(g.Termination())),
	}
	line := a.catalog.RenderOr("status."+view.State, data, view.State)
	var offerer chess.Color
	switch g.DrawState() {
	case chess.DrawOfferedByWhite:
		offerer = chess.White
	case chess.DrawOfferedByBlack:
		offerer = chess.Black
	}
	if offerer != chess.NoColor && g.State().InProgress() {
		line += "\n" + a.catalog.RenderOr("status.draw_offered", map[string]any{"Color": a.colorName(offerer)}, "draw offered")
	}
	return line
}

func (a *Adapter) seatName(id string) string {
	if id == "" {
		return a.catalog.RenderOr("seat.empty", nil, "-")
	}
	return id
}

func (a *Adapter) colorName(c chess.Color) string {
	return a.catalog.RenderOr("color."+c.String(), nil, c.String())
}

// domainError converts err into a chessdto.DomainError with a localized message.
func (a *Adapter) domainError(err error, data map[string]any) error {
	if de, ok := chessdto.AsDomainError(err); ok {
		return de
	}
	code, retryable := errorCode(err)
	if data == nil {
		data = map[string]any{}
	}
	return chessdto.DomainError{
		Code:      code,
		Message:   a.catalog.RenderOr("errors."+code, data, err.Error()),
		Retryable: retryable,
	}
}

func errorCode(err error) (string, bool) {
	if code, ok := chess.ErrorCode(err); ok {
		return code, false
	}
	switch {
	case errors.Is(err, ErrInvalidArgs):
		return "invalid_args", false
	case errors.Is(err, ErrGameNotFound):
		return "game_not_found", false
	case errors.Is(err, ErrConcurrentUpdate):
		return "concurrent_update", true
	case errors.Is(err, ErrBadNotation):
		return "bad_notation", false
	}
	return "internal", true
}
