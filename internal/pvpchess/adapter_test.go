package pvpchess

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/park285/wager-chess/internal/chess"
	"github.com/park285/wager-chess/internal/msgcat"
	"github.com/park285/wager-chess/internal/render"
	"github.com/park285/wager-chess/pkg/chessdto"
)

func newTestAdapter(t *testing.T) (*Adapter, *Manager) {
	t.Helper()
	m := newTestManager(t)
	m.AttachRepository(NewMemoryRepository())
	cat, err := msgcat.New("")
	if err != nil {
		t.Fatalf("msgcat.New: %v", err)
	}
	return NewAdapter(m, cat, render.NewBoardRenderer()), m
}

func meta(id, sender string) chessdto.RequestMeta {
	return chessdto.RequestMeta{GameID: id, Sender: sender}
}

func TestAdapterPlayThroughViews(t *testing.T) {
	a, _ := newTestAdapter(t)
	ctx := context.Background()

	created, err := a.Create(ctx, chessdto.CreateGameRequest{Meta: meta("", "alice"), Wager: 50})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	id := created.Game.ID
	if created.Game.State != "waiting" || created.Game.Clock != nil {
		t.Fatalf("created view = %+v", created.Game)
	}
	if _, err := a.Join(ctx, chessdto.JoinRequest{Meta: meta(id, "alice"), Color: "white"}); err != nil {
		t.Fatalf("Join alice: %v", err)
	}
	joined, err := a.Join(ctx, chessdto.JoinRequest{Meta: meta(id, "bob"), Color: "b"})
	if err != nil {
		t.Fatalf("Join bob: %v", err)
	}
	if joined.Game.ToMove != "white" || joined.Game.ViewerColor != "black" {
		t.Fatalf("joined view = %+v", joined.Game)
	}

	moved, err := a.Move(ctx, chessdto.MoveRequest{Meta: meta(id, "alice"), Move: "e2e4"})
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	v := moved.Game
	if v.LastMove != "e2e4" || v.Ply != 1 || v.EnPassant != "e3" || len(v.Moves) != 1 {
		t.Fatalf("after e2e4: %+v", v)
	}
	if v.Board[4] != "....P..." || v.Board[6] != "PPPP.PPP" {
		t.Fatalf("board rows = %v", v.Board)
	}
	if len(v.BoardImage) == 0 || v.Status == "" {
		t.Fatalf("missing image or status")
	}

	for _, mv := range []struct{ who, move string }{{"bob", "e7e5"}, {"alice", "d1h5"}, {"bob", "b8c6"}, {"alice", "f1c4"}, {"bob", "g8f6"}, {"alice", "h5f7"}} {
		if _, err := a.Move(ctx, chessdto.MoveRequest{Meta: meta(id, mv.who), Move: mv.move}); err != nil {
			t.Fatalf("%s %s: %v", mv.who, mv.move, err)
		}
	}
	final, err := a.Status(ctx, chessdto.StatusRequest{Meta: meta(id, "bob")})
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	o := final.Game.Outcome
	if o == nil || o.Winner != "white" || o.IsDraw || !o.WagerPresent || o.IsRated || o.Termination != "checkmate" {
		t.Fatalf("outcome = %+v", o)
	}

	hist, err := a.History(ctx, chessdto.HistoryRequest{Meta: meta("", "bob"), Limit: 5})
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(hist.Games) != 1 || hist.Games[0].Result != "1-0" || hist.Games[0].WinnerID != "alice" {
		t.Fatalf("history = %+v", hist.Games)
	}
}

func TestViewFlipsBoardForBlack(t *testing.T) {
	a, m := newTestAdapter(t)
	ctx := context.Background()
	rec := startGame(t, m, chess.Config{})
	rec = playMoves(t, m, rec.ID, "e2e4")

	white, err := a.View(ctx, rec, "alice")
	if err != nil {
		t.Fatalf("View white: %v", err)
	}
	black, err := a.View(ctx, rec, "bob")
	if err != nil {
		t.Fatalf("View black: %v", err)
	}
	if len(white.BoardImage) == 0 || len(black.BoardImage) == 0 {
		t.Fatalf("images missing")
	}
	if bytes.Equal(white.BoardImage, black.BoardImage) {
		t.Fatalf("expected different images for flipped viewpoints")
	}
	if white.Board != black.Board {
		t.Fatalf("board rows must not depend on the viewer")
	}
}

func TestAdapterDomainErrors(t *testing.T) {
	a, m := newTestAdapter(t)
	ctx := context.Background()
	rec := startGame(t, m, chess.Config{})

	cases := []struct {
		name      string
		req       chessdto.MoveRequest
		code      string
		retryable bool
		contains  string
	}{
		{"illegal", chessdto.MoveRequest{Meta: meta(rec.ID, "alice"), Move: "e2e5"}, "illegal_move", false, "e2e5"},
		{"turn", chessdto.MoveRequest{Meta: meta(rec.ID, "bob"), Move: "e7e5"}, "not_players_turn", false, "bob"},
		{"notation", chessdto.MoveRequest{Meta: meta(rec.ID, "alice"), Move: "castle"}, "bad_notation", false, "e2e4"},
		{"missing", chessdto.MoveRequest{Meta: meta("gone", "alice"), Move: "e2e4"}, "game_not_found", false, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := a.Move(ctx, tc.req)
			var de chessdto.DomainError
			if !errors.As(err, &de) {
				t.Fatalf("err = %v (%T), want DomainError", err, err)
			}
			if de.Code != tc.code || de.Retryable != tc.retryable {
				t.Fatalf("code=%s retryable=%v", de.Code, de.Retryable)
			}
			if de.Message == "" || !strings.Contains(de.Message, tc.contains) {
				t.Fatalf("message %q should contain %q", de.Message, tc.contains)
			}
		})
	}

	if _, err := a.Join(ctx, chessdto.JoinRequest{Meta: meta(rec.ID, "carol"), Color: "green"}); err == nil {
		t.Fatalf("expected invalid color error")
	}
}

func TestErrorCodeFallsBackToInternal(t *testing.T) {
	code, retry := errorCode(errors.New("boom"))
	if code != "internal" || !retry {
		t.Fatalf("code=%s retry=%v", code, retry)
	}
	if code, retry := errorCode(ErrConcurrentUpdate); code != "concurrent_update" || !retry {
		t.Fatalf("code=%s retry=%v", code, retry)
	}
}
