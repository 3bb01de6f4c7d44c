package pvpchan

import (
	"context"
	"errors"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/park285/wager-chess/internal/chess"
	"github.com/park285/wager-chess/internal/pvpchess"
)

func newTestManagers(t *testing.T) (*Manager, *pvpchess.Manager) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	chessMgr := pvpchess.NewManagerWithClient(rdb)
	return NewManager(rdb, chessMgr), chessMgr
}

func TestMakeJoinStartsGame(t *testing.T) {
	m, chessMgr := newTestManagers(t)
	ctx := context.Background()

	mk, err := m.Make(ctx, "roomA", "u1", chess.Config{Wager: 10, Rated: true}, ColorWhite)
	if err != nil {
		t.Fatalf("Make: %v", err)
	}
	if mk.Code == "" || mk.Meta.GameID == "" {
		t.Fatalf("expected code and game id, got %+v", mk.Meta)
	}
	if got := mk.Record.Game.State(); got != chess.Waiting {
		t.Fatalf("state after make = %v", got)
	}

	jr, err := m.Join(ctx, "roomB", mk.Code, "u2")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if !jr.Started || jr.GameID != mk.Meta.GameID {
		t.Fatalf("expected started game %q, got started=%v id=%q", mk.Meta.GameID, jr.Started, jr.GameID)
	}

	rec, err := chessMgr.LoadGame(ctx, jr.GameID)
	if err != nil || rec == nil {
		t.Fatalf("LoadGame: %v", err)
	}
	if id, _ := rec.Game.Seat(chess.White); id != "u1" {
		t.Fatalf("white = %q, want creator", id)
	}
	if id, _ := rec.Game.Seat(chess.Black); id != "u2" {
		t.Fatalf("black = %q, want joiner", id)
	}
	if rec.Game.State() != chess.WhiteToMove {
		t.Fatalf("state = %v, want white_to_move", rec.Game.State())
	}
	if cfg := rec.Game.Config(); cfg.Wager != 10 || !cfg.Rated {
		t.Fatalf("config not carried: %+v", cfg)
	}

	rooms, err := m.Rooms(ctx, mk.Code)
	if err != nil {
		t.Fatalf("Rooms: %v", err)
	}
	if len(rooms) != 2 {
		t.Fatalf("expected 2 rooms, got %v", rooms)
	}
	lobby, err := m.ListLobby(ctx)
	if err != nil {
		t.Fatalf("ListLobby: %v", err)
	}
	if len(lobby) != 0 {
		t.Fatalf("started channel still listed: %v", lobby)
	}
}

func TestCreatorColorPreference(t *testing.T) {
	m, _ := newTestManagers(t)
	ctx := context.Background()

	mk, err := m.Make(ctx, "roomA", "u1", chess.Config{}, ColorBlack)
	if err != nil {
		t.Fatalf("Make: %v", err)
	}
	jr, err := m.Join(ctx, "roomB", mk.Code, "u2")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if id, _ := jr.Record.Game.Seat(chess.Black); id != "u1" {
		t.Fatalf("creator should play black, black=%q", id)
	}
}

func TestThirdJoinRejected(t *testing.T) {
	m, _ := newTestManagers(t)
	ctx := context.Background()

	mk, err := m.Make(ctx, "roomA", "u1", chess.Config{}, ColorRandom)
	if err != nil {
		t.Fatalf("Make: %v", err)
	}
	if _, err := m.Join(ctx, "roomB", mk.Code, "u2"); err != nil {
		t.Fatalf("Join#1: %v", err)
	}
	if _, err := m.Join(ctx, "roomC", mk.Code, "u3"); !errors.Is(err, ErrChannelActive) {
		t.Fatalf("third join err = %v, want ErrChannelActive", err)
	}
}

func TestCreatorCannotJoinOwnChallenge(t *testing.T) {
	m, _ := newTestManagers(t)
	ctx := context.Background()

	mk, err := m.Make(ctx, "roomA", "u1", chess.Config{}, ColorRandom)
	if err != nil {
		t.Fatalf("Make: %v", err)
	}
	if _, err := m.Join(ctx, "roomA", mk.Code, "u1"); !errors.Is(err, chess.ErrAlreadySeated) {
		t.Fatalf("err = %v, want ErrAlreadySeated", err)
	}
}

func TestRoomsByUserAndGame(t *testing.T) {
	m, _ := newTestManagers(t)
	ctx := context.Background()

	mk, err := m.Make(ctx, "roomA", "u1", chess.Config{}, ColorRandom)
	if err != nil {
		t.Fatalf("Make: %v", err)
	}
	jr, err := m.Join(ctx, "roomB", mk.Code, "u2")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	rooms, err := m.RoomsByUserAndGame(ctx, "u2", jr.GameID)
	if err != nil {
		t.Fatalf("RoomsByUserAndGame: %v", err)
	}
	if len(rooms) != 2 || rooms[0] != "roomA" || rooms[1] != "roomB" {
		t.Fatalf("rooms = %v", rooms)
	}
}

func TestMakeRestrictedDuplicateCreator(t *testing.T) {
	m, _ := newTestManagers(t)
	ctx := context.Background()

	if _, err := m.Make(ctx, "roomA", "u1", chess.Config{}, ColorRandom); err != nil {
		t.Fatalf("first Make: %v", err)
	}
	if _, err := m.Make(ctx, "roomB", "u1", chess.Config{}, ColorRandom); !errors.Is(err, ErrCreatorHasLobby) {
		t.Fatalf("err = %v, want ErrCreatorHasLobby", err)
	}
}

func TestBusyPlayerRejected(t *testing.T) {
	m, _ := newTestManagers(t)
	ctx := context.Background()

	mk, err := m.Make(ctx, "roomA", "u1", chess.Config{}, ColorRandom)
	if err != nil {
		t.Fatalf("Make: %v", err)
	}
	if _, err := m.Join(ctx, "roomB", mk.Code, "u2"); err != nil {
		t.Fatalf("Join: %v", err)
	}

	other, err := m.Make(ctx, "roomC", "u3", chess.Config{}, ColorRandom)
	if err != nil {
		t.Fatalf("Make u3: %v", err)
	}
	if _, err := m.Join(ctx, "roomB", other.Code, "u2"); !errors.Is(err, ErrPlayerBusy) {
		t.Fatalf("join while playing err = %v, want ErrPlayerBusy", err)
	}
	if _, err := m.Make(ctx, "roomA", "u1", chess.Config{}, ColorRandom); !errors.Is(err, ErrPlayerBusy) {
		t.Fatalf("make while playing err = %v, want ErrPlayerBusy", err)
	}
}

func TestCancelFreesSeat(t *testing.T) {
	m, chessMgr := newTestManagers(t)
	ctx := context.Background()

	mk, err := m.Make(ctx, "roomA", "u1", chess.Config{}, ColorWhite)
	if err != nil {
		t.Fatalf("Make: %v", err)
	}
	if _, err := m.Cancel(ctx, mk.Code, "u2"); !errors.Is(err, ErrNotCreator) {
		t.Fatalf("cancel by stranger err = %v", err)
	}
	meta, err := m.Cancel(ctx, mk.Code, "u1")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if meta.State != StateAborted {
		t.Fatalf("state = %s, want ABORTED", meta.State)
	}
	rec, err := chessMgr.LoadGame(ctx, mk.Meta.GameID)
	if err != nil || rec == nil {
		t.Fatalf("LoadGame: %v", err)
	}
	if _, ok := rec.Game.Seat(chess.White); ok {
		t.Fatalf("creator seat should be empty after cancel")
	}
	if _, err := m.Join(ctx, "roomB", mk.Code, "u2"); !errors.Is(err, ErrChannelActive) {
		t.Fatalf("join after cancel err = %v", err)
	}
	if _, err := m.Make(ctx, "roomA", "u1", chess.Config{}, ColorWhite); err != nil {
		t.Fatalf("Make after cancel: %v", err)
	}
}

func TestJoinUnknownCode(t *testing.T) {
	m, _ := newTestManagers(t)
	if _, err := m.Join(context.Background(), "roomB", "CH-NOPE00", "u2"); !errors.Is(err, ErrChannelGone) {
		t.Fatalf("err = %v, want ErrChannelGone", err)
	}
}

func TestListLobby(t *testing.T) {
	m, _ := newTestManagers(t)
	ctx := context.Background()

	for _, u := range []string{"u1", "u2"} {
		if _, err := m.Make(ctx, "room-"+u, u, chess.Config{}, ColorRandom); err != nil {
			t.Fatalf("Make %s: %v", u, err)
		}
	}
	lobby, err := m.ListLobby(ctx)
	if err != nil {
		t.Fatalf("ListLobby: %v", err)
	}
	if len(lobby) != 2 {
		t.Fatalf("lobby = %d entries, want 2", len(lobby))
	}
}

func TestResolveColor(t *testing.T) {
	for _, tc := range []struct {
		in   ColorChoice
		want chess.Color
	}{
		{ColorWhite, chess.White},
		{"BLACK", chess.Black},
	} {
		got, err := resolveColor(tc.in)
		if err != nil || got != tc.want {
			t.Fatalf("resolveColor(%q) = %v, %v", tc.in, got, err)
		}
	}
	if c, err := resolveColor(ColorRandom); err != nil || (c != chess.White && c != chess.Black) {
		t.Fatalf("random = %v, %v", c, err)
	}
	if _, err := resolveColor("purple"); !errors.Is(err, ErrInvalidArgs) {
		t.Fatalf("err = %v", err)
	}
}

func TestParseColorChoice(t *testing.T) {
	for in, want := range map[string]ColorChoice{"W": ColorWhite, "black": ColorBlack, "b": ColorBlack, "any": ColorRandom, "": ColorRandom} {
		if got := ParseColorChoice(in); got != want {
			t.Fatalf("ParseColorChoice(%q) = %q, want %q", in, got, want)
		}
	}
}
