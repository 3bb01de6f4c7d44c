package pvpchess

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/park285/wager-chess/internal/chess"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestManager(t *testing.T, opts ...Option) *Manager {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	m, err := NewManager(fmt.Sprintf("redis://%s/0", mr.Addr()), opts...)
	if err != nil {
		t.Fatalf("pvpchess.NewManager: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m
}

// startGame creates a game with alice as White and bob as Black.
func startGame(t *testing.T, m *Manager, cfg chess.Config) *Record {
	t.Helper()
	ctx := context.Background()
	rec, err := m.CreateGame(ctx, cfg)
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	if _, err := m.Join(ctx, rec.ID, "alice", chess.White); err != nil {
		t.Fatalf("Join alice: %v", err)
	}
	rec, err = m.Join(ctx, rec.ID, "bob", chess.Black)
	if err != nil {
		t.Fatalf("Join bob: %v", err)
	}
	return rec
}

func playMoves(t *testing.T, m *Manager, id string, moves ...string) *Record {
	t.Helper()
	var rec *Record
	for i, mv := range moves {
		player := "alice"
		if i%2 == 1 {
			player = "bob"
		}
		var err error
		rec, err = m.PlayMove(context.Background(), id, player, mv)
		if err != nil {
			t.Fatalf("move %d %s by %s: %v", i+1, mv, player, err)
		}
	}
	return rec
}

func TestCreateJoinMaintainsIndexes(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	rec, err := m.CreateGame(ctx, chess.Config{Wager: 5})
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	lobby, err := m.LobbyGameIDs(ctx)
	if err != nil || len(lobby) != 1 || lobby[0] != rec.ID {
		t.Fatalf("lobby = %v, %v", lobby, err)
	}

	if _, err := m.Join(ctx, rec.ID, "alice", chess.White); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if _, err := m.Join(ctx, rec.ID, "mallory", chess.White); !errors.Is(err, chess.ErrSeatUnavailable) {
		t.Fatalf("second white join err = %v", err)
	}
	rec, err = m.Join(ctx, rec.ID, "bob", chess.Black)
	if err != nil {
		t.Fatalf("Join bob: %v", err)
	}
	if rec.Game.State() != chess.WhiteToMove {
		t.Fatalf("state = %v", rec.Game.State())
	}

	lobby, _ = m.LobbyGameIDs(ctx)
	active, _ := m.ActiveGameIDs(ctx)
	if len(lobby) != 0 || len(active) != 1 || active[0] != rec.ID {
		t.Fatalf("lobby=%v active=%v", lobby, active)
	}
	games, err := m.GamesByPlayer(ctx, "bob")
	if err != nil || len(games) != 1 || games[0].ID != rec.ID {
		t.Fatalf("GamesByPlayer = %v, %v", games, err)
	}
	if rec.Version != 3 {
		t.Fatalf("version = %d, want 3", rec.Version)
	}
}

func TestFoolsMatePublishesOutcomeAndPersists(t *testing.T) {
	m := newTestManager(t)
	repo := NewMemoryRepository()
	m.AttachRepository(repo)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, closeSub, err := m.SubscribeOutcomes(ctx)
	if err != nil {
		t.Fatalf("SubscribeOutcomes: %v", err)
	}
	defer closeSub()

	rec := startGame(t, m, chess.Config{Wager: 100, Rated: true})
	rec = playMoves(t, m, rec.ID, "f2f3", "e7e5", "g2g4", "d8h4")

	if rec.Game.State() != chess.BlackWon || rec.Game.Termination() != chess.TerminationCheckmate {
		t.Fatalf("state=%v termination=%v", rec.Game.State(), rec.Game.Termination())
	}

	select {
	case ev := <-events:
		if ev.GameID != rec.ID || ev.Outcome.Winner != chess.Black || ev.Outcome.Draw {
			t.Fatalf("unexpected event %+v", ev)
		}
		if !ev.Outcome.WagerPresent || !ev.Outcome.Rated {
			t.Fatalf("outcome flags lost: %+v", ev.Outcome)
		}
		if ev.WhiteID != "alice" || ev.BlackID != "bob" {
			t.Fatalf("players = %s/%s", ev.WhiteID, ev.BlackID)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no outcome event")
	}

	results, err := repo.RecentResults(ctx, "alice", 10)
	if err != nil || len(results) != 1 {
		t.Fatalf("RecentResults = %v, %v", results, err)
	}
	res := results[0]
	if res.Result != "0-1" || res.WinnerID != "bob" || res.Termination != "checkmate" || len(res.Moves) != 4 {
		t.Fatalf("unexpected result %+v", res)
	}

	active, _ := m.ActiveGameIDs(ctx)
	if len(active) != 0 {
		t.Fatalf("finished game still active: %v", active)
	}
	if _, err := m.PlayMove(ctx, rec.ID, "alice", "a2a3"); !errors.Is(err, chess.ErrGameNotInProgress) {
		t.Fatalf("move after mate err = %v", err)
	}
}

func TestPlayMoveRejections(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	rec := startGame(t, m, chess.Config{})

	cases := []struct {
		name   string
		id     string
		player string
		move   string
		want   error
	}{
		{"unknown game", "nope", "alice", "e2e4", ErrGameNotFound},
		{"blank id", " ", "alice", "e2e4", ErrInvalidArgs},
		{"stranger", rec.ID, "carol", "e2e4", chess.ErrNotSeated},
		{"out of turn", rec.ID, "bob", "e7e5", chess.ErrNotPlayersTurn},
		{"bad notation", rec.ID, "alice", "Nf3", ErrBadNotation},
		{"illegal", rec.ID, "alice", "e2e5", chess.ErrIllegalMove},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := m.PlayMove(ctx, tc.id, tc.player, tc.move); !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}

	got, err := m.LoadGame(ctx, rec.ID)
	if err != nil || got == nil {
		t.Fatalf("LoadGame: %v", err)
	}
	if len(got.Moves) != 0 || got.Game.Ply() != 0 || got.Version != rec.Version {
		t.Fatalf("rejected moves changed the record: moves=%v ply=%d version=%d", got.Moves, got.Game.Ply(), got.Version)
	}
}

func TestLeaveBeforeStart(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	rec, err := m.CreateGame(ctx, chess.Config{})
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	if _, err := m.Join(ctx, rec.ID, "alice", chess.Black); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if _, err := m.Leave(ctx, rec.ID, "bob"); !errors.Is(err, chess.ErrNotSeated) {
		t.Fatalf("leave by stranger err = %v", err)
	}
	rec, err = m.Leave(ctx, rec.ID, "alice")
	if err != nil {
		t.Fatalf("Leave: %v", err)
	}
	if _, ok := rec.Game.Seat(chess.Black); ok {
		t.Fatalf("seat still taken")
	}
	games, _ := m.GamesByPlayer(ctx, "alice")
	if len(games) != 0 {
		t.Fatalf("alice still indexed: %v", games)
	}

	started := startGame(t, m, chess.Config{})
	if _, err := m.Leave(ctx, started.ID, "alice"); !errors.Is(err, chess.ErrGameAlreadyStarted) {
		t.Fatalf("leave after start err = %v", err)
	}
}

func TestResignNeedsAdversary(t *testing.T) {
	m := newTestManager(t)
	repo := NewMemoryRepository()
	m.AttachRepository(repo)
	ctx := context.Background()
	rec := startGame(t, m, chess.Config{})

	if _, err := m.Resign(ctx, rec.ID, "alice", "carol"); !errors.Is(err, chess.ErrWrongAdversary) {
		t.Fatalf("err = %v, want ErrWrongAdversary", err)
	}
	rec, err := m.Resign(ctx, rec.ID, "alice", "bob")
	if err != nil {
		t.Fatalf("Resign: %v", err)
	}
	if rec.Game.State() != chess.BlackWon || rec.Game.Termination() != chess.TerminationResignation {
		t.Fatalf("state=%v termination=%v", rec.Game.State(), rec.Game.Termination())
	}
	results, _ := repo.RecentResults(ctx, "bob", 0)
	if len(results) != 1 || results[0].Result != "0-1" {
		t.Fatalf("results = %+v", results)
	}
}

func TestDrawAgreement(t *testing.T) {
	m := newTestManager(t)
	repo := NewMemoryRepository()
	m.AttachRepository(repo)
	ctx := context.Background()
	rec := startGame(t, m, chess.Config{})

	rec, err := m.OfferDraw(ctx, rec.ID, "alice", "bob")
	if err != nil {
		t.Fatalf("OfferDraw alice: %v", err)
	}
	if rec.Game.DrawState() != chess.DrawOfferedByWhite {
		t.Fatalf("draw state = %v", rec.Game.DrawState())
	}
	if _, err := m.OfferDraw(ctx, rec.ID, "alice", "bob"); !errors.Is(err, chess.ErrDrawAlreadyOffered) {
		t.Fatalf("repeat offer err = %v", err)
	}
	rec, err = m.OfferDraw(ctx, rec.ID, "bob", "alice")
	if err != nil {
		t.Fatalf("OfferDraw bob: %v", err)
	}
	if rec.Game.State() != chess.Draw || rec.Game.Termination() != chess.TerminationAgreement {
		t.Fatalf("state=%v termination=%v", rec.Game.State(), rec.Game.Termination())
	}
	results, _ := repo.RecentResults(ctx, "alice", 5)
	if len(results) != 1 || results[0].Result != "1/2-1/2" || results[0].WinnerID != "" {
		t.Fatalf("results = %+v", results)
	}
}

func TestCheckTimerForfeitsSideToMove(t *testing.T) {
	clock := &testClock{now: t0}
	m := newTestManager(t, WithClock(clock.Now))
	ctx := context.Background()
	rec := startGame(t, m, chess.Config{Timer: time.Minute, Increment: 2 * time.Second})

	if _, err := m.CheckTimer(ctx, rec.ID); !errors.Is(err, chess.ErrTimeRemaining) {
		t.Fatalf("before first move err = %v", err)
	}
	playMoves(t, m, rec.ID, "e2e4")

	clock.Advance(59 * time.Second)
	if _, err := m.CheckTimer(ctx, rec.ID); !errors.Is(err, chess.ErrTimeRemaining) {
		t.Fatalf("at 59s err = %v", err)
	}
	clock.Advance(time.Second)
	rec, err := m.CheckTimer(ctx, rec.ID)
	if err != nil {
		t.Fatalf("CheckTimer: %v", err)
	}
	if rec.Game.State() != chess.WhiteWon || rec.Game.Termination() != chess.TerminationTimeForfeit {
		t.Fatalf("state=%v termination=%v", rec.Game.State(), rec.Game.Termination())
	}
	if rec.Game.Clock().Black != 0 {
		t.Fatalf("black clock = %v, want 0", rec.Game.Clock().Black)
	}
	if _, err := m.CheckTimer(ctx, rec.ID); !errors.Is(err, chess.ErrGameNotInProgress) {
		t.Fatalf("after forfeit err = %v", err)
	}
}

func TestConcurrentMovesApplyOnce(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	rec := startGame(t, m, chess.Config{})

	const workers = 6
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		applied int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.PlayMove(ctx, rec.ID, "alice", "e2e4")
			switch {
			case err == nil:
				mu.Lock()
				applied++
				mu.Unlock()
			case errors.Is(err, chess.ErrNotPlayersTurn), errors.Is(err, ErrConcurrentUpdate):
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if applied != 1 {
		t.Fatalf("applied = %d, want exactly 1", applied)
	}
	got, err := m.LoadGame(ctx, rec.ID)
	if err != nil {
		t.Fatalf("LoadGame: %v", err)
	}
	if len(got.Moves) != 1 || got.Game.State() != chess.BlackToMove {
		t.Fatalf("moves=%v state=%v", got.Moves, got.Game.State())
	}
}

func TestParseMove(t *testing.T) {
	cases := []struct {
		in       string
		from, to string
		ok       bool
	}{
		{"e2e4", "e2", "e4", true},
		{" E2-E4 ", "e2", "e4", true},
		{"e7e8q", "e7", "e8", true},
		{"e7e8n", "", "", false},
		{"e2", "", "", false},
		{"i2i4", "", "", false},
		{"", "", "", false},
	}
	for _, tc := range cases {
		from, to, err := ParseMove(tc.in)
		if !tc.ok {
			if !errors.Is(err, ErrBadNotation) {
				t.Fatalf("ParseMove(%q) err = %v, want ErrBadNotation", tc.in, err)
			}
			continue
		}
		if err != nil || from.String() != tc.from || to.String() != tc.to {
			t.Fatalf("ParseMove(%q) = %v %v %v", tc.in, from, to, err)
		}
	}
}

func TestResultToken(t *testing.T) {
	cases := []struct {
		o    chess.Outcome
		want string
	}{
		{chess.Outcome{Winner: chess.White}, "1-0"},
		{chess.Outcome{Winner: chess.Black}, "0-1"},
		{chess.Outcome{Draw: true}, "1/2-1/2"},
		{chess.Outcome{}, "*"},
	}
	for _, tc := range cases {
		if got := resultToken(tc.o); got != tc.want {
			t.Fatalf("resultToken(%+v) = %q, want %q", tc.o, got, tc.want)
		}
	}
}

func TestParseRedisURL(t *testing.T) {
	opts, err := parseRedisURL("redis://:secret@localhost:6380/3")
	if err != nil {
		t.Fatalf("parseRedisURL: %v", err)
	}
	if opts.Addr != "localhost:6380" || opts.Password != "secret" || opts.DB != 3 {
		t.Fatalf("opts = %+v", opts)
	}
	if _, err := parseRedisURL("http://localhost"); err == nil {
		t.Fatalf("expected scheme error")
	}
}

func TestNewManagerRequiresURL(t *testing.T) {
	if _, err := NewManager(" "); err == nil {
		t.Fatalf("expected error for empty url")
	}
}
