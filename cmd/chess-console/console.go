package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/park285/wager-chess/internal/chess"
	"github.com/park285/wager-chess/internal/obslog"
	"github.com/park285/wager-chess/internal/pvpchan"
	"github.com/park285/wager-chess/internal/pvpchess"
	"github.com/park285/wager-chess/pkg/chessdto"
)

// console dispatches "<user> <command> [args]" lines against the hosted games.
type console struct {
	mgr     *pvpchess.Manager
	adapter *pvpchess.Adapter
	lobby   *pvpchan.Manager
	out     io.Writer

	room             string
	boardDir         string
	defaultTimer     time.Duration
	defaultIncrement time.Duration
}

func (c *console) handle(ctx context.Context, line string) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return
	}
	switch strings.ToLower(parts[0]) {
	case "help", "도움말":
		c.println(helpText())
		return
	case "lobby", "목록":
		c.listLobby(ctx)
		return
	}
	if len(parts) < 2 {
		c.println("usage: <user> <command> [args] (try 'help')")
		return
	}
	user, cmd, args := parts[0], strings.ToLower(parts[1]), parts[2:]

	switch cmd {
	case "make", "생성":
		c.makeChallenge(ctx, user, args)
	case "join", "참가":
		if len(args) < 1 {
			c.println("usage: <user> join <code>")
			return
		}
		jr, err := c.lobby.Join(ctx, c.room, args[0], user)
		if err != nil {
			c.fail(err)
			return
		}
		c.showRecord(ctx, jr.Record, user)
	case "cancel", "취소":
		if len(args) < 1 {
			c.println("usage: <user> cancel <code>")
			return
		}
		meta, err := c.lobby.Cancel(ctx, args[0], user)
		if err != nil {
			c.fail(err)
			return
		}
		c.println("challenge " + meta.ID + " cancelled")
	case "history", "기록":
		limit := 10
		if len(args) > 0 {
			if n, err := strconv.Atoi(args[0]); err == nil && n > 0 {
				limit = n
			}
		}
		resp, err := c.adapter.History(ctx, chessdto.HistoryRequest{Meta: chessdto.RequestMeta{Sender: user}, Limit: limit})
		if err != nil {
			c.fail(err)
			return
		}
		if len(resp.Games) == 0 {
			c.println("no finished games")
		}
		for _, g := range resp.Games {
			c.println(fmt.Sprintf("%s  %s vs %s  %s (%s)  %d moves", g.EndedAt.Format("2006-01-02 15:04"), g.WhiteID, g.BlackID, g.Result, g.Termination, len(g.Moves)))
		}
	default:
		c.gameCommand(ctx, user, cmd)
	}
}

// gameCommand runs a command against the user's current game; unknown words are moves.
func (c *console) gameCommand(ctx context.Context, user, cmd string) {
	rec, err := c.currentGame(ctx, user)
	if err != nil {
		c.fail(err)
		return
	}
	meta := chessdto.RequestMeta{GameID: rec.ID, Sender: user}
	opponent := opponentOf(rec, user)

	var resp *chessdto.GameResponse
	switch cmd {
	case "status", "현황":
		resp, err = c.adapter.Status(ctx, chessdto.StatusRequest{Meta: meta})
	case "resign", "기권":
		resp, err = c.adapter.Resign(ctx, chessdto.ResignRequest{Meta: meta, Adversary: opponent})
	case "draw", "무승부":
		resp, err = c.adapter.OfferDraw(ctx, chessdto.OfferDrawRequest{Meta: meta, Adversary: opponent})
	case "leave", "나가기":
		resp, err = c.adapter.Leave(ctx, chessdto.LeaveRequest{Meta: meta})
	case "flag", "시간":
		resp, err = c.adapter.CheckTimer(ctx, chessdto.CheckTimerRequest{Meta: meta})
	default:
		resp, err = c.adapter.Move(ctx, chessdto.MoveRequest{Meta: meta, Move: cmd})
	}
	if err != nil {
		c.fail(err)
		return
	}
	c.show(resp.Game)
}

func (c *console) makeChallenge(ctx context.Context, user string, args []string) {
	cfg := chess.Config{Timer: c.defaultTimer, Increment: c.defaultIncrement}
	pref := pvpchan.ColorRandom
	for i := 0; i < len(args); i++ {
		switch strings.ToLower(args[i]) {
		case "white", "w", "black", "b", "random":
			pref = pvpchan.ParseColorChoice(args[i])
		case "rated":
			cfg.Rated = true
		case "wager":
			if i+1 < len(args) {
				n, err := strconv.ParseUint(args[i+1], 10, 64)
				if err != nil {
					c.println("invalid wager: " + args[i+1])
					return
				}
				cfg.Wager = n
				i++
			}
		case "time":
			if i+1 < len(args) {
				timer, inc, err := parseTimeControl(args[i+1])
				if err != nil {
					c.println(err.Error())
					return
				}
				cfg.Timer, cfg.Increment = timer, inc
				i++
			}
		default:
			c.println("unknown option: " + args[i])
			return
		}
	}
	mk, err := c.lobby.Make(ctx, c.room, user, cfg, pref)
	if err != nil {
		c.fail(err)
		return
	}
	c.println(fmt.Sprintf("challenge %s created, share it with '<user> join %s'", mk.Code, mk.Code))
	c.showRecord(ctx, mk.Record, user)
}

func (c *console) listLobby(ctx context.Context) {
	metas, err := c.lobby.ListLobby(ctx)
	if err != nil {
		c.fail(err)
		return
	}
	if len(metas) == 0 {
		c.println("no open challenges")
		return
	}
	for _, m := range metas {
		c.println(fmt.Sprintf("%s  by %s  wager=%d rated=%v timer=%s", m.ID, m.CreatorID, m.Config.Wager, m.Config.Rated, m.Config.Timer))
	}
}

// currentGame picks the user's running game, falling back to one still waiting.
func (c *console) currentGame(ctx context.Context, user string) (*pvpchess.Record, error) {
	recs, err := c.mgr.GamesByPlayer(ctx, user)
	if err != nil {
		return nil, err
	}
	var waiting *pvpchess.Record
	for _, rec := range recs {
		switch s := rec.Game.State(); {
		case s.InProgress():
			return rec, nil
		case s == chess.Waiting && waiting == nil:
			waiting = rec
		}
	}
	if waiting != nil {
		return waiting, nil
	}
	// Most recent finished game, so status still works after the end.
	if len(recs) > 0 {
		return recs[0], nil
	}
	return nil, pvpchess.ErrGameNotFound
}

func opponentOf(rec *pvpchess.Record, user string) string {
	c, ok := rec.Game.ColorOf(chess.PlayerID(user))
	if !ok {
		return ""
	}
	id, _ := rec.Game.Seat(c.Opponent())
	return string(id)
}

func (c *console) showRecord(ctx context.Context, rec *pvpchess.Record, viewer string) {
	view, err := c.adapter.View(ctx, rec, viewer)
	if err != nil {
		c.fail(err)
		return
	}
	c.show(view)
}

func (c *console) show(v *chessdto.GameView) {
	if v == nil {
		return
	}
	for _, row := range v.Board {
		c.println("  " + row)
	}
	if v.Clock != nil {
		c.println(fmt.Sprintf("  clock  white %s  black %s", v.Clock.White.Round(time.Second), v.Clock.Black.Round(time.Second)))
	}
	c.println(v.Status)
	if c.boardDir == "" || len(v.BoardImage) == 0 {
		return
	}
	path := filepath.Join(c.boardDir, fmt.Sprintf("%s-%03d.png", v.ID, v.Ply))
	if err := os.WriteFile(path, v.BoardImage, 0o644); err != nil {
		obslog.L().Warn("console_board_write_error", zap.String("path", path), zap.Error(err))
		return
	}
	c.println("board: " + path)
}

func (c *console) fail(err error) {
	if de, ok := chessdto.AsDomainError(err); ok {
		c.println("! " + de.Error())
		return
	}
	c.println("! " + err.Error())
}

func (c *console) println(s string) { _, _ = fmt.Fprintln(c.out, s) }

// parseTimeControl reads "3+2" as three minutes with a two second increment.
func parseTimeControl(raw string) (time.Duration, time.Duration, error) {
	base, inc, _ := strings.Cut(strings.TrimSpace(raw), "+")
	minutes, err := strconv.Atoi(base)
	if err != nil || minutes < 0 {
		return 0, 0, fmt.Errorf("invalid time control %q, want minutes+seconds like 3+2", raw)
	}
	seconds := 0
	if inc != "" {
		seconds, err = strconv.Atoi(inc)
		if err != nil || seconds < 0 {
			return 0, 0, fmt.Errorf("invalid time control %q, want minutes+seconds like 3+2", raw)
		}
	}
	return time.Duration(minutes) * time.Minute, time.Duration(seconds) * time.Second, nil
}

func helpText() string {
	return strings.Join([]string{
		"wager-chess console",
		"",
		"  lobby                          open challenges",
		"  <user> make [white|black|random] [wager N] [rated] [time 3+2]",
		"  <user> join <code> | cancel <code>",
		"  <user> e2e4                    play a move in your current game",
		"  <user> status | resign | draw | leave | flag",
		"  <user> history [n]",
	}, "\n")
}
