package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/park285/wager-chess/internal/msgcat"
	"github.com/park285/wager-chess/internal/pvpchan"
	"github.com/park285/wager-chess/internal/pvpchess"
	"github.com/park285/wager-chess/internal/render"
)

func newTestConsole(t *testing.T) (*console, *bytes.Buffer) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	mgr := pvpchess.NewManagerWithClient(rdb)
	mgr.AttachRepository(pvpchess.NewMemoryRepository())
	cat, err := msgcat.New("")
	if err != nil {
		t.Fatalf("msgcat: %v", err)
	}
	var out bytes.Buffer
	return &console{
		mgr:      mgr,
		adapter:  pvpchess.NewAdapter(mgr, cat, render.NewBoardRenderer()),
		lobby:    pvpchan.NewManager(rdb, mgr),
		out:      &out,
		room:     "test",
		boardDir: t.TempDir(),
	}, &out
}

func challengeCode(t *testing.T, out string) string {
	t.Helper()
	for _, f := range strings.Fields(out) {
		if strings.HasPrefix(f, "CH-") {
			return f
		}
	}
	t.Fatalf("no challenge code in %q", out)
	return ""
}

func TestConsoleFoolsMate(t *testing.T) {
	c, out := newTestConsole(t)
	ctx := context.Background()

	c.handle(ctx, "alice make white wager 10 rated")
	code := challengeCode(t, out.String())

	c.handle(ctx, "lobby")
	if !strings.Contains(out.String(), code+"  by alice") {
		t.Fatalf("lobby listing missing challenge:\n%s", out.String())
	}

	c.handle(ctx, "bob join "+code)
	for _, line := range []string{"alice f2f3", "bob e7e5", "alice g2g4", "bob d8h4"} {
		out.Reset()
		c.handle(ctx, line)
		if strings.Contains(out.String(), "! ") {
			t.Fatalf("%s failed:\n%s", line, out.String())
		}
	}
	if !strings.Contains(out.String(), "board: ") {
		t.Fatalf("expected board image path:\n%s", out.String())
	}

	out.Reset()
	c.handle(ctx, "bob history")
	if !strings.Contains(out.String(), "0-1 (checkmate)  4 moves") {
		t.Fatalf("history output:\n%s", out.String())
	}

	files, err := filepath.Glob(filepath.Join(c.boardDir, "*.png"))
	if err != nil || len(files) == 0 {
		t.Fatalf("no boards written: %v", err)
	}
	if info, err := os.Stat(files[0]); err != nil || info.Size() == 0 {
		t.Fatalf("empty board file: %v", err)
	}
}

func TestConsoleRejectionsAreReported(t *testing.T) {
	c, out := newTestConsole(t)
	ctx := context.Background()

	c.handle(ctx, "alice e2e4")
	if !strings.Contains(out.String(), "! ") {
		t.Fatalf("move without a game should fail:\n%s", out.String())
	}

	c.handle(ctx, "alice make black")
	code := challengeCode(t, out.String())
	c.handle(ctx, "bob join "+code)

	out.Reset()
	c.handle(ctx, "alice e7e5")
	if !strings.Contains(out.String(), "! ") {
		t.Fatalf("black moving first should fail:\n%s", out.String())
	}

	out.Reset()
	c.handle(ctx, "bob draw")
	c.handle(ctx, "alice draw")
	if !strings.Contains(out.String(), "무승부") {
		t.Fatalf("expected draw status:\n%s", out.String())
	}
}

func TestConsoleResignNamesOpponent(t *testing.T) {
	c, out := newTestConsole(t)
	ctx := context.Background()

	c.handle(ctx, "alice make white")
	code := challengeCode(t, out.String())
	c.handle(ctx, "bob join "+code)

	out.Reset()
	c.handle(ctx, "alice resign")
	if strings.Contains(out.String(), "! ") || !strings.Contains(out.String(), "bob 승리") {
		t.Fatalf("resign output:\n%s", out.String())
	}
}

func TestParseTimeControl(t *testing.T) {
	timer, inc, err := parseTimeControl("3+2")
	if err != nil || timer != 3*time.Minute || inc != 2*time.Second {
		t.Fatalf("3+2 = %v %v %v", timer, inc, err)
	}
	timer, inc, err = parseTimeControl("10")
	if err != nil || timer != 10*time.Minute || inc != 0 {
		t.Fatalf("10 = %v %v %v", timer, inc, err)
	}
	for _, bad := range []string{"x+1", "3+y", "-1"} {
		if _, _, err := parseTimeControl(bad); err == nil {
			t.Fatalf("%q should fail", bad)
		}
	}
}
