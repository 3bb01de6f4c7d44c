package main

import (
	"bufio"
	"context"
	"flag"
	"log"
	"os"

	"go.uber.org/zap"

	appcfg "github.com/park285/wager-chess/internal/config"
	"github.com/park285/wager-chess/internal/msgcat"
	"github.com/park285/wager-chess/internal/obslog"
	"github.com/park285/wager-chess/internal/pvpchan"
	"github.com/park285/wager-chess/internal/pvpchess"
	"github.com/park285/wager-chess/internal/render"
)

func main() {
	boardDir := flag.String("boards", "", "directory to write board PNGs into")
	room := flag.String("room", "console", "room name recorded on challenges")
	flag.Parse()

	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = obslog.L().Sync() }()

	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	mgr, err := pvpchess.NewManager(cfg.RedisURL,
		pvpchess.WithTTL(cfg.GameTTL),
		pvpchess.WithOutcomeChannel(cfg.OutcomeChannel),
	)
	if err != nil {
		log.Fatalf("chess manager init error: %v", err)
	}
	defer func() { _ = mgr.Close() }()

	if cfg.DatabaseURL != "" {
		repo, err := pvpchess.NewRepository(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("result repo init error: %v", err)
		}
		defer func() { _ = repo.Close() }()
		if err := repo.EnsureSchema(context.Background()); err != nil {
			log.Fatalf("result schema error: %v", err)
		}
		mgr.AttachRepository(repo)
	} else {
		mgr.AttachRepository(pvpchess.NewMemoryRepository())
	}

	catalog, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		log.Fatalf("message catalog error: %v", err)
	}
	if *boardDir != "" {
		if err := os.MkdirAll(*boardDir, 0o755); err != nil {
			log.Fatalf("board dir error: %v", err)
		}
	}

	c := &console{
		mgr:              mgr,
		adapter:          pvpchess.NewAdapter(mgr, catalog, render.NewBoardRenderer()),
		lobby:            pvpchan.NewManager(mgr.Client(), mgr),
		out:              os.Stdout,
		room:             *room,
		boardDir:         *boardDir,
		defaultTimer:     cfg.DefaultTimer,
		defaultIncrement: cfg.DefaultIncrement,
	}
	obslog.L().Info("console_start", zap.String("room", *room), zap.String("boards", *boardDir))

	ctx := context.Background()
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		c.handle(ctx, sc.Text())
	}
	if err := sc.Err(); err != nil {
		obslog.L().Error("console_read_error", zap.Error(err))
	}
}
