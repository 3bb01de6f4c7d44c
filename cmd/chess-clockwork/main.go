package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	appcfg "github.com/park285/wager-chess/internal/config"
	"github.com/park285/wager-chess/internal/clockwork"
	"github.com/park285/wager-chess/internal/obslog"
	"github.com/park285/wager-chess/internal/pvpchess"
)

func main() {
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

	// Forfeits found by the sweeper are finished here, so results are saved here too.
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
		obslog.L().Warn("clockwork_no_database", zap.String("fallback", "memory"))
		mgr.AttachRepository(pvpchess.NewMemoryRepository())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, closeSub, err := mgr.SubscribeOutcomes(ctx)
	if err != nil {
		log.Fatalf("outcome subscribe error: %v", err)
	}
	defer func() { _ = closeSub() }()
	go func() {
		for ev := range events {
			obslog.L().Info("chess_outcome",
				zap.String("game_id", ev.GameID),
				zap.String("winner", ev.Outcome.Winner.String()),
				zap.Bool("is_draw", ev.Outcome.Draw),
				zap.Bool("wager_present", ev.Outcome.WagerPresent),
				zap.Bool("is_rated", ev.Outcome.Rated),
				zap.String("termination", string(ev.Outcome.Termination)),
			)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	sweeper := clockwork.NewSweeper(mgr, cfg.SweepInterval)
	if err := sweeper.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		obslog.L().Error("clockwork_exit", zap.Error(err))
	}
}
