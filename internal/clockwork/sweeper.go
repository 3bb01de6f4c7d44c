// Package clockwork forfeits players whose clock ran out while nobody moved.
package clockwork

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/park285/wager-chess/internal/chess"
	"github.com/park285/wager-chess/internal/obslog"
	"github.com/park285/wager-chess/internal/pvpchess"
)

// TimerChecker is the slice of pvpchess.Manager the sweeper needs.
type TimerChecker interface {
	ActiveGameIDs(ctx context.Context) ([]string, error)
	CheckTimer(ctx context.Context, id string) (*pvpchess.Record, error)
}

type Sweeper struct {
	games    TimerChecker
	interval time.Duration
}

func NewSweeper(games TimerChecker, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Second
	}
	return &Sweeper{games: games, interval: interval}
}

// Sweep checks every active game once and returns how many were forfeited.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	ids, err := s.games.ActiveGameIDs(ctx)
	if err != nil {
		return 0, err
	}
	forfeited := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return forfeited, err
		}
		rec, err := s.games.CheckTimer(ctx, id)
		switch {
		case err == nil:
			forfeited++
			winner, _ := rec.Game.State().Winner()
			obslog.L().Info("clockwork_forfeit", zap.String("game_id", id), zap.String("winner", winner.String()))
		case expected(err):
		default:
			obslog.L().Warn("clockwork_check_error", zap.String("game_id", id), zap.Error(err))
		}
	}
	return forfeited, nil
}

// Run sweeps every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	obslog.L().Info("clockwork_start", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			obslog.L().Info("clockwork_stop")
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
				obslog.L().Error("clockwork_sweep_error", zap.Error(err))
			}
		}
	}
}

func expected(err error) bool {
	return errors.Is(err, chess.ErrTimeRemaining) ||
		errors.Is(err, chess.ErrGameNotInProgress) ||
		errors.Is(err, pvpchess.ErrGameNotFound)
}
