// Package pvpchan pairs two players through a shareable challenge code.
// The creator's game is created up front; the second player's join starts it.
package pvpchan

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/wager-chess/internal/chess"
	"github.com/park285/wager-chess/internal/obslog"
	"github.com/park285/wager-chess/internal/pvpchess"
)

type Manager struct {
	rdb   *redis.Client
	store *Store
	pvp   *pvpchess.Manager
	now   func() time.Time
}

func NewManager(rdb *redis.Client, pvp *pvpchess.Manager) *Manager {
	return &Manager{rdb: rdb, store: NewStore(rdb), pvp: pvp, now: time.Now}
}

// Make opens a challenge: the game is created with cfg and the creator takes a seat.
func (m *Manager) Make(ctx context.Context, room, userID string, cfg chess.Config, pref ColorChoice) (*MakeResult, error) {
	room, userID = strings.TrimSpace(room), strings.TrimSpace(userID)
	if room == "" || userID == "" {
		return nil, ErrInvalidArgs
	}
	if has, err := m.hasOpenLobby(ctx, userID); err != nil {
		return nil, err
	} else if has {
		return nil, ErrCreatorHasLobby
	}
	if err := m.ensureIdle(ctx, userID); err != nil {
		return nil, err
	}
	color, err := resolveColor(pref)
	if err != nil {
		return nil, err
	}

	code, err := m.allocateCode(ctx)
	if err != nil {
		return nil, err
	}
	rec, err := m.pvp.CreateGame(ctx, cfg)
	if err != nil {
		return nil, err
	}
	rec, err = m.pvp.Join(ctx, rec.ID, userID, color)
	if err != nil {
		return nil, err
	}

	meta := &ChannelMeta{
		ID:           code,
		State:        StateLobby,
		CreatedAt:    m.now(),
		CreatorID:    userID,
		CreatorRoom:  room,
		CreatorColor: color,
		GameID:       rec.ID,
		Config:       cfg,
	}
	if _, err := m.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		m.store.addParticipant(ctx, pipe, code, room, userID)
		return nil
	}); err != nil {
		return nil, err
	}
	if err := m.store.SaveMeta(ctx, meta); err != nil {
		return nil, err
	}
	obslog.L().Info("lobby_make",
		zap.String("code", code),
		zap.String("room", room),
		zap.String("creator_id", userID),
		zap.String("color", color.String()),
		zap.String("game_id", rec.ID),
	)
	return &MakeResult{Code: code, Meta: meta, Record: rec}, nil
}

// Join takes the seat opposite the creator, which starts the game.
func (m *Manager) Join(ctx context.Context, room, code, userID string) (*JoinResult, error) {
	room, code, userID = strings.TrimSpace(room), strings.TrimSpace(code), strings.TrimSpace(userID)
	if room == "" || code == "" || userID == "" {
		return nil, ErrInvalidArgs
	}
	meta, err := m.store.LoadMeta(ctx, code)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, ErrChannelGone
	}
	if meta.State != StateLobby {
		return nil, ErrChannelActive
	}
	if meta.CreatorID == userID {
		return nil, chess.ErrAlreadySeated
	}
	if err := m.ensureIdle(ctx, userID); err != nil {
		return nil, err
	}

	partKey := m.store.keyParticipants(code)
	err = m.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cnt, err := tx.SCard(ctx, partKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cnt >= 2 {
			return ErrFull
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			m.store.addParticipant(ctx, pipe, code, room, userID)
			return nil
		})
		return err
	}, partKey)
	if err != nil {
		obslog.L().Warn("lobby_join_error", zap.String("code", code), zap.String("room", room), zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	rec, err := m.pvp.Join(ctx, meta.GameID, userID, meta.CreatorColor.Opponent())
	if err != nil {
		if rbErr := m.store.removeParticipant(ctx, code, userID); rbErr != nil {
			obslog.L().Error("lobby_join_rollback_error", zap.String("code", code), zap.Error(rbErr))
		}
		return nil, err
	}

	meta.State = StateActive
	meta.JoinerID = userID
	if err := m.store.SaveMeta(ctx, meta); err != nil {
		return nil, err
	}
	white, _ := rec.Game.Seat(chess.White)
	black, _ := rec.Game.Seat(chess.Black)
	obslog.L().Info("lobby_start_game",
		zap.String("code", code),
		zap.String("game_id", rec.ID),
		zap.String("white_id", string(white)),
		zap.String("black_id", string(black)),
	)
	return &JoinResult{Started: rec.Game.State().InProgress(), GameID: rec.ID, Meta: meta, Record: rec}, nil
}

// Cancel withdraws an unanswered challenge and frees the creator's seat.
func (m *Manager) Cancel(ctx context.Context, code, userID string) (*ChannelMeta, error) {
	meta, err := m.store.LoadMeta(ctx, code)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, ErrChannelGone
	}
	if meta.CreatorID != strings.TrimSpace(userID) {
		return nil, ErrNotCreator
	}
	if meta.State != StateLobby {
		return nil, ErrChannelActive
	}
	if _, err := m.pvp.Leave(ctx, meta.GameID, meta.CreatorID); err != nil && !errors.Is(err, pvpchess.ErrGameNotFound) {
		return nil, err
	}
	meta.State = StateAborted
	if err := m.store.SaveMeta(ctx, meta); err != nil {
		return nil, err
	}
	obslog.L().Info("lobby_cancel", zap.String("code", meta.ID), zap.String("game_id", meta.GameID))
	return meta, nil
}

func (m *Manager) Rooms(ctx context.Context, code string) ([]string, error) {
	return m.store.Rooms(ctx, code)
}

// RoomsByUserAndGame finds the rooms to notify about gameID for one of its players.
func (m *Manager) RoomsByUserAndGame(ctx context.Context, userID, gameID string) ([]string, error) {
	codes, err := m.store.CodesByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, c := range codes {
		meta, _ := m.store.LoadMeta(ctx, c)
		if meta != nil && meta.GameID == gameID {
			return m.store.Rooms(ctx, c)
		}
	}
	return nil, nil
}

func (m *Manager) ListLobby(ctx context.Context) ([]*ChannelMeta, error) {
	return m.store.ListLobby(ctx)
}

func (m *Manager) allocateCode(ctx context.Context) (string, error) {
	for i := 0; i < 5; i++ {
		c, err := codeGen()
		if err != nil {
			return "", err
		}
		ok, err := m.store.Reserve(ctx, c)
		if err != nil {
			return "", err
		}
		if ok {
			return c, nil
		}
	}
	return "", fmt.Errorf("failed to allocate channel code")
}

func (m *Manager) hasOpenLobby(ctx context.Context, userID string) (bool, error) {
	codes, err := m.store.CodesByUser(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, c := range codes {
		meta, _ := m.store.LoadMeta(ctx, c)
		if meta != nil && meta.State == StateLobby && meta.CreatorID == userID {
			return true, nil
		}
	}
	return false, nil
}

// ensureIdle rejects players who already sit in a running game.
func (m *Manager) ensureIdle(ctx context.Context, userID string) error {
	recs, err := m.pvp.GamesByPlayer(ctx, userID)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		if rec.Game.State().InProgress() {
			return ErrPlayerBusy
		}
	}
	return nil
}

func resolveColor(pref ColorChoice) (chess.Color, error) {
	switch ColorChoice(strings.ToLower(strings.TrimSpace(string(pref)))) {
	case ColorWhite:
		return chess.White, nil
	case ColorBlack:
		return chess.Black, nil
	case ColorRandom, "":
		var b [1]byte
		if _, err := rand.Read(b[:]); err != nil {
			return chess.NoColor, err
		}
		if b[0]&1 == 0 {
			return chess.White, nil
		}
		return chess.Black, nil
	}
	return chess.NoColor, ErrInvalidArgs
}
