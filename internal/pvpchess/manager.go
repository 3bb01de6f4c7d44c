package pvpchess

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/wager-chess/internal/chess"
	"github.com/park285/wager-chess/internal/obslog"
)

const (
	DefaultOutcomeChannel = "chess:outcome"
	maxTxAttempts         = 5
)

// Manager hosts games in Redis. The rules core performs no locking, so every
// action runs inside a WATCH transaction on the game key.
type Manager struct {
	rdb     *redis.Client
	store   *Store
	repo    ResultRepository
	now     func() time.Time
	ttl     time.Duration
	channel string
}

type Option func(*Manager)

// WithClock overrides the time source used for moves and timer checks.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithTTL sets how long game records and indexes live in Redis.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithOutcomeChannel sets the pub/sub channel outcome events go to.
func WithOutcomeChannel(ch string) Option {
	return func(m *Manager) {
		if strings.TrimSpace(ch) != "" {
			m.channel = strings.TrimSpace(ch)
		}
	}
}

func NewManager(redisURL string, opts ...Option) (*Manager, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for chess manager")
	}
	ropts, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(ropts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewManagerWithClient(rdb, opts...), nil
}

func NewManagerWithClient(rdb *redis.Client, opts ...Option) *Manager {
	m := &Manager{
		rdb:     rdb,
		store:   NewStore(rdb),
		now:     time.Now,
		ttl:     defaultTTL,
		channel: DefaultOutcomeChannel,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Client exposes the Redis connection so collaborators can share it.
func (m *Manager) Client() *redis.Client { return m.rdb }

func (m *Manager) Close() error {
	if m == nil || m.rdb == nil {
		return nil
	}
	return m.rdb.Close()
}

// AttachRepository wires a result repository; finished games are saved through it.
func (m *Manager) AttachRepository(r ResultRepository) {
	if m != nil {
		m.repo = r
	}
}

// CreateGame stores a new game waiting for two players.
func (m *Manager) CreateGame(ctx context.Context, cfg chess.Config) (*Record, error) {
	if m == nil || m.rdb == nil {
		return nil, fmt.Errorf("chess manager not initialized")
	}
	if cfg.Timer < 0 || cfg.Increment < 0 {
		return nil, ErrInvalidArgs
	}
	now := m.now()
	rec := &Record{
		ID:        uuid.NewString(),
		Game:      chess.NewGame(cfg),
		Moves:     []string{},
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
	_, err := m.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		return m.store.write(ctx, pipe, rec, m.ttl)
	})
	if err != nil {
		return nil, err
	}
	obslog.L().Info("chess_game_create",
		zap.String("game_id", rec.ID),
		zap.Uint64("wager", cfg.Wager),
		zap.Bool("rated", cfg.Rated),
		zap.Duration("timer", cfg.Timer),
		zap.Duration("increment", cfg.Increment),
	)
	return rec, nil
}

// Join seats player on color.
func (m *Manager) Join(ctx context.Context, id, player string, color chess.Color) (*Record, error) {
	player = strings.TrimSpace(player)
	if player == "" {
		return nil, ErrInvalidArgs
	}
	rec, err := m.apply(ctx, "chess_join", id, func(rec *Record) error {
		return rec.Game.Join(color, chess.PlayerID(player))
	})
	if err != nil {
		return nil, err
	}
	obslog.L().Info("chess_join",
		zap.String("game_id", rec.ID),
		zap.String("player", player),
		zap.String("color", color.String()),
		zap.String("state", rec.Game.State().String()),
	)
	return rec, nil
}

// Leave vacates player's seat before the game starts.
func (m *Manager) Leave(ctx context.Context, id, player string) (*Record, error) {
	player = strings.TrimSpace(player)
	rec, err := m.apply(ctx, "chess_leave", id, func(rec *Record) error {
		c, ok := rec.Game.ColorOf(chess.PlayerID(player))
		if !ok {
			return chess.ErrNotSeated
		}
		return rec.Game.Leave(c)
	})
	if err != nil {
		return nil, err
	}
	if err := m.store.RemoveUserIndex(ctx, player, rec.ID); err != nil {
		obslog.L().Warn("chess_leave_index_error", zap.String("game_id", rec.ID), zap.Error(err))
	}
	obslog.L().Info("chess_leave", zap.String("game_id", rec.ID), zap.String("player", player))
	return rec, nil
}

// PlayMove applies a coordinate move ("e2e4", promotions may carry a trailing "q").
func (m *Manager) PlayMove(ctx context.Context, id, player, move string) (*Record, error) {
	from, to, err := ParseMove(move)
	if err != nil {
		return nil, err
	}
	player = strings.TrimSpace(player)
	rec, err := m.apply(ctx, "chess_move", id, func(rec *Record) error {
		c, ok := rec.Game.ColorOf(chess.PlayerID(player))
		if !ok {
			return chess.ErrNotSeated
		}
		if err := rec.Game.Move(c, from, to, m.now()); err != nil {
			return err
		}
		rec.Moves = append(rec.Moves, from.String()+to.String())
		return nil
	})
	if err != nil {
		obslog.L().Debug("chess_move_rejected",
			zap.String("game_id", id),
			zap.String("player", player),
			zap.String("move", move),
			zap.Error(err),
		)
		return nil, err
	}
	clock := rec.Game.Clock()
	obslog.L().Info("chess_move",
		zap.String("game_id", rec.ID),
		zap.String("player", player),
		zap.String("move", from.String()+to.String()),
		zap.Int("ply", rec.Game.Ply()),
		zap.String("state", rec.Game.State().String()),
		zap.Duration("white_clock", clock.White),
		zap.Duration("black_clock", clock.Black),
	)
	return rec, nil
}

// Resign concedes for player; adversary must name the seated opponent.
func (m *Manager) Resign(ctx context.Context, id, player, adversary string) (*Record, error) {
	player = strings.TrimSpace(player)
	return m.apply(ctx, "chess_resign", id, func(rec *Record) error {
		c, ok := rec.Game.ColorOf(chess.PlayerID(player))
		if !ok {
			return chess.ErrNotSeated
		}
		return rec.Game.Resign(c, chess.PlayerID(strings.TrimSpace(adversary)))
	})
}

// OfferDraw records player's offer; matching offers end the game drawn.
func (m *Manager) OfferDraw(ctx context.Context, id, player, adversary string) (*Record, error) {
	player = strings.TrimSpace(player)
	rec, err := m.apply(ctx, "chess_offer_draw", id, func(rec *Record) error {
		c, ok := rec.Game.ColorOf(chess.PlayerID(player))
		if !ok {
			return chess.ErrNotSeated
		}
		return rec.Game.OfferDraw(c, chess.PlayerID(strings.TrimSpace(adversary)))
	})
	if err != nil {
		return nil, err
	}
	obslog.L().Info("chess_offer_draw",
		zap.String("game_id", rec.ID),
		zap.String("player", player),
		zap.String("draw_state", rec.Game.DrawState().String()),
	)
	return rec, nil
}

// CheckTimer forfeits the side to move when its clock has run out.
func (m *Manager) CheckTimer(ctx context.Context, id string) (*Record, error) {
	return m.apply(ctx, "chess_check_timer", id, func(rec *Record) error {
		return rec.Game.CheckTimer(m.now())
	})
}

// LoadGame returns the game by ID, or (nil, nil) when it does not exist.
func (m *Manager) LoadGame(ctx context.Context, id string) (*Record, error) {
	if m == nil || m.rdb == nil {
		return nil, fmt.Errorf("chess manager not initialized")
	}
	return m.store.Load(ctx, id)
}

func (m *Manager) LobbyGameIDs(ctx context.Context) ([]string, error) {
	return m.store.LobbyIDs(ctx)
}

func (m *Manager) ActiveGameIDs(ctx context.Context) ([]string, error) {
	return m.store.ActiveIDs(ctx)
}

// GamesByPlayer lists the player's stored games, most recently updated first.
func (m *Manager) GamesByPlayer(ctx context.Context, player string) ([]*Record, error) {
	player = strings.TrimSpace(player)
	if player == "" {
		return nil, nil
	}
	ids, err := m.store.IDsByUser(ctx, player)
	if err != nil {
		return nil, err
	}
	var list []*Record
	for _, id := range ids {
		rec, err := m.store.Load(ctx, id)
		if err != nil || rec == nil {
			continue
		}
		if _, seated := rec.Game.ColorOf(chess.PlayerID(player)); seated {
			list = append(list, rec)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].UpdatedAt.After(list[j].UpdatedAt) })
	return list, nil
}

// apply runs fn against the freshest copy of the game and commits the result
// atomically. A write that races another one is retried.
func (m *Manager) apply(ctx context.Context, event, id string, fn func(rec *Record) error) (*Record, error) {
	if m == nil || m.rdb == nil {
		return nil, fmt.Errorf("chess manager not initialized")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrInvalidArgs
	}
	key := m.store.keyGame(id)

	var (
		out   *Record
		ended bool
	)
	txf := func(tx *redis.Tx) error {
		cur, err := m.store.load(ctx, tx, id)
		if err != nil {
			return err
		}
		if cur == nil {
			return ErrGameNotFound
		}
		wasTerminal := cur.Game.State().Terminal()
		if err := fn(cur); err != nil {
			return err
		}
		cur.UpdatedAt = m.now()
		cur.Version++
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			return m.store.write(ctx, pipe, cur, m.ttl)
		})
		if err != nil {
			return err
		}
		out = cur
		ended = !wasTerminal && cur.Game.State().Terminal()
		return nil
	}

	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err := m.rdb.Watch(ctx, txf, key)
		if err == nil {
			if ended {
				m.finish(ctx, out)
			}
			return out, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return nil, err
		}
		obslog.L().Warn("chess_tx_conflict", zap.String("event", event), zap.String("game_id", id), zap.Int("attempt", attempt))
	}
	return nil, ErrConcurrentUpdate
}

// finish emits the outcome signal and persists the result of a game that just ended.
func (m *Manager) finish(ctx context.Context, rec *Record) {
	outcome, ok := rec.Game.Outcome()
	if !ok {
		return
	}
	white, _ := rec.Game.Seat(chess.White)
	black, _ := rec.Game.Seat(chess.Black)
	ev := OutcomeEvent{
		GameID:  rec.ID,
		WhiteID: string(white),
		BlackID: string(black),
		Outcome: outcome,
		Config:  rec.Game.Config(),
		EndedAt: rec.UpdatedAt,
	}
	obslog.L().Info("chess_game_finish",
		zap.String("game_id", rec.ID),
		zap.String("state", rec.Game.State().String()),
		zap.String("termination", string(outcome.Termination)),
		zap.String("winner", outcome.Winner.String()),
		zap.Bool("wager_present", outcome.WagerPresent),
		zap.Bool("rated", outcome.Rated),
	)
	if raw, err := json.Marshal(ev); err == nil {
		if err := m.rdb.Publish(ctx, m.channel, raw).Err(); err != nil {
			obslog.L().Error("chess_outcome_publish_error", zap.String("game_id", rec.ID), zap.Error(err))
		}
	}
	_ = m.persistIfFinal(ctx, rec)
}

// SubscribeOutcomes streams outcome events until ctx ends or the returned close func is called.
func (m *Manager) SubscribeOutcomes(ctx context.Context) (<-chan OutcomeEvent, func() error, error) {
	ps := m.rdb.Subscribe(ctx, m.channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, fmt.Errorf("subscribe %s: %w", m.channel, err)
	}
	out := make(chan OutcomeEvent, 16)
	go func() {
		defer close(out)
		for msg := range ps.Channel() {
			var ev OutcomeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				obslog.L().Warn("chess_outcome_decode_error", zap.Error(err))
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, ps.Close, nil
}

// persistIfFinal saves the final game result to the repository if one is attached.
func (m *Manager) persistIfFinal(ctx context.Context, rec *Record) error {
	if m == nil || m.repo == nil || rec == nil {
		return nil
	}
	res := resultFromRecord(rec)
	if res == nil {
		return nil
	}
	if err := m.repo.SaveResult(ctx, res); err != nil {
		obslog.L().Error("chess_result_persist_error", zap.String("game_id", rec.ID), zap.String("result", res.Result), zap.Error(err))
		return err
	}
	obslog.L().Info("chess_result_persist", zap.String("game_id", rec.ID), zap.String("result", res.Result), zap.String("termination", res.Termination))
	return nil
}

// ParseMove reads "e2e4", "e2-e4" or "e7e8q". Only queen promotion exists, so any
// other promotion suffix is rejected.
func ParseMove(raw string) (chess.Square, chess.Square, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	v = strings.ReplaceAll(v, "-", "")
	if len(v) == 5 && v[4] == 'q' {
		v = v[:4]
	}
	if len(v) != 4 {
		return chess.NoSquare, chess.NoSquare, ErrBadNotation
	}
	from, err := chess.ParseSquare(v[:2])
	if err != nil {
		return chess.NoSquare, chess.NoSquare, ErrBadNotation
	}
	to, err := chess.ParseSquare(v[2:])
	if err != nil {
		return chess.NoSquare, chess.NoSquare, ErrBadNotation
	}
	return from, to, nil
}

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}
