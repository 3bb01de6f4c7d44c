package pvpchess

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/park285/wager-chess/internal/chess"
	"github.com/redis/go-redis/v9"
)

const (
	defaultTTL = 24 * time.Hour
)

// Store owns key layout and index bookkeeping for hosted games.
type Store struct{ rdb *redis.Client }

func NewStore(rdb *redis.Client) *Store { return &Store{rdb: rdb} }

func (s *Store) keyGame(id string) string      { return "chess:game:" + strings.TrimSpace(id) }
func (s *Store) keyUserIdx(user string) string { return "chess:index:user:" + strings.TrimSpace(user) }
func (s *Store) keyLobby() string              { return "chess:lobby" }
func (s *Store) keyActive() string             { return "chess:active" }

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *Store) load(ctx context.Context, r getter, id string) (*Record, error) {
	raw, err := r.Get(ctx, s.keyGame(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	if rec.Game == nil {
		return nil, errors.New("stored game record has no game state")
	}
	return &rec, nil
}

// Load reads a record outside any transaction. Missing games yield (nil, nil).
func (s *Store) Load(ctx context.Context, id string) (*Record, error) {
	return s.load(ctx, s.rdb, id)
}

// write queues the record and its index updates on pipe.
func (s *Store) write(ctx context.Context, pipe redis.Pipeliner, rec *Record, ttl time.Duration) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	pipe.Set(ctx, s.keyGame(rec.ID), raw, ttl)

	state := rec.Game.State()
	switch {
	case state.Terminal():
		pipe.SRem(ctx, s.keyLobby(), rec.ID)
		pipe.SRem(ctx, s.keyActive(), rec.ID)
	case state.InProgress():
		pipe.SRem(ctx, s.keyLobby(), rec.ID)
		pipe.SAdd(ctx, s.keyActive(), rec.ID)
		pipe.Expire(ctx, s.keyActive(), ttl)
	default:
		pipe.SAdd(ctx, s.keyLobby(), rec.ID)
		pipe.Expire(ctx, s.keyLobby(), ttl)
	}

	for _, id := range seatedPlayers(rec) {
		pipe.SAdd(ctx, s.keyUserIdx(id), rec.ID)
		pipe.Expire(ctx, s.keyUserIdx(id), ttl)
	}
	return nil
}

// RemoveUserIndex forgets a game for a player who left it.
func (s *Store) RemoveUserIndex(ctx context.Context, user, id string) error {
	if strings.TrimSpace(user) == "" {
		return nil
	}
	return s.rdb.SRem(ctx, s.keyUserIdx(user), id).Err()
}

func (s *Store) LobbyIDs(ctx context.Context) ([]string, error) {
	return s.sortedMembers(ctx, s.keyLobby())
}

func (s *Store) ActiveIDs(ctx context.Context) ([]string, error) {
	return s.sortedMembers(ctx, s.keyActive())
}

func (s *Store) IDsByUser(ctx context.Context, user string) ([]string, error) {
	return s.sortedMembers(ctx, s.keyUserIdx(user))
}

func (s *Store) sortedMembers(ctx context.Context, key string) ([]string, error) {
	ids, err := s.rdb.SMembers(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}

func seatedPlayers(rec *Record) []string {
	var out []string
	for _, c := range []chess.Color{chess.White, chess.Black} {
		if id, ok := rec.Game.Seat(c); ok {
			out = append(out, string(id))
		}
	}
	return out
}
