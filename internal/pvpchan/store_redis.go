package pvpchan

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const ttlChannel = 24 * time.Hour

type Store struct{ rdb *redis.Client }

func NewStore(rdb *redis.Client) *Store { return &Store{rdb: rdb} }

func (s *Store) keyMeta(code string) string         { return "ch:" + strings.TrimSpace(code) }
func (s *Store) keyRooms(code string) string        { return s.keyMeta(code) + ":rooms" }
func (s *Store) keyParticipants(code string) string { return s.keyMeta(code) + ":participants" }
func (s *Store) keyUserIdx(user string) string      { return "ch:index:user:" + strings.TrimSpace(user) }
func (s *Store) keyLobby() string                   { return "ch:lobby" }

// Reserve claims a fresh code; ok is false when the code is already taken.
func (s *Store) Reserve(ctx context.Context, code string) (bool, error) {
	return s.rdb.SetNX(ctx, s.keyMeta(code), "{}", ttlChannel).Result()
}

func (s *Store) SaveMeta(ctx context.Context, meta *ChannelMeta) error {
	raw, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.keyMeta(meta.ID), raw, ttlChannel)
		pipe.Expire(ctx, s.keyRooms(meta.ID), ttlChannel)
		pipe.Expire(ctx, s.keyParticipants(meta.ID), ttlChannel)
		if meta.State == StateLobby {
			pipe.SAdd(ctx, s.keyLobby(), meta.ID)
			pipe.Expire(ctx, s.keyLobby(), ttlChannel)
		} else {
			pipe.SRem(ctx, s.keyLobby(), meta.ID)
		}
		return nil
	})
	return err
}

func (s *Store) LoadMeta(ctx context.Context, code string) (*ChannelMeta, error) {
	raw, err := s.rdb.Get(ctx, s.keyMeta(code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var m ChannelMeta
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	if m.ID == "" {
		// reserved but not yet written
		return nil, nil
	}
	return &m, nil
}

// addParticipant queues the participant, room and user index writes on pipe.
func (s *Store) addParticipant(ctx context.Context, pipe redis.Pipeliner, code, room, user string) {
	pipe.SAdd(ctx, s.keyParticipants(code), user)
	pipe.Expire(ctx, s.keyParticipants(code), ttlChannel)
	if strings.TrimSpace(room) != "" {
		pipe.SAdd(ctx, s.keyRooms(code), room)
		pipe.Expire(ctx, s.keyRooms(code), ttlChannel)
	}
	pipe.SAdd(ctx, s.keyUserIdx(user), code)
	pipe.Expire(ctx, s.keyUserIdx(user), ttlChannel)
}

func (s *Store) removeParticipant(ctx context.Context, code, user string) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SRem(ctx, s.keyParticipants(code), user)
		pipe.SRem(ctx, s.keyUserIdx(user), code)
		return nil
	})
	return err
}

func (s *Store) Rooms(ctx context.Context, code string) ([]string, error) {
	rooms, err := s.rdb.SMembers(ctx, s.keyRooms(code)).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(rooms)
	return rooms, nil
}

func (s *Store) CodesByUser(ctx context.Context, user string) ([]string, error) {
	return s.rdb.SMembers(ctx, s.keyUserIdx(user)).Result()
}

func (s *Store) ListLobby(ctx context.Context) ([]*ChannelMeta, error) {
	codes, err := s.rdb.SMembers(ctx, s.keyLobby()).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(codes)
	var out []*ChannelMeta
	for _, c := range codes {
		m, err := s.LoadMeta(ctx, c)
		if err != nil || m == nil || m.State != StateLobby {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// codeGen returns "CH-" followed by 6 upper-case alphanumerics.
func codeGen() (string, error) {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = letters[int(b[i])%len(letters)]
	}
	return fmt.Sprintf("CH-%s", b), nil
}
