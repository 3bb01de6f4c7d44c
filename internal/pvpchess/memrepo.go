package pvpchess

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/park285/wager-chess/internal/domain"
)

// memrepo is a development-only in-memory result store used when no DB is configured.
type memrepo struct {
	mu sync.RWMutex

	nextID int64

	byGame map[string]*domain.GameResult
}

func NewMemoryRepository() ResultRepository {
	return &memrepo{byGame: make(map[string]*domain.GameResult)}
}

func (m *memrepo) SaveResult(ctx context.Context, res *domain.GameResult) error {
	if res == nil {
		return nil
	}
	key := strings.TrimSpace(res.GameID)

	m.mu.Lock()
	defer m.mu.Unlock()

	copy := *res
	copy.Moves = append([]string(nil), res.Moves...)
	if prev, ok := m.byGame[key]; ok {
		copy.ID = prev.ID
	} else {
		m.nextID++
		copy.ID = m.nextID
	}
	m.byGame[key] = &copy
	return nil
}

func (m *memrepo) RecentResults(ctx context.Context, player string, limit int) ([]*domain.GameResult, error) {
	player = strings.TrimSpace(player)

	m.mu.RLock()
	defer m.mu.RUnlock()

	var items []*domain.GameResult
	for _, r := range m.byGame {
		if r.Involves(player) {
			copy := *r
			items = append(items, &copy)
		}
	}
	// EndedAt desc, then ID desc
	sort.Slice(items, func(i, j int) bool {
		if !items[i].EndedAt.Equal(items[j].EndedAt) {
			return items[i].EndedAt.After(items[j].EndedAt)
		}
		return items[i].ID > items[j].ID
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}
