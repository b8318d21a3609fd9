package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"CricketSync/internal/interfaces"
	"CricketSync/internal/model"
)

// MemoryStore 进程内存储（database.driver=memory），语义与 gorm 实现一致
type MemoryStore struct {
	mu          sync.RWMutex
	matches     map[string]*model.Match
	nextScoreID uint64
}

var _ interfaces.MatchRepository = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{matches: make(map[string]*model.Match)}
}

func (s *MemoryStore) SaveMatch(ctx context.Context, match *model.Match, scores []model.Score, replaceScores bool) (*model.Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	row := match.Clone()
	row.Scores = nil
	row.CreatedAt = now
	row.UpdatedAt = now
	if existing, ok := s.matches[match.ID]; ok {
		row.CreatedAt = existing.CreatedAt
		if !replaceScores {
			row.Scores = existing.Scores
		}
	}

	if replaceScores {
		row.Scores = make([]model.Score, 0, len(scores))
		for _, sc := range scores {
			s.nextScoreID++
			sc.ID = s.nextScoreID
			sc.MatchID = match.ID
			row.Scores = append(row.Scores, sc)
		}
	}
	if row.Scores == nil {
		row.Scores = []model.Score{}
	}

	s.matches[match.ID] = row
	return row.Clone(), nil
}

func (s *MemoryStore) ListMatches(ctx context.Context) ([]*model.Match, error) {
	return s.list(func(*model.Match) bool { return true }), nil
}

func (s *MemoryStore) ListCurrentMatches(ctx context.Context) ([]*model.Match, error) {
	return s.list(func(m *model.Match) bool { return m.Status != model.StatusNotStarted }), nil
}

func (s *MemoryStore) GetMatch(ctx context.Context, id string) (*model.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.matches[id]
	if !ok {
		return nil, ErrMatchNotFound
	}
	return m.Clone(), nil
}

func (s *MemoryStore) list(keep func(*model.Match) bool) []*model.Match {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Match, 0, len(s.matches))
	for _, m := range s.matches {
		if keep(m) {
			out = append(out, m.Clone())
		}
	}
	// 与 gorm 实现相同的排序：date_time_gmt DESC, id ASC
	sort.Slice(out, func(i, j int) bool {
		if out[i].DateTimeGMT != out[j].DateTimeGMT {
			return out[i].DateTimeGMT > out[j].DateTimeGMT
		}
		return out[i].ID < out[j].ID
	})
	return out
}
