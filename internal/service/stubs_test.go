package service

import (
	"context"
	"errors"
	"sync"

	"CricketSync/internal/model"
	"CricketSync/internal/repository"
)

type stubProvider struct {
	mu          sync.Mutex
	all         []model.MatchSummary
	current     []model.MatchSummary
	listErr     error
	details     map[string]*model.MatchDetail
	detailErrs  map[string]error
	detailCalls []string
	// block 非 nil 时列表请求阻塞到 block 关闭
	block chan struct{}
}

func (p *stubProvider) list(ctx context.Context, out []model.MatchSummary) ([]model.MatchSummary, error) {
	if p.block != nil {
		select {
		case <-p.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.listErr != nil {
		return nil, p.listErr
	}
	return out, nil
}

func (p *stubProvider) FetchAllMatches(ctx context.Context) ([]model.MatchSummary, error) {
	return p.list(ctx, p.all)
}

func (p *stubProvider) FetchCurrentMatches(ctx context.Context) ([]model.MatchSummary, error) {
	return p.list(ctx, p.current)
}

func (p *stubProvider) FetchMatchDetails(_ context.Context, id string) (*model.MatchDetail, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.detailCalls = append(p.detailCalls, id)
	if err := p.detailErrs[id]; err != nil {
		return nil, err
	}
	d, ok := p.details[id]
	if !ok {
		return nil, errors.New("no detail")
	}
	return d, nil
}

func (p *stubProvider) calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.detailCalls...)
}

type recordingPublisher struct {
	mu      sync.Mutex
	matches []*model.Match
}

func (p *recordingPublisher) Publish(_ context.Context, m *model.Match) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.matches = append(p.matches, m)
}

func (p *recordingPublisher) ids() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.matches))
	for _, m := range p.matches {
		out = append(out, m.ID)
	}
	return out
}

// failingStore 对指定比赛返回写库错误，其余委托给内存存储
type failingStore struct {
	*repository.MemoryStore
	failFor map[string]bool
}

func (s *failingStore) SaveMatch(ctx context.Context, m *model.Match, scores []model.Score, replace bool) (*model.Match, error) {
	if s.failFor[m.ID] {
		return nil, errors.New("write failed")
	}
	return s.MemoryStore.SaveMatch(ctx, m, scores, replace)
}

func summaries(ids ...string) []model.MatchSummary {
	out := make([]model.MatchSummary, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.MatchSummary{ID: id})
	}
	return out
}

func liveDetail(name string) *model.MatchDetail {
	return &model.MatchDetail{
		Name:     name,
		Status:   "Live",
		Teams:    []string{"A", "B"},
		TeamInfo: []*model.TeamInfo{{Img: "u1"}, {Img: "u2"}},
		Score:    []model.ScoreEntry{{Inning: "A Inning 1", R: 100, W: 2, O: 12}},
	}
}
