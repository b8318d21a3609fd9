package interfaces

import (
	"context"

	"CricketSync/internal/model"
)

// MatchStore 比赛写入接口，只由 Reconciler 使用
type MatchStore interface {
	// SaveMatch 在一个事务内 upsert 比赛；replaceScores 为 true 时先删除该比赛全部比分再插入 scores
	SaveMatch(ctx context.Context, match *model.Match, scores []model.Score, replaceScores bool) (*model.Match, error)
}

// MatchReader 只读查询接口（HTTP 查询接口使用）
type MatchReader interface {
	ListMatches(ctx context.Context) ([]*model.Match, error)
	ListCurrentMatches(ctx context.Context) ([]*model.Match, error)
	GetMatch(ctx context.Context, id string) (*model.Match, error)
}

// MatchRepository 读写合一
type MatchRepository interface {
	MatchStore
	MatchReader
}
