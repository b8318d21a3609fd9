package interfaces

import (
	"context"

	"CricketSync/internal/model"
)

// MatchProvider 比赛数据源必须实现的接口
// 任何网络/解析失败都返回 error 且不返回数据，调用方按“本周期无数据”处理
type MatchProvider interface {
	// FetchAllMatches 全部比赛（仅第一页）
	FetchAllMatches(ctx context.Context) ([]model.MatchSummary, error)
	// FetchCurrentMatches 数据源认为正在进行的比赛
	FetchCurrentMatches(ctx context.Context) ([]model.MatchSummary, error)
	// FetchMatchDetails 单场比赛详情
	FetchMatchDetails(ctx context.Context, id string) (*model.MatchDetail, error)
}
