package interfaces

import (
	"context"

	"CricketSync/internal/model"
)

// MatchPublisher 比赛更新广播，fire-and-forget，不保证送达
type MatchPublisher interface {
	Publish(ctx context.Context, match *model.Match)
}

// MatchLocker 单场比赛同步互斥，防止两个周期交错删除/插入同一场比分
type MatchLocker interface {
	// Lock 获取锁，返回的 unlock 必须调用；拿不到锁返回 error
	Lock(ctx context.Context, matchID string) (unlock func(), err error)
}
