package service

import (
	"context"
	"errors"

	"CricketSync/internal/adapter/cricapi"
	"CricketSync/internal/interfaces"
	"CricketSync/internal/logging"
	"CricketSync/internal/model"

	"github.com/sirupsen/logrus"
)

// OutcomeKind 单场比赛同步结果
type OutcomeKind int

const (
	OutcomeUpdated OutcomeKind = iota + 1 // 已写入，需要广播
	OutcomeSkipped                        // 本周期无数据（详情拉取失败/拿不到锁），不写库不广播
	OutcomeFailed                         // 写库失败，下个周期重试
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeUpdated:
		return "updated"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome Reconcile 的返回值；Updated 时 Match 为写库后的记录（含比分）
type Outcome struct {
	Kind    OutcomeKind
	MatchID string
	Match   *model.Match
	Err     error
}

// Reconciler 拉取单场详情 → 映射 → upsert 比赛 + 整体替换比分
// 不负责广播，由调度器在 Updated 后发布
type Reconciler struct {
	provider interfaces.MatchProvider
	store    interfaces.MatchStore
	locker   interfaces.MatchLocker
	logger   *logrus.Logger
}

// NewReconciler locker 可为 nil（不加锁）
func NewReconciler(provider interfaces.MatchProvider, store interfaces.MatchStore, locker interfaces.MatchLocker, logger *logrus.Logger) *Reconciler {
	return &Reconciler{
		provider: provider,
		store:    store,
		locker:   locker,
		logger:   logger,
	}
}

func (r *Reconciler) Reconcile(ctx context.Context, summary model.MatchSummary) Outcome {
	id := summary.ID
	log := r.logger.WithField(logging.FieldMatchID, id)
	if id == "" {
		log.Warn("比赛列表条目缺少id，跳过")
		return Outcome{Kind: OutcomeSkipped, Err: errors.New("empty match id")}
	}

	if r.locker != nil {
		unlock, err := r.locker.Lock(ctx, id)
		if err != nil {
			log.WithError(err).Warn("获取比赛同步锁失败，跳过")
			return Outcome{Kind: OutcomeSkipped, MatchID: id, Err: err}
		}
		defer unlock()
	}

	// 1. 拉取详情，失败即本周期跳过
	detail, err := r.provider.FetchMatchDetails(ctx, id)
	if err != nil {
		log.WithError(err).Warn("拉取比赛详情失败，跳过")
		return Outcome{Kind: OutcomeSkipped, MatchID: id, Err: err}
	}

	// 2. 映射
	mapped := cricapi.MapMatch(id, detail)
	for _, rejected := range mapped.Rejected {
		log.WithError(rejected.Err).WithField("inning", rejected.Label).Warn("比分局数标签无法解析，跳过该条")
	}

	// 3. 写库（事务内 upsert + 替换比分）
	saved, err := r.store.SaveMatch(ctx, mapped.Match, mapped.Scores, mapped.HasScores)
	if err != nil {
		log.WithError(err).Error("比赛写库失败，下个周期重试")
		return Outcome{Kind: OutcomeFailed, MatchID: id, Err: err}
	}

	log.WithFields(logrus.Fields{
		"status":           saved.Status,
		logging.FieldCount: len(mapped.Scores),
		"scores_replaced":  mapped.HasScores,
	}).Debug("比赛同步完成")
	return Outcome{Kind: OutcomeUpdated, MatchID: id, Match: saved}
}
