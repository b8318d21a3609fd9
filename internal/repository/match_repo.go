package repository

import (
	"context"
	"errors"
	"fmt"

	"CricketSync/internal/interfaces"
	"CricketSync/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrMatchNotFound 比赛不存在
var ErrMatchNotFound = errors.New("match not found")

// matchUpdateColumns upsert 冲突时覆盖的列（除主键外全部）
var matchUpdateColumns = []string{
	"name", "match_type", "status", "venue", "date", "date_time_gmt",
	"team1", "team2", "team1_img", "team2_img", "updated_at",
}

type matchRepository struct {
	db *gorm.DB
}

// NewMatchRepository gorm 实现的比赛仓储
func NewMatchRepository(db *gorm.DB) interfaces.MatchRepository {
	return &matchRepository{db: db}
}

// SaveMatch 事务内 upsert 比赛，并按需整体替换比分；任何一步失败整体回滚
func (r *matchRepository) SaveMatch(ctx context.Context, match *model.Match, scores []model.Score, replaceScores bool) (*model.Match, error) {
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("开启事务失败: %w", tx.Error)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	// 1. upsert Match（关联的 Scores 单独处理）
	row := *match
	row.Scores = nil
	if err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(matchUpdateColumns),
	}).Create(&row).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("保存Match失败: %w, id: %s", err, match.ID)
	}

	// 2. 整体替换比分：先删后插
	if replaceScores {
		if err := tx.Where("match_id = ?", match.ID).Delete(&model.Score{}).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("删除Score失败: %w, match_id: %s", err, match.ID)
		}
		if len(scores) > 0 {
			rows := make([]model.Score, len(scores))
			for i, s := range scores {
				s.ID = 0
				s.MatchID = match.ID
				rows[i] = s
			}
			if err := tx.Create(&rows).Error; err != nil {
				tx.Rollback()
				return nil, fmt.Errorf("保存Score失败: %w, match_id: %s", err, match.ID)
			}
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("提交事务失败: %w", err)
	}
	return r.GetMatch(ctx, match.ID)
}

func (r *matchRepository) ListMatches(ctx context.Context) ([]*model.Match, error) {
	return r.list(ctx, nil)
}

// ListCurrentMatches 排除未开赛的比赛
func (r *matchRepository) ListCurrentMatches(ctx context.Context) ([]*model.Match, error) {
	return r.list(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("status <> ?", model.StatusNotStarted)
	})
}

func (r *matchRepository) GetMatch(ctx context.Context, id string) (*model.Match, error) {
	var m model.Match
	if err := r.withScores(r.db.WithContext(ctx)).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	normalizeScores(&m)
	return &m, nil
}

func (r *matchRepository) list(ctx context.Context, scope func(db *gorm.DB) *gorm.DB) ([]*model.Match, error) {
	db := r.withScores(r.db.WithContext(ctx))
	if scope != nil {
		db = db.Scopes(scope)
	}
	var list []*model.Match
	if err := db.Order("date_time_gmt DESC").Order("id ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	if list == nil {
		list = []*model.Match{}
	}
	for _, m := range list {
		normalizeScores(m)
	}
	return list, nil
}

func (r *matchRepository) withScores(db *gorm.DB) *gorm.DB {
	return db.Preload("Scores", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	})
}

// normalizeScores 没有比分时返回空数组而不是 null
func normalizeScores(m *model.Match) {
	if m.Scores == nil {
		m.Scores = []model.Score{}
	}
}
