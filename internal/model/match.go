package model

import (
	"time"
)

// StatusNotStarted 未开赛状态文案（current-matches 查询据此过滤）
const StatusNotStarted = "Match not started"

// Match 比赛主表，id 为数据源分配的比赛ID
type Match struct {
	ID          string    `gorm:"column:id;type:varchar(64);primaryKey;comment:数据源比赛ID" json:"id"`
	Name        string    `gorm:"column:name;type:varchar(256);comment:比赛名称" json:"name"`
	MatchType   string    `gorm:"column:match_type;type:varchar(32);comment:赛制 t20/odi/test" json:"matchType"`
	Status      string    `gorm:"column:status;type:varchar(256);index;comment:状态文案" json:"status"`
	Venue       string    `gorm:"column:venue;type:varchar(256);comment:场地" json:"venue"`
	Date        string    `gorm:"column:date;type:varchar(32);comment:比赛日期" json:"date"`
	DateTimeGMT string    `gorm:"column:date_time_gmt;type:varchar(32);comment:GMT开赛时间" json:"dateTimeGMT"`
	Team1       string    `gorm:"column:team1;type:varchar(128)" json:"team1"`
	Team2       string    `gorm:"column:team2;type:varchar(128)" json:"team2"`
	Team1Img    string    `gorm:"column:team1_img;type:varchar(512)" json:"team1Img"`
	Team2Img    string    `gorm:"column:team2_img;type:varchar(512)" json:"team2Img"`
	Scores      []Score   `gorm:"foreignKey:MatchID;references:ID" json:"score"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"-"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime" json:"-"`
}

// Score 单局比分，每次同步整体替换
type Score struct {
	ID      uint64  `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	MatchID string  `gorm:"column:match_id;type:varchar(64);index;not null;comment:关联比赛ID" json:"matchId"`
	Team    string  `gorm:"column:team;type:varchar(128);not null" json:"team"`
	Inning  int     `gorm:"column:inning;type:int;not null;comment:第几局" json:"inning"`
	Runs    int     `gorm:"column:runs;type:int;default:0" json:"runs"`
	Wickets int     `gorm:"column:wickets;type:int;default:0" json:"wickets"`
	Overs   float64 `gorm:"column:overs;type:numeric(6,1);default:0" json:"overs"`
}

func (Match) TableName() string { return "matches" }
func (Score) TableName() string { return "scores" }

// Clone 深拷贝（内存存储和广播时使用，避免共享切片）
func (m *Match) Clone() *Match {
	if m == nil {
		return nil
	}
	c := *m
	if m.Scores != nil {
		c.Scores = make([]Score, len(m.Scores))
		copy(c.Scores, m.Scores)
	}
	return &c
}
