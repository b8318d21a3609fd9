package model

// ========== CricAPI 响应结构（https://api.cricapi.com/v1） ==========

// CricAPIResponse 通用响应信封，data 为列表或单个对象
type CricAPIResponse[T any] struct {
	APIKey string       `json:"apikey"`
	Data   T            `json:"data"`
	Status string       `json:"status"` // success / failure
	Reason string       `json:"reason"` // 失败原因（status=failure 时）
	Info   *CricAPIInfo `json:"info"`
}

// CricAPIInfo 配额信息
type CricAPIInfo struct {
	HitsToday  int     `json:"hitsToday"`
	HitsUsed   int     `json:"hitsUsed"`
	HitsLimit  int     `json:"hitsLimit"`
	Credits    int     `json:"credits"`
	Server     int     `json:"server"`
	OffsetRows int     `json:"offsetRows"`
	TotalRows  int     `json:"totalRows"`
	QueryTime  float64 `json:"queryTime"`
}

// MatchSummary 比赛列表中的单条记录（只用到 id，其余字段仅供日志）
type MatchSummary struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	MatchType   string   `json:"matchType"`
	Status      string   `json:"status"`
	Venue       string   `json:"venue"`
	Date        string   `json:"date"`
	DateTimeGMT string   `json:"dateTimeGMT"`
	Teams       []string `json:"teams"`
}

// MatchDetail match_info 返回的比赛详情
// Score 为 nil 表示响应中没有 score 字段（此时不替换已有比分）
type MatchDetail struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	MatchType   string       `json:"matchType"`
	Status      string       `json:"status"`
	Venue       string       `json:"venue"`
	Date        string       `json:"date"`
	DateTimeGMT string       `json:"dateTimeGMT"`
	Teams       []string     `json:"teams"`
	TeamInfo    []*TeamInfo  `json:"teamInfo"`
	Score       []ScoreEntry `json:"score"`
}

// TeamInfo 球队信息，img 为队徽地址
type TeamInfo struct {
	Name      string `json:"name"`
	ShortName string `json:"shortname"`
	Img       string `json:"img"`
}

// ScoreEntry 单局比分，inning 形如 "India Inning 1"
type ScoreEntry struct {
	R      int     `json:"r"`
	W      int     `json:"w"`
	O      float64 `json:"o"`
	Inning string  `json:"inning"`
}
