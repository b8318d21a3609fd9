package cricapi

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"CricketSync/internal/model"
)

// inningSeparator 局数标签分隔符："<team> Inning <n>"
const inningSeparator = " Inning "

// ErrMalformedInning 局数标签无法解析
var ErrMalformedInning = errors.New("malformed inning label")

// LabelError 单条比分标签解析失败（只跳过该条）
type LabelError struct {
	Index int
	Label string
	Err   error
}

func (e LabelError) Error() string {
	return fmt.Sprintf("score[%d] %q: %v", e.Index, e.Label, e.Err)
}

func (e LabelError) Unwrap() error { return e.Err }

// Mapped 详情映射结果
// HasScores 为 false 表示详情中没有 score 字段，此时不得替换已有比分
type Mapped struct {
	Match     *model.Match
	Scores    []model.Score
	HasScores bool
	Rejected  []LabelError
}

// MapMatch 把比赛详情映射为 Match + Score，纯函数
// 队徽按下标与 teams 配对，teamInfo 缺失/过短/为 null 时取空字符串
func MapMatch(id string, d *model.MatchDetail) Mapped {
	if d == nil {
		return Mapped{Match: &model.Match{ID: id}}
	}

	m := &model.Match{
		ID:          id,
		Name:        d.Name,
		MatchType:   d.MatchType,
		Status:      d.Status,
		Venue:       d.Venue,
		Date:        d.Date,
		DateTimeGMT: d.DateTimeGMT,
		Team1:       indexOr(d.Teams, 0),
		Team2:       indexOr(d.Teams, 1),
		Team1Img:    teamImg(d.TeamInfo, 0),
		Team2Img:    teamImg(d.TeamInfo, 1),
	}

	out := Mapped{Match: m}
	if d.Score == nil {
		return out
	}

	out.HasScores = true
	out.Scores = make([]model.Score, 0, len(d.Score))
	for i, entry := range d.Score {
		team, inning, err := ParseInningLabel(entry.Inning)
		if err != nil {
			out.Rejected = append(out.Rejected, LabelError{Index: i, Label: entry.Inning, Err: err})
			continue
		}
		out.Scores = append(out.Scores, model.Score{
			MatchID: id,
			Team:    team,
			Inning:  inning,
			Runs:    entry.R,
			Wickets: entry.W,
			Overs:   entry.O,
		})
	}
	return out
}

// ParseInningLabel 解析 "India Inning 2" → ("India", 2)
func ParseInningLabel(label string) (string, int, error) {
	before, after, found := strings.Cut(label, inningSeparator)
	if !found {
		return "", 0, fmt.Errorf("%w: missing %q", ErrMalformedInning, strings.TrimSpace(inningSeparator))
	}
	team := strings.TrimSpace(before)
	if team == "" {
		return "", 0, fmt.Errorf("%w: empty team", ErrMalformedInning)
	}
	n, err := strconv.Atoi(strings.TrimSpace(after))
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrMalformedInning, err)
	}
	if n <= 0 {
		return "", 0, fmt.Errorf("%w: inning must be positive, got %d", ErrMalformedInning, n)
	}
	return team, n, nil
}

func indexOr(values []string, i int) string {
	if i < len(values) {
		return values[i]
	}
	return ""
}

func teamImg(info []*model.TeamInfo, i int) string {
	if i < len(info) && info[i] != nil {
		return info[i].Img
	}
	return ""
}
