// Package cno 维护自比对得分表（Scoreboard）并为簇成员求解最近非直系同源（CNO）。
package cno

import (
	"fmt"
	"math"

	"orthoref/pkg/contract"
)

// Thresholds: 入表阈值。
type Thresholds struct {
	ScoreCutoff    float64 `yaml:"score_cutoff" validate:"gte=0"`
	OverlapCutoff  float64 `yaml:"overlap_cutoff" validate:"gte=0,lte=1"`
	CoverageCutoff float64 `yaml:"coverage_cutoff" validate:"gte=0,lte=1"`
}

// DefaultThresholds 返回默认阈值 50 / 0.5 / 0.25。
func DefaultThresholds() Thresholds {
	return Thresholds{ScoreCutoff: 50, OverlapCutoff: 0.5, CoverageCutoff: 0.25}
}

// Validate 校验阈值取值范围。
func (t Thresholds) Validate() error {
	if t.ScoreCutoff < 0 || math.IsNaN(t.ScoreCutoff) {
		return fmt.Errorf("score_cutoff %v: %w", t.ScoreCutoff, contract.ErrInvalidInput)
	}
	for name, v := range map[string]float64{"overlap_cutoff": t.OverlapCutoff, "coverage_cutoff": t.CoverageCutoff} {
		if v < 0 || v > 1 || math.IsNaN(v) {
			return fmt.Errorf("%s %v: %w", name, v, contract.ErrInvalidInput)
		}
	}
	return nil
}

// Verdict: Ingest 对单行的处理结论。
type Verdict int

const (
	Stored Verdict = iota
	Ignored
	FailedCoverage
	BelowCutoff
)

func (v Verdict) String() string {
	switch v {
	case Stored:
		return "stored"
	case Ignored:
		return "ignored"
	case FailedCoverage:
		return "coverage"
	case BelowCutoff:
		return "below_cutoff"
	default:
		return "unknown"
	}
}

// Candidate: 某 query 的一个候选及其取整得分。
type Candidate struct {
	ID    string
	Score int
}

// entry: 按插入顺序保存候选；覆盖写保持原位置。
type entry struct {
	order []string
	score map[string]int
}

// Scoreboard: query → (candidate → score)，两层均保持插入顺序。
// 构建阶段单协程写入；构建完成后只读，可并发查询。
type Scoreboard struct {
	thr     Thresholds
	entries map[string]*entry
	queries []string
}

// NewScoreboard 以给定阈值创建空表。
func NewScoreboard(thr Thresholds) *Scoreboard {
	return &Scoreboard{thr: thr, entries: make(map[string]*entry)}
}

// Thresholds 返回建表阈值。
func (sb *Scoreboard) Thresholds() Thresholds { return sb.thr }

// Register 预登记关注的 query；未登记 query 的行在 Ingest 时被忽略。重复登记无副作用。
func (sb *Scoreboard) Register(id string) {
	if _, ok := sb.entries[id]; ok {
		return
	}
	sb.entries[id] = &entry{score: make(map[string]int)}
	sb.queries = append(sb.queries, id)
}

// RegisterUniverse 登记集合中的全部 id（顺序无关）。
func (sb *Scoreboard) RegisterUniverse(u contract.Universe) {
	for id := range u {
		sb.Register(id)
	}
}

// Registered 报告 id 是否已登记。
func (sb *Scoreboard) Registered(id string) bool {
	_, ok := sb.entries[id]
	return ok
}

// Ingest 依次执行登记检查、覆盖度过滤、得分阈值；通过者以取整得分写入（覆盖旧值）。
func (sb *Scoreboard) Ingest(row contract.SummaryRow) Verdict {
	e, ok := sb.entries[row.Query]
	if !ok {
		return Ignored
	}
	if !CoveragePasses(row, sb.thr) {
		return FailedCoverage
	}
	if row.Score < sb.thr.ScoreCutoff {
		return BelowCutoff
	}
	if _, seen := e.score[row.Candidate]; !seen {
		e.order = append(e.order, row.Candidate)
	}
	e.score[row.Candidate] = roundScore(row.Score)
	return Stored
}

// Candidates 返回 query 的候选（插入顺序）；未登记或无候选时返回 nil。
func (sb *Scoreboard) Candidates(query string) []Candidate {
	e, ok := sb.entries[query]
	if !ok || len(e.order) == 0 {
		return nil
	}
	out := make([]Candidate, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, Candidate{ID: id, Score: e.score[id]})
	}
	return out
}

// Score 查询单个 (query, candidate) 得分。
func (sb *Scoreboard) Score(query, candidate string) (int, bool) {
	e, ok := sb.entries[query]
	if !ok {
		return 0, false
	}
	s, ok := e.score[candidate]
	return s, ok
}

// Len 返回已写入的 (query, candidate) 对数。
func (sb *Scoreboard) Len() int {
	n := 0
	for _, q := range sb.queries {
		n += len(sb.entries[q].order)
	}
	return n
}

// CoveragePasses 按长度关系选择比较的一侧；长度相等时两侧都须通过。
func CoveragePasses(row contract.SummaryRow, thr Thresholds) bool {
	query := func() bool {
		return sideCovered(row.RegionQuery, row.MatchQuery, row.QueryLen, thr)
	}
	hit := func() bool {
		return sideCovered(row.RegionHit, row.MatchHit, row.HitLen, thr)
	}
	switch {
	case row.QueryLen > row.HitLen:
		return query()
	case row.QueryLen < row.HitLen:
		return hit()
	default:
		return query() && hit()
	}
}

func sideCovered(region, match, length int, thr Thresholds) bool {
	l := float64(length)
	return float64(region) >= thr.OverlapCutoff*l && float64(match) >= thr.CoverageCutoff*l
}

// roundScore: 四舍五入到整数（.5 向上）。
func roundScore(s float64) int {
	return int(math.Floor(s + 0.5))
}
