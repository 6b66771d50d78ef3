package hsp

import (
	"sort"

	"orthoref/pkg/contract"
)

// Stats: 汇总过程的计数（供指标上报）。
type Stats struct {
	SegmentsAccepted int
	SegmentsRejected int
	HitsKept         int
	HitsDropped      int
}

// Add 累加另一份计数。
func (s *Stats) Add(o Stats) {
	s.SegmentsAccepted += o.SegmentsAccepted
	s.SegmentsRejected += o.SegmentsRejected
	s.HitsKept += o.HitsKept
	s.HitsDropped += o.HitsDropped
}

// Summarize 按输入顺序贪心接受与已接受集合互不重叠的片段，并计算汇总统计。
// 被拒片段不再回看；结果依赖输入顺序。TotalScore>=cutoff 时返回 (hit, true)。
func Summarize(raw contract.RawHit, cutoff float64, mode Mode) (contract.Hit, bool) {
	h, _, ok := summarize(raw, cutoff, mode)
	return h, ok
}

func summarize(raw contract.RawHit, cutoff float64, mode Mode) (contract.Hit, Stats, bool) {
	var st Stats
	h := contract.Hit{ID: raw.ID, Length: raw.Length}
	accepted := make([]contract.Segment, 0, len(raw.Segments))
next:
	for _, s := range raw.Segments {
		for _, a := range accepted {
			if Overlaps(s, a, mode) {
				st.SegmentsRejected++
				continue next
			}
		}
		accepted = append(accepted, s)
		h.TotalScore += s.BitScore
		h.QueryCoverage += s.QuerySpan()
		h.HitCoverage += s.HitSpan()
		st.SegmentsAccepted++
	}
	h.Accepted = accepted
	if h.TotalScore >= cutoff {
		st.HitsKept++
		return h, st, true
	}
	st.HitsDropped++
	return contract.Hit{}, st, false
}

// SummarizeQuery 汇总 query 的全部 hit，保留达到 cutoff 的 hit 并按 TotalScore 降序稳定排序
// （同分保持发现顺序）。
func SummarizeQuery(raw contract.RawQuery, cutoff float64, mode Mode) (contract.Query, Stats) {
	var total Stats
	q := contract.Query{ID: raw.ID, Length: raw.Length}
	for _, rh := range raw.Hits {
		h, st, ok := summarize(rh, cutoff, mode)
		total.Add(st)
		if ok {
			q.Hits = append(q.Hits, h)
		}
	}
	sort.SliceStable(q.Hits, func(i, j int) bool { return q.Hits[i].TotalScore > q.Hits[j].TotalScore })
	return q, total
}
