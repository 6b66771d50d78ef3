package contract

import "fmt"

// 校验库函数（纯函数，无 I/O）：
// - ValidateSegment: 坐标 1 起、From<=To；
// - ValidateRow:     汇总行的长度字段非负且 query/candidate 非空。

// ValidateSegment 校验单个片段坐标。
func ValidateSegment(s Segment) error {
	if s.QueryFrom < 1 || s.HitFrom < 1 {
		return fmt.Errorf("segment q:%d-%d h:%d-%d: coordinates must be 1-based: %w",
			s.QueryFrom, s.QueryTo, s.HitFrom, s.HitTo, ErrInvariantViolation)
	}
	if s.QueryFrom > s.QueryTo || s.HitFrom > s.HitTo {
		return fmt.Errorf("segment q:%d-%d h:%d-%d: from > to: %w",
			s.QueryFrom, s.QueryTo, s.HitFrom, s.HitTo, ErrInvariantViolation)
	}
	return nil
}

// ValidateRow 校验汇总行的基本形状。
func ValidateRow(r SummaryRow) error {
	if r.Query == "" || r.Candidate == "" {
		return fmt.Errorf("row: empty query or candidate: %w", ErrMalformedRecord)
	}
	if r.QueryLen < 0 || r.HitLen < 0 || r.RegionQuery < 0 || r.RegionHit < 0 || r.MatchQuery < 0 || r.MatchHit < 0 {
		return fmt.Errorf("row %s/%s: negative length field: %w", r.Query, r.Candidate, ErrMalformedRecord)
	}
	return nil
}
