// Package hsp 实现 HSP 片段的几何重叠判定与 hit 级贪心汇总。
package hsp

import (
	"fmt"
	"strings"

	"orthoref/pkg/contract"
)

// Mode: 片段排布模型。
type Mode int

const (
	// Linear: 片段在 query 与 hit 上须保持同一先后次序。
	Linear Mode = iota
	// NonLinear: 允许片段在两条序列上次序不一致。
	NonLinear
)

func (m Mode) String() string {
	if m == NonLinear {
		return "non-linear"
	}
	return "linear"
}

// ParseMode 解析模式名（大小写不敏感）；空串视为 linear。
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "linear":
		return Linear, nil
	case "non-linear", "nonlinear", "non_linear":
		return NonLinear, nil
	default:
		return Linear, fmt.Errorf("overlap mode %q: %w", s, contract.ErrInvalidInput)
	}
}

// maxOverlapRatio: 允许的最大重叠比例（相对较短片段）。
const maxOverlapRatio = -0.05

// exceeds5pct 判断有序区间 [s1,e1]、[s2,e2]（s1 在前）的重叠是否超过较短者的 5%。
// gap<0 表示相交；接触或浅层重叠被容忍。
func exceeds5pct(s1, e1, s2, e2 int) bool {
	len1 := e1 - s1 + 1
	len2 := e2 - s2 + 1
	shortest := min(len1, len2)
	gap := s2 - e1 - 1
	return float64(gap)/float64(shortest) < maxOverlapRatio
}

// axisOverlaps 在单轴上按起点排序后判定；起点相同视为重叠。
func axisOverlaps(s1, e1, s2, e2 int) bool {
	switch {
	case s1 == s2:
		return true
	case s1 < s2:
		return exceeds5pct(s1, e1, s2, e2)
	default:
		return exceeds5pct(s2, e2, s1, e1)
	}
}

// Overlaps 判断两个片段在给定模式下是否重叠。纯函数，O(1)。
//
// Linear：先按 QueryFrom 定序（相同即重叠），query 轴与 hit 轴均沿用该次序检查。
// hit 轴不单独重排，与既有汇总结果保持一致：两片段在 hit 轴上次序相反时 gap 为大负值，
// 即便 hit 区间并不相交也判为重叠。
//
// NonLinear：两轴各自按本轴起点定序判定，任一轴重叠即重叠。
func Overlaps(a, b contract.Segment, mode Mode) bool {
	if mode == NonLinear {
		return axisOverlaps(a.QueryFrom, a.QueryTo, b.QueryFrom, b.QueryTo) ||
			axisOverlaps(a.HitFrom, a.HitTo, b.HitFrom, b.HitTo)
	}
	if a.QueryFrom == b.QueryFrom {
		return true
	}
	first, last := a, b
	if b.QueryFrom < a.QueryFrom {
		first, last = b, a
	}
	return exceeds5pct(first.QueryFrom, first.QueryTo, last.QueryFrom, last.QueryTo) ||
		exceeds5pct(first.HitFrom, first.HitTo, last.HitFrom, last.HitTo)
}
