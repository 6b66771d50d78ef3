package cno

import (
	"sort"

	"orthoref/pkg/contract"
)

// Resolve 为 cluster 在 side 一侧的每个成员求 CNO：候选按得分降序稳定排序，
// 取第一个不在同侧成员列表中的候选。无合格候选时 Found=false。
// 结果与成员顺序一一对应。sb 只读。
func Resolve(cluster contract.Cluster, side contract.Side, species string, sb *Scoreboard) []contract.CNOResult {
	members := cluster.Members(side)
	if len(members) == 0 {
		return nil
	}
	mates := make(map[string]struct{}, len(members))
	for _, m := range members {
		mates[m] = struct{}{}
	}
	out := make([]contract.CNOResult, 0, len(members))
	for _, m := range members {
		r := contract.CNOResult{Species: species, Member: m}
		if c, ok := closest(sb.Candidates(m), mates); ok {
			r.Candidate, r.Score, r.Found = c.ID, c.Score, true
		}
		out = append(out, r)
	}
	return out
}

// ResolveCluster 依次求解 A、B 两侧，A 在前。
func ResolveCluster(cluster contract.Cluster, speciesA, speciesB string, sb *Scoreboard) []contract.CNOResult {
	out := Resolve(cluster, contract.SideA, speciesA, sb)
	return append(out, Resolve(cluster, contract.SideB, speciesB, sb)...)
}

func closest(cands []Candidate, mates map[string]struct{}) (Candidate, bool) {
	if len(cands) == 0 {
		return Candidate{}, false
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].Score > cands[j].Score })
	for _, c := range cands {
		if _, mate := mates[c.ID]; !mate {
			return c, true
		}
	}
	return Candidate{}, false
}
