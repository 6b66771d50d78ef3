package contract

import (
	"context"
	"io"
)

// ClusterLoader: 解析直系同源簇定义。
// 约束：
//  1. 簇与成员保持来源顺序；
//  2. 按物种名相等划分到 A/B 两侧；其他物种或无可用 ID 的成员计入 Skipped；
//  3. 无成员的一侧保留空列表，不报错；
//  4. Universe 覆盖所有已纳入的成员 ID。
type ClusterLoader interface {
	// Parse 仅读取簇与成员（不划分），用于格式转换。
	Parse(ctx context.Context, fileID FileID, r io.Reader) ([]Cluster, error)
	Load(ctx context.Context, fileID FileID, r io.Reader, speciesA, speciesB string) (ClusterSet, error)
}

// ClusterEncoder: 将簇集合渲染为完整文档。
type ClusterEncoder interface {
	Encode(ctx context.Context, clusters []Cluster) (io.Reader, error)
}

// Partition 按物种名把各簇的 Genes 划分到 A/B，并汇总 Universe 与 Skipped。
// Universe 收录全部非空 ID（含非追踪物种）；Genes 保持不变，clusters 的 A/B 字段被覆盖。
func Partition(clusters []Cluster, speciesA, speciesB string) ClusterSet {
	set := ClusterSet{Clusters: clusters, Universe: make(Universe)}
	for i := range clusters {
		c := &clusters[i]
		c.A, c.B = []string{}, []string{}
		for _, g := range c.Genes {
			if g.ID != "" {
				set.Universe[g.ID] = struct{}{}
			}
			switch {
			case g.ID == "":
				set.Skipped++
			case g.Species == speciesA:
				c.A = append(c.A, g.ID)
			case g.Species == speciesB:
				c.B = append(c.B, g.ID)
			default:
				set.Skipped++
			}
		}
	}
	return set
}
