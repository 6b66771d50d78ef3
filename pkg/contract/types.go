package contract

// FileID: 逻辑输入ID（通常为路径，需规范化，跨平台一致）。
type FileID string

// Segment: 单个比对片段（HSP）。坐标 1 起、闭区间，From<=To。
// 构造后只读。
type Segment struct {
	BitScore  float64
	QueryFrom int
	QueryTo   int
	HitFrom   int
	HitTo     int
	// QuerySeq/HitSeq: 可选的比对子串（仅 alignment 模式输出使用）。
	QuerySeq string
	HitSeq   string
}

// QuerySpan 返回 query 轴覆盖长度（闭区间）。
func (s Segment) QuerySpan() int { return s.QueryTo - s.QueryFrom + 1 }

// HitSpan 返回 hit 轴覆盖长度（闭区间）。
func (s Segment) HitSpan() int { return s.HitTo - s.HitFrom + 1 }

// RawHit: 源适配层产出的中性 hit；Segments 保持输入顺序（顺序有语义）。
type RawHit struct {
	ID       string
	Length   int
	Segments []Segment
}

// RawQuery: 源适配层产出的中性 query；Hits 保持输入顺序。
type RawQuery struct {
	ID     string
	Length int
	Hits   []RawHit
}

// Hit: 汇总后的 hit。
// 约束：
//   - Accepted 两两不重叠（按当前重叠模式），顺序为接受顺序；
//   - TotalScore 等于 Accepted 的 BitScore 之和；
//   - QueryCoverage/HitCoverage 为 Accepted 各轴长度之和。
type Hit struct {
	ID            string
	Length        int
	Accepted      []Segment
	TotalScore    float64
	QueryCoverage int
	HitCoverage   int
}

// Query: 汇总后的 query；Hits 仅含 TotalScore>=cutoff 的 hit，按分数降序（稳定）。
type Query struct {
	ID     string
	Length int
	Hits   []Hit
}

// SummaryRow: 比对汇总表的一行（前 9 列）。
type SummaryRow struct {
	Query       string
	Candidate   string
	Score       float64
	QueryLen    int
	HitLen      int
	RegionQuery int // match_region_query：query 轴首尾跨度
	RegionHit   int // match_region_hit：hit 轴首尾跨度
	MatchQuery  int // total_match_query：query 轴累计覆盖
	MatchHit    int // total_match_hit：hit 轴累计覆盖
}

// Gene: 簇成员原始记录（保留来源字段，便于转换输出）。
type Gene struct {
	Species string
	ID      string
	Score   string
}

// Cluster: 直系同源簇。A/B 为两个追踪物种的成员 ID（保持来源顺序，可为空）。
type Cluster struct {
	ID       string
	BitScore string
	Genes    []Gene
	A        []string
	B        []string
}

// Side: 追踪物种的一侧。
type Side int

const (
	SideA Side = iota
	SideB
)

func (s Side) String() string {
	if s == SideB {
		return "B"
	}
	return "A"
}

// Members 返回指定物种一侧的成员列表（只读视图）。
func (c Cluster) Members(side Side) []string {
	if side == SideB {
		return c.B
	}
	return c.A
}

// Universe: 所有簇中出现过的成员 ID 集合。
type Universe map[string]struct{}

// Has 判断 id 是否在集合内。
func (u Universe) Has(id string) bool {
	_, ok := u[id]
	return ok
}

// ClusterSet: 簇加载结果。
type ClusterSet struct {
	Clusters []Cluster
	Universe Universe
	// Skipped: 被排除的成员数（非追踪物种或缺少可用 ID）。
	Skipped int
}

// CNOResult: 单个成员的最近非直系同源（closest non-ortholog）结果。
// Found=false 表示没有合格候选，此时 Candidate/Score 无意义。
type CNOResult struct {
	Species   string
	Member    string
	Candidate string
	Score     int
	Found     bool
}
