// Package cnoreport 渲染 CNO 报告：每簇一行 ">簇号"，随后每个成员一行
// "物种\t成员\t"，找到 CNO 时再接 "CNO\t得分"。
package cnoreport

import (
	"context"
	"io"
	"strconv"
	"strings"

	"orthoref/pkg/contract"
)

// Options: 预留，拒绝未知字段。
type Options struct{}

// Formatter 实现 contract.ReportFormatter。
type Formatter struct{}

var _ contract.ReportFormatter = (*Formatter)(nil)

// New 创建报告渲染器。
func New(*Options) *Formatter { return &Formatter{} }

// FormatCluster 按 results 顺序输出（调用方保证 A 侧在前）。
func (f *Formatter) FormatCluster(ctx context.Context, c contract.Cluster, results []contract.CNOResult) (io.Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var b strings.Builder
	b.WriteByte('>')
	b.WriteString(c.ID)
	b.WriteByte('\n')
	for _, r := range results {
		b.WriteString(r.Species)
		b.WriteByte('\t')
		b.WriteString(r.Member)
		b.WriteByte('\t')
		if r.Found {
			b.WriteString(r.Candidate)
			b.WriteByte('\t')
			b.WriteString(strconv.Itoa(r.Score))
		}
		b.WriteByte('\n')
	}
	return strings.NewReader(b.String()), nil
}
