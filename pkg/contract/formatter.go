package contract

import (
	"context"
	"io"
)

// Formatter: 将单个 Query 的汇总结果渲染为输出记录流。
// 约束：
//  1. 纯计算，不做 I/O；
//  2. 前置条件：q.Hits 已按 TotalScore 降序（稳定）；
//  3. 可对每个 query 重复调用，无跨 query 状态。
type Formatter interface {
	Format(ctx context.Context, q Query) (io.Reader, error)
}

// ReportFormatter: 将单个簇的 CNO 结果渲染为报告块。
// 约束：每个成员恰好输出一行（无候选时使用空标记），行数可预测。
type ReportFormatter interface {
	FormatCluster(ctx context.Context, c Cluster, results []CNOResult) (io.Reader, error)
}
