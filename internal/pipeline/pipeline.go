// Package pipeline 编排三条流水线：summarize、cno 与 clusters 转换。
//
// - 单点并发：仅此层并发（errgroup + SetLimit）；原子组件同步、无内部并发。
// - 有序输出：并发结果按输入下标存放，写出顺序与输入一致。
// - 首错取消：任一任务出错即取消整组，返回首个错误。
// - 全量内存：每个输入一次性读入后再处理。
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"orthoref/internal/diag"
	"orthoref/pkg/contract"
)

// Components 聚合运行所需的原子组件；各流水线只使用其中一部分。
type Components struct {
	Reader    contract.Reader
	Source    contract.AlignmentSource
	Splitter  contract.Splitter
	Clusters  contract.ClusterLoader
	Encoder   contract.ClusterEncoder
	Formatter contract.Formatter
	Report    contract.ReportFormatter
	Writer    contract.Writer
}

var errMissingComponent = errors.New("pipeline: missing component")

func needComponents(names ...any) error {
	for i := 0; i+1 < len(names); i += 2 {
		if names[i+1] == nil {
			return fmt.Errorf("%w: %s", errMissingComponent, names[i])
		}
	}
	return nil
}

func orNop(l *diag.Logger) *diag.Logger {
	if l == nil {
		return diag.Nop()
	}
	return l
}

// stage 包装单个阶段：start/finish/error 日志、耗时直方图与结果计数。
func stage(logger *diag.Logger, comp, name, fileID string, fn func() (int64, error)) error {
	tm := logger.StartWith(comp, name, fileID)
	count, err := fn()
	if err != nil {
		code := diag.Classify(err)
		logger.ErrorWith(comp, code, fmt.Sprintf("%s failed: %v", name, err), tm.Since(), fileID)
		diag.IncOp(comp, name, "error")
		diag.IncError(comp, code)
		return err
	}
	d := tm.Finish(name, count)
	diag.IncOp(comp, name, "success")
	diag.ObserveDuration(comp, name, d.Milliseconds())
	return nil
}

// fanOut 以至多 limit 个并发执行 fn(0..n-1)；首错取消其余任务。
func fanOut(ctx context.Context, n, limit int, fn func(ctx context.Context, i int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(limit, 1))
	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(gctx, i)
		})
	}
	return g.Wait()
}
