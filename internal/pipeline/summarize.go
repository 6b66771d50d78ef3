package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sync/atomic"
	"time"

	"orthoref/internal/diag"
	"orthoref/pkg/contract"
	"orthoref/pkg/hsp"
)

// SummarizeSettings: summarize 流水线的运行参数。
type SummarizeSettings struct {
	Inputs      []string
	Cutoff      float64
	Mode        hsp.Mode
	Output      contract.ArtifactID
	Concurrency int
}

// SummarizeReport: 运行统计。
type SummarizeReport struct {
	Files   int
	Queries int
	Stats   hsp.Stats
}

// Summarize 读取全部比对输入，逐 query 合并片段并按输入顺序写出汇总表。
// 同一 query 出现在多个文件时各自独立输出，不做合并。
func Summarize(ctx context.Context, comp Components, set SummarizeSettings, logger *diag.Logger) (SummarizeReport, error) {
	logger = orNop(logger)
	var rep SummarizeReport
	if err := needComponents("reader", comp.Reader, "source", comp.Source, "formatter", comp.Formatter, "writer", comp.Writer); err != nil {
		return rep, err
	}
	if set.Cutoff < 0 || math.IsNaN(set.Cutoff) || math.IsInf(set.Cutoff, 0) {
		return rep, fmt.Errorf("%w: score cutoff %v", contract.ErrInvalidInput, set.Cutoff)
	}
	if set.Output == "" {
		set.Output = contract.StdoutArtifact
	}
	const name = "summarize"
	term := diag.GetTerminal()

	var raws []contract.RawQuery
	err := comp.Reader.Iterate(ctx, set.Inputs, func(fileID contract.FileID, rc io.ReadCloser) error {
		defer rc.Close()
		n := 0
		t0 := time.Now()
		term.FileStart(string(fileID))
		err := stage(logger, name, "source", string(fileID), func() (int64, error) {
			err := comp.Source.Queries(ctx, fileID, rc, func(q contract.RawQuery) error {
				raws = append(raws, q)
				n++
				return nil
			})
			return int64(n), err
		})
		term.FileFinish(err == nil, n, time.Since(t0))
		if err != nil {
			return fmt.Errorf("source: %w", err)
		}
		rep.Files++
		return nil
	})
	if err != nil {
		return rep, err
	}
	rep.Queries = len(raws)

	parts := make([][]byte, len(raws))
	stats := make([]hsp.Stats, len(raws))
	var done atomic.Int64
	err = stage(logger, name, "summarize", "", func() (int64, error) {
		err := fanOut(ctx, len(raws), set.Concurrency, func(ctx context.Context, i int) error {
			q, st := hsp.SummarizeQuery(raws[i], set.Cutoff, set.Mode)
			stats[i] = st
			r, err := comp.Formatter.Format(ctx, q)
			if err != nil {
				return fmt.Errorf("format %s: %w", q.ID, err)
			}
			b, err := io.ReadAll(r)
			if err != nil {
				return fmt.Errorf("format %s: %w", q.ID, err)
			}
			parts[i] = b
			term.Progress(int(done.Add(1)), len(raws))
			return nil
		})
		return int64(len(raws)), err
	})
	if err != nil {
		return rep, err
	}
	for i := range stats {
		rep.Stats.Add(stats[i])
	}
	diag.AddRecords(name, "kept", rep.Stats.HitsKept)
	diag.AddRecords(name, "dropped", rep.Stats.HitsDropped)

	err = stage(logger, name, "write", string(set.Output), func() (int64, error) {
		return int64(len(parts)), comp.Writer.Write(ctx, set.Output, joinParts(parts))
	})
	if err != nil {
		return rep, fmt.Errorf("write: %w", err)
	}
	return rep, nil
}

func joinParts(parts [][]byte) io.Reader {
	rs := make([]io.Reader, 0, len(parts))
	for _, p := range parts {
		if len(p) > 0 {
			rs = append(rs, bytes.NewReader(p))
		}
	}
	return io.MultiReader(rs...)
}

// isRecordErr 判断是否为可跳过的单条记录错误。
func isRecordErr(err error) bool { return errors.Is(err, contract.ErrMalformedRecord) }
