package pipeline

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"orthoref/internal/diag"
	"orthoref/pkg/cno"
	"orthoref/pkg/contract"
)

// CNOSettings: cno 流水线的运行参数。
type CNOSettings struct {
	SpeciesA    string
	SpeciesB    string
	Clusters    string
	SelfA       string
	SelfB       string
	Thresholds  cno.Thresholds
	Output      contract.ArtifactID
	Concurrency int
}

// CNOReport: 运行统计。
type CNOReport struct {
	Clusters  int
	Members   int
	Skipped   int
	Malformed int
	Found     int
	Verdicts  map[cno.Verdict]int
}

// ResolveCNO 加载簇、由两张自比对汇总表构建评分板，再为每个成员求最近非直系同源。
// 评分板在解析开始前完整构建，其后只读。
func ResolveCNO(ctx context.Context, comp Components, set CNOSettings, logger *diag.Logger) (CNOReport, error) {
	logger = orNop(logger)
	rep := CNOReport{Verdicts: map[cno.Verdict]int{}}
	if err := needComponents("reader", comp.Reader, "clusters", comp.Clusters, "splitter", comp.Splitter, "report", comp.Report, "writer", comp.Writer); err != nil {
		return rep, err
	}
	if set.SpeciesA == "" || set.SpeciesB == "" {
		return rep, fmt.Errorf("%w: species names must not be empty", contract.ErrInvalidInput)
	}
	if set.SpeciesA == set.SpeciesB {
		return rep, fmt.Errorf("%w: species %q given twice", contract.ErrInvalidInput, set.SpeciesA)
	}
	if err := set.Thresholds.Validate(); err != nil {
		return rep, err
	}
	if set.Output == "" {
		set.Output = contract.StdoutArtifact
	}
	const name = "cno"
	term := diag.GetTerminal()

	cs, err := loadClusters(ctx, comp, set, logger)
	if err != nil {
		return rep, err
	}
	rep.Clusters = len(cs.Clusters)
	rep.Skipped = cs.Skipped

	sb := cno.NewScoreboard(set.Thresholds)
	sb.RegisterUniverse(cs.Universe)
	for _, in := range []string{set.SelfA, set.SelfB} {
		if err := ingest(ctx, comp, sb, in, &rep, logger); err != nil {
			return rep, err
		}
	}
	diag.AddRecords(name, "malformed", rep.Malformed)
	for v, n := range rep.Verdicts {
		diag.AddRecords(name, v.String(), n)
	}

	parts := make([][]byte, len(cs.Clusters))
	members := make([]int, len(cs.Clusters))
	found := make([]int, len(cs.Clusters))
	var done atomic.Int64
	err = stage(logger, name, "resolve", "", func() (int64, error) {
		err := fanOut(ctx, len(cs.Clusters), set.Concurrency, func(ctx context.Context, i int) error {
			c := cs.Clusters[i]
			results := cno.ResolveCluster(c, set.SpeciesA, set.SpeciesB, sb)
			members[i] = len(results)
			for _, r := range results {
				if r.Found {
					found[i]++
				}
			}
			r, err := comp.Report.FormatCluster(ctx, c, results)
			if err != nil {
				return fmt.Errorf("format cluster %s: %w", c.ID, err)
			}
			b, err := io.ReadAll(r)
			if err != nil {
				return fmt.Errorf("format cluster %s: %w", c.ID, err)
			}
			parts[i] = b
			term.Progress(int(done.Add(1)), len(cs.Clusters))
			return nil
		})
		return int64(len(cs.Clusters)), err
	})
	if err != nil {
		return rep, err
	}
	for i := range members {
		rep.Members += members[i]
		rep.Found += found[i]
	}

	err = stage(logger, name, "write", string(set.Output), func() (int64, error) {
		return int64(rep.Members), comp.Writer.Write(ctx, set.Output, joinParts(parts))
	})
	if err != nil {
		return rep, fmt.Errorf("write: %w", err)
	}
	return rep, nil
}

// loadClusters 读取簇输入；目录输入下多个文件的簇按遍历顺序拼接。
func loadClusters(ctx context.Context, comp Components, set CNOSettings, logger *diag.Logger) (contract.ClusterSet, error) {
	all := contract.ClusterSet{Universe: contract.Universe{}}
	err := comp.Reader.Iterate(ctx, []string{set.Clusters}, func(fileID contract.FileID, rc io.ReadCloser) error {
		defer rc.Close()
		return stage(logger, "cno", "clusters", string(fileID), func() (int64, error) {
			cs, err := comp.Clusters.Load(ctx, fileID, rc, set.SpeciesA, set.SpeciesB)
			if err != nil {
				return 0, fmt.Errorf("clusters: %w", err)
			}
			all.Clusters = append(all.Clusters, cs.Clusters...)
			for id := range cs.Universe {
				all.Universe[id] = struct{}{}
			}
			all.Skipped += cs.Skipped
			return int64(len(cs.Clusters)), nil
		})
	})
	return all, err
}

// ingest 将一张汇总表灌入评分板。坏行记 warn 并跳过，其余错误中止。
func ingest(ctx context.Context, comp Components, sb *cno.Scoreboard, input string, rep *CNOReport, logger *diag.Logger) error {
	term := diag.GetTerminal()
	return comp.Reader.Iterate(ctx, []string{input}, func(fileID contract.FileID, rc io.ReadCloser) error {
		defer rc.Close()
		t0 := time.Now()
		term.FileStart(string(fileID))
		var rows int64
		err := stage(logger, "cno", "ingest", string(fileID), func() (int64, error) {
			err := comp.Splitter.Split(ctx, fileID, rc, func(row contract.SummaryRow, err error) error {
				if err != nil {
					if isRecordErr(err) {
						logger.WarnRecord("cno", string(fileID), err)
						rep.Malformed++
						return nil
					}
					return err
				}
				rows++
				rep.Verdicts[sb.Ingest(row)]++
				return nil
			})
			return rows, err
		})
		term.FileFinish(err == nil, int(rows), time.Since(t0))
		if err != nil {
			return fmt.Errorf("ingest: %w", err)
		}
		return nil
	})
}
