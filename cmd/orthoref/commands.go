package main

import (
	"fmt"
	"math"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	cfgpkg "orthoref/internal/config"
	"orthoref/internal/pipeline"
	"orthoref/pkg/contract"
)

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "orthoref",
		Short:         "Ortholog refinement over pairwise alignment results",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return usageErr(err) })

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "配置文件（YAML）；缺省读取 $"+cfgpkg.EnvConfigFile+" 或 ./"+cfgpkg.DefaultFileName)
	pf.IntVar(&a.concurrency, "concurrency", 0, "并发度（覆盖配置）")
	pf.StringVar(&a.logLevel, "log-level", "", "日志等级 debug|info|warn|error（覆盖配置）")
	pf.BoolVar(&a.status, "status", true, "终端状态提示（stderr）")
	pf.StringVar(&a.metricsFile, "metrics-file", "", "运行结束后以 Prometheus 文本格式写出指标")

	root.AddCommand(newSummarizeCmd(a), newCNOCmd(a), newClustersCmd(a), newInitConfigCmd(a))
	return root
}

func newSummarizeCmd(a *app) *cobra.Command {
	var (
		alignment bool
		nonLinear bool
		output    string
	)
	cmd := &cobra.Command{
		Use:   "summarize SCORE_CUTOFF [INPUT...]",
		Short: "Merge HSPs per hit and emit the alignment-summary table",
		Long: "读取 BLAST XML（-m7，新旧布局均可），按几何重叠规则合并每个 hit 的片段，\n" +
			"丢弃总分低于 SCORE_CUTOFF 的 hit。INPUT 缺省或为 \"-\" 时读取 STDIN。",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cutoff, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return usageErr(fmt.Errorf("score cutoff %q: %w", args[0], err))
			}
			if math.IsNaN(cutoff) || math.IsInf(cutoff, 0) {
				return usageErr(fmt.Errorf("score cutoff %q: not finite", args[0]))
			}
			over := cfgpkg.Unset()
			if cmd.Flags().Changed("alignment") {
				over.Summarize.Alignment = &alignment
			}
			if nonLinear {
				over.Summarize.Mode = "non-linear"
			}
			cfg, comp, err := a.prepare("summarize", over)
			if err != nil {
				return err
			}
			mode, err := cfg.Mode()
			if err != nil {
				return a.finish("summarize", err)
			}
			rep, err := pipeline.Summarize(cmd.Context(), comp, pipeline.SummarizeSettings{
				Inputs:      args[1:],
				Cutoff:      cutoff,
				Mode:        mode,
				Output:      contract.ArtifactID(output),
				Concurrency: cfg.Concurrency,
			}, a.logger)
			if err == nil {
				a.logger.Zap().Info("summary", zap.String("comp", "summarize"),
					zap.Int("files", rep.Files), zap.Int("queries", rep.Queries),
					zap.Bool("alignment", cfg.Summarize.AlignmentOn()),
					zap.Int("hits_kept", rep.Stats.HitsKept), zap.Int("hits_dropped", rep.Stats.HitsDropped),
					zap.Int("segments_rejected", rep.Stats.SegmentsRejected))
			}
			return a.finish("summarize", err)
		},
	}
	f := cmd.Flags()
	f.BoolVarP(&alignment, "alignment", "a", false, "比对模式：输出序列行并跳过自身命中")
	f.BoolVar(&nonLinear, "non-linear", false, "允许片段在两条序列上次序不一致")
	f.StringVarP(&output, "output", "o", "-", "输出文件；- 为 STDOUT")
	return cmd
}

func newCNOCmd(a *app) *cobra.Command {
	var (
		scoreCutoff   float64
		seqOverlap    float64
		segCoverage   float64
		clusterFormat string
		output        string
	)
	cmd := &cobra.Command{
		Use:   "cno SPECIES_A SPECIES_B CLUSTERS SELF_A SELF_B",
		Short: "Report the closest non-ortholog of every clustered gene",
		Long: "由两张自比对汇总表（SELF_A、SELF_B）构建得分表，为 CLUSTERS 中每个成员\n" +
			"输出得分最高且不属于同簇同侧的同物种基因。",
		Args: cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			over := cfgpkg.Unset()
			for name, p := range map[string]struct{ src, dst *float64 }{
				"score-cutoff":     {&scoreCutoff, &over.CNO.Thresholds.ScoreCutoff},
				"seq-overlap":      {&seqOverlap, &over.CNO.Thresholds.OverlapCutoff},
				"segment-coverage": {&segCoverage, &over.CNO.Thresholds.CoverageCutoff},
			} {
				if !cmd.Flags().Changed(name) {
					continue
				}
				if *p.src < 0 || math.IsNaN(*p.src) || math.IsInf(*p.src, 0) {
					return usageErr(fmt.Errorf("--%s must be a finite value >= 0, got %v", name, *p.src))
				}
				*p.dst = *p.src
			}
			over.Components.Clusters = clusterFormat
			cfg, comp, err := a.prepare("cno", over)
			if err != nil {
				return err
			}
			rep, err := pipeline.ResolveCNO(cmd.Context(), comp, pipeline.CNOSettings{
				SpeciesA:    args[0],
				SpeciesB:    args[1],
				Clusters:    args[2],
				SelfA:       args[3],
				SelfB:       args[4],
				Thresholds:  cfg.CNO.Thresholds,
				Output:      contract.ArtifactID(output),
				Concurrency: cfg.Concurrency,
			}, a.logger)
			if err == nil {
				a.logger.Zap().Info("summary", zap.String("comp", "cno"),
					zap.Int("clusters", rep.Clusters), zap.Int("members", rep.Members),
					zap.Int("found", rep.Found), zap.Int("skipped", rep.Skipped),
					zap.Int("malformed", rep.Malformed))
			}
			return a.finish("cno", err)
		},
	}
	f := cmd.Flags()
	f.Float64Var(&scoreCutoff, "score-cutoff", 50, "入表最低 bit score")
	f.Float64Var(&seqOverlap, "seq-overlap", 0.5, "匹配区域占序列长度的最低比例")
	f.Float64Var(&segCoverage, "segment-coverage", 0.25, "累计覆盖占序列长度的最低比例")
	f.StringVar(&clusterFormat, "cluster-format", "", "簇输入格式 inparanoid-xml|sqltable（覆盖配置）")
	f.StringVarP(&output, "output", "o", "-", "输出文件；- 为 STDOUT")
	return cmd
}

func newClustersCmd(a *app) *cobra.Command {
	var (
		from   string
		output string
	)
	cmd := &cobra.Command{
		Use:   "clusters SQLTABLE",
		Short: "Convert an InParanoid SQL-table dump into cluster XML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			over := cfgpkg.Unset()
			over.Components.Clusters = from
			_, comp, err := a.prepare("clusters", over)
			if err != nil {
				return err
			}
			_, err = pipeline.ConvertClusters(cmd.Context(), comp, pipeline.ConvertSettings{
				Input:  args[0],
				Output: contract.ArtifactID(output),
			}, a.logger)
			return a.finish("clusters", err)
		},
	}
	cmd.Flags().StringVar(&from, "from", "sqltable", "输入格式（簇加载器名）")
	cmd.Flags().StringVarP(&output, "output", "o", "-", "输出文件；- 为 STDOUT")
	return cmd
}

func newInitConfigCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init-config [DIR]",
		Short: "Write a default orthoref.yaml and .env template (never overwrites)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			p, err := cfgpkg.WriteTemplate(dir)
			if err != nil {
				return usageErr(err)
			}
			fmt.Fprintln(a.stdout, p)
			if err := writeDotEnv(dir); err != nil {
				fmt.Fprintf(a.stderr, "提示：.env 生成失败（已跳过）：%v\n", err)
			}
			return nil
		},
	}
}
