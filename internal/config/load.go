package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"orthoref/pkg/cno"
	"orthoref/pkg/contract"
)

// EnvPrefix: 环境变量前缀。
const EnvPrefix = "ORTHOREF_"

// EnvConfigFile: 指定配置文件路径的环境变量。
const EnvConfigFile = EnvPrefix + "CONFIG_FILE"

// DefaultFileName: 未显式指定时在工作目录查找的配置文件名。
const DefaultFileName = "orthoref.yaml"

// Defaults 返回带有安全默认值的 Config。
func Defaults() Config {
	return Config{
		Concurrency: 4,
		Logging:     Logging{Level: "info"},
		Components: Components{
			Reader:    "fs",
			Source:    "blastxml",
			Splitter:  "summary",
			Clusters:  "inparanoid-xml",
			Encoder:   "inparanoid-xml",
			Formatter: "summary",
			Report:    "cno",
			Writer:    "fs",
		},
		Summarize: Summarize{Mode: "linear"},
		CNO:       CNO{Thresholds: cno.DefaultThresholds()},
	}
}

// Unset 返回“全部未设置”的覆盖层：数值阈值以 -1 表示未覆盖，供 Merge 区分显式 0。
func Unset() Config {
	return Config{CNO: CNO{Thresholds: cno.Thresholds{ScoreCutoff: -1, OverlapCutoff: -1, CoverageCutoff: -1}}}
}

// LoadYAML 以 Defaults 为底解析 YAML（严格拒绝未知字段）。空文档返回 Defaults。
func LoadYAML(r io.Reader) (Config, error) {
	cfg := Defaults()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: %w: %v", contract.ErrInvalidInput, err)
	}
	return cfg, nil
}

// LoadFile 读取配置文件；path 为空时依次尝试 ORTHOREF_CONFIG_FILE 与 ./orthoref.yaml，
// 均不存在时返回 Defaults。显式给出但不存在的文件报错。
func LoadFile(path string, getenv func(string) string) (Config, string, error) {
	explicit := path != ""
	if !explicit && getenv != nil {
		if p := strings.TrimSpace(getenv(EnvConfigFile)); p != "" {
			path, explicit = p, true
		}
	}
	if path == "" {
		path = DefaultFileName
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return Defaults(), "", nil
		}
		return Config{}, path, fmt.Errorf("config %s: %w", path, err)
	}
	cfg, err := LoadYAML(bytes.NewReader(raw))
	if err != nil {
		return Config{}, path, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, path, nil
}

// Merge 按优先级合并（over 覆盖 base）。字符串空值与数值 0 视为未设置；
// 阈值以负数表示未设置；Options 按组件整体替换。
func Merge(base, over Config) Config {
	out := base
	if over.Concurrency != 0 {
		out.Concurrency = over.Concurrency
	}
	if v := strings.TrimSpace(over.Logging.Level); v != "" {
		out.Logging.Level = v
	}

	pick := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	pick(&out.Components.Reader, over.Components.Reader)
	pick(&out.Components.Source, over.Components.Source)
	pick(&out.Components.Splitter, over.Components.Splitter)
	pick(&out.Components.Clusters, over.Components.Clusters)
	pick(&out.Components.Encoder, over.Components.Encoder)
	pick(&out.Components.Formatter, over.Components.Formatter)
	pick(&out.Components.Report, over.Components.Report)
	pick(&out.Components.Writer, over.Components.Writer)

	node := func(dst *yaml.Node, v yaml.Node) {
		if v.Kind != 0 {
			*dst = v
		}
	}
	node(&out.Options.Reader, over.Options.Reader)
	node(&out.Options.Source, over.Options.Source)
	node(&out.Options.Splitter, over.Options.Splitter)
	node(&out.Options.Clusters, over.Options.Clusters)
	node(&out.Options.Encoder, over.Options.Encoder)
	node(&out.Options.Formatter, over.Options.Formatter)
	node(&out.Options.Report, over.Options.Report)
	node(&out.Options.Writer, over.Options.Writer)

	pick(&out.Summarize.Mode, over.Summarize.Mode)
	if over.Summarize.Alignment != nil {
		v := *over.Summarize.Alignment
		out.Summarize.Alignment = &v
	}

	thr := over.CNO.Thresholds
	if thr.ScoreCutoff >= 0 {
		out.CNO.Thresholds.ScoreCutoff = thr.ScoreCutoff
	}
	if thr.OverlapCutoff >= 0 {
		out.CNO.Thresholds.OverlapCutoff = thr.OverlapCutoff
	}
	if thr.CoverageCutoff >= 0 {
		out.CNO.Thresholds.CoverageCutoff = thr.CoverageCutoff
	}
	return out
}

// EnvOverlay 从环境变量构建覆盖层。前缀 ORTHOREF_；未知键忽略，数值非法时报错。
// 支持：CONCURRENCY, LOG_LEVEL, COMPONENTS_*, SUMMARIZE_MODE, SUMMARIZE_ALIGNMENT,
// CNO_SCORE_CUTOFF, CNO_SEQ_OVERLAP, CNO_SEGMENT_COVERAGE。
func EnvOverlay(environ []string) (Config, error) {
	over := Unset()
	comps := map[string]*string{
		"COMPONENTS_READER":    &over.Components.Reader,
		"COMPONENTS_SOURCE":    &over.Components.Source,
		"COMPONENTS_SPLITTER":  &over.Components.Splitter,
		"COMPONENTS_CLUSTERS":  &over.Components.Clusters,
		"COMPONENTS_ENCODER":   &over.Components.Encoder,
		"COMPONENTS_FORMATTER": &over.Components.Formatter,
		"COMPONENTS_REPORT":    &over.Components.Report,
		"COMPONENTS_WRITER":    &over.Components.Writer,
	}
	floats := map[string]*float64{
		"CNO_SCORE_CUTOFF":     &over.CNO.Thresholds.ScoreCutoff,
		"CNO_SEQ_OVERLAP":      &over.CNO.Thresholds.OverlapCutoff,
		"CNO_SEGMENT_COVERAGE": &over.CNO.Thresholds.CoverageCutoff,
	}
	for _, kv := range environ {
		key, val, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, EnvPrefix) {
			continue
		}
		nk := strings.TrimPrefix(key, EnvPrefix)
		val = strings.TrimSpace(val)
		if val == "" {
			continue
		}
		switch nk {
		case "CONCURRENCY":
			n, err := strconv.Atoi(val)
			if err != nil {
				return over, envErr(key, val, err)
			}
			over.Concurrency = n
		case "LOG_LEVEL":
			over.Logging.Level = val
		case "SUMMARIZE_MODE":
			over.Summarize.Mode = val
		case "SUMMARIZE_ALIGNMENT":
			b, err := strconv.ParseBool(val)
			if err != nil {
				return over, envErr(key, val, err)
			}
			over.Summarize.Alignment = &b
		default:
			if p, ok := comps[nk]; ok {
				*p = val
				continue
			}
			if p, ok := floats[nk]; ok {
				f, err := strconv.ParseFloat(val, 64)
				if err != nil {
					return over, envErr(key, val, err)
				}
				*p = f
			}
		}
	}
	return over, nil
}

func envErr(key, val string, err error) error {
	return fmt.Errorf("env %s=%q: %w: %v", key, val, contract.ErrInvalidInput, err)
}
