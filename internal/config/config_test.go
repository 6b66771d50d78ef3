package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"orthoref/pkg/cno"
	"orthoref/pkg/contract"
	"orthoref/pkg/hsp"
)

func TestLoadYAMLOverDefaults(t *testing.T) {
	cfg, err := LoadYAML(strings.NewReader(`
concurrency: 2
components:
  clusters: sqltable
cno:
  thresholds:
    score_cutoff: 40
options:
  source:
    schema: legacy
`))
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Concurrency)
	assert.Equal(t, "sqltable", cfg.Components.Clusters)
	assert.Equal(t, "fs", cfg.Components.Reader)
	assert.Equal(t, 40.0, cfg.CNO.Thresholds.ScoreCutoff)
	assert.Equal(t, 0.5, cfg.CNO.Thresholds.OverlapCutoff)
	assert.Equal(t, yaml.MappingNode, cfg.Options.Source.Kind)
	require.NoError(t, Validate(cfg))
}

func TestLoadYAMLEmptyAndUnknown(t *testing.T) {
	cfg, err := LoadYAML(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)

	_, err = LoadYAML(strings.NewReader("unknown: 1\n"))
	assert.ErrorIs(t, err, contract.ErrInvalidInput)
}

func TestLoadFileLookup(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "c.yaml")
	require.NoError(t, os.WriteFile(p, []byte("concurrency: 7\n"), 0o644))

	env := func(k string) string {
		if k == EnvConfigFile {
			return p
		}
		return ""
	}
	cfg, used, err := LoadFile("", env)
	require.NoError(t, err)
	assert.Equal(t, p, used)
	assert.Equal(t, 7, cfg.Concurrency)

	_, _, err = LoadFile(filepath.Join(dir, "missing.yaml"), nil)
	assert.ErrorIs(t, err, os.ErrNotExist)

	t.Chdir(dir)
	cfg, used, err = LoadFile("", nil)
	require.NoError(t, err)
	assert.Empty(t, used)
	assert.Equal(t, Defaults(), cfg)
}

func TestEnvOverlayAndPrecedence(t *testing.T) {
	over, err := EnvOverlay([]string{
		"ORTHOREF_CONCURRENCY=3",
		"ORTHOREF_COMPONENTS_CLUSTERS=sqltable",
		"ORTHOREF_CNO_SEQ_OVERLAP=0",
		"ORTHOREF_SUMMARIZE_MODE=non-linear",
		"ORTHOREF_LOG_LEVEL=",
		"OTHER_CONCURRENCY=9",
	})
	require.NoError(t, err)

	file := Defaults()
	file.Concurrency = 5
	file.CNO.Thresholds.ScoreCutoff = 60

	cli := Unset()
	cli.CNO.Thresholds.ScoreCutoff = 70

	cfg := Merge(Merge(file, over), cli)
	assert.Equal(t, 3, cfg.Concurrency)
	assert.Equal(t, "sqltable", cfg.Components.Clusters)
	assert.Equal(t, cno.Thresholds{ScoreCutoff: 70, OverlapCutoff: 0, CoverageCutoff: 0.25}, cfg.CNO.Thresholds)
	assert.Equal(t, "info", cfg.Logging.Level)

	mode, err := cfg.Mode()
	require.NoError(t, err)
	assert.Equal(t, hsp.NonLinear, mode)

	_, err = EnvOverlay([]string{"ORTHOREF_CONCURRENCY=abc"})
	assert.ErrorIs(t, err, contract.ErrInvalidInput)
}

// 比对开关可被更高优先级的层显式关闭。
func TestAlignmentOverridePrecedence(t *testing.T) {
	file, err := LoadYAML(strings.NewReader("summarize:\n  alignment: true\n"))
	require.NoError(t, err)
	assert.True(t, file.Summarize.AlignmentOn())

	assert.True(t, Merge(file, Unset()).Summarize.AlignmentOn())

	env, err := EnvOverlay([]string{"ORTHOREF_SUMMARIZE_ALIGNMENT=false"})
	require.NoError(t, err)
	cfg := Merge(Merge(file, env), Unset())
	require.NotNil(t, cfg.Summarize.Alignment)
	assert.False(t, cfg.Summarize.AlignmentOn())

	on := true
	cli := Unset()
	cli.Summarize.Alignment = &on
	assert.True(t, Merge(cfg, cli).Summarize.AlignmentOn())
	assert.False(t, cfg.Summarize.AlignmentOn())

	assert.False(t, Defaults().Summarize.AlignmentOn())
	_, err = EnvOverlay([]string{"ORTHOREF_SUMMARIZE_ALIGNMENT=maybe"})
	assert.ErrorIs(t, err, contract.ErrInvalidInput)
}

func TestValidateErrors(t *testing.T) {
	cases := map[string]func(*Config){
		"concurrency":  func(c *Config) { c.Concurrency = 0 },
		"log level":    func(c *Config) { c.Logging.Level = "trace" },
		"unregistered": func(c *Config) { c.Components.Clusters = "orthoxml" },
		"mode":         func(c *Config) { c.Summarize.Mode = "diagonal" },
		"overlap":      func(c *Config) { c.CNO.Thresholds.OverlapCutoff = 1.5 },
	}
	for name, mut := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Defaults()
			mut(&cfg)
			assert.ErrorIs(t, Validate(cfg), contract.ErrInvalidInput)
		})
	}

	cfg := Defaults()
	cfg.Components.Clusters = "orthoxml"
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inparanoid-xml, sqltable")
}

func TestAssembleFromTemplate(t *testing.T) {
	raw, err := RenderTemplate()
	require.NoError(t, err)
	assert.Contains(t, string(raw), "score_cutoff: 50")

	cfg, err := LoadYAML(strings.NewReader(string(raw)))
	require.NoError(t, err)
	on := true
	cfg.Summarize.Alignment = &on
	comp, err := Assemble(cfg)
	require.NoError(t, err)
	assert.NotNil(t, comp.Reader)
	assert.NotNil(t, comp.Source)
	assert.NotNil(t, comp.Splitter)
	assert.NotNil(t, comp.Clusters)
	assert.NotNil(t, comp.Encoder)
	assert.NotNil(t, comp.Formatter)
	assert.NotNil(t, comp.Report)
	assert.NotNil(t, comp.Writer)
}

func TestAssembleRejectsBadOptions(t *testing.T) {
	cfg, err := LoadYAML(strings.NewReader("options:\n  splitter:\n    bogus: 1\n"))
	require.NoError(t, err)
	_, err = Assemble(cfg)
	assert.ErrorIs(t, err, contract.ErrInvalidInput)
}

func TestSetOption(t *testing.T) {
	var n yaml.Node
	require.NoError(t, n.Encode(map[string]any{"alignment": false}))
	got, err := setOption(n, "alignment", true)
	require.NoError(t, err)

	var m map[string]bool
	require.NoError(t, got.Decode(&m))
	assert.True(t, m["alignment"])

	var orig map[string]bool
	require.NoError(t, n.Decode(&orig))
	assert.False(t, orig["alignment"])

	got, err = setOption(n, "alignment", false)
	require.NoError(t, err)
	require.NoError(t, got.Decode(&m))
	assert.False(t, m["alignment"])

	got, err = setOption(yaml.Node{}, "alignment", true)
	require.NoError(t, err)
	require.NoError(t, got.Decode(&m))
	assert.True(t, m["alignment"])
}

func TestWriteTemplateNeverOverwrites(t *testing.T) {
	dir := t.TempDir()
	p, err := WriteTemplate(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, DefaultFileName), p)

	require.NoError(t, os.WriteFile(p, []byte("concurrency: 9\n"), 0o644))
	_, err = WriteTemplate(dir)
	assert.ErrorIs(t, err, ErrTemplateExists)
	b, _ := os.ReadFile(p)
	assert.Equal(t, "concurrency: 9\n", string(b))
}
