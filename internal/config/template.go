package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	cixml "orthoref/plugins/clusters/inparanoidxml"
	fsum "orthoref/plugins/formatter/summary"
	rfs "orthoref/plugins/reader/filesystem"
	sbx "orthoref/plugins/source/blastxml"
	ssum "orthoref/plugins/splitter/summary"
	wfs "orthoref/plugins/writer/filesystem"
)

// DefaultTemplateConfig 返回默认配置模板：组件采用内置实现，Options 列出全部键。
func DefaultTemplateConfig() (Config, error) {
	cfg := Defaults()
	atomic := true
	opts := []struct {
		dst *yaml.Node
		v   any
	}{
		{&cfg.Options.Reader, rfs.Options{BufSize: 64 * 1024, Extensions: []string{".xml"}, ExcludeDirNames: []string{".git"}}},
		{&cfg.Options.Source, sbx.Options{Schema: sbx.SchemaAuto}},
		{&cfg.Options.Splitter, ssum.Options{MaxLineBytes: 16 << 20}},
		{&cfg.Options.Clusters, cixml.Options{}},
		{&cfg.Options.Encoder, struct{}{}},
		{&cfg.Options.Formatter, fsum.Options{}},
		{&cfg.Options.Report, struct{}{}},
		{&cfg.Options.Writer, wfs.Options{Atomic: &atomic, BufSize: 64 * 1024}},
	}
	for _, o := range opts {
		if err := o.dst.Encode(o.v); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}

// RenderTemplate 序列化默认模板。
func RenderTemplate() ([]byte, error) {
	cfg, err := DefaultTemplateConfig()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ErrTemplateExists: 目标位置已有配置文件。
var ErrTemplateExists = errors.New("config template already exists")

// WriteTemplate 在 dir 下写出 orthoref.yaml；已存在时返回 ErrTemplateExists，不覆盖。
func WriteTemplate(dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	raw, err := RenderTemplate()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	p := filepath.Join(dir, DefaultFileName)
	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return p, fmt.Errorf("%s: %w", p, ErrTemplateExists)
		}
		return p, err
	}
	if _, err := f.Write(raw); err != nil {
		f.Close()
		return p, err
	}
	return p, f.Close()
}
