// Package registry 维护组件名到工厂的显式映射（零反射）。
// 工厂接收配置中原样保留的 YAML 子树，并以 KnownFields 严格解码，拒绝未知字段。
package registry

import (
	"bytes"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"orthoref/pkg/contract"
	cixml "orthoref/plugins/clusters/inparanoidxml"
	csql "orthoref/plugins/clusters/sqltable"
	fcno "orthoref/plugins/formatter/cnoreport"
	fsum "orthoref/plugins/formatter/summary"
	rfs "orthoref/plugins/reader/filesystem"
	sbx "orthoref/plugins/source/blastxml"
	ssum "orthoref/plugins/splitter/summary"
	wfs "orthoref/plugins/writer/filesystem"
)

// StrictDecode: 空节点保持零值；其余经重新编码后严格解码。
func StrictDecode(node *yaml.Node, v any) error {
	if node == nil || node.Kind == 0 || node.Tag == "!!null" {
		return nil
	}
	raw, err := yaml.Marshal(node)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("options: %w: %v", contract.ErrInvalidInput, err)
	}
	return nil
}

// 工厂签名：接收原样 YAML Options。
type (
	NewReader          func(opts *yaml.Node) (contract.Reader, error)
	NewSource          func(opts *yaml.Node) (contract.AlignmentSource, error)
	NewSplitter        func(opts *yaml.Node) (contract.Splitter, error)
	NewClusterLoader   func(opts *yaml.Node) (contract.ClusterLoader, error)
	NewClusterEncoder  func(opts *yaml.Node) (contract.ClusterEncoder, error)
	NewFormatter       func(opts *yaml.Node) (contract.Formatter, error)
	NewReportFormatter func(opts *yaml.Node) (contract.ReportFormatter, error)
	NewWriter          func(opts *yaml.Node) (contract.Writer, error)
)

// Reader 工厂注册表。
var Reader = map[string]NewReader{
	// fs: 文件/目录/STDIN
	"fs": func(n *yaml.Node) (contract.Reader, error) {
		var o rfs.Options
		if err := StrictDecode(n, &o); err != nil {
			return nil, err
		}
		return rfs.New(&o), nil
	},
}

// Source 工厂注册表。
var Source = map[string]NewSource{
	// blastxml: BLAST -m7 XML，新旧布局
	"blastxml": func(n *yaml.Node) (contract.AlignmentSource, error) {
		var o sbx.Options
		if err := StrictDecode(n, &o); err != nil {
			return nil, err
		}
		return sbx.New(&o)
	},
}

// Splitter 工厂注册表。
var Splitter = map[string]NewSplitter{
	// summary: 9+ 列制表符汇总表
	"summary": func(n *yaml.Node) (contract.Splitter, error) {
		var o ssum.Options
		if err := StrictDecode(n, &o); err != nil {
			return nil, err
		}
		return ssum.New(&o), nil
	},
}

// ClusterLoader 工厂注册表。
var ClusterLoader = map[string]NewClusterLoader{
	"inparanoid-xml": func(n *yaml.Node) (contract.ClusterLoader, error) {
		var o cixml.Options
		if err := StrictDecode(n, &o); err != nil {
			return nil, err
		}
		return cixml.New(&o), nil
	},
	"sqltable": func(n *yaml.Node) (contract.ClusterLoader, error) {
		var o csql.Options
		if err := StrictDecode(n, &o); err != nil {
			return nil, err
		}
		return csql.New(&o), nil
	},
}

// ClusterEncoder 工厂注册表。
var ClusterEncoder = map[string]NewClusterEncoder{
	"inparanoid-xml": func(n *yaml.Node) (contract.ClusterEncoder, error) {
		var o struct{}
		if err := StrictDecode(n, &o); err != nil {
			return nil, err
		}
		return cixml.Encoder{}, nil
	},
}

// Formatter 工厂注册表。
var Formatter = map[string]NewFormatter{
	"summary": func(n *yaml.Node) (contract.Formatter, error) {
		var o fsum.Options
		if err := StrictDecode(n, &o); err != nil {
			return nil, err
		}
		return fsum.New(&o), nil
	},
}

// ReportFormatter 工厂注册表。
var ReportFormatter = map[string]NewReportFormatter{
	"cno": func(n *yaml.Node) (contract.ReportFormatter, error) {
		var o fcno.Options
		if err := StrictDecode(n, &o); err != nil {
			return nil, err
		}
		return fcno.New(&o), nil
	},
}

// Writer 工厂注册表。
var Writer = map[string]NewWriter{
	// fs: STDOUT 或文件（默认原子替换）
	"fs": func(n *yaml.Node) (contract.Writer, error) {
		var o wfs.Options
		if err := StrictDecode(n, &o); err != nil {
			return nil, err
		}
		return wfs.New(&o)
	},
}

// Names 返回注册表中已排序的名字，用于报错提示。
func Names[F any](m map[string]F) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
