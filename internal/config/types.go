package config

import (
	"gopkg.in/yaml.v3"

	"orthoref/pkg/cno"
)

// Config: 运行期只读配置（一次解析，运行期不变）。
// YAML 使用 snake_case；未知字段在解析期失败。
type Config struct {
	Concurrency int     `yaml:"concurrency" validate:"gte=1,lte=1024"`
	Logging     Logging `yaml:"logging"`

	// 组件名选择（注册表中的实现名）。
	Components Components `yaml:"components"`
	// 各组件 Options 子树，原样传入工厂。
	Options Options `yaml:"options"`

	Summarize Summarize `yaml:"summarize"`
	CNO       CNO       `yaml:"cno"`
}

// Logging: 仅日志等级可配置；输出路径与轮转策略为固定默认。
type Logging struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
}

// Components: 组件名选择。
type Components struct {
	Reader    string `yaml:"reader" validate:"component=reader"`
	Source    string `yaml:"source" validate:"component=source"`
	Splitter  string `yaml:"splitter" validate:"component=splitter"`
	Clusters  string `yaml:"clusters" validate:"component=clusters"`
	Encoder   string `yaml:"encoder" validate:"component=encoder"`
	Formatter string `yaml:"formatter" validate:"component=formatter"`
	Report    string `yaml:"report" validate:"component=report"`
	Writer    string `yaml:"writer" validate:"component=writer"`
}

// Options: 各组件的原样 YAML Options；未出现的键保持零值节点。
type Options struct {
	Reader    yaml.Node `yaml:"reader,omitempty"`
	Source    yaml.Node `yaml:"source,omitempty"`
	Splitter  yaml.Node `yaml:"splitter,omitempty"`
	Clusters  yaml.Node `yaml:"clusters,omitempty"`
	Encoder   yaml.Node `yaml:"encoder,omitempty"`
	Formatter yaml.Node `yaml:"formatter,omitempty"`
	Report    yaml.Node `yaml:"report,omitempty"`
	Writer    yaml.Node `yaml:"writer,omitempty"`
}

// Summarize: summarize 子命令默认值。
type Summarize struct {
	// Mode: linear | non-linear。
	Mode string `yaml:"mode" validate:"omitempty,oneof=linear non-linear"`
	// Alignment: 比对模式；非 nil 时以其值覆盖 formatter options 的 alignment 键。
	// nil 表示未设置，覆盖层据此区分显式 false。
	Alignment *bool `yaml:"alignment,omitempty"`
}

// AlignmentOn 报告是否启用比对模式。
func (s Summarize) AlignmentOn() bool { return s.Alignment != nil && *s.Alignment }

// CNO: cno 子命令默认值。
type CNO struct {
	Thresholds cno.Thresholds `yaml:"thresholds"`
}
