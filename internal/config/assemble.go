package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"orthoref/internal/pipeline"
	"orthoref/pkg/contract"
	"orthoref/pkg/hsp"
	"orthoref/pkg/registry"
)

var validate *validator.Validate

// component=<kind>：组件名必须在对应注册表中存在。
var componentKinds = map[string]func() []string{
	"reader":    func() []string { return registry.Names(registry.Reader) },
	"source":    func() []string { return registry.Names(registry.Source) },
	"splitter":  func() []string { return registry.Names(registry.Splitter) },
	"clusters":  func() []string { return registry.Names(registry.ClusterLoader) },
	"encoder":   func() []string { return registry.Names(registry.ClusterEncoder) },
	"formatter": func() []string { return registry.Names(registry.Formatter) },
	"report":    func() []string { return registry.Names(registry.ReportFormatter) },
	"writer":    func() []string { return registry.Names(registry.Writer) },
}

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("component", validateComponent)
}

func validateComponent(fl validator.FieldLevel) bool {
	names, ok := componentKinds[fl.Param()]
	if !ok {
		return false
	}
	got := fl.Field().String()
	for _, n := range names() {
		if n == got {
			return true
		}
	}
	return false
}

// Validate 对配置做静态校验（结构标签 + 注册表名称）。错误均包裹 ErrInvalidInput。
func Validate(cfg Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("config: %w: %v", contract.ErrInvalidInput, err)
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, describe(fe))
		}
		return fmt.Errorf("config: %w: %s", contract.ErrInvalidInput, strings.Join(msgs, "; "))
	}
	return cfg.CNO.Thresholds.Validate()
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	if fe.Tag() == "component" {
		return fmt.Sprintf("%s %q not registered (have %s)", field, fe.Value(),
			strings.Join(componentKinds[fe.Param()](), ", "))
	}
	if fe.Param() != "" {
		return fmt.Sprintf("%s=%v fails %s=%s", field, fe.Value(), fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("%s=%v fails %s", field, fe.Value(), fe.Tag())
}

// Mode 返回 summarize 的重叠判定模式。
func (c Config) Mode() (hsp.Mode, error) {
	return hsp.ParseMode(c.Summarize.Mode)
}

// Assemble 按配置构造全部组件。严格 Options 解析在注册表工厂中进行，此处只传原样 YAML。
func Assemble(cfg Config) (pipeline.Components, error) {
	var comp pipeline.Components
	if err := Validate(cfg); err != nil {
		return comp, err
	}
	c, o := cfg.Components, cfg.Options
	wrap := func(kind, name string, err error) error {
		return fmt.Errorf("config: %s %q: %w", kind, name, err)
	}

	var err error
	if comp.Reader, err = registry.Reader[c.Reader](&o.Reader); err != nil {
		return comp, wrap("reader", c.Reader, err)
	}
	if comp.Source, err = registry.Source[c.Source](&o.Source); err != nil {
		return comp, wrap("source", c.Source, err)
	}
	if comp.Splitter, err = registry.Splitter[c.Splitter](&o.Splitter); err != nil {
		return comp, wrap("splitter", c.Splitter, err)
	}
	if comp.Clusters, err = registry.ClusterLoader[c.Clusters](&o.Clusters); err != nil {
		return comp, wrap("clusters", c.Clusters, err)
	}
	if comp.Encoder, err = registry.ClusterEncoder[c.Encoder](&o.Encoder); err != nil {
		return comp, wrap("encoder", c.Encoder, err)
	}
	fo := o.Formatter
	if a := cfg.Summarize.Alignment; a != nil {
		if fo, err = setOption(fo, "alignment", *a); err != nil {
			return comp, wrap("formatter", c.Formatter, err)
		}
	}
	if comp.Formatter, err = registry.Formatter[c.Formatter](&fo); err != nil {
		return comp, wrap("formatter", c.Formatter, err)
	}
	if comp.Report, err = registry.ReportFormatter[c.Report](&o.Report); err != nil {
		return comp, wrap("report", c.Report, err)
	}
	if comp.Writer, err = registry.Writer[c.Writer](&o.Writer); err != nil {
		return comp, wrap("writer", c.Writer, err)
	}
	return comp, nil
}

// setOption 在 Options 映射节点上设置一个键，返回新节点；原节点不变。
func setOption(n yaml.Node, key string, value any) (yaml.Node, error) {
	m := map[string]any{}
	if n.Kind != 0 && n.Tag != "!!null" {
		if err := n.Decode(&m); err != nil {
			return yaml.Node{}, fmt.Errorf("options: %w: %v", contract.ErrInvalidInput, err)
		}
	}
	m[key] = value
	var out yaml.Node
	if err := out.Encode(m); err != nil {
		return yaml.Node{}, err
	}
	return out, nil
}
