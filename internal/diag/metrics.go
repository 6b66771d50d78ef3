package diag

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics: 进程内指标，注册在私有 Registry 上（不暴露 HTTP 端点）。
//   - orthoref_op_total{comp,stage,result}
//   - orthoref_error_total{comp,code}
//   - orthoref_op_duration_ms{comp,stage}
//   - orthoref_records_total{comp,outcome}
type Metrics struct {
	reg     *prometheus.Registry
	ops     *prometheus.CounterVec
	errs    *prometheus.CounterVec
	dur     *prometheus.HistogramVec
	records *prometheus.CounterVec
}

// NewMetrics 创建一组独立的指标。
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		ops: f.NewCounterVec(prometheus.CounterOpts{
			Name: "orthoref_op_total",
			Help: "Pipeline stage operations by result.",
		}, []string{"comp", "stage", "result"}),
		errs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "orthoref_error_total",
			Help: "Errors by component and classification code.",
		}, []string{"comp", "code"}),
		dur: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "orthoref_op_duration_ms",
			Help:    "Stage duration in milliseconds.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		}, []string{"comp", "stage"}),
		records: f.NewCounterVec(prometheus.CounterOpts{
			Name: "orthoref_records_total",
			Help: "Records processed by outcome (accepted, rejected, stored, skipped...).",
		}, []string{"comp", "outcome"}),
	}
}

// Registry 返回私有 Registry。
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// WriteTextfile 以 textfile collector 格式原子写出全部指标。
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.reg)
}

var (
	metricsMu sync.RWMutex
	metrics   = NewMetrics()
)

// SetMetrics 替换进程级指标（nil 恢复为新实例）。
func SetMetrics(m *Metrics) {
	if m == nil {
		m = NewMetrics()
	}
	metricsMu.Lock()
	metrics = m
	metricsMu.Unlock()
}

// Default 返回进程级指标。
func Default() *Metrics {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return metrics
}

// IncOp 累加操作计数（result=success|error）。
func IncOp(comp, stage, result string) {
	Default().ops.WithLabelValues(comp, stage, result).Inc()
}

// IncError 按分类累加错误计数。
func IncError(comp string, code Code) {
	Default().errs.WithLabelValues(comp, string(code)).Inc()
}

// ObserveDuration 记录阶段耗时（毫秒）。
func ObserveDuration(comp, stage string, durMS int64) {
	Default().dur.WithLabelValues(comp, stage).Observe(float64(durMS))
}

// AddRecords 按结果累加记录数；n<=0 忽略。
func AddRecords(comp, outcome string, n int) {
	if n <= 0 {
		return
	}
	Default().records.WithLabelValues(comp, outcome).Add(float64(n))
}
