package diag

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger: 阶段事件日志（start/finish/error/record），底层为 zap JSON core。
// 每条事件携带 corr_id、comp、stage，可选 file_id、code、dur_ms、count。
type Logger struct {
	z      *zap.Logger
	corrID string
	sink   *RotatingFile
}

// NewCorrID 生成一次运行的关联 ID。
func NewCorrID() string { return uuid.NewString() }

// NewLogger 写入默认目录 logs/ 下的轮转文件（10MiB）。
func NewLogger(corrID, level string) *Logger {
	sink := NewRotatingFile("logs", 10*1024*1024)
	l := NewLoggerTo(corrID, level, sink)
	l.sink = sink
	return l
}

// NewLoggerTo 写入任意 WriteSyncer。
func NewLoggerTo(corrID, level string, ws zapcore.WriteSyncer) *Logger {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "ts"
	enc.EncodeTime = func(t time.Time, pe zapcore.PrimitiveArrayEncoder) {
		pe.AppendString(t.UTC().Format(time.RFC3339))
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), ws, zap.NewAtomicLevelAt(ParseLevel(level)))
	return NewLoggerCore(corrID, core)
}

// NewLoggerCore 直接包装 core（测试使用 zaptest/observer）。
func NewLoggerCore(corrID string, core zapcore.Core) *Logger {
	return &Logger{z: zap.New(core).With(zap.String("corr_id", corrID)), corrID: corrID}
}

// Nop 返回丢弃一切的 Logger。
func Nop() *Logger { return &Logger{z: zap.NewNop()} }

// ParseLevel: 未知取值按 info。
func ParseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// CorrID 返回关联 ID。
func (l *Logger) CorrID() string { return l.corrID }

// Zap 暴露底层 zap.Logger。
func (l *Logger) Zap() *zap.Logger { return l.z }

func fileField(fileID string) []zap.Field {
	if fileID == "" {
		return nil
	}
	return []zap.Field{zap.String("file_id", fileID)}
}

// Start 记录 start 事件；返回计时器用于 Finish。
func (l *Logger) Start(comp, msg string) *Timer {
	return l.StartWith(comp, msg, "")
}

// StartWith 记录带 file_id 与附加字段的 start。
func (l *Logger) StartWith(comp, msg, fileID string, fields ...zap.Field) *Timer {
	fs := append([]zap.Field{zap.String("comp", comp), zap.String("stage", "start")}, fileField(fileID)...)
	l.z.Info(msg, append(fs, fields...)...)
	return &Timer{l: l, comp: comp, fileID: fileID, t0: time.Now()}
}

// DebugStart 仅在 debug 级别输出。
func (l *Logger) DebugStart(comp, msg, fileID string, fields ...zap.Field) {
	if !l.z.Core().Enabled(zapcore.DebugLevel) {
		return
	}
	fs := append([]zap.Field{zap.String("comp", comp), zap.String("stage", "start")}, fileField(fileID)...)
	l.z.Debug(msg, append(fs, fields...)...)
}

// Error 记录 error 事件。
func (l *Logger) Error(comp string, code Code, msg string, durSince *time.Time) {
	l.ErrorWith(comp, code, msg, durSince, "")
}

// ErrorWith 支持 file_id 与附加字段。
func (l *Logger) ErrorWith(comp string, code Code, msg string, durSince *time.Time, fileID string, fields ...zap.Field) {
	fs := []zap.Field{zap.String("comp", comp), zap.String("stage", "error"), zap.String("code", string(code))}
	if durSince != nil {
		fs = append(fs, zap.Int64("dur_ms", time.Since(*durSince).Milliseconds()))
	}
	fs = append(fs, fileField(fileID)...)
	l.z.Error(msg, append(fs, fields...)...)
}

// WarnRecord 记录被跳过的坏记录。
func (l *Logger) WarnRecord(comp, fileID string, err error) {
	fs := append([]zap.Field{zap.String("comp", comp), zap.String("stage", "record"), zap.String("code", string(Classify(err)))}, fileField(fileID)...)
	l.z.Warn(err.Error(), fs...)
}

// Sync 刷新并关闭默认文件 sink。
func (l *Logger) Sync() error {
	err := l.z.Sync()
	if l.sink != nil {
		if cerr := l.sink.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Timer 用于 start→finish 计时。
type Timer struct {
	l      *Logger
	comp   string
	fileID string
	t0     time.Time
}

// Since 返回起点，供 Error 计算耗时。
func (t *Timer) Since() *time.Time {
	if t == nil {
		return nil
	}
	return &t.t0
}

// Finish 记录 finish 并返回耗时。
func (t *Timer) Finish(msg string, count int64) time.Duration {
	if t == nil || t.l == nil {
		return 0
	}
	d := time.Since(t.t0)
	fs := append([]zap.Field{
		zap.String("comp", t.comp), zap.String("stage", "finish"),
		zap.Int64("dur_ms", d.Milliseconds()), zap.Int64("count", count),
	}, fileField(t.fileID)...)
	t.l.z.Info(msg, fs...)
	return d
}
