// Command orthoref 对序列比对结果做直系同源精修：
// summarize 汇总 BLAST XML，cno 求最近非直系同源，clusters 转换簇格式。
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"go.uber.org/zap"

	cfgpkg "orthoref/internal/config"
	"orthoref/internal/diag"
	"orthoref/internal/pipeline"
	"orthoref/pkg/contract"
)

// 退出码。
const (
	exitOK      = 0
	exitRuntime = 1
	exitUsage   = 3
)

func main() {
	// .env 不覆盖已有 ENV。
	_ = loadDotEnv(".env")
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr, os.Environ()))
}

// exitError 携带退出码；未包裹的错误（参数/旗标解析）按用法错误处理。
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func usageErr(err error) error   { return &exitError{code: exitUsage, err: err} }
func runtimeErr(err error) error { return &exitError{code: exitRuntime, err: err} }

// runErr 区分运行期错误中的用法类错误（非法参数/越界路径）。
func runErr(err error) error {
	if errors.Is(err, contract.ErrInvalidInput) || errors.Is(err, contract.ErrPathInvalid) {
		return usageErr(err)
	}
	return runtimeErr(err)
}

func execute(args []string, stdout, stderr io.Writer, environ []string) int {
	a := newApp(stdout, stderr, environ)
	root := newRootCmd(a)
	root.SetArgs(args)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if !errors.As(err, &ee) {
		ee = &exitError{code: exitUsage, err: err}
	}
	if !errors.Is(err, context.Canceled) {
		fmt.Fprintf(stderr, "orthoref: %v\n", ee.err)
	}
	return ee.code
}

// app 保存一次执行的共享状态：旗标、最终配置与诊断设施。
type app struct {
	stdout, stderr io.Writer
	environ        []string

	configPath  string
	concurrency int
	logLevel    string
	status      bool
	metricsFile string

	newLogger func(corrID, level string) *diag.Logger
	logger    *diag.Logger
	metrics   *diag.Metrics
	term      *diag.Terminal
	start     time.Time
}

func newApp(stdout, stderr io.Writer, environ []string) *app {
	return &app{
		stdout:    stdout,
		stderr:    stderr,
		environ:   environ,
		newLogger: loggerFactory,
	}
}

// loggerFactory 可在测试中替换，避免写入工作目录下的 logs/。
var loggerFactory = diag.NewLogger

func (a *app) getenv(key string) string {
	for _, kv := range a.environ {
		if k, v, ok := strings.Cut(kv, "="); ok && k == key {
			return v
		}
	}
	return ""
}

// prepare 依 CLI > ENV > 文件 > 默认 合并配置，初始化诊断设施并装配组件。
func (a *app) prepare(command string, over cfgpkg.Config) (cfgpkg.Config, pipeline.Components, error) {
	a.start = time.Now()
	corrID := diag.NewCorrID()

	cfg, _, err := cfgpkg.LoadFile(a.configPath, a.getenv)
	if err != nil {
		return cfg, pipeline.Components{}, usageErr(err)
	}
	env, err := cfgpkg.EnvOverlay(a.environ)
	if err != nil {
		return cfg, pipeline.Components{}, usageErr(err)
	}
	cfg = cfgpkg.Merge(cfg, env)
	if a.concurrency != 0 {
		over.Concurrency = a.concurrency
	}
	if a.logLevel != "" {
		over.Logging.Level = a.logLevel
	}
	cfg = cfgpkg.Merge(cfg, over)

	comp, err := cfgpkg.Assemble(cfg)
	if err != nil {
		return cfg, comp, usageErr(err)
	}

	a.logger = a.newLogger(corrID, cfg.Logging.Level)
	a.metrics = diag.NewMetrics()
	diag.SetMetrics(a.metrics)
	a.term = diag.NewTerminal(a.stderr, a.status)
	diag.SetTerminal(a.term)
	a.term.RunStart(command, cfg.Concurrency)
	a.logger.DebugStart("config", "effective", "",
		zap.String("command", command),
		zap.Int("concurrency", cfg.Concurrency),
		zap.String("source", cfg.Components.Source),
		zap.String("clusters", cfg.Components.Clusters),
		zap.String("writer", cfg.Components.Writer))
	return cfg, comp, nil
}

// finish 记录运行结果、落盘指标并复位进程级设施。
func (a *app) finish(command string, err error) error {
	ok := err == nil
	if a.logger != nil {
		if ok {
			diag.IncOp(command, "finish", "success")
			diag.ObserveDuration(command, "finish", time.Since(a.start).Milliseconds())
		} else {
			code := diag.Classify(err)
			a.logger.Error(command, code, "first error: "+err.Error(), &a.start)
			diag.IncOp(command, "finish", "error")
		}
		_ = a.logger.Sync()
	}
	a.term.RunFinish(ok, time.Since(a.start))
	diag.SetTerminal(nil)
	if a.metricsFile != "" && a.metrics != nil {
		if werr := a.metrics.WriteTextfile(a.metricsFile); werr != nil && ok {
			return runtimeErr(fmt.Errorf("metrics file: %w", werr))
		}
	}
	if ok {
		return nil
	}
	return runErr(err)
}
