package diag

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"orthoref/pkg/contract"
)

func TestRotatingFileRotates(t *testing.T) {
	dir := t.TempDir()
	w := NewRotatingFile(dir, 30)
	_, err := w.Write([]byte("first line that is long....\n"))
	require.NoError(t, err)
	_, err = w.Write([]byte("second\n"))
	require.NoError(t, err)
	require.NoError(t, w.Sync())
	require.NoError(t, w.Close())

	ents, err := os.ReadDir(dir)
	require.NoError(t, err)
	var current, rotated int
	for _, e := range ents {
		switch {
		case e.Name() == CurrentName:
			current++
		case strings.HasPrefix(e.Name(), "orthoref-") && strings.HasSuffix(e.Name(), ".log"):
			rotated++
		}
	}
	assert.Equal(t, 1, current)
	assert.Equal(t, 1, rotated)
	b, err := os.ReadFile(filepath.Join(dir, CurrentName))
	require.NoError(t, err)
	assert.Equal(t, "second\n", string(b))
}

// 单条超限记录不触发空文件轮转。
func TestRotatingFileOversizedEntry(t *testing.T) {
	dir := t.TempDir()
	w := NewRotatingFile(dir, 4)
	_, err := w.Write([]byte("0123456789\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	ents, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, ents, 1)
}

func TestLoggerJSONToSink(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerTo("run-1", "info", zapcore.AddSync(&buf))
	tm := l.StartWith("summarize", "开始", "a.xml")
	tm.Finish("完成", 3)
	l.DebugStart("summarize", "不应出现", "")
	out := buf.String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"corr_id":"run-1"`)
	assert.Contains(t, lines[0], `"stage":"start"`)
	assert.Contains(t, lines[0], `"file_id":"a.xml"`)
	assert.Contains(t, lines[1], `"stage":"finish"`)
	assert.Contains(t, lines[1], `"count":3`)
}

func TestLoggerEvents(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewLoggerCore("c1", core)

	l.DebugStart("cno", "ingest", "self.tsv")
	l.WarnRecord("cno", "self.tsv", fmt.Errorf("self.tsv:3: %w", contract.ErrMalformedRecord))
	t0 := time.Now()
	l.ErrorWith("summarize", CodeMalformed, "boom", &t0, "a.xml")

	require.Equal(t, 3, logs.Len())
	rec := logs.FilterField(zap.String("stage", "record")).All()
	require.Len(t, rec, 1)
	assert.Equal(t, zapcore.WarnLevel, rec[0].Level)
	assert.Equal(t, "record", rec[0].ContextMap()["code"])
	errs := logs.FilterLevelExact(zapcore.ErrorLevel).All()
	require.Len(t, errs, 1)
	assert.Equal(t, "malformed", errs[0].ContextMap()["code"])
	assert.Equal(t, "a.xml", errs[0].ContextMap()["file_id"])
	assert.Equal(t, "c1", errs[0].ContextMap()["corr_id"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel(" DEBUG "))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("verbose"))
}

func TestNewCorrIDUnique(t *testing.T) {
	a, b := NewCorrID(), NewCorrID()
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 36)
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want Code
	}{
		{nil, CodeUnknown},
		{context.Canceled, CodeCancel},
		{fmt.Errorf("x: %w", context.DeadlineExceeded), CodeCancel},
		{fmt.Errorf("blastxml: %w", contract.ErrMalformedInput), CodeMalformed},
		{contract.ErrMalformedRecord, CodeRecord},
		{contract.ErrPathInvalid, CodeInvariant},
		{contract.ErrInvalidInput, CodeInvariant},
		{&os.PathError{Op: "open", Path: "x", Err: os.ErrNotExist}, CodeIO},
		{errors.New("other"), CodeUnknown},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Classify(c.err), fmt.Sprint(c.err))
	}
}

func TestMetrics(t *testing.T) {
	m := NewMetrics()
	SetMetrics(m)
	t.Cleanup(func() { SetMetrics(nil) })

	IncOp("summarize", "format", "success")
	IncOp("summarize", "format", "success")
	IncError("cno", CodeRecord)
	AddRecords("cno", "stored", 5)
	AddRecords("cno", "stored", 0)
	ObserveDuration("summarize", "run", 12)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ops.WithLabelValues("summarize", "format", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errs.WithLabelValues("cno", "record")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.records.WithLabelValues("cno", "stored")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.dur))

	p := filepath.Join(t.TempDir(), "orthoref.prom")
	require.NoError(t, m.WriteTextfile(p))
	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Contains(t, string(b), `orthoref_records_total{comp="cno",outcome="stored"} 5`)
}

func TestTerminalNonTTY(t *testing.T) {
	var buf bytes.Buffer
	tm := NewTerminal(&buf, true)
	tm.RunStart("summarize", 4)
	tm.FileStart("/data/blast/run.xml")
	tm.Progress(1, 2) // 非 TTY 不输出
	tm.FileFinish(true, 12345, 1500*time.Millisecond)
	tm.RunFinish(true, 2*time.Second)
	out := buf.String()
	assert.Contains(t, out, "[run] summarize | 并发=4")
	assert.Contains(t, out, "[file] run.xml")
	assert.Contains(t, out, "[done] run.xml | 记录 12,345 | 用时 1.5s")
	assert.Contains(t, out, "输入 1 | 记录 12,345")
	assert.Equal(t, 4, strings.Count(out, "\n"))
}

func TestTerminalDisabledAndNil(t *testing.T) {
	var buf bytes.Buffer
	tm := NewTerminal(&buf, false)
	tm.RunStart("cno", 1)
	tm.RunFinish(false, 0)
	assert.Empty(t, buf.String())

	var nilT *Terminal
	nilT.FileStart("x")
	nilT.RunFinish(true, 0)
}

func TestShortenBase(t *testing.T) {
	assert.Equal(t, "a.xml", shortenBase("dir/a.xml", 48))
	assert.Equal(t, "abcd…", shortenBase("abcdefgh", 5))
}
