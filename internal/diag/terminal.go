package diag

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
)

// Terminal: 面向用户的进度提示（非日志），写到 stderr。
// TTY 下单行 \r 覆盖，非 TTY 下关键节点逐行打印。并发安全；写失败后转为 no-op。
type Terminal struct {
	w       io.Writer
	enabled bool
	isTTY   bool

	command     string
	concurrency int
	filesDone   int
	records     int64
	runStart    time.Time

	curFile   string
	lastLen   int
	lastFlush time.Time

	mu sync.Mutex
}

var (
	termMu sync.RWMutex
	term   *Terminal
)

// SetTerminal 设置进程级终端（nil 清除）。
func SetTerminal(t *Terminal) { termMu.Lock(); term = t; termMu.Unlock() }

// GetTerminal 返回进程级终端（可能为 nil，方法对 nil 安全）。
func GetTerminal() *Terminal { termMu.RLock(); defer termMu.RUnlock(); return term }

// NewTerminal 构造终端提示器；enabled=false 时总是 no-op。
func NewTerminal(w io.Writer, enabled bool) *Terminal {
	if w == nil {
		w = os.Stderr
	}
	t := &Terminal{w: w, enabled: enabled}
	if f, ok := w.(*os.File); ok && os.Getenv("CI") == "" {
		t.isTTY = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return t
}

// RunStart 记录子命令与并发度。
func (t *Terminal) RunStart(command string, concurrency int) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	t.command, t.concurrency = command, concurrency
	t.filesDone, t.records = 0, 0
	t.runStart = time.Now()
	t.println(fmt.Sprintf("[run] %s | 并发=%d", command, concurrency))
}

// FileStart 标记当前输入。
func (t *Terminal) FileStart(fileID string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	t.curFile = shortenBase(fileID, 48)
	if !t.isTTY {
		t.println("[file] " + t.curFile)
	}
}

// Progress 报告当前输入的处理进度（TTY 下 100ms 节流）。
func (t *Terminal) Progress(done, total int) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled || !t.isTTY {
		return
	}
	now := time.Now()
	if now.Sub(t.lastFlush) < 100*time.Millisecond {
		return
	}
	t.lastFlush = now
	t.printInline(fmt.Sprintf("[file] %s | %s/%s | 用时 %s",
		t.curFile, humanize.Comma(int64(done)), humanize.Comma(int64(total)), formatDur(time.Since(t.runStart))))
}

// FileFinish 完成当前输入。
func (t *Terminal) FileFinish(ok bool, records int, dur time.Duration) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	t.filesDone++
	t.records += int64(records)
	if t.isTTY && t.lastLen > 0 {
		t.printInline("")
	}
	t.println(fmt.Sprintf("[%s] %s | 记录 %s | 用时 %s", status(ok), t.curFile, humanize.Comma(int64(records)), formatDur(dur)))
}

// RunFinish 输出总览。
func (t *Terminal) RunFinish(ok bool, dur time.Duration) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	t.println(fmt.Sprintf("[%s] %s 完成 | 输入 %d | 记录 %s | 总用时 %s",
		status(ok), t.command, t.filesDone, humanize.Comma(t.records), formatDur(dur)))
}

func status(ok bool) string {
	if ok {
		return "done"
	}
	return "fail"
}

func (t *Terminal) println(s string) {
	if _, err := io.WriteString(t.w, s+"\n"); err != nil {
		t.enabled = false
	}
	t.lastLen = 0
}

func (t *Terminal) printInline(s string) {
	l := visLen(s)
	pad := 0
	if t.lastLen > l {
		pad = t.lastLen - l
	}
	if _, err := io.WriteString(t.w, "\r"+s+strings.Repeat(" ", pad)); err != nil {
		t.enabled = false
		return
	}
	t.lastLen = l
}

// shortenBase: 取基名并按 rune 数截断（尾部省略号）。
func shortenBase(s string, max int) string {
	base := filepath.Base(strings.TrimSpace(s))
	rs := []rune(base)
	if max <= 1 || len(rs) <= max {
		return base
	}
	return string(rs[:max-1]) + "…"
}

func visLen(s string) int { return len([]rune(s)) }

func formatDur(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", max(d.Milliseconds(), 0))
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}
