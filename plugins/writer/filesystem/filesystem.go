// Package filesystem 将报告写到 STDOUT 或文件；文件默认原子替换（同目录临时文件 + rename）。
package filesystem

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"orthoref/pkg/contract"
)

// Options: 文件系统 Writer 选项。
type Options struct {
	// OutputDir: 非空时 ArtifactID 视为该目录下的相对路径，禁止越界；为空时按原样解析路径。
	OutputDir string `yaml:"output_dir"`
	// Atomic: 是否原子替换；nil 视为 true。
	Atomic *bool `yaml:"atomic"`
	// PermFile/PermDir: 为 0 时使用 0644 / 0755。
	PermFile os.FileMode `yaml:"perm_file"`
	PermDir  os.FileMode `yaml:"perm_dir"`
	// BufSize: 写缓冲区大小；<=0 使用 64KiB。
	BufSize int `yaml:"buf_size"`
}

// FS 实现 contract.Writer。
type FS struct {
	root    string
	atomic  bool
	permF   os.FileMode
	permD   os.FileMode
	bufSize int

	mu     sync.Mutex // 串行化对 stdout 的写入
	stdout io.Writer
}

var _ contract.Writer = (*FS)(nil)

// New 创建文件系统 Writer。
func New(opts *Options) (*FS, error) {
	w := &FS{atomic: true, permF: 0o644, permD: 0o755, bufSize: 64 * 1024, stdout: os.Stdout}
	if opts == nil {
		return w, nil
	}
	w.root = strings.TrimSpace(opts.OutputDir)
	if opts.Atomic != nil {
		w.atomic = *opts.Atomic
	}
	if opts.PermFile != 0 {
		w.permF = opts.PermFile
	}
	if opts.PermDir != 0 {
		w.permD = opts.PermDir
	}
	if opts.BufSize > 0 {
		w.bufSize = opts.BufSize
	}
	return w, nil
}

// WithStdout 替换 "-" 对应的输出流。
func (w *FS) WithStdout(out io.Writer) *FS {
	w.stdout = out
	return w
}

// Write 将 r 的全部字节写入 id 对应的目标；id 为 "-" 时写 STDOUT。
func (w *FS) Write(ctx context.Context, id contract.ArtifactID, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if id == contract.StdoutArtifact {
		w.mu.Lock()
		defer w.mu.Unlock()
		_, err := io.Copy(w.stdout, readerWithCtx(ctx, r))
		return err
	}
	dest, err := w.mapPath(id)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), w.permD); err != nil {
		return err
	}
	if w.atomic {
		return w.writeAtomic(ctx, dest, r)
	}
	return w.writeOverwrite(ctx, dest, r)
}

// mapPath: 无 OutputDir 时仅 Clean；否则 Join 并拒绝绝对路径、卷名与父级逃逸。
func (w *FS) mapPath(id contract.ArtifactID) (string, error) {
	rel := filepath.Clean(string(id))
	if rel == "." || rel == "" {
		return "", fmt.Errorf("artifact %q: %w", id, contract.ErrPathInvalid)
	}
	if w.root == "" {
		return rel, nil
	}
	if filepath.IsAbs(rel) || filepath.VolumeName(rel) != "" ||
		rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("artifact %q escapes output dir: %w", id, contract.ErrPathInvalid)
	}
	return filepath.Join(w.root, rel), nil
}

func (w *FS) writeOverwrite(ctx context.Context, dest string, r io.Reader) error {
	f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, w.permF)
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(f, w.bufSize)
	if _, err := io.Copy(bw, readerWithCtx(ctx, r)); err != nil {
		_ = f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (w *FS) writeAtomic(ctx context.Context, dest string, r io.Reader) (err error) {
	dir := filepath.Dir(dest)
	tmp, err := os.CreateTemp(dir, ".tmp-orthoref-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()
	if err = os.Chmod(tmpPath, w.permF); err != nil {
		return err
	}
	bw := bufio.NewWriterSize(tmp, w.bufSize)
	if _, err = io.Copy(bw, readerWithCtx(ctx, r)); err != nil {
		return err
	}
	if err = bw.Flush(); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = osReplace(tmpPath, dest); err != nil {
		return err
	}
	_ = syncDir(dir)
	return nil
}

// readerWithCtx: 每次 Read 前检查 ctx。
func readerWithCtx(ctx context.Context, r io.Reader) io.Reader {
	return &ctxReader{ctx: ctx, r: r}
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *ctxReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}
