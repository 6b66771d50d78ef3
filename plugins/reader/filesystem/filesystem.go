// Package filesystem 提供比对结果与汇总表的输入源：单文件、目录（递归）或 STDIN。
package filesystem

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"orthoref/pkg/contract"
)

// StdinID: 读取 STDIN 时回调的 FileID。
const StdinID contract.FileID = "stdin"

// Options: FileSystem Reader 的可选配置。
type Options struct {
	// BufSize 为读缓冲区大小（字节）。默认 64KiB。
	BufSize int `yaml:"buf_size"`
	// Extensions: 目录扫描时仅接受这些扩展名（如 ".xml"），大小写不敏感；为空表示不过滤。
	// 显式给出的单文件 root 不受影响。
	Extensions []string `yaml:"extensions"`
	// ExcludeDirNames: 递归时跳过的目录基名。
	ExcludeDirNames []string `yaml:"exclude_dir_names"`
}

// FileSystem 实现 contract.Reader。
type FileSystem struct {
	bufSize    int
	exts       map[string]struct{}
	excludeDir map[string]struct{}
	stdin      io.Reader
}

var _ contract.Reader = (*FileSystem)(nil)

// New 创建 FileSystem Reader。
func New(opts *Options) *FileSystem {
	r := &FileSystem{bufSize: 64 * 1024, exts: map[string]struct{}{}, excludeDir: map[string]struct{}{}, stdin: os.Stdin}
	if opts == nil {
		return r
	}
	if opts.BufSize > 0 {
		r.bufSize = opts.BufSize
	}
	for _, e := range opts.Extensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		r.exts[e] = struct{}{}
	}
	for _, name := range opts.ExcludeDirNames {
		if name != "" {
			r.excludeDir[strings.ToLower(name)] = struct{}{}
		}
	}
	return r
}

// WithStdin 替换 STDIN 来源（测试与嵌入场景）。
func (r *FileSystem) WithStdin(in io.Reader) *FileSystem {
	r.stdin = in
	return r
}

// Iterate 按稳定顺序对每个常规文件调用 yield；roots 为空或仅为 "-" 时读取 STDIN。
// yield 负责关闭 ReadCloser；yield 出错时由 Iterate 关闭。
func (r *FileSystem) Iterate(ctx context.Context, roots []string, yield func(fileID contract.FileID, rc io.ReadCloser) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(roots) == 0 || (len(roots) == 1 && roots[0] == "-") {
		return yield(StdinID, r.buffered(io.NopCloser(r.stdin)))
	}
	for _, s := range roots {
		if s == "-" {
			return fmt.Errorf("stdin '-' cannot be mixed with other inputs: %w", contract.ErrInvalidInput)
		}
	}
	for _, root := range roots {
		if err := r.iterateOne(ctx, root, yield); err != nil {
			return err
		}
	}
	return nil
}

func (r *FileSystem) iterateOne(ctx context.Context, root string, yield func(contract.FileID, io.ReadCloser) error) error {
	info, err := os.Stat(root) // 跟随符号链接
	if err != nil {
		return fmt.Errorf("input %s: %w", root, err)
	}
	switch {
	case info.IsDir():
		return r.walkDir(ctx, root, yield)
	case info.Mode().IsRegular():
		return r.emit(root, yield)
	default:
		return fmt.Errorf("input %s is not a regular file: %w", root, contract.ErrInvalidInput)
	}
}

func (r *FileSystem) walkDir(ctx context.Context, dir string, yield func(contract.FileID, io.ReadCloser) error) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	// 先子目录后文件；目录符号链接不跟随
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !e.IsDir() {
			continue
		}
		if _, skip := r.excludeDir[strings.ToLower(e.Name())]; skip {
			continue
		}
		if err := r.walkDir(ctx, filepath.Join(dir, e.Name()), yield); err != nil {
			return err
		}
	}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if e.IsDir() || !r.accepts(e.Name()) {
			continue
		}
		p := filepath.Join(dir, e.Name())
		t, err := os.Stat(p)
		if err != nil {
			return err
		}
		if !t.Mode().IsRegular() {
			continue
		}
		if err := r.emit(p, yield); err != nil {
			return err
		}
	}
	return nil
}

func (r *FileSystem) accepts(name string) bool {
	if len(r.exts) == 0 {
		return true
	}
	_, ok := r.exts[strings.ToLower(filepath.Ext(name))]
	return ok
}

func (r *FileSystem) emit(p string, yield func(contract.FileID, io.ReadCloser) error) error {
	f, err := os.Open(p)
	if err != nil {
		return err
	}
	brc := r.buffered(f)
	if err := yield(contract.NormalizeFileID(p), brc); err != nil {
		_ = brc.Close()
		return err
	}
	return nil
}

// bufferedCloser 将 bufio.Reader 与底层 Closer 组合为 ReadCloser。
type bufferedCloser struct {
	*bufio.Reader
	c io.Closer
}

func (r *FileSystem) buffered(c io.ReadCloser) *bufferedCloser {
	return &bufferedCloser{Reader: bufio.NewReaderSize(c, r.bufSize), c: c}
}

func (b *bufferedCloser) Close() error { return b.c.Close() }
