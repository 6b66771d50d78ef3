// Package summary 解析比对汇总表（summarize 的输出）为 contract.SummaryRow。
package summary

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"orthoref/pkg/contract"
)

// MinFields: 一行至少的制表符字段数。
const MinFields = 9

// Options: summary 拆分器选项。
type Options struct {
	// MaxLineBytes: 单行最大字节数（比对模式的序列行可能很长）。默认 16MiB。
	MaxLineBytes int `yaml:"max_line_bytes"`
}

// Splitter 实现 contract.Splitter。
type Splitter struct {
	maxLine int
}

var _ contract.Splitter = (*Splitter)(nil)

// New 创建拆分器。
func New(opts *Options) *Splitter {
	s := &Splitter{maxLine: 16 << 20}
	if opts != nil && opts.MaxLineBytes > 0 {
		s.maxLine = opts.MaxLineBytes
	}
	return s
}

// Split 逐行回调。空行与不含制表符的行（比对模式下的序列行）不视为记录；
// 行首 ">" 被剥离。字段不足或数值非法时回调包裹 ErrMalformedRecord 的错误（含行号）。
func (s *Splitter) Split(ctx context.Context, fileID contract.FileID, r io.Reader, yield func(row contract.SummaryRow, err error) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), s.maxLine)
	line := 0
	for sc.Scan() {
		line++
		if line%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		text := strings.TrimRight(sc.Text(), "\r\n")
		if strings.TrimSpace(text) == "" || !strings.Contains(text, "\t") {
			continue
		}
		row, err := ParseLine(text)
		if err != nil {
			err = fmt.Errorf("%s:%d: %w", fileID, line, err)
		}
		if yerr := yield(row, err); yerr != nil {
			return yerr
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("%s:%d: %w", fileID, line+1, err)
	}
	return ctx.Err()
}

// ParseLine 解析一行的前 9 个字段；其后的片段坐标等字段被忽略。
func ParseLine(text string) (contract.SummaryRow, error) {
	text = strings.TrimPrefix(text, ">")
	f := strings.Split(text, "\t")
	if len(f) < MinFields {
		return contract.SummaryRow{}, fmt.Errorf("expected >= %d fields, got %d: %w", MinFields, len(f), contract.ErrMalformedRecord)
	}
	for i := range f[:MinFields] {
		f[i] = strings.TrimSpace(f[i])
	}
	row := contract.SummaryRow{Query: f[0], Candidate: f[1]}
	score, err := strconv.ParseFloat(f[2], 64)
	if err != nil || math.IsNaN(score) || math.IsInf(score, 0) {
		return contract.SummaryRow{}, fmt.Errorf("score %q: %w", f[2], contract.ErrMalformedRecord)
	}
	row.Score = score
	ints := []*int{&row.QueryLen, &row.HitLen, &row.RegionQuery, &row.RegionHit, &row.MatchQuery, &row.MatchHit}
	for i, dst := range ints {
		n, err := strconv.Atoi(f[3+i])
		if err != nil {
			return contract.SummaryRow{}, fmt.Errorf("field %d %q: %w", 4+i, f[3+i], contract.ErrMalformedRecord)
		}
		*dst = n
	}
	if err := contract.ValidateRow(row); err != nil {
		return contract.SummaryRow{}, err
	}
	return row, nil
}
